package priceSyncService

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type QuoteProvider interface {
	GetQuote(ctx context.Context, ticker string) (model.RawQuote, error)
}

type Repository interface {
	ListTrackedTickers(ctx context.Context) ([]string, error)
	UpdateCurrentPriceByTicker(ctx context.Context, ticker string, price decimal.Decimal, officialName string, updatedAt time.Time) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, update model.PriceUpdate) error
}

type ExchangeRateApi interface {
	FetchUsdToKrw(ctx context.Context) (decimal.Decimal, error)
}

// RefreshReport - итог одного прохода синхронизации
type RefreshReport struct {
	Requested int
	Updated   []model.Quote
	Failed    []string
}

// PriceSyncService keeps holdings' current price fresh.
// It only ever writes the current price, never the position.
type PriceSyncService struct {
	cfg       *config.Config
	quotes    QuoteProvider
	repo      Repository
	publisher Publisher
	rates     ExchangeRateApi
	now       func() time.Time
}

func New(cfg *config.Config, quotes QuoteProvider, repo Repository, publisher Publisher, rates ExchangeRateApi) *PriceSyncService {
	return &PriceSyncService{
		cfg:       cfg,
		quotes:    quotes,
		repo:      repo,
		publisher: publisher,
		rates:     rates,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Refresh fetches every ticker concurrently and writes the price onto all holdings
// with that ticker. A failed fetch is logged and leaves the previous price.
func (s *PriceSyncService) Refresh(ctx context.Context, tickers []string) RefreshReport {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceSyncService.Refresh"

	tickers = uniqueTickers(tickers)
	report := RefreshReport{Requested: len(tickers)}

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("tickers", len(tickers)))
	defer func() {
		slog.Debug(
			op+" finished",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.Int("updated", len(report.Updated)),
			slog.Int("failed", len(report.Failed)),
		)
	}()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.parallelism())

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			quote, err := s.refreshTicker(ctx, ticker)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, ticker)
				return nil
			}
			report.Updated = append(report.Updated, quote)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Failed)
	sort.Slice(report.Updated, func(i, j int) bool { return report.Updated[i].Ticker < report.Updated[j].Ticker })

	return report
}

// RefreshAll refreshes every ticker that at least one holding tracks.
func (s *PriceSyncService) RefreshAll(ctx context.Context) (RefreshReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceSyncService.RefreshAll"

	tickers, err := s.repo.ListTrackedTickers(ctx)
	if err != nil {
		slog.Error("got error from repo.ListTrackedTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return RefreshReport{}, err
	}

	return s.Refresh(ctx, tickers), nil
}

func (s *PriceSyncService) refreshTicker(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceSyncService.refreshTicker"

	quote, err := s.fetch(ctx, ticker)
	if err != nil {
		slog.Warn("can't fetch quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	updated, err := s.repo.UpdateCurrentPriceByTicker(ctx, ticker, quote.Price, quote.Name, quote.FetchedAt)
	if err != nil {
		slog.Error("got error from repo.UpdateCurrentPriceByTicker", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	update := model.PriceUpdate{
		Ticker:          ticker,
		Price:           quote.Price,
		Change:          quote.Change,
		ChangePercent:   quote.ChangePercent,
		UpdatedHoldings: updated,
		FetchedAt:       quote.FetchedAt,
	}
	if s.publisher != nil {
		if err = s.publisher.Publish(ctx, update); err != nil {
			slog.Warn("can't publish price update", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		}
	}

	return quote, nil
}

// fetch is time-boxed by PriceSync.FetchTimeout so a stalled request can't hold a slot forever.
func (s *PriceSyncService) fetch(ctx context.Context, ticker string) (model.Quote, error) {
	if timeout := s.cfg.PriceSync.FetchTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := s.quotes.GetQuote(ctx, ticker)
	if err != nil {
		return model.Quote{}, err
	}

	return toQuote(ticker, raw, s.now()), nil
}

func (s *PriceSyncService) parallelism() int {
	if n := s.cfg.PriceSync.MaxParallelFetch; n > 0 {
		return n
	}
	return 1
}

var hundred = decimal.NewFromInt(100)

func toQuote(ticker string, raw model.RawQuote, fetchedAt time.Time) model.Quote {
	q := model.Quote{
		Ticker:    ticker,
		Price:     raw.Price,
		Currency:  raw.Currency,
		Name:      raw.Name,
		FetchedAt: fetchedAt,
	}

	if raw.PreviousClose.Valid && raw.PreviousClose.Decimal.IsPositive() {
		change := raw.Price.Sub(raw.PreviousClose.Decimal)
		q.Change = decimal.NewNullDecimal(change)
		q.ChangePercent = decimal.NewNullDecimal(change.Div(raw.PreviousClose.Decimal).Mul(hundred).Round(2))
	}

	return q
}

func uniqueTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	res := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = model.NormalizeTicker(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		res = append(res, t)
	}
	return res
}
