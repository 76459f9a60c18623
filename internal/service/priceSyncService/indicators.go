package priceSyncService

import (
	"context"
	"log/slog"
	"sync"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const usdKrwCode = "USDKRW"

var indicators = []model.MarketIndicator{
	{Code: usdKrwCode, Name: "USD/KRW", QuoteTicker: "KRW=X", Currency: model.CurrencyKRW},
	{Code: "BTC", Name: "Bitcoin", QuoteTicker: "BTC-USD", Currency: model.CurrencyUSD},
	{Code: "GOLD", Name: "Gold", QuoteTicker: "GC=F", Currency: model.CurrencyUSD},
	{Code: "OIL", Name: "Crude Oil", QuoteTicker: "CL=F", Currency: model.CurrencyUSD},
}

// MarketIndicators fetches the exchange rate, bitcoin, gold and oil concurrently.
// Indicators that could not be fetched are left out; the order is fixed.
func (s *PriceSyncService) MarketIndicators(ctx context.Context) []model.MarketIndicator {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceSyncService.MarketIndicators"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op))

	results := make([]*model.MarketIndicator, len(indicators))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for i, ind := range indicators {
		i, ind := i, ind
		g.Go(func() error {
			res, ok := s.indicator(ctx, ind)
			if !ok {
				return nil
			}
			mu.Lock()
			results[i] = &res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.MarketIndicator, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	slog.Debug(op+" finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("fetched", len(out)))

	return out
}

func (s *PriceSyncService) indicator(ctx context.Context, ind model.MarketIndicator) (model.MarketIndicator, bool) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceSyncService.indicator"

	quote, err := s.fetch(ctx, ind.QuoteTicker)
	if err == nil {
		ind.Price = quote.Price
		ind.Change = quote.Change
		ind.ChangePercent = quote.ChangePercent
		return ind, true
	}

	slog.Warn("can't fetch indicator", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", ind.Code), slog.String("err", err.Error()))

	// курс можно взять и из exchangeRateApi, но без изменения за день
	if ind.Code != usdKrwCode || s.rates == nil {
		return model.MarketIndicator{}, false
	}

	rate, err := s.rates.FetchUsdToKrw(ctx)
	if err != nil {
		slog.Warn("can't fetch exchange rate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.MarketIndicator{}, false
	}

	ind.Price = rate
	ind.Change = decimal.NullDecimal{}
	ind.ChangePercent = decimal.NullDecimal{}
	return ind, true
}
