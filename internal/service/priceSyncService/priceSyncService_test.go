package priceSyncService

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/data/broker"
	"github.com/KotFed0t/stock_ledger/internal/externalApi"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuotes struct {
	quotes  map[string]model.RawQuote
	stalled map[string]bool
	delay   time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (f *fakeQuotes) GetQuote(ctx context.Context, ticker string) (model.RawQuote, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	if f.stalled[ticker] {
		<-ctx.Done()
		return model.RawQuote{}, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	q, ok := f.quotes[ticker]
	if !ok {
		return model.RawQuote{}, externalApi.ErrNotFound
	}
	return q, nil
}

type priceWrite struct {
	price decimal.Decimal
	name  string
}

type fakeRepo struct {
	mu      sync.Mutex
	tickers []string
	listErr error
	writes  map[string]priceWrite
}

func (f *fakeRepo) ListTrackedTickers(ctx context.Context) ([]string, error) {
	return f.tickers, f.listErr
}

func (f *fakeRepo) UpdateCurrentPriceByTicker(ctx context.Context, ticker string, price decimal.Decimal, officialName string, updatedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[ticker] = priceWrite{price: price, name: officialName}
	return 2, nil
}

type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (f fakeRates) FetchUsdToKrw(ctx context.Context) (decimal.Decimal, error) {
	return f.rate, f.err
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quote(price, prev string) model.RawQuote {
	q := model.RawQuote{Price: d(price), Name: "name"}
	if prev != "" {
		q.PreviousClose = decimal.NewNullDecimal(d(prev))
	}
	return q
}

func testConfig() *config.Config {
	return &config.Config{PriceSync: config.PriceSync{FetchTimeout: 100 * time.Millisecond, MaxParallelFetch: 4}}
}

func TestRefresh_WritesAndPublishes(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]model.RawQuote{
		"AAPL":      quote("110", "100"),
		"005930.KS": quote("70000", ""),
	}}
	repo := &fakeRepo{writes: map[string]priceWrite{}}
	b := broker.NewMemoryBroker()

	updates, unsubscribe, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	defer unsubscribe()

	svc := New(testConfig(), quotes, repo, b, nil)
	report := svc.Refresh(context.Background(), []string{"aapl", "AAPL ", "005930.KS", "MISSING"})

	assert.Equal(t, 3, report.Requested)
	assert.Equal(t, []string{"MISSING"}, report.Failed)
	require.Len(t, report.Updated, 2)

	aapl := report.Updated[1]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.True(t, d("10").Equal(aapl.Change.Decimal))
	assert.True(t, d("10").Equal(aapl.ChangePercent.Decimal))

	krw := report.Updated[0]
	assert.False(t, krw.Change.Valid)
	assert.False(t, krw.ChangePercent.Valid)

	assert.Len(t, repo.writes, 2)
	assert.True(t, d("110").Equal(repo.writes["AAPL"].price))
	assert.Equal(t, "name", repo.writes["AAPL"].name)
	_, written := repo.writes["MISSING"]
	assert.False(t, written)

	got := map[string]model.PriceUpdate{}
	for i := 0; i < 2; i++ {
		select {
		case u := <-updates:
			got[u.Ticker] = u
		case <-time.After(time.Second):
			t.Fatal("price update was not published")
		}
	}
	assert.Equal(t, int64(2), got["AAPL"].UpdatedHoldings)
	assert.Contains(t, got, "005930.KS")
}

func TestRefresh_StalledFetchDoesNotBlockOthers(t *testing.T) {
	quotes := &fakeQuotes{
		quotes:  map[string]model.RawQuote{"AAPL": quote("1", ""), "MSFT": quote("2", "")},
		stalled: map[string]bool{"TSLA": true},
	}
	repo := &fakeRepo{writes: map[string]priceWrite{}}
	svc := New(testConfig(), quotes, repo, nil, nil)

	start := time.Now()
	report := svc.Refresh(context.Background(), []string{"TSLA", "AAPL", "MSFT"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"TSLA"}, report.Failed)
	assert.Len(t, report.Updated, 2)
}

func TestRefresh_RespectsParallelLimit(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]model.RawQuote{}, delay: 10 * time.Millisecond}
	tickers := make([]string, 0, 12)
	for _, ticker := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
		quotes.quotes[ticker] = quote("1", "")
		tickers = append(tickers, ticker)
	}

	cfg := testConfig()
	cfg.PriceSync.MaxParallelFetch = 3
	svc := New(cfg, quotes, &fakeRepo{writes: map[string]priceWrite{}}, nil, nil)

	report := svc.Refresh(context.Background(), tickers)

	assert.Len(t, report.Updated, 12)
	assert.LessOrEqual(t, quotes.maxInFlight.Load(), int32(3))
	assert.Equal(t, int32(12), quotes.calls.Load())
}

func TestRefreshAll(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]model.RawQuote{"AAPL": quote("1", "")}}
	repo := &fakeRepo{tickers: []string{"AAPL"}, writes: map[string]priceWrite{}}
	svc := New(testConfig(), quotes, repo, nil, nil)

	report, err := svc.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Updated, 1)

	repo.listErr = errors.New("db is down")
	_, err = svc.RefreshAll(context.Background())
	assert.Error(t, err)
}

func TestMarketIndicators(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]model.RawQuote{
		"BTC-USD": quote("60000", "50000"),
		"GC=F":    quote("2300", ""),
	}}
	svc := New(testConfig(), quotes, &fakeRepo{}, nil, fakeRates{rate: d("1380.5")})

	res := svc.MarketIndicators(context.Background())
	require.Len(t, res, 3)

	assert.Equal(t, "USDKRW", res[0].Code)
	assert.True(t, d("1380.5").Equal(res[0].Price))
	assert.False(t, res[0].Change.Valid)

	assert.Equal(t, "BTC", res[1].Code)
	assert.True(t, d("20").Equal(res[1].ChangePercent.Decimal))
	assert.Equal(t, model.InstrumentMarketIndicator, res[1].Kind())

	assert.Equal(t, "GOLD", res[2].Code)
}

func TestMarketIndicators_NoFallbackRate(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]model.RawQuote{}}
	svc := New(testConfig(), quotes, &fakeRepo{}, nil, fakeRates{err: errors.New("timeout")})

	assert.Empty(t, svc.MarketIndicators(context.Background()))
}
