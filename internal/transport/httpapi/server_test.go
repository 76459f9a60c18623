package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/data"
	"github.com/KotFed0t/stock_ledger/data/broker"
	"github.com/KotFed0t/stock_ledger/data/repository/sqlstore"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/stock_ledger/internal/service/ledgerService"
	"github.com/KotFed0t/stock_ledger/internal/service/priceSyncService"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRates struct{}

func (fixedRates) UsdToKrw(ctx context.Context) decimal.Decimal {
	return decimal.NewFromInt(1300)
}

type fakePrices struct {
	refreshed []string
}

func (f *fakePrices) Refresh(ctx context.Context, tickers []string) priceSyncService.RefreshReport {
	f.refreshed = tickers
	return priceSyncService.RefreshReport{
		Requested: len(tickers),
		Updated:   []model.Quote{{Ticker: tickers[0], Price: decimal.NewFromInt(10)}},
	}
}

func (f *fakePrices) RefreshAll(ctx context.Context) (priceSyncService.RefreshReport, error) {
	return priceSyncService.RefreshReport{Requested: 2, Failed: []string{"AAPL"}}, nil
}

func (f *fakePrices) MarketIndicators(ctx context.Context) []model.MarketIndicator {
	return []model.MarketIndicator{{Code: "BTC", Name: "Bitcoin", QuoteTicker: "BTC-USD", Price: decimal.NewFromInt(60000), Currency: model.CurrencyUSD}}
}

type testServer struct {
	url    string
	broker *broker.MemoryBroker
	prices *fakePrices
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := data.OpenSQLite(data.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		HTTP: config.HTTP{AllowedOrigins: []string{"*"}},
		Calculator: config.Calculator{
			DefaultFeeRate: decimal.RequireFromString("0.015"),
			DefaultTaxRate: decimal.RequireFromString("0.15"),
		},
	}

	b := broker.NewMemoryBroker()
	prices := &fakePrices{}
	ledger := ledgerService.New(sqlstore.New(db), fixedRates{}, xlsxGenerator.New(), nil)

	ts := httptest.NewServer(New(cfg, ledger, prices, b).Handler())
	t.Cleanup(ts.Close)

	return &testServer{url: ts.URL, broker: b, prices: prices}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (s *testServer) createHolding(t *testing.T, ticker string) (accountView, holdingView) {
	t.Helper()

	status, raw := s.do(t, http.MethodPost, "/api/accounts", accountRequest{Name: "main"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	account := decode[accountView](t, raw)

	status, raw = s.do(t, http.MethodPost, "/api/accounts/"+account.ID+"/holdings", holdingRequest{Ticker: ticker})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return account, decode[holdingView](t, raw)
}

func trade(typ, price string, qty int64) tradeRequest {
	return tradeRequest{Type: typ, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestLedgerFlow(t *testing.T) {
	s := newTestServer(t)
	account, holding := s.createHolding(t, "005930.ks")
	assert.Equal(t, "005930.KS", holding.Ticker)
	assert.Equal(t, "KRW", holding.Currency)

	var records []recordView
	for _, tr := range []tradeRequest{trade("buy", "100", 10), trade("BUY", "200", 10), trade("sell", "250", 5)} {
		status, raw := s.do(t, http.MethodPost, "/api/holdings/"+holding.ID+"/records", tr)
		require.Equal(t, http.StatusCreated, status, string(raw))
		records = append(records, decode[tradeResponse](t, raw).Record)
	}

	status, raw := s.do(t, http.MethodGet, "/api/holdings/"+holding.ID, nil)
	require.Equal(t, http.StatusOK, status)
	h := decode[holdingView](t, raw)
	assert.Equal(t, int64(15), h.Quantity)
	assert.True(t, decimal.NewFromInt(150).Equal(h.AveragePrice))
	assert.True(t, decimal.NewFromInt(500).Equal(records[2].Profit.Decimal))

	status, raw = s.do(t, http.MethodDelete, "/api/holdings/"+holding.ID+"/records/"+records[0].ID, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, records[2].ID, decode[errorResponse](t, raw).LastRecordID)

	status, raw = s.do(t, http.MethodDelete, "/api/holdings/"+holding.ID+"/records/"+records[2].ID, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, int64(20), decode[holdingView](t, raw).Quantity)

	status, raw = s.do(t, http.MethodGet, "/api/holdings/"+holding.ID+"/records", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]recordView](t, raw), 2)

	status, raw = s.do(t, http.MethodGet, "/api/holdings/"+holding.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, decode[map[string]any](t, raw)["consistent"])

	status, raw = s.do(t, http.MethodGet, "/api/accounts/"+account.ID+"/summary", nil)
	require.Equal(t, http.StatusOK, status)
	summary := decode[summaryView](t, raw)
	assert.Equal(t, 1, summary.HoldingsCount)
	assert.True(t, decimal.NewFromInt(3000).Equal(summary.TotalCostBasis))

	status, raw = s.do(t, http.MethodDelete, "/api/holdings/"+holding.ID+"/records", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(0), decode[holdingView](t, raw).Quantity)

	status, _ = s.do(t, http.MethodDelete, "/api/holdings/"+holding.ID+"/records/"+records[1].ID, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	account, holding := s.createHolding(t, "AAPL")

	status, raw := s.do(t, http.MethodPost, "/api/holdings/"+holding.ID+"/records", trade("SELL", "10", 1))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "sell_exceeds_quantity", decode[errorResponse](t, raw).Rule)

	status, raw = s.do(t, http.MethodPost, "/api/holdings/"+holding.ID+"/records", trade("HOLD", "10", 1))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_trade_type", decode[errorResponse](t, raw).Rule)

	status, raw = s.do(t, http.MethodPost, "/api/accounts/"+account.ID+"/holdings", holdingRequest{Ticker: "aapl"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "duplicate_ticker", decode[errorResponse](t, raw).Rule)

	status, _ = s.do(t, http.MethodGet, "/api/holdings/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodDelete, "/api/holdings/"+holding.ID+"/records/any", nil)
	assert.Equal(t, http.StatusConflict, status)

	req, err := http.NewRequest(http.MethodPost, s.url+"/api/accounts", strings.NewReader(`{"name": "x", "unknown": 1}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccountsCrud(t *testing.T) {
	s := newTestServer(t)

	status, raw := s.do(t, http.MethodPost, "/api/accounts", accountRequest{Name: "US", Currency: "usd"})
	require.Equal(t, http.StatusCreated, status)
	account := decode[accountView](t, raw)
	assert.Equal(t, "USD", account.Currency)

	status, raw = s.do(t, http.MethodPatch, "/api/accounts/"+account.ID, renameRequest{Name: "Growth"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Growth", decode[accountView](t, raw).Name)

	status, raw = s.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]accountView](t, raw), 1)

	status, _ = s.do(t, http.MethodDelete, "/api/accounts/"+account.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, "/api/accounts/"+account.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestScenarioAndExport(t *testing.T) {
	s := newTestServer(t)
	account, _ := s.createHolding(t, "005930.KS")

	body := scenarioRequest{
		Name:             "Dip",
		BaseAveragePrice: decimal.NewFromInt(100),
		BaseQuantity:     10,
		Rounds:           []roundRequest{{Price: decimal.NewFromInt(80), Quantity: 10}},
	}
	status, raw := s.do(t, http.MethodPost, "/api/accounts/"+account.ID+"/scenarios", body)
	require.Equal(t, http.StatusCreated, status, string(raw))
	scenario := decode[holdingView](t, raw)
	assert.Equal(t, "Dip", scenario.Name)
	assert.Equal(t, int64(20), scenario.Quantity)
	assert.True(t, decimal.NewFromInt(90).Equal(scenario.AveragePrice))

	resp, err := http.Get(s.url + "/api/accounts/" + account.ID + "/export")
	require.NoError(t, err)
	content, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, content)

	status, _ = s.do(t, http.MethodGet, "/api/accounts/"+account.ID+"/export?upload=true", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestCalculator(t *testing.T) {
	s := newTestServer(t)

	status, raw := s.do(t, http.MethodPost, "/api/calculator/averaging", map[string]any{
		"baseAveragePrice": "100",
		"baseQuantity":     10,
		"rounds":           []map[string]any{{"price": "80", "quantity": 10}, {"price": "60", "quantity": 20}},
		"feeRate":          "0",
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	res := decode[struct {
		Currency string          `json:"currency"`
		Rounds   []averagingView `json:"rounds"`
	}](t, raw)
	assert.Equal(t, "KRW", res.Currency)
	require.Len(t, res.Rounds, 2)
	assert.True(t, decimal.NewFromInt(90).Equal(res.Rounds[0].NewAveragePriceWithoutFee))
	assert.True(t, decimal.NewFromInt(75).Equal(res.Rounds[1].NewAveragePriceWithoutFee))

	status, raw = s.do(t, http.MethodPost, "/api/calculator/profit", map[string]any{
		"buyPrice":  "100",
		"sellPrice": "120",
		"quantity":  10,
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	profit := decode[profitView](t, raw)
	assert.True(t, decimal.NewFromInt(200).Equal(profit.SimpleDifference))
	// комиссия и налог по умолчанию
	assert.True(t, decimal.RequireFromString("1.8").Equal(profit.Tax))

	status, raw = s.do(t, http.MethodPost, "/api/calculator/averaging", map[string]any{"baseAveragePrice": "100", "baseQuantity": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "empty_scenario", decode[errorResponse](t, raw).Rule)
}

func TestPricesEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, raw := s.do(t, http.MethodGet, "/api/market/indicators", nil)
	require.Equal(t, http.StatusOK, status)
	indicators := decode[[]indicatorView](t, raw)
	require.Len(t, indicators, 1)
	assert.Equal(t, "BTC-USD", indicators[0].Symbol)

	status, raw = s.do(t, http.MethodPost, "/api/prices/refresh", refreshRequest{Tickers: []string{"AAPL"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"AAPL"}, s.prices.refreshed)
	assert.Len(t, decode[refreshView](t, raw).Updated, 1)

	status, raw = s.do(t, http.MethodPost, "/api/prices/refresh", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"AAPL"}, decode[refreshView](t, raw).Failed)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, s.url+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "rq-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "rq-42", resp.Header.Get(requestIDHeader))

	resp, err = http.Get(s.url + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestPriceStream(t *testing.T) {
	s := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(s.url, "http") + "/ws/prices"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.broker.SubscribersCount() == 1 }, time.Second, 10*time.Millisecond)

	update := model.PriceUpdate{Ticker: "AAPL", Price: decimal.RequireFromString("189.5"), UpdatedHoldings: 3}
	require.NoError(t, s.broker.Publish(context.Background(), update))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.PriceUpdate
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "AAPL", got.Ticker)
	assert.True(t, update.Price.Equal(got.Price))
	assert.Equal(t, int64(3), got.UpdatedHoldings)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.broker.SubscribersCount() == 0 }, time.Second, 10*time.Millisecond)
}
