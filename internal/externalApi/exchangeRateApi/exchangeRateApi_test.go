package exchangeRateApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) *ExchangeRateApi {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{API: config.API{ExchangeRateApi: config.ExchangeRateApi{
		Url:      srv.URL,
		Timeout:  200 * time.Millisecond,
		Fallback: decimal.NewFromInt(1350),
	}}}
	return New(cfg)
}

func TestFetchUsdToKrw(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "KRW", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2025-03-01","rates":{"KRW":1458.37}}`))
	})

	rate, err := api.FetchUsdToKrw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1458.37", rate.String())
	assert.Equal(t, "1458.37", api.UsdToKrw(context.Background()).String())
}

func TestUsdToKrw_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "missing rate",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"base":"USD","rates":{}}`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(time.Second):
				case <-r.Context().Done():
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestApi(t, tt.handler)

			_, err := api.FetchUsdToKrw(context.Background())
			assert.Error(t, err)
			assert.Equal(t, "1350", api.UsdToKrw(context.Background()).String())
		})
	}
}
