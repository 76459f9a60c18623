package exchangeRateApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/internal/externalApi"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

type ExchangeRateApi struct {
	client   *resty.Client
	fallback decimal.Decimal
}

func New(cfg *config.Config) *ExchangeRateApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.ExchangeRateApi.Timeout).
		SetBaseURL(cfg.API.ExchangeRateApi.Url)
	return &ExchangeRateApi{client: client, fallback: cfg.API.ExchangeRateApi.Fallback}
}

// FetchUsdToKrw returns the latest published USD->KRW rate.
func (a *ExchangeRateApi) FetchUsdToKrw(ctx context.Context) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ExchangeRateApi.FetchUsdToKrw"

	slog.Debug("start "+op+" request", slog.String("rqID", rqID), slog.String("op", op))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{"from": "USD", "to": "KRW"}).
		Get("/latest")
	if err != nil {
		slog.Error("error while dialing ExchangeRateApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, err
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("exchange rate: unexpected status %d", resp.StatusCode())
	}

	raw := latestResponse{}
	if err = json.Unmarshal(resp.Body(), &raw); err != nil {
		slog.Error("can't unmarshall response into latestResponse", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Zero, err
	}

	rate, ok := raw.Rates["KRW"]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: KRW rate missing", externalApi.ErrNoPriceData)
	}

	slog.Debug(op+" request complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("rate", rate.String()))

	return rate, nil
}

// UsdToKrw never fails: on any error the configured fallback rate is returned.
func (a *ExchangeRateApi) UsdToKrw(ctx context.Context) decimal.Decimal {
	rate, err := a.FetchUsdToKrw(ctx)
	if err != nil {
		slog.Warn(
			"using fallback exchange rate",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("fallback", a.fallback.String()),
			slog.String("err", err.Error()),
		)
		return a.fallback
	}
	return rate
}
