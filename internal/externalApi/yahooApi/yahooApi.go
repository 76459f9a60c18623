package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/internal/externalApi"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const userAgent = "Mozilla/5.0 (compatible; stock-ledger/1.0)"

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol             string              `json:"symbol"`
	Currency           string              `json:"currency"`
	ShortName          string              `json:"shortName"`
	LongName           string              `json:"longName"`
	RegularMarketPrice decimal.NullDecimal `json:"regularMarketPrice"`
	PreviousClose      decimal.NullDecimal `json:"previousClose"`
	ChartPreviousClose decimal.NullDecimal `json:"chartPreviousClose"`
}

type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", userAgent)
	return &YahooApi{client: client}
}

// QuoteSymbol - 6-значный код KRX без суффикса считается KOSPI
func QuoteSymbol(ticker string) string {
	t := model.NormalizeTicker(ticker)
	if model.IsKRXCode(t) {
		return t + ".KS"
	}
	return t
}

// GetQuote fetches the latest price of ticker.
// Returns externalApi.ErrNotFound for unknown symbols and externalApi.ErrNoPriceData
// when the symbol exists but has no market price.
func (a *YahooApi) GetQuote(ctx context.Context, ticker string) (model.RawQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetQuote"
	symbol := QuoteSymbol(ticker)

	slog.Debug("start "+op+" request", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "1d",
		}).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.RawQuote{}, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return model.RawQuote{}, fmt.Errorf("%w: symbol %s", externalApi.ErrNotFound, symbol)
	}
	if resp.IsError() {
		slog.Error("YahooApi returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return model.RawQuote{}, fmt.Errorf("yahoo chart %s: unexpected status %d", symbol, resp.StatusCode())
	}

	raw := chartResponse{}
	if err = json.Unmarshal(resp.Body(), &raw); err != nil {
		slog.Error("can't unmarshall response into chartResponse", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.RawQuote{}, err
	}

	quote, err := parseChart(ticker, raw)
	if err != nil {
		return model.RawQuote{}, err
	}

	slog.Debug(op+" request complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("price", quote.Price.String()))

	return quote, nil
}

func parseChart(ticker string, raw chartResponse) (model.RawQuote, error) {
	if raw.Chart.Error != nil {
		return model.RawQuote{}, fmt.Errorf("%w: %s %s", externalApi.ErrNotFound, raw.Chart.Error.Code, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 {
		return model.RawQuote{}, fmt.Errorf("%w: empty chart for %s", externalApi.ErrNotFound, ticker)
	}

	meta := raw.Chart.Result[0].Meta
	if !meta.RegularMarketPrice.Valid || !meta.RegularMarketPrice.Decimal.IsPositive() {
		return model.RawQuote{}, fmt.Errorf("%w: %s", externalApi.ErrNoPriceData, ticker)
	}

	prevClose := meta.PreviousClose
	if !prevClose.Valid {
		prevClose = meta.ChartPreviousClose
	}

	name := meta.ShortName
	if name == "" {
		name = meta.LongName
	}

	return model.RawQuote{
		Ticker:        model.NormalizeTicker(ticker),
		Price:         meta.RegularMarketPrice.Decimal,
		PreviousClose: prevClose,
		Currency:      strings.ToUpper(meta.Currency),
		Name:          strings.TrimSpace(name),
	}, nil
}
