package httpapi

import (
	"net/http"
	"strings"

	"github.com/KotFed0t/stock_ledger/internal/calculator"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/shopspring/decimal"
)

func (s *Server) handleAveraging(w http.ResponseWriter, r *http.Request) {
	var req averagingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	currency, err := parseCurrency(req.Currency)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rounds, err := calculator.ChainAveraging(
		req.BaseAveragePrice,
		req.BaseQuantity,
		toRounds(req.Rounds),
		rateOrDefault(req.FeeRate, s.cfg.Calculator.DefaultFeeRate),
		currency,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := make([]averagingView, 0, len(rounds))
	for _, a := range rounds {
		res = append(res, toAveragingView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"currency": currency, "rounds": res})
}

func (s *Server) handleProfit(w http.ResponseWriter, r *http.Request) {
	var req profitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	currency, err := parseCurrency(req.Currency)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	profit, err := calculator.NewProfit(calculator.ProfitInput{
		BuyPrice:  req.BuyPrice,
		SellPrice: req.SellPrice,
		Quantity:  req.Quantity,
		TaxRate:   rateOrDefault(req.TaxRate, s.cfg.Calculator.DefaultTaxRate),
		FeeRate:   rateOrDefault(req.FeeRate, s.cfg.Calculator.DefaultFeeRate),
		Currency:  currency,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfitView(profit))
}

func rateOrDefault(rate decimal.NullDecimal, def decimal.Decimal) decimal.Decimal {
	if rate.Valid {
		return rate.Decimal
	}
	return def
}

func parseCurrency(raw string) (model.Currency, error) {
	if strings.TrimSpace(raw) == "" {
		return model.CurrencyKRW, nil
	}
	currency, ok := model.ParseCurrency(raw)
	if !ok {
		return "", service.NewValidationError(service.RuleInvalidCurrency, "unsupported currency %q", raw)
	}
	return currency, nil
}
