package ledgerService

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AccountSummary aggregates the account's holdings in the account currency.
// Unrealized figures only include holdings whose price is known.
func (s *LedgerService) AccountSummary(ctx context.Context, accountID string) (summary model.AccountSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.AccountSummary"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))
	defer func() {
		slog.Debug(op+" finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))
	}()

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return model.AccountSummary{}, notFound(err)
	}

	holdings, err := s.repo.GetHoldingsByAccount(ctx, accountID)
	if err != nil {
		return model.AccountSummary{}, err
	}

	summary = model.AccountSummary{
		AccountID:      account.ID,
		AccountName:    account.Name,
		Currency:       account.Currency,
		HoldingsCount:  len(holdings),
		TotalCostBasis: decimal.Zero,
		MarketValue:    decimal.Zero,
		UnrealizedPnL:  decimal.Zero,
		UnrealizedRate: decimal.Zero,
		RealizedPnL:    decimal.Zero,
	}

	conv := s.converter(ctx, account.Currency, holdings)
	if conv.rate.Valid {
		summary.ExchangeRate = conv.rate
	}

	pricedCost := decimal.Zero
	currencies := map[model.Currency]struct{}{}
	for _, h := range holdings {
		currencies[h.Currency] = struct{}{}

		cost := conv.toAccount(h.Currency, h.CostBasis())
		summary.TotalCostBasis = summary.TotalCostBasis.Add(cost)

		if mv, ok := h.MarketValue(); ok {
			summary.PricedHoldings++
			summary.MarketValue = summary.MarketValue.Add(conv.toAccount(h.Currency, mv))
			pricedCost = pricedCost.Add(cost)
		}
	}

	summary.UnrealizedPnL = summary.MarketValue.Sub(pricedCost)
	if pricedCost.IsPositive() {
		summary.UnrealizedRate = summary.UnrealizedPnL.Div(pricedCost).Mul(hundred).Round(2)
	}

	for cur := range currencies {
		realized, err := s.repo.SumRealizedProfit(ctx, accountID, cur)
		if err != nil {
			return model.AccountSummary{}, err
		}
		summary.RealizedPnL = summary.RealizedPnL.Add(conv.toAccount(cur, realized))
	}

	return summary, nil
}

type currencyConverter struct {
	target model.Currency
	rate   decimal.NullDecimal // KRW за 1 USD
}

// converter fetches the exchange rate only if some holding is not in the account currency.
func (s *LedgerService) converter(ctx context.Context, target model.Currency, holdings []model.Holding) currencyConverter {
	conv := currencyConverter{target: target}
	for _, h := range holdings {
		if h.Currency != target && s.rates != nil {
			conv.rate = decimal.NewNullDecimal(s.rates.UsdToKrw(ctx))
			break
		}
	}
	return conv
}

func (c currencyConverter) toAccount(from model.Currency, amount decimal.Decimal) decimal.Decimal {
	if from == c.target || !c.rate.Valid || !c.rate.Decimal.IsPositive() {
		return amount
	}
	switch {
	case from == model.CurrencyUSD && c.target == model.CurrencyKRW:
		return amount.Mul(c.rate.Decimal)
	case from == model.CurrencyKRW && c.target == model.CurrencyUSD:
		return amount.Div(c.rate.Decimal)
	default:
		return amount
	}
}
