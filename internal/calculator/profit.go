package calculator

import (
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/validation"
	"github.com/shopspring/decimal"
)

// ProfitInput - ставки в процентах, налог берется только с продажи
type ProfitInput struct {
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Quantity  int64
	TaxRate   decimal.Decimal
	FeeRate   decimal.Decimal
	Currency  model.Currency
}

// Profit is the outcome of a round-trip buy and sell including fees and tax.
type Profit struct {
	Input ProfitInput

	TotalBuyAmount   decimal.Decimal
	TotalSellAmount  decimal.Decimal
	BuyFee           decimal.Decimal
	SellFee          decimal.Decimal
	Tax              decimal.Decimal
	TotalCost        decimal.Decimal
	TotalRevenue     decimal.Decimal
	NetProfit        decimal.Decimal
	ProfitRate       decimal.Decimal
	BreakEvenPrice   decimal.Decimal
	SimpleDifference decimal.Decimal
}

func NewProfit(in ProfitInput) (Profit, error) {
	if !in.BuyPrice.IsPositive() {
		return Profit{}, validation.New(validation.RuleNonPositivePrice, "buy price must be positive, got %s", in.BuyPrice)
	}
	if !in.SellPrice.IsPositive() {
		return Profit{}, validation.New(validation.RuleNonPositivePrice, "sell price must be positive, got %s", in.SellPrice)
	}
	if in.Quantity <= 0 {
		return Profit{}, validation.New(validation.RuleNonPositiveQuantity, "quantity must be positive, got %d", in.Quantity)
	}
	if in.FeeRate.IsNegative() || in.TaxRate.IsNegative() {
		return Profit{}, validation.New(validation.RuleInvalidRate, "rates must not be negative, got fee %s tax %s", in.FeeRate, in.TaxRate)
	}

	qty := decimal.NewFromInt(in.Quantity)
	feeRate := in.FeeRate.Div(hundred)
	taxRate := in.TaxRate.Div(hundred)

	p := Profit{Input: in}
	p.TotalBuyAmount = in.BuyPrice.Mul(qty)
	p.TotalSellAmount = in.SellPrice.Mul(qty)
	p.BuyFee = p.TotalBuyAmount.Mul(feeRate)
	p.SellFee = p.TotalSellAmount.Mul(feeRate)
	p.Tax = p.TotalSellAmount.Mul(taxRate)
	p.TotalCost = p.TotalBuyAmount.Add(p.BuyFee)
	p.TotalRevenue = p.TotalSellAmount.Sub(p.SellFee).Sub(p.Tax)
	p.NetProfit = p.TotalRevenue.Sub(p.TotalCost)
	p.SimpleDifference = p.TotalSellAmount.Sub(p.TotalBuyAmount)

	if p.TotalCost.IsPositive() {
		p.ProfitRate = p.NetProfit.Div(p.TotalCost).Mul(hundred)
	}

	// sellPrice * qty * (1 - fee - tax) = totalCost
	keep := decimal.NewFromInt(1).Sub(feeRate).Sub(taxRate)
	if keep.IsPositive() {
		p.BreakEvenPrice = p.TotalCost.Div(qty.Mul(keep))
	}

	return p, nil
}
