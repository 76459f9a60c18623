package calculator

import (
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/validation"
	"github.com/shopspring/decimal"
)

var (
	hundred          = decimal.NewFromInt(100)
	priceSnapLimit   = decimal.RequireFromString("0.005")
	percentSnapLimit = decimal.RequireFromString("0.001")
)

const resultScale = 2

// AveragingInput - FeeRate в процентах (0.015 = 0.015%)
type AveragingInput struct {
	BaseAveragePrice decimal.Decimal
	BaseQuantity     int64
	BuyPrice         decimal.Decimal
	BuyQuantity      int64
	FeeRate          decimal.Decimal
	Currency         model.Currency
}

// Averaging is one round of an averaging-down (or up) projection.
type Averaging struct {
	Input AveragingInput

	BaseTotalAmount           decimal.Decimal
	BuyAmount                 decimal.Decimal
	BuyFee                    decimal.Decimal
	NewQuantity               int64
	NewTotalAmount            decimal.Decimal
	NewTotalAmountWithoutFee  decimal.Decimal
	NewAveragePrice           decimal.Decimal
	NewAveragePriceWithoutFee decimal.Decimal
	AveragePriceChange        decimal.Decimal
	AveragePriceChangeRate    decimal.Decimal
}

// Round is an additional buy inside a ChainAveraging projection.
type Round struct {
	Price    decimal.Decimal
	Quantity int64
}

func validateAveraging(in AveragingInput) error {
	if in.BaseAveragePrice.IsNegative() {
		return validation.New(validation.RuleNonPositivePrice, "base average price must not be negative, got %s", in.BaseAveragePrice)
	}
	if in.BaseQuantity < 0 {
		return validation.New(validation.RuleNonPositiveQuantity, "base quantity must not be negative, got %d", in.BaseQuantity)
	}
	if !in.BuyPrice.IsPositive() {
		return validation.New(validation.RuleNonPositivePrice, "buy price must be positive, got %s", in.BuyPrice)
	}
	if in.BuyQuantity <= 0 {
		return validation.New(validation.RuleNonPositiveQuantity, "buy quantity must be positive, got %d", in.BuyQuantity)
	}
	if in.FeeRate.IsNegative() {
		return validation.New(validation.RuleInvalidRate, "fee rate must not be negative, got %s", in.FeeRate)
	}
	return nil
}

func NewAveraging(in AveragingInput) (Averaging, error) {
	if err := validateAveraging(in); err != nil {
		return Averaging{}, err
	}

	a := Averaging{Input: in}
	a.BaseTotalAmount = in.BaseAveragePrice.Mul(decimal.NewFromInt(in.BaseQuantity))
	a.BuyAmount = in.BuyPrice.Mul(decimal.NewFromInt(in.BuyQuantity))
	a.BuyFee = a.BuyAmount.Mul(in.FeeRate).Div(hundred)
	a.NewQuantity = in.BaseQuantity + in.BuyQuantity
	a.NewTotalAmountWithoutFee = a.BaseTotalAmount.Add(a.BuyAmount)
	a.NewTotalAmount = a.NewTotalAmountWithoutFee.Add(a.BuyFee)

	qty := decimal.NewFromInt(a.NewQuantity)
	a.NewAveragePrice = a.NewTotalAmount.Div(qty).Round(resultScale)
	a.NewAveragePriceWithoutFee = a.NewTotalAmountWithoutFee.Div(qty).Round(resultScale)

	a.AveragePriceChange, a.AveragePriceChangeRate = averageChange(in.BaseAveragePrice, a.NewAveragePriceWithoutFee)

	return a, nil
}

// averageChange compares fee-exclusive averages; rounding noise snaps to zero.
func averageChange(base, next decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	change := next.Sub(base.Round(resultScale))
	if change.Abs().LessThanOrEqual(priceSnapLimit) {
		return decimal.Zero, decimal.Zero
	}
	change = change.Round(resultScale)

	if !base.IsPositive() {
		return change, decimal.Zero
	}

	rate := change.Div(base).Mul(hundred)
	if rate.Abs().LessThanOrEqual(percentSnapLimit) {
		return change, decimal.Zero
	}
	return change, rate.Round(resultScale)
}

// ChainAveraging runs rounds one after another: the fee-exclusive average and
// quantity of round k become the base of round k+1.
func ChainAveraging(baseAveragePrice decimal.Decimal, baseQuantity int64, rounds []Round, feeRate decimal.Decimal, currency model.Currency) ([]Averaging, error) {
	if len(rounds) == 0 {
		return nil, validation.New(validation.RuleEmptyScenario, "at least one round is required")
	}

	result := make([]Averaging, 0, len(rounds))
	avg, qty := baseAveragePrice, baseQuantity
	for _, r := range rounds {
		a, err := NewAveraging(AveragingInput{
			BaseAveragePrice: avg,
			BaseQuantity:     qty,
			BuyPrice:         r.Price,
			BuyQuantity:      r.Quantity,
			FeeRate:          feeRate,
			Currency:         currency,
		})
		if err != nil {
			return nil, err
		}
		result = append(result, a)
		avg, qty = a.NewAveragePriceWithoutFee, a.NewQuantity
	}
	return result, nil
}
