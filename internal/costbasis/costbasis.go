// Package costbasis holds the pure transition functions of the ledger:
// applying a buy or sell to a holding and undoing the last applied record.
package costbasis

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/validation"
	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits kept for average prices.
const PriceScale = 2

var ErrChainMismatch = errors.New("record does not match holding state")

// RoundPrice rounds half away from zero to PriceScale digits.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PriceScale)
}

func Validate(h model.Holding, in model.TradeInput) error {
	switch in.Type {
	case model.TradeTypeBuy, model.TradeTypeSell:
	default:
		return validation.New(validation.RuleInvalidTradeType, "unknown trade type %q", in.Type)
	}

	if !in.Price.IsPositive() {
		return validation.New(validation.RuleNonPositivePrice, "price must be positive, got %s", in.Price)
	}

	if in.Quantity <= 0 {
		return validation.New(validation.RuleNonPositiveQuantity, "quantity must be positive, got %d", in.Quantity)
	}

	if in.Type == model.TradeTypeSell && in.Quantity > h.Quantity {
		return validation.New(
			validation.RuleSellExceedsQuantity,
			"cannot sell %d of %s, only %d held", in.Quantity, h.Ticker, h.Quantity,
		)
	}

	// количество хранится в int64, сумма не должна переполниться
	if in.Type == model.TradeTypeBuy && in.Quantity > math.MaxInt64-h.Quantity {
		return validation.New(
			validation.RuleQuantityOverflow,
			"cannot buy %d of %s on top of %d held", in.Quantity, h.Ticker, h.Quantity,
		)
	}

	if in.ExchangeRate.Valid && !in.ExchangeRate.Decimal.IsPositive() {
		return validation.New(validation.RuleInvalidRate, "exchange rate must be positive, got %s", in.ExchangeRate.Decimal)
	}

	return nil
}

// Apply computes the position after in and the record that describes the transition.
// ID and Seq of the record are left for the caller.
func Apply(h model.Holding, in model.TradeInput, at time.Time) (model.Position, model.TradingRecord, error) {
	if err := Validate(h, in); err != nil {
		return model.Position{}, model.TradingRecord{}, err
	}

	record := model.TradingRecord{
		HoldingID:           h.ID,
		Type:                in.Type,
		Price:               in.Price,
		Quantity:            in.Quantity,
		Currency:            h.Currency,
		ExchangeRate:        in.ExchangeRate,
		TotalQuantityBefore: h.Quantity,
		CreatedAt:           at,
	}

	var next model.Position
	switch in.Type {
	case model.TradeTypeBuy:
		next = applyBuy(h.Position(), in)
		record.AveragePriceBefore = decimal.NewNullDecimal(h.AveragePrice)
		record.AveragePriceAfter = decimal.NewNullDecimal(next.AveragePrice)
	case model.TradeTypeSell:
		next = model.Position{
			Quantity:     h.Quantity - in.Quantity,
			AveragePrice: h.AveragePrice,
		}
		record.AveragePriceAtSell = decimal.NewNullDecimal(h.AveragePrice)
		record.Profit = decimal.NewNullDecimal(RealizedProfit(h.AveragePrice, in.Price, in.Quantity))
	}

	record.TotalQuantityAfter = next.Quantity

	return next, record, nil
}

func applyBuy(cur model.Position, in model.TradeInput) model.Position {
	totalCostBefore := cur.AveragePrice.Mul(decimal.NewFromInt(cur.Quantity))
	buyAmount := in.Price.Mul(decimal.NewFromInt(in.Quantity))
	newQuantity := cur.Quantity + in.Quantity

	newAverage := in.Price
	if newQuantity > 0 {
		newAverage = totalCostBefore.Add(buyAmount).Div(decimal.NewFromInt(newQuantity))
	}

	return model.Position{
		Quantity:     newQuantity,
		AveragePrice: RoundPrice(newAverage),
	}
}

// RealizedProfit - (цена продажи - средняя) * кол-во, фиксируется на момент продажи
func RealizedProfit(averagePrice, sellPrice decimal.Decimal, quantity int64) decimal.Decimal {
	return sellPrice.Sub(averagePrice).Mul(decimal.NewFromInt(quantity))
}

// Undo returns the position the holding had before last was applied.
// The stored snapshot is used as is, nothing is recomputed.
func Undo(h model.Holding, last model.TradingRecord) (model.Position, error) {
	if last.HoldingID != h.ID {
		return model.Position{}, fmt.Errorf("%w: record %s belongs to holding %s, not %s", ErrChainMismatch, last.ID, last.HoldingID, h.ID)
	}

	if last.TotalQuantityAfter != h.Quantity {
		return model.Position{}, fmt.Errorf(
			"%w: record %s left quantity %d, holding has %d", ErrChainMismatch, last.ID, last.TotalQuantityAfter, h.Quantity,
		)
	}

	switch last.Type {
	case model.TradeTypeBuy:
		return model.Position{
			Quantity:     last.TotalQuantityBefore,
			AveragePrice: last.AveragePriceBefore.Decimal,
		}, nil
	case model.TradeTypeSell:
		return model.Position{
			Quantity:     last.TotalQuantityBefore,
			AveragePrice: h.AveragePrice,
		}, nil
	default:
		return model.Position{}, fmt.Errorf("%w: unknown record type %q", ErrChainMismatch, last.Type)
	}
}

// Replay applies inputs to h one by one.
func Replay(h model.Holding, inputs []model.TradeInput, at time.Time) (model.Holding, []model.TradingRecord, error) {
	records := make([]model.TradingRecord, 0, len(inputs))
	for i, in := range inputs {
		next, record, err := Apply(h, in, at)
		if err != nil {
			return h, records, fmt.Errorf("input %d: %w", i, err)
		}
		h = h.WithPosition(next)
		records = append(records, record)
	}
	return h, records, nil
}

// CheckChain verifies that every record continues from the previous one.
func CheckChain(opening model.Position, records []model.TradingRecord) (model.Position, error) {
	cur := opening
	for _, r := range records {
		if r.TotalQuantityBefore != cur.Quantity {
			return cur, fmt.Errorf("%w: record %s starts at quantity %d, expected %d", ErrChainMismatch, r.ID, r.TotalQuantityBefore, cur.Quantity)
		}

		switch r.Type {
		case model.TradeTypeBuy:
			if !r.AveragePriceBefore.Decimal.Equal(cur.AveragePrice) {
				return cur, fmt.Errorf("%w: record %s starts at average %s, expected %s", ErrChainMismatch, r.ID, r.AveragePriceBefore.Decimal, cur.AveragePrice)
			}
			cur = model.Position{Quantity: r.TotalQuantityAfter, AveragePrice: r.AveragePriceAfter.Decimal}
		case model.TradeTypeSell:
			if !r.AveragePriceAtSell.Decimal.Equal(cur.AveragePrice) {
				return cur, fmt.Errorf("%w: record %s sold at average %s, expected %s", ErrChainMismatch, r.ID, r.AveragePriceAtSell.Decimal, cur.AveragePrice)
			}
			cur = model.Position{Quantity: r.TotalQuantityAfter, AveragePrice: cur.AveragePrice}
		default:
			return cur, fmt.Errorf("%w: unknown record type %q", ErrChainMismatch, r.Type)
		}
	}
	return cur, nil
}
