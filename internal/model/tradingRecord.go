package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

func ParseTradeType(s string) (TradeType, error) {
	switch t := TradeType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TradeTypeBuy, TradeTypeSell:
		return t, nil
	default:
		return "", fmt.Errorf("unknown trade type %q", s)
	}
}

// TradeInput is a single buy or sell event before it is applied to a holding.
type TradeInput struct {
	Type         TradeType
	Price        decimal.Decimal
	Quantity     int64
	ExchangeRate decimal.NullDecimal
}

// TradingRecord is an immutable ledger entry with before/after snapshots.
type TradingRecord struct {
	ID           string
	HoldingID    string
	Seq          int64
	Type         TradeType
	Price        decimal.Decimal
	Quantity     int64
	Currency     Currency
	ExchangeRate decimal.NullDecimal

	// только для BUY
	AveragePriceBefore decimal.NullDecimal
	AveragePriceAfter  decimal.NullDecimal

	// только для SELL
	AveragePriceAtSell decimal.NullDecimal
	Profit             decimal.NullDecimal

	TotalQuantityBefore int64
	TotalQuantityAfter  int64
	CreatedAt           time.Time
}

func (r TradingRecord) Amount() decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(r.Quantity))
}
