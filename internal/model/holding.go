package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a tracked instrument inside an account.
// Quantity and AveragePrice are written only by the cost-basis engine,
// CurrentPrice only by price sync.
type Holding struct {
	ID           string
	AccountID    string
	Ticker       string
	OfficialName *string
	DisplayName  *string
	Quantity     int64
	AveragePrice decimal.Decimal
	CurrentPrice decimal.NullDecimal
	Currency     Currency
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Position is the part of a holding the ledger is allowed to change.
type Position struct {
	Quantity     int64
	AveragePrice decimal.Decimal
}

func (h Holding) Position() Position {
	return Position{Quantity: h.Quantity, AveragePrice: h.AveragePrice}
}

func (h Holding) WithPosition(p Position) Holding {
	h.Quantity = p.Quantity
	h.AveragePrice = p.AveragePrice
	return h
}

// CostBasis - сумма вложений по средней цене
func (h Holding) CostBasis() decimal.Decimal {
	return h.AveragePrice.Mul(decimal.NewFromInt(h.Quantity))
}

// MarketValue returns false when the price has not been fetched yet.
func (h Holding) MarketValue() (decimal.Decimal, bool) {
	if !h.CurrentPrice.Valid {
		return decimal.Zero, false
	}
	return h.CurrentPrice.Decimal.Mul(decimal.NewFromInt(h.Quantity)), true
}

func (h Holding) Name() string {
	if h.DisplayName != nil && *h.DisplayName != "" {
		return *h.DisplayName
	}
	if h.OfficialName != nil && *h.OfficialName != "" {
		return *h.OfficialName
	}
	return h.Ticker
}
