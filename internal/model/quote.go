package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawQuote is what a quote provider returns for a ticker.
type RawQuote struct {
	Ticker        string
	Price         decimal.Decimal
	PreviousClose decimal.NullDecimal
	Currency      string
	Name          string
}

type Quote struct {
	Ticker        string
	Price         decimal.Decimal
	Change        decimal.NullDecimal
	ChangePercent decimal.NullDecimal
	Currency      string
	Name          string
	FetchedAt     time.Time
}

// PriceUpdate is published after a successful fetch was written to holdings.
type PriceUpdate struct {
	Ticker          string              `json:"ticker"`
	Price           decimal.Decimal     `json:"price"`
	Change          decimal.NullDecimal `json:"change"`
	ChangePercent   decimal.NullDecimal `json:"changePercent"`
	UpdatedHoldings int64               `json:"updatedHoldings"`
	FetchedAt       time.Time           `json:"fetchedAt"`
}
