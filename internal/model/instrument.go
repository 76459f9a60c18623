package model

import "github.com/shopspring/decimal"

type InstrumentKind string

const (
	InstrumentTrackedHolding  InstrumentKind = "holding"
	InstrumentMarketIndicator InstrumentKind = "indicator"
)

// Instrument is either a TrackedHolding or a MarketIndicator.
// Only TrackedHolding participates in the ledger.
type Instrument interface {
	Kind() InstrumentKind
	Symbol() string
	instrument()
}

type TrackedHolding struct {
	Holding
}

func (TrackedHolding) Kind() InstrumentKind { return InstrumentTrackedHolding }
func (t TrackedHolding) Symbol() string     { return t.Ticker }
func (TrackedHolding) instrument()          {}

// MarketIndicator - рыночный индикатор (курс, золото, нефть), без учета в леджере
type MarketIndicator struct {
	Code          string
	Name          string
	QuoteTicker   string
	Price         decimal.Decimal
	Change        decimal.NullDecimal
	ChangePercent decimal.NullDecimal
	Currency      Currency
}

func (MarketIndicator) Kind() InstrumentKind { return InstrumentMarketIndicator }
func (m MarketIndicator) Symbol() string     { return m.Code }
func (MarketIndicator) instrument()          {}
