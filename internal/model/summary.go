package model

import "github.com/shopspring/decimal"

type AccountSummary struct {
	AccountID      string
	AccountName    string
	Currency       Currency
	HoldingsCount  int
	PricedHoldings int
	TotalCostBasis decimal.Decimal
	MarketValue    decimal.Decimal
	UnrealizedPnL  decimal.Decimal
	UnrealizedRate decimal.Decimal
	RealizedPnL    decimal.Decimal

	// курс USD/KRW, если в счете есть позиции в другой валюте
	ExchangeRate decimal.NullDecimal
}

// AccountExport is everything the report generator needs for one account.
type AccountExport struct {
	Account  Account
	Holdings []HoldingLedger
}

type HoldingLedger struct {
	Holding Holding
	Records []TradingRecord
}
