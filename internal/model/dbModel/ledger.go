package dbModel

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// время хранится в unix millis, чтобы одинаково работать в postgres и sqlite

type Account struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Currency  string `db:"currency"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

type Holding struct {
	ID           string              `db:"id"`
	AccountID    string              `db:"account_id"`
	Ticker       string              `db:"ticker"`
	OfficialName sql.NullString      `db:"official_name"`
	Name         sql.NullString      `db:"name"`
	Quantity     int64               `db:"quantity"`
	AveragePrice decimal.Decimal     `db:"average_price"`
	CurrentPrice decimal.NullDecimal `db:"current_price"`
	Currency     string              `db:"currency"`
	CreatedAt    int64               `db:"created_at"`
	UpdatedAt    int64               `db:"updated_at"`
}

type TradingRecord struct {
	ID                  string              `db:"id"`
	HoldingID           string              `db:"holding_id"`
	Seq                 int64               `db:"seq"`
	Type                string              `db:"type"`
	Price               decimal.Decimal     `db:"price"`
	Quantity            int64               `db:"quantity"`
	Currency            string              `db:"currency"`
	ExchangeRate        decimal.NullDecimal `db:"exchange_rate"`
	AveragePriceBefore  decimal.NullDecimal `db:"average_price_before"`
	AveragePriceAfter   decimal.NullDecimal `db:"average_price_after"`
	AveragePriceAtSell  decimal.NullDecimal `db:"average_price_at_sell"`
	Profit              decimal.NullDecimal `db:"profit"`
	TotalQuantityBefore int64               `db:"total_quantity_before"`
	TotalQuantityAfter  int64               `db:"total_quantity_after"`
	CreatedAt           int64               `db:"created_at"`
}
