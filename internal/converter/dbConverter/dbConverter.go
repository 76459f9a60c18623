package dbConverter

import (
	"database/sql"
	"time"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/model/dbModel"
)

func ConvertAccount(dbAccount dbModel.Account) model.Account {
	return model.Account{
		ID:        dbAccount.ID,
		Name:      dbAccount.Name,
		Currency:  model.Currency(dbAccount.Currency),
		CreatedAt: time.UnixMilli(dbAccount.CreatedAt),
		UpdatedAt: time.UnixMilli(dbAccount.UpdatedAt),
	}
}

func ConvertHolding(dbHolding dbModel.Holding) model.Holding {
	return model.Holding{
		ID:           dbHolding.ID,
		AccountID:    dbHolding.AccountID,
		Ticker:       dbHolding.Ticker,
		OfficialName: nullStringPtr(dbHolding.OfficialName),
		DisplayName:  nullStringPtr(dbHolding.Name),
		Quantity:     dbHolding.Quantity,
		AveragePrice: dbHolding.AveragePrice,
		CurrentPrice: dbHolding.CurrentPrice,
		Currency:     model.Currency(dbHolding.Currency),
		CreatedAt:    time.UnixMilli(dbHolding.CreatedAt),
		UpdatedAt:    time.UnixMilli(dbHolding.UpdatedAt),
	}
}

func ConvertHoldingToDB(holding model.Holding) dbModel.Holding {
	return dbModel.Holding{
		ID:           holding.ID,
		AccountID:    holding.AccountID,
		Ticker:       holding.Ticker,
		OfficialName: ptrNullString(holding.OfficialName),
		Name:         ptrNullString(holding.DisplayName),
		Quantity:     holding.Quantity,
		AveragePrice: holding.AveragePrice,
		CurrentPrice: holding.CurrentPrice,
		Currency:     string(holding.Currency),
		CreatedAt:    holding.CreatedAt.UnixMilli(),
		UpdatedAt:    holding.UpdatedAt.UnixMilli(),
	}
}

func ConvertTradingRecord(dbRecord dbModel.TradingRecord) model.TradingRecord {
	return model.TradingRecord{
		ID:                  dbRecord.ID,
		HoldingID:           dbRecord.HoldingID,
		Seq:                 dbRecord.Seq,
		Type:                model.TradeType(dbRecord.Type),
		Price:               dbRecord.Price,
		Quantity:            dbRecord.Quantity,
		Currency:            model.Currency(dbRecord.Currency),
		ExchangeRate:        dbRecord.ExchangeRate,
		AveragePriceBefore:  dbRecord.AveragePriceBefore,
		AveragePriceAfter:   dbRecord.AveragePriceAfter,
		AveragePriceAtSell:  dbRecord.AveragePriceAtSell,
		Profit:              dbRecord.Profit,
		TotalQuantityBefore: dbRecord.TotalQuantityBefore,
		TotalQuantityAfter:  dbRecord.TotalQuantityAfter,
		CreatedAt:           time.UnixMilli(dbRecord.CreatedAt),
	}
}

func ConvertTradingRecordToDB(record model.TradingRecord) dbModel.TradingRecord {
	return dbModel.TradingRecord{
		ID:                  record.ID,
		HoldingID:           record.HoldingID,
		Seq:                 record.Seq,
		Type:                string(record.Type),
		Price:               record.Price,
		Quantity:            record.Quantity,
		Currency:            string(record.Currency),
		ExchangeRate:        record.ExchangeRate,
		AveragePriceBefore:  record.AveragePriceBefore,
		AveragePriceAfter:   record.AveragePriceAfter,
		AveragePriceAtSell:  record.AveragePriceAtSell,
		Profit:              record.Profit,
		TotalQuantityBefore: record.TotalQuantityBefore,
		TotalQuantityAfter:  record.TotalQuantityAfter,
		CreatedAt:           record.CreatedAt.UnixMilli(),
	}
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func ptrNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
