package sqlstore

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/stock_ledger/internal/converter/dbConverter"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/model/dbModel"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/shopspring/decimal"
)

const recordColumns = `id, holding_id, seq, type, price, quantity, currency, exchange_rate,
	average_price_before, average_price_after, average_price_at_sell, profit,
	total_quantity_before, total_quantity_after, created_at`

// InsertTradingRecord returns repository.ErrAlreadyExists if seq is already taken for the holding.
func (s *Store) InsertTradingRecord(ctx context.Context, record model.TradingRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.InsertTradingRecord"
	query := `INSERT INTO trading_records(` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	slog.Debug(
		op+" start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("holdingID", record.HoldingID),
		slog.Int64("seq", record.Seq),
		slog.String("type", string(record.Type)),
	)
	defer func() { logResult(rqID, op, err) }()

	row := dbConverter.ConvertTradingRecordToDB(record)
	_, err = s.exec(ctx, query,
		row.ID, row.HoldingID, row.Seq, row.Type, row.Price, row.Quantity, row.Currency, row.ExchangeRate,
		row.AveragePriceBefore, row.AveragePriceAfter, row.AveragePriceAtSell, row.Profit,
		row.TotalQuantityBefore, row.TotalQuantityAfter, row.CreatedAt,
	)
	return err
}

// GetTradingRecords returns the ledger of a holding oldest first.
func (s *Store) GetTradingRecords(ctx context.Context, holdingID string) (records []model.TradingRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.GetTradingRecords"
	query := `SELECT ` + recordColumns + ` FROM trading_records WHERE holding_id = ? ORDER BY seq`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	defer func() { logResult(rqID, op, err) }()

	var rows []dbModel.TradingRecord
	if err = s.selectAll(ctx, &rows, query, holdingID); err != nil {
		return nil, err
	}

	records = make([]model.TradingRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, dbConverter.ConvertTradingRecord(row))
	}
	return records, nil
}

// GetLastTradingRecord returns repository.ErrNotFound for an empty ledger.
func (s *Store) GetLastTradingRecord(ctx context.Context, holdingID string) (record model.TradingRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.GetLastTradingRecord"
	query := `SELECT ` + recordColumns + ` FROM trading_records WHERE holding_id = ? ORDER BY seq DESC LIMIT 1`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	defer func() { logResult(rqID, op, err) }()

	var row dbModel.TradingRecord
	if err = s.get(ctx, &row, query, holdingID); err != nil {
		return model.TradingRecord{}, err
	}
	return dbConverter.ConvertTradingRecord(row), nil
}

func (s *Store) NextRecordSeq(ctx context.Context, holdingID string) (seq int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.NextRecordSeq"
	query := `SELECT COALESCE(MAX(seq), 0) + 1 FROM trading_records WHERE holding_id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	defer func() { logResult(rqID, op, err) }()

	err = s.get(ctx, &seq, query, holdingID)
	return seq, err
}

func (s *Store) DeleteTradingRecord(ctx context.Context, recordID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.DeleteTradingRecord"
	query := `DELETE FROM trading_records WHERE id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("recordID", recordID))
	defer func() { logResult(rqID, op, err) }()

	res, err := s.exec(ctx, query, recordID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteTradingRecords очищает весь журнал позиции, возвращает кол-во удаленных записей
func (s *Store) DeleteTradingRecords(ctx context.Context, holdingID string) (deleted int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.DeleteTradingRecords"
	query := `DELETE FROM trading_records WHERE holding_id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	defer func() { logResult(rqID, op, err) }()

	res, err := s.exec(ctx, query, holdingID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumRealizedProfit sums SELL profits of the account's holdings quoted in currency.
// Summation happens in Go so that sqlite TEXT decimals stay exact.
func (s *Store) SumRealizedProfit(ctx context.Context, accountID string, currency model.Currency) (total decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.SumRealizedProfit"
	query := `SELECT r.profit
		FROM trading_records r
		JOIN holdings h ON h.id = r.holding_id
		WHERE h.account_id = ? AND h.currency = ? AND r.type = 'SELL' AND r.profit IS NOT NULL`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))
	defer func() { logResult(rqID, op, err) }()

	var profits []decimal.Decimal
	if err = s.selectAll(ctx, &profits, query, accountID, string(currency)); err != nil {
		return decimal.Zero, err
	}

	total = decimal.Zero
	for _, p := range profits {
		total = total.Add(p)
	}
	return total, nil
}
