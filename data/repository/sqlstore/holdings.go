package sqlstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/stock_ledger/internal/converter/dbConverter"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/model/dbModel"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/shopspring/decimal"
)

const holdingColumns = `id, account_id, ticker, official_name, name, quantity, average_price, current_price, currency, created_at, updated_at`

func convertHoldings(rows []dbModel.Holding) []model.Holding {
	holdings := make([]model.Holding, 0, len(rows))
	for _, row := range rows {
		holdings = append(holdings, dbConverter.ConvertHolding(row))
	}
	return holdings
}

// InsertHolding returns repository.ErrAlreadyExists when the account already tracks the ticker.
func (s *Store) InsertHolding(ctx context.Context, holding model.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.InsertHolding"
	query := `INSERT INTO holdings(` + holdingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", holding.Ticker))
	defer func() { logResult(rqID, op, err) }()

	row := dbConverter.ConvertHoldingToDB(holding)
	_, err = s.exec(ctx, query,
		row.ID, row.AccountID, row.Ticker, row.OfficialName, row.Name, row.Quantity,
		row.AveragePrice, row.CurrentPrice, row.Currency, row.CreatedAt, row.UpdatedAt,
	)
	return err
}

func (s *Store) GetHolding(ctx context.Context, holdingID string) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.GetHolding"
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	defer func() { logResult(rqID, op, err) }()

	var row dbModel.Holding
	if err = s.get(ctx, &row, query, holdingID); err != nil {
		return model.Holding{}, err
	}
	return dbConverter.ConvertHolding(row), nil
}

func (s *Store) GetHoldingsByAccount(ctx context.Context, accountID string) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.GetHoldingsByAccount"
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE account_id = ? ORDER BY created_at, id`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))
	defer func() { logResult(rqID, op, err) }()

	var rows []dbModel.Holding
	if err = s.selectAll(ctx, &rows, query, accountID); err != nil {
		return nil, err
	}
	return convertHoldings(rows), nil
}

func (s *Store) GetHoldingsByTicker(ctx context.Context, ticker string) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.GetHoldingsByTicker"
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE ticker = ? ORDER BY created_at, id`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() { logResult(rqID, op, err) }()

	var rows []dbModel.Holding
	if err = s.selectAll(ctx, &rows, query, ticker); err != nil {
		return nil, err
	}
	return convertHoldings(rows), nil
}

// ListTrackedTickers returns every distinct ticker held in any account.
func (s *Store) ListTrackedTickers(ctx context.Context) (tickers []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.ListTrackedTickers"
	query := `SELECT DISTINCT ticker FROM holdings ORDER BY ticker`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() { logResult(rqID, op, err) }()

	tickers = []string{}
	if err = s.selectAll(ctx, &tickers, query); err != nil {
		return nil, err
	}
	return tickers, nil
}

// UpdateHoldingPosition - единственный путь изменения quantity/average_price
func (s *Store) UpdateHoldingPosition(ctx context.Context, holdingID string, position model.Position, updatedAt time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.UpdateHoldingPosition"
	query := `UPDATE holdings SET quantity = ?, average_price = ?, updated_at = ? WHERE id = ?`

	slog.Debug(
		op+" start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("holdingID", holdingID),
		slog.Int64("quantity", position.Quantity),
		slog.String("averagePrice", position.AveragePrice.String()),
	)
	defer func() { logResult(rqID, op, err) }()

	res, err := s.exec(ctx, query, position.Quantity, position.AveragePrice, updatedAt.UnixMilli(), holdingID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// UpdateHoldingDisplayName sets the user-facing name, nil clears it.
func (s *Store) UpdateHoldingDisplayName(ctx context.Context, holdingID string, name *string, updatedAt time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.UpdateHoldingDisplayName"
	query := `UPDATE holdings SET name = ?, updated_at = ? WHERE id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	defer func() { logResult(rqID, op, err) }()

	var value interface{}
	if name != nil {
		value = *name
	}

	res, err := s.exec(ctx, query, value, updatedAt.UnixMilli(), holdingID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// UpdateCurrentPriceByTicker writes price onto every holding with the ticker.
// official_name is filled only if it is still empty.
func (s *Store) UpdateCurrentPriceByTicker(ctx context.Context, ticker string, price decimal.Decimal, officialName string, updatedAt time.Time) (updated int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.UpdateCurrentPriceByTicker"
	query := `UPDATE holdings
		SET current_price = ?,
		    official_name = COALESCE(official_name, ?),
		    updated_at = ?
		WHERE ticker = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("price", price.String()))
	defer func() { logResult(rqID, op, err) }()

	var name interface{}
	if officialName != "" {
		name = officialName
	}

	res, err := s.exec(ctx, query, price, name, updatedAt.UnixMilli(), ticker)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteHolding удаляет позицию вместе с записями (каскад)
func (s *Store) DeleteHolding(ctx context.Context, holdingID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.DeleteHolding"
	query := `DELETE FROM holdings WHERE id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	defer func() { logResult(rqID, op, err) }()

	res, err := s.exec(ctx, query, holdingID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
