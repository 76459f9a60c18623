package sqlstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/stock_ledger/internal/converter/dbConverter"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/model/dbModel"
	"github.com/KotFed0t/stock_ledger/utils"
)

const accountColumns = `id, name, currency, created_at, updated_at`

func (s *Store) InsertAccount(ctx context.Context, account model.Account) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.InsertAccount"
	query := `INSERT INTO accounts(id, name, currency, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", account.ID))
	defer func() { logResult(rqID, op, err) }()

	_, err = s.exec(ctx, query,
		account.ID, account.Name, string(account.Currency), account.CreatedAt.UnixMilli(), account.UpdatedAt.UnixMilli(),
	)
	return err
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (account model.Account, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.GetAccount"
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))
	defer func() { logResult(rqID, op, err) }()

	var row dbModel.Account
	if err = s.get(ctx, &row, query, accountID); err != nil {
		return model.Account{}, err
	}
	return dbConverter.ConvertAccount(row), nil
}

func (s *Store) ListAccounts(ctx context.Context) (accounts []model.Account, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.ListAccounts"
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, id`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() { logResult(rqID, op, err) }()

	var rows []dbModel.Account
	if err = s.selectAll(ctx, &rows, query); err != nil {
		return nil, err
	}

	accounts = make([]model.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, dbConverter.ConvertAccount(row))
	}
	return accounts, nil
}

func (s *Store) UpdateAccountName(ctx context.Context, accountID, name string, updatedAt time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.UpdateAccountName"
	query := `UPDATE accounts SET name = ?, updated_at = ? WHERE id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))
	defer func() { logResult(rqID, op, err) }()

	res, err := s.exec(ctx, query, name, updatedAt.UnixMilli(), accountID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteAccount удаляет счет, позиции и записи удаляются каскадно
func (s *Store) DeleteAccount(ctx context.Context, accountID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Store.DeleteAccount"
	query := `DELETE FROM accounts WHERE id = ?`

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))
	defer func() { logResult(rqID, op, err) }()

	res, err := s.exec(ctx, query, accountID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
