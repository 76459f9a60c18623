package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/stock_ledger/data/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// содержит общие методы для sqlx.DB и sqlx.Tx
type Querier interface {
	DriverName() string
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	Rebind(query string) string
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txKey struct{}

// Store keeps accounts, holdings and trading records in postgres or sqlite.
// Queries are written with '?' placeholders and rebound for the driver.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// WithinTransaction runs function within transaction
//
// The transaction commits when function were finished without error
func (s *Store) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) (err error) {
	if s.extractTx(ctx) != nil {
		return tFunc(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("failed to rollback transaction", slog.String("err", rbErr.Error()))
			}
		}
	}()

	err = tFunc(s.injectTx(ctx, tx))
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *Store) injectTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func (s *Store) extractTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// txOrDb returns the transaction from ctx if there is one, otherwise the db.
func (s *Store) txOrDb(ctx context.Context) Querier {
	if tx := s.extractTx(ctx); tx != nil {
		return tx
	}
	return s.db
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	q := s.txOrDb(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return nil, translateErr(err)
	}
	return res, nil
}

func (s *Store) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	q := s.txOrDb(ctx)
	return translateErr(q.GetContext(ctx, dest, q.Rebind(query), args...))
}

func (s *Store) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	q := s.txOrDb(ctx)
	return translateErr(q.SelectContext(ctx, dest, q.Rebind(query), args...))
}

// affectedOrNotFound - ErrNotFound если ни одна строка не изменилась
func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %s", repository.ErrAlreadyExists, pgErr.ConstraintName)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", repository.ErrAlreadyExists, liteErr.Error())
		}
	}

	return err
}

func logResult(rqID, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		slog.Debug(op+" not found", slog.String("rqID", rqID), slog.String("op", op))
		return
	}
	if err != nil {
		slog.Error(op+" failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	} else {
		slog.Debug(op+" completed", slog.String("rqID", rqID), slog.String("op", op))
	}
}
