package data

import (
	"fmt"
	"log/slog"

	"github.com/KotFed0t/stock_ledger/migrations"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// MemoryDSN is a private in-memory database, mostly for tests.
const MemoryDSN = ":memory:"

// OpenSQLite opens the database at path and applies migrations.
// SQLite is used through a single connection: every statement of a transaction
// must go through that transaction, otherwise it blocks.
func OpenSQLite(path string) (*sqlx.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.WithInstance: %w", err)
	}

	if err = migrateUp(migrations.SQLite, "sqlite", "sqlite", driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func NewSQLiteClient(path string) *sqlx.DB {
	db, err := OpenSQLite(path)
	if err != nil {
		slog.Error("sqlite init failed", slog.String("path", path), slog.String("err", err.Error()))
		panic(err)
	}
	slog.Info("SQLite connected and migrated", slog.String("path", path))
	return db
}
