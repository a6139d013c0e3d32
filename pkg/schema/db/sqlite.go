package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteDriver is the driver name registered by modernc.org/sqlite
const SQLiteDriver = "sqlite"

// OpenSQLite opens a local corpus file. A single connection is kept so that
// ":memory:" databases stay shared across calls.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLITE_PATH is required")
	}

	liteDB, err := sqlx.ConnectContext(ctx, SQLiteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite %s: %w", path, err)
	}
	liteDB.SetMaxOpenConns(1)

	if _, err := liteDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		liteDB.Close()
		return nil, fmt.Errorf("configure SQLite: %w", err)
	}
	return liteDB, nil
}
