package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/maktabah-search-api/pkg/schema/config"
)

// OpenPostgres connects to PostgreSQL and verifies connectivity
func OpenPostgres(ctx context.Context, uri string) (*sqlx.DB, error) {
	if uri == "" {
		return nil, fmt.Errorf("POSTGRES_URI is required")
	}

	pgDB, err := sqlx.ConnectContext(ctx, "postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Configure connection pool
	pgDB.SetMaxOpenConns(25)
	pgDB.SetMaxIdleConns(25)
	pgDB.SetConnMaxLifetime(5 * time.Minute)
	pgDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := pgDB.PingContext(ctx); err != nil {
		pgDB.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return pgDB, nil
}

// Open connects to the SQL corpus selected by cfg
func Open(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.PostgresURI)
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("backend %q has no SQL database", cfg.Backend)
	}
}
