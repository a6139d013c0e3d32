// Package corpus opens the corpus repository selected by configuration.
package corpus

import (
	"context"
	"fmt"

	"github.com/maktabah-search-api/internal/repository"
	"github.com/maktabah-search-api/internal/repository/memory"
	"github.com/maktabah-search-api/internal/repository/postgres"
	"github.com/maktabah-search-api/internal/repository/sqlite"
	"github.com/maktabah-search-api/pkg/schema/config"
	"github.com/maktabah-search-api/pkg/schema/db"
)

// Open connects to the configured backend. The returned close function releases the
// underlying connection pool and is safe to call when nothing was opened.
func Open(ctx context.Context, cfg config.Config) (repository.CorpusRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		repo, err := memory.LoadFile(cfg.FixturePath)
		if err != nil {
			return nil, noop, fmt.Errorf("load memory corpus: %w", err)
		}
		return repo, noop, nil
	case config.BackendPostgres, config.BackendSQLite:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("open %s corpus: %w", cfg.Backend, err)
		}
		if cfg.Backend == config.BackendPostgres {
			return postgres.NewCorpusRepository(conn), conn.Close, nil
		}
		return sqlite.NewCorpusRepository(conn), conn.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown corpus backend %q", cfg.Backend)
	}
}
