// setup
//
// This script creates the verse corpus schema: the verse_rows table plus the
// full-text indexes of the configured backend.
//
// Environment variables:
//   CORPUS_BACKEND - postgres (default) or sqlite
//   POSTGRES_URI   - PostgreSQL connection string
//   SQLITE_PATH    - SQLite corpus file (default: corpus.db)
//
// Usage:
//   go run ./scripts/setup
//   go run ./scripts/setup --backend sqlite --sqlite-path corpus.db

package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/maktabah-search-api/internal/logger"
	"github.com/maktabah-search-api/pkg/schema/config"
	"github.com/maktabah-search-api/pkg/schema/db"
	"go.uber.org/zap"
)

var cli struct {
	Backend    string `help:"Corpus backend (postgres, sqlite)" env:"CORPUS_BACKEND" default:"postgres" enum:"postgres,sqlite"`
	SQLitePath string `help:"SQLite corpus file" env:"SQLITE_PATH" default:"corpus.db"`
	Env        string `help:"Environment (local, dev, prod)" env:"ENV" default:"local" enum:"local,dev,prod"`
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&cli, kong.Name("setup"), kong.Description("Create the verse corpus schema"))

	log, err := logger.NewLogger(cli.Env, "")
	kctx.FatalIfErrorf(err)
	defer func() { _ = log.Sync() }()

	cfg := config.FromEnv()
	cfg.Backend = cli.Backend
	cfg.SQLitePath = cli.SQLitePath

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open corpus", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		log.Fatal("failed to create schema", zap.Error(err))
	}

	books, err := db.BookIDs(ctx, conn)
	if err != nil {
		log.Fatal("failed to list books", zap.Error(err))
	}
	log.Info("schema ready", zap.String("backend", cfg.Backend), zap.Strings("books", books))
}
