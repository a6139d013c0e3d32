// export
//
// This script exports the verse corpus one book at a time, either as per-verse
// JSON snippets published to a blob store laid out as {book_id}/{chapter}/{verse}.json,
// or as a JSON-lines fixture for the memory corpus backend.
//
// Usage:
//   go run ./scripts/export snippets --dir public/verses
//   go run ./scripts/export snippets --url https://blobs.example.com/verses --token $BLOB_TOKEN
//   go run ./scripts/export jsonl --output corpus.jsonl

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/maktabah-search-api/internal/logger"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/pkg/schema/config"
	"github.com/maktabah-search-api/pkg/schema/db"
	"github.com/maktabah-search-api/pkg/schema/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type snippetsCmd struct {
	Dir     string `help:"Publish into a local directory" type:"path" xor:"dest" required:""`
	URL     string `help:"Publish with HTTP PUT below this base URL" xor:"dest" required:""`
	Token   string `help:"Bearer token for the blob store" env:"BLOB_TOKEN"`
	Workers int    `help:"Concurrent uploads" default:"8"`
}

type jsonlCmd struct {
	Output string `help:"Output JSONL file path" default:"corpus.jsonl" type:"path"`
}

var cli struct {
	Env  string   `help:"Environment (local, dev, prod)" env:"ENV" default:"local" enum:"local,dev,prod"`
	Book []string `help:"Export only these books (repeatable)"`

	Snippets snippetsCmd `cmd:"" help:"Publish per-verse JSON snippets"`
	JSONL    jsonlCmd    `cmd:"" name:"jsonl" help:"Write a memory-corpus fixture"`
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&cli, kong.Name("export"), kong.Description("Export the verse corpus"))

	log, err := logger.NewLogger(cli.Env, "")
	kctx.FatalIfErrorf(err)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	conn, err := db.Open(ctx, config.FromEnv())
	if err != nil {
		log.Fatal("failed to open corpus", zap.Error(err))
	}
	defer conn.Close()

	books := cli.Book
	if len(books) == 0 {
		if books, err = db.BookIDs(ctx, conn); err != nil {
			log.Fatal("failed to list books", zap.Error(err))
		}
	}
	log.Info("exporting books", zap.Int("books", len(books)))

	switch kctx.Command() {
	case "snippets":
		var pub services.Publisher
		if cli.Snippets.Dir != "" {
			pub = services.NewFilePublisher(cli.Snippets.Dir)
		} else {
			pub = services.NewHTTPPublisher(cli.Snippets.URL, cli.Snippets.Token)
		}
		err = exportSnippets(ctx, conn, pub, books, cli.Snippets.Workers, log)
	case "jsonl":
		err = exportJSONL(ctx, conn, cli.JSONL.Output, books, log)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}
	if err != nil {
		log.Fatal("export failed", zap.Error(err))
	}
}

// exportSnippets publishes every row of each book, bounded to workers uploads at a time
func exportSnippets(ctx context.Context, conn *sqlx.DB, pub services.Publisher, books []string, workers int, log *zap.Logger) error {
	count := 0
	for _, book := range books {
		rows, err := db.SelectBookRows(ctx, conn, book)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(workers, 1))
		for _, row := range rows {
			row := row
			g.Go(func() error {
				return services.PublishSnippet(gctx, pub, snippet(row))
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("book %s: %w", book, err)
		}

		count += len(rows)
		log.Info("published book", zap.String("book", book), zap.Int("verses", len(rows)))
	}
	log.Info("published snippets", zap.Int("total", count))
	return nil
}

// exportJSONL writes one models.VerseRow per line
func exportJSONL(ctx context.Context, conn *sqlx.DB, path string, books []string, log *zap.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	count := 0
	for _, book := range books {
		rows, err := db.SelectBookRows(ctx, conn, book)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := encoder.Encode(verseRow(row)); err != nil {
				return fmt.Errorf("failed to encode row: %w", err)
			}
		}
		count += len(rows)
		log.Info("exported book", zap.String("book", book), zap.Int("verses", len(rows)))
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	log.Info("exported fixture", zap.String("path", path), zap.Int("total", count))
	return nil
}

func snippet(row db.VerseRow) services.Snippet {
	return services.Snippet{
		BookID:      row.BookID,
		Author:      row.Author,
		Chapter:     row.Chapter,
		Verse:       row.Verse,
		ChapterName: row.ChapterName,
		Volume:      row.Volume,
		Type:        string(models.ClassifyWorkType(row.ChapterName)),
		Text:        row.Text,
	}
}

func verseRow(row db.VerseRow) models.VerseRow {
	return models.VerseRow{
		ID:          fmt.Sprintf("%s:%d:%d:%d", row.BookID, row.Chapter, row.Verse, row.ID),
		Chapter:     row.Chapter,
		Verse:       row.Verse,
		Text:        row.Text,
		Author:      row.Author,
		BookID:      row.BookID,
		ChapterName: row.ChapterName,
		Volume:      row.Volume,
	}
}
