// ingest
//
// This script loads one translator's tanzil-style XML file into the verse corpus:
//
//   <quran>
//     <sura index="1" name="Al-Fatiha">
//       <aya index="1" text="In the name of Allah, the Beneficent, the Merciful."/>
//     </sura>
//   </quran>
//
// Narrative collections pass --narrative so each sura name is stored as the
// chapter name, which classifies the rows as narrative. Existing rows of the
// book are replaced.
//
// Usage:
//   go run ./scripts/ingest --book en-pickthall --author Pickthall pickthall.xml
//   go run ./scripts/ingest --book bukhari --author Bukhari --narrative --volume 1 bukhari-1.xml

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/antchfx/xmlquery"
	"github.com/joho/godotenv"
	"github.com/maktabah-search-api/internal/logger"
	"github.com/maktabah-search-api/pkg/schema/config"
	"github.com/maktabah-search-api/pkg/schema/db"
	"go.uber.org/zap"
)

const (
	batchSize = 500 // Number of rows per insert statement
)

var cli struct {
	File      string `arg:"" help:"Translation XML file" type:"existingfile"`
	Book      string `required:"" help:"Book identifier stored with every row"`
	Author    string `required:"" help:"Translator or collector name"`
	Narrative bool   `help:"Store sura names as chapter names (narrative collection)"`
	Volume    *int   `help:"Volume number of a multi-volume collection"`
	Keep      bool   `help:"Append instead of replacing the book's existing rows"`
	Env       string `help:"Environment (local, dev, prod)" env:"ENV" default:"local" enum:"local,dev,prod"`
}

// source identifies the book every parsed row belongs to
type source struct {
	bookID    string
	author    string
	narrative bool
	volume    *int
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&cli, kong.Name("ingest"), kong.Description("Load a translation into the verse corpus"))

	log, err := logger.NewLogger(cli.Env, "")
	kctx.FatalIfErrorf(err)
	defer func() { _ = log.Sync() }()

	f, err := os.Open(filepath.Clean(cli.File))
	if err != nil {
		log.Fatal("failed to open translation", zap.Error(err))
	}
	rows, err := parseTranslation(f, source{bookID: cli.Book, author: cli.Author, narrative: cli.Narrative, volume: cli.Volume})
	f.Close()
	if err != nil {
		log.Fatal("failed to parse translation", zap.String("file", cli.File), zap.Error(err))
	}
	log.Info("parsed translation", zap.String("book", cli.Book), zap.Int("rows", len(rows)))

	ctx := context.Background()
	conn, err := db.Open(ctx, config.FromEnv())
	if err != nil {
		log.Fatal("failed to open corpus", zap.Error(err))
	}
	defer conn.Close()

	if !cli.Keep {
		n, err := db.DeleteBook(ctx, conn, cli.Book)
		if err != nil {
			log.Fatal("failed to clear book", zap.Error(err))
		}
		if n > 0 {
			log.Info("removed existing rows", zap.String("book", cli.Book), zap.Int64("rows", n))
		}
	}

	total := int64(0)
	batchCount := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		n, err := db.InsertVerseRows(ctx, conn, rows[start:end])
		if err != nil {
			log.Fatal("failed to insert batch", zap.Int("batch", batchCount+1), zap.Error(err))
		}
		total += n
		batchCount++
		log.Debug("inserted batch", zap.Int("batch", batchCount), zap.Int64("total", total))
	}

	log.Info("ingested translation",
		zap.String("book", cli.Book),
		zap.Int("batches", batchCount),
		zap.Int64("rows", total),
	)
}

// parseTranslation reads every aya of every sura in document order
func parseTranslation(r io.Reader, src source) ([]db.VerseRow, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	var rows []db.VerseRow
	for _, sura := range xmlquery.Find(doc, "//sura") {
		chapter, err := strconv.Atoi(sura.SelectAttr("index"))
		if err != nil || chapter < 1 {
			return nil, fmt.Errorf("sura index %q", sura.SelectAttr("index"))
		}
		chapterName := ""
		if src.narrative {
			chapterName = strings.TrimSpace(sura.SelectAttr("name"))
			if chapterName == "" {
				chapterName = fmt.Sprintf("Chapter %d", chapter)
			}
		}

		for _, aya := range xmlquery.Find(sura, "aya") {
			verse, err := strconv.Atoi(aya.SelectAttr("index"))
			if err != nil || verse < 1 {
				return nil, fmt.Errorf("sura %d: aya index %q", chapter, aya.SelectAttr("index"))
			}
			text := strings.TrimSpace(aya.SelectAttr("text"))
			if text == "" {
				text = strings.TrimSpace(aya.InnerText())
			}
			if text == "" {
				continue
			}
			rows = append(rows, db.VerseRow{
				BookID:      src.bookID,
				Chapter:     chapter,
				Verse:       verse,
				Author:      src.author,
				Text:        text,
				ChapterName: chapterName,
				Volume:      src.volume,
			})
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no verses found")
	}
	return rows, nil
}
