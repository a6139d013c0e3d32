package repository

import (
	"context"

	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/query"
)

// CorpusRepository defines read operations against the verse corpus
type CorpusRepository interface {
	// SearchRows returns one window of matching rows sorted by (score desc, chapter, verse)
	// together with the raw match count
	SearchRows(ctx context.Context, q query.Query, from, size int, hl *Highlight) (RowPage, error)

	// AggregateVerses groups matching rows by chapter_verse, then by work type
	AggregateVerses(ctx context.Context, q query.Query, opts AggregateOptions) ([]Bucket, error)

	// FindByCoordinate returns every row stored at (chapter, verse)
	FindByCoordinate(ctx context.Context, chapter, verse int) ([]models.VerseRow, error)

	// Ping checks that the corpus can be reached
	Ping(ctx context.Context) error
}
