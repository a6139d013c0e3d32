package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/maktabah-search-api/internal/config"
	"github.com/maktabah-search-api/internal/metrics"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/query"
	"github.com/maktabah-search-api/internal/repository"
	"go.uber.org/zap"
)

// SearchService pages unique verses out of the per-translator corpus
type SearchService struct {
	corpus    repository.CorpusRepository
	composer  *query.Composer
	cfg       config.SearchConfig
	highlight *repository.Highlight
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(
	corpus repository.CorpusRepository,
	cfg config.SearchConfig,
	hl config.HighlightConfig,
	timeout time.Duration,
	logger *zap.Logger,
) *SearchService {
	return &SearchService{
		corpus:    corpus,
		composer:  query.NewComposer(cfg),
		cfg:       cfg,
		highlight: highlightOptions(hl),
		timeout:   timeout,
		logger:    logger,
	}
}

func highlightOptions(hl config.HighlightConfig) *repository.Highlight {
	if !hl.Enabled {
		return nil
	}
	return &repository.Highlight{
		PreTag:       hl.PreTag,
		PostTag:      hl.PostTag,
		FragmentSize: hl.FragmentSize,
		Fragments:    hl.Fragments,
	}
}

// Search validates the request, runs the configured strategy and returns one page
func (s *SearchService) Search(ctx context.Context, req models.SearchRequest) (*models.SearchPage, error) {
	q, err := s.composer.Compose(req.Query, query.Filters{
		Author:    req.Author,
		Chapter:   req.Chapter,
		WorkTypes: req.WorkTypes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.validatePage(req.Page, req.Size); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var page *models.SearchPage
	if s.cfg.Strategy == config.StrategyRows {
		page, err = s.searchRows(ctx, q, req.Page, req.Size)
	} else {
		page, err = s.searchComposite(ctx, q, req.Page, req.Size)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchDuration.WithLabelValues(s.cfg.Strategy, status).Observe(time.Since(start).Seconds())
	return page, err
}

func (s *SearchService) validatePage(page, size int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be at least 1, got %d", models.ErrInvalidPagination, page)
	}
	if size < 1 {
		return fmt.Errorf("%w: size must be at least 1, got %d", models.ErrInvalidPagination, size)
	}
	if s.cfg.MaxPageSize > 0 && size > s.cfg.MaxPageSize {
		return fmt.Errorf("%w: size must be at most %d, got %d", models.ErrInvalidPagination, s.cfg.MaxPageSize, size)
	}
	return nil
}

// pageOffset returns the index of the first hit on page. Offsets past math.MaxInt-size
// saturate so that the window end still fits in an int.
func pageOffset(page, size int) int {
	limit := (math.MaxInt - size) / size
	if page-1 > limit {
		return limit * size
	}
	return (page - 1) * size
}

func (s *SearchService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// searchRows returns each matching row as its own verse entry
func (s *SearchService) searchRows(ctx context.Context, q query.Query, page, size int) (*models.SearchPage, error) {
	rows, err := s.corpus.SearchRows(ctx, q, pageOffset(page, size), size, s.highlight)
	if err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}

	results := make([]models.AggregatedVerse, 0, len(rows.Hits))
	for _, h := range rows.Hits {
		results = append(results, models.AggregatedVerse{
			Chapter:        h.Row.Chapter,
			Verse:          h.Row.Verse,
			Type:           h.Row.WorkType(),
			Representative: h.Row,
			Translations:   []models.VerseRow{h.Row},
			Highlights:     h.Highlights,
		})
	}

	return &models.SearchPage{
		Results:    results,
		Total:      rows.Total,
		Page:       page,
		Size:       size,
		TotalPages: models.TotalPages(rows.Total, size),
	}, nil
}

// searchComposite aggregates every match by chapter_verse, keeps the dominant type per
// bucket and pages over the ordered bucket list
func (s *SearchService) searchComposite(ctx context.Context, q query.Query, page, size int) (*models.SearchPage, error) {
	buckets, err := s.corpus.AggregateVerses(ctx, q, repository.AggregateOptions{
		MaxBuckets: s.cfg.MaxBuckets,
		Order:      repository.OrderRelevance,
		Highlight:  s.highlight,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate verses: %w", err)
	}

	verses := make([]models.AggregatedVerse, 0, len(buckets))
	for _, b := range buckets {
		if v, ok := resolveBucket(b, s.logger); ok {
			verses = append(verses, v)
		}
	}
	sortByRelevance(verses)

	total := len(verses)
	results := []models.AggregatedVerse{}
	if from := pageOffset(page, size); from < total {
		results = verses[from:min(from+size, total)]
	}

	return &models.SearchPage{
		Results:    results,
		Total:      total,
		Page:       page,
		Size:       size,
		TotalPages: models.TotalPages(total, size),
	}, nil
}

// VerseRequest selects one coordinate for the detail view
type VerseRequest struct {
	Chapter int
	Verse   int
	// Query restricts translations to rows matching the search, empty means every row
	Query     string
	WorkTypes []models.WorkType
}

// GetVerse returns the full translation list of one coordinate's dominant type, or of
// the requested type
func (s *SearchService) GetVerse(ctx context.Context, req VerseRequest) (*models.AggregatedVerse, error) {
	if req.Chapter < 1 || req.Verse < 1 {
		return nil, fmt.Errorf("%w: chapter and verse must be at least 1", models.ErrInvalidQuery)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if req.Query != "" {
		return s.matchedVerse(ctx, req)
	}

	rows, err := s.corpus.FindByCoordinate(ctx, req.Chapter, req.Verse)
	if err != nil {
		return nil, fmt.Errorf("find verse: %w", err)
	}

	typ := dominantType(rows)
	if len(req.WorkTypes) == 1 {
		typ = req.WorkTypes[0]
	}
	v, ok := verseFromRows(rows, typ)
	if !ok {
		return nil, fmt.Errorf("%w: %d:%d", models.ErrVerseNotFound, req.Chapter, req.Verse)
	}
	return &v, nil
}

func (s *SearchService) matchedVerse(ctx context.Context, req VerseRequest) (*models.AggregatedVerse, error) {
	chapter := req.Chapter
	q, err := s.composer.Compose(req.Query, query.Filters{Chapter: &chapter, WorkTypes: req.WorkTypes})
	if err != nil {
		return nil, err
	}

	buckets, err := s.corpus.AggregateVerses(ctx, q, repository.AggregateOptions{
		MaxBuckets: s.cfg.MaxBuckets,
		Order:      repository.OrderTextual,
		Highlight:  s.highlight,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate verse: %w", err)
	}

	key := models.CompositeKey(req.Chapter, req.Verse)
	for _, b := range buckets {
		if b.Key != key {
			continue
		}
		if v, ok := resolveBucket(b, s.logger); ok {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: %d:%d matching %q", models.ErrVerseNotFound, req.Chapter, req.Verse, req.Query)
}
