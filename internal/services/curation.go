package services

import (
	"context"
	"fmt"
	"time"

	"github.com/maktabah-search-api/internal/config"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/query"
	"github.com/maktabah-search-api/internal/repository"
	"go.uber.org/zap"
)

// CurationRequest is a topic query to turn into a story
type CurationRequest struct {
	Query   string
	Title   string
	Author  string
	Chapter *int
}

// CurationService builds stories from one unpaginated aggregation in textual order
type CurationService struct {
	corpus   repository.CorpusRepository
	composer *query.Composer
	cfg      config.SearchConfig
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewCurationService creates a new curation service
func NewCurationService(corpus repository.CorpusRepository, cfg config.SearchConfig, timeout time.Duration, logger *zap.Logger) *CurationService {
	return &CurationService{
		corpus:   corpus,
		composer: query.NewComposer(cfg),
		cfg:      cfg,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate collects every dominant-type translation of every matching verse
func (s *CurationService) Generate(ctx context.Context, req CurationRequest) (*models.Story, error) {
	q, err := s.composer.Compose(req.Query, query.Filters{Author: req.Author, Chapter: req.Chapter})
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	buckets, err := s.corpus.AggregateVerses(ctx, q, repository.AggregateOptions{
		MaxBuckets: s.cfg.MaxBuckets,
		Order:      repository.OrderTextual,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate story verses: %w", err)
	}
	if len(buckets) == s.cfg.MaxBuckets {
		s.logger.Warn("story reached the bucket limit, later verses are missing",
			zap.String("query", q.Text),
			zap.Int("max_buckets", s.cfg.MaxBuckets),
		)
	}

	verses := make([]models.AggregatedVerse, 0, len(buckets))
	for _, b := range buckets {
		if v, ok := resolveBucket(b, s.logger); ok {
			verses = append(verses, v)
		}
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Story generated from search: %q", q.Text)
	}

	story := &models.Story{
		Query:       q.Text,
		Title:       title,
		GeneratedAt: s.now().UTC(),
		Verses:      verses,
	}
	s.logger.Info("generated story",
		zap.String("query", story.Query),
		zap.Int("verses", story.VersesCount()),
		zap.Int("translations", story.TranslationsCount()),
	)
	return story, nil
}
