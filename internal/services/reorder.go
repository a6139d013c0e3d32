package services

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/maktabah-search-api/internal/metrics"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// previewLength bounds the unused-verse text preview in characters
const previewLength = 80

// ReorderOptions controls one reorder run
type ReorderOptions struct {
	// FetchMissing gap-fills verses absent from the story by querying the corpus
	FetchMissing bool
	// Manifest names the manifest in the output metadata
	Manifest string
}

// SkippedVerse is a manifest verse that could be neither matched nor fetched
type SkippedVerse struct {
	Order   int
	Chapter int
	Verse   int
	Type    models.WorkType
}

// ReorderResult is the reordered story plus its audit artifacts
type ReorderResult struct {
	Story   *models.Story
	Unused  models.UnusedReport
	Skipped []SkippedVerse
	Fetched int
}

// ReorderService rebuilds a story in manifest order
type ReorderService struct {
	corpus  repository.CorpusRepository
	workers int
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewReorderService creates a reorder service; corpus may be nil when gap-filling is never used
func NewReorderService(corpus repository.CorpusRepository, workers int, timeout time.Duration, logger *zap.Logger) *ReorderService {
	if workers < 1 {
		workers = 1
	}
	return &ReorderService{
		corpus:  corpus,
		workers: workers,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// slot is one expanded manifest verse in output position
type slot struct {
	order   int
	section string
	chapter int
	verse   int
	typ     models.WorkType
	pool    int
}

type coordinate struct {
	chapter int
	verse   int
}

// Reorder follows entries in ascending order, matching each expanded verse against the
// story pool by (chapter, verse, type) and gap-filling the rest. Output order is the
// manifest's regardless of lookup concurrency.
func (s *ReorderService) Reorder(ctx context.Context, story *models.Story, entries []models.ManifestEntry, opts ReorderOptions) (*ReorderResult, error) {
	entries = append([]models.ManifestEntry(nil), entries...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })

	type poolKey struct {
		coordinate
		typ models.WorkType
	}
	pool := map[poolKey]int{}
	for i := len(story.Verses) - 1; i >= 0; i-- {
		v := story.Verses[i]
		pool[poolKey{coordinate{v.Chapter, v.Verse}, v.Type}] = i
	}

	used := make([]bool, len(story.Verses))
	var slots []slot
	var missing []coordinate
	seen := map[coordinate]bool{}
	for _, e := range entries {
		for _, verse := range e.Verses {
			sl := slot{order: e.Order, section: e.Section, chapter: e.Chapter, verse: verse, typ: e.Type, pool: -1}
			if idx, ok := pool[poolKey{coordinate{e.Chapter, verse}, e.Type}]; ok {
				sl.pool = idx
				used[idx] = true
			} else if c := (coordinate{e.Chapter, verse}); !seen[c] {
				seen[c] = true
				missing = append(missing, c)
			}
			slots = append(slots, sl)
		}
	}

	fetched := map[coordinate][]models.VerseRow{}
	if opts.FetchMissing && len(missing) > 0 {
		var err error
		if fetched, err = s.gapFill(ctx, missing); err != nil {
			return nil, err
		}
	}

	out := &models.Story{
		Query:       story.Query,
		Title:       story.Title,
		GeneratedAt: s.now().UTC(),
		Verses:      []models.AggregatedVerse{},
		Reorder:     &models.ReorderSource{Manifest: opts.Manifest},
	}
	out.Reorder.ReorderedAt = out.GeneratedAt

	result := &ReorderResult{Story: out}
	prevSection := ""
	for _, sl := range slots {
		if sl.section != prevSection {
			out.Sections = append(out.Sections, models.Section{Name: sl.section, Start: len(out.Verses)})
			prevSection = sl.section
		}

		if sl.pool >= 0 {
			out.Verses = append(out.Verses, story.Verses[sl.pool])
			continue
		}
		rows := fetched[coordinate{sl.chapter, sl.verse}]
		if v, ok := verseFromRows(rows, sl.typ); ok {
			out.Verses = append(out.Verses, v)
			result.Fetched++
			metrics.GapFillTotal.WithLabelValues(metrics.GapFillFetched).Inc()
			continue
		}

		// rows of another work type count as skipped
		outcome := metrics.GapFillSkipped
		if opts.FetchMissing && len(rows) == 0 {
			outcome = metrics.GapFillEmpty
		}
		metrics.GapFillTotal.WithLabelValues(outcome).Inc()
		s.logger.Warn("could not find verse",
			zap.Int("order", sl.order),
			zap.Int("chapter", sl.chapter),
			zap.Int("verse", sl.verse),
			zap.String("type", string(sl.typ)),
			zap.Bool("fetch_missing", opts.FetchMissing),
		)
		result.Skipped = append(result.Skipped, SkippedVerse{Order: sl.order, Chapter: sl.chapter, Verse: sl.verse, Type: sl.typ})
	}

	result.Unused = unusedReport(story.Verses, used)
	return result, nil
}

// gapFill looks up every missing coordinate with at most s.workers calls in flight.
// A failed lookup aborts the run.
func (s *ReorderService) gapFill(ctx context.Context, missing []coordinate) (map[coordinate][]models.VerseRow, error) {
	if s.corpus == nil {
		return nil, fmt.Errorf("gap fill: %w: no corpus configured", models.ErrIndexUnavailable)
	}

	results := make([][]models.VerseRow, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, c := range missing {
		i, c := i, c
		g.Go(func() error {
			lctx, cancel := gctx, context.CancelFunc(func() {})
			if s.timeout > 0 {
				lctx, cancel = context.WithTimeout(gctx, s.timeout)
			}
			defer cancel()

			rows, err := s.corpus.FindByCoordinate(lctx, c.chapter, c.verse)
			if err != nil {
				return fmt.Errorf("gap fill %d:%d: %w", c.chapter, c.verse, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fetched := make(map[coordinate][]models.VerseRow, len(missing))
	for i, c := range missing {
		fetched[c] = results[i]
	}
	return fetched, nil
}

// unusedReport lists pool entries never referenced, grouped by type and sorted by coordinate
func unusedReport(verses []models.AggregatedVerse, used []bool) models.UnusedReport {
	report := models.UnusedReport{}
	for i, v := range verses {
		if used[i] {
			continue
		}
		report[v.Type] = append(report[v.Type], models.UnusedVerse{
			Chapter:      v.Chapter,
			Verse:        v.Verse,
			Type:         v.Type,
			Translations: len(v.Translations),
			Preview:      preview(v.Representative.Text),
		})
	}
	for _, list := range report {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Chapter != list[j].Chapter {
				return list[i].Chapter < list[j].Chapter
			}
			return list[i].Verse < list[j].Verse
		})
	}
	return report
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "..."
}
