// Package memory implements the verse corpus in process, loaded from a JSON-lines fixture.
package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/query"
	"github.com/maktabah-search-api/internal/repository"
)

var _ repository.CorpusRepository = (*CorpusRepository)(nil)

// CorpusRepository scores rows with simple token statistics. It does not produce highlights.
type CorpusRepository struct {
	rows   []models.VerseRow
	tokens [][]string
}

// NewCorpusRepository creates a repository over the given rows
func NewCorpusRepository(rows []models.VerseRow) *CorpusRepository {
	r := &CorpusRepository{
		rows:   make([]models.VerseRow, len(rows)),
		tokens: make([][]string, len(rows)),
	}
	for i, row := range rows {
		if row.ID == "" {
			row.ID = fmt.Sprintf("%s:%d:%d:%d", row.BookID, row.Chapter, row.Verse, i)
		}
		row.Score = 0
		r.rows[i] = row
		r.tokens[i] = query.Tokenize(row.Text)
	}
	return r
}

// LoadFile reads one JSON verse row per line
func LoadFile(path string) (*CorpusRepository, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open fixture %s: %w", path, err)
	}
	defer f.Close()

	var rows []models.VerseRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var row models.VerseRow
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return nil, fmt.Errorf("decode fixture line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return NewCorpusRepository(rows), nil
}

// SearchRows returns a window of matching rows
func (r *CorpusRepository) SearchRows(ctx context.Context, q query.Query, from, size int, _ *repository.Highlight) (repository.RowPage, error) {
	if err := ctx.Err(); err != nil {
		return repository.RowPage{}, models.Unavailable("search rows", err)
	}

	matched := r.match(q)
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.Verse < b.Verse
	})

	page := repository.RowPage{Total: len(matched), Hits: []repository.Hit{}}
	if from < 0 || from >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if size < end-from {
		end = from + size
	}
	for _, row := range matched[from:end] {
		page.Hits = append(page.Hits, repository.Hit{Row: row})
	}
	return page, nil
}

// AggregateVerses groups matching rows into chapter_verse buckets
func (r *CorpusRepository) AggregateVerses(ctx context.Context, q query.Query, opts repository.AggregateOptions) ([]repository.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Unavailable("aggregate verses", err)
	}

	matched := r.match(q)

	type groupKey struct {
		key string
		typ models.WorkType
	}
	counts := map[groupKey]int{}
	for _, row := range matched {
		counts[groupKey{row.CompositeKey(), row.WorkType()}]++
	}

	ranked := make([]repository.RankedRow, 0, len(matched))
	for _, row := range matched {
		ranked = append(ranked, repository.RankedRow{
			Hit:       repository.Hit{Row: row},
			TypeCount: counts[groupKey{row.CompositeKey(), row.WorkType()}],
		})
	}

	buckets := repository.AssembleBuckets(ranked, opts.TopHits)
	return repository.TruncateBuckets(buckets, opts.Order, opts.MaxBuckets), nil
}

// FindByCoordinate returns every row at (chapter, verse) sorted by author
func (r *CorpusRepository) FindByCoordinate(ctx context.Context, chapter, verse int) ([]models.VerseRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Unavailable("find verse", err)
	}

	rows := []models.VerseRow{}
	for _, row := range r.rows {
		if row.Chapter == chapter && row.Verse == verse {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Author < rows[j].Author })
	return rows, nil
}

// Ping always succeeds unless the context is done
func (r *CorpusRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return models.Unavailable("ping", err)
	}
	return nil
}

// match scores every row against the query and keeps those passing the filters
func (r *CorpusRepository) match(q query.Query) []models.VerseRow {
	var matched []models.VerseRow
	for i, row := range r.rows {
		if !passesFilters(row, q.Filters) {
			continue
		}
		score, hits := scoreTokens(r.tokens[i], q)
		if hits < q.MinimumShouldMatch || hits == 0 {
			continue
		}
		row.Score = score
		matched = append(matched, row)
	}
	return matched
}

func passesFilters(row models.VerseRow, f query.Filters) bool {
	if f.Author != "" && row.Author != f.Author {
		return false
	}
	if f.Chapter != nil && row.Chapter != *f.Chapter {
		return false
	}
	if len(f.WorkTypes) == 1 && row.WorkType() != f.WorkTypes[0] {
		return false
	}
	return true
}

// scoreTokens returns the boosted score and the number of should-clauses that matched
func scoreTokens(tokens []string, q query.Query) (float64, int) {
	score := 0.0
	hits := 0
	for _, m := range q.Should {
		var n int
		switch m.Field {
		case query.FieldText:
			n = countTerms(tokens, q.Terms, func(tok, term string) bool { return tok == term })
		case query.FieldTextStem:
			n = countTerms(tokens, q.Terms, func(tok, term string) bool { return stem(tok) == stem(term) })
		case query.FieldTextJoined:
			n = countPhrase(tokens, q.Terms)
		case query.FieldTextPrefix:
			n = countTerms(tokens, q.Terms, strings.HasPrefix)
		}
		if n > 0 {
			hits++
			score += m.Boost * float64(n)
		}
	}
	return score, hits
}

func countTerms(tokens, terms []string, eq func(tok, term string) bool) int {
	n := 0
	for _, tok := range tokens {
		for _, term := range terms {
			if eq(tok, term) {
				n++
				break
			}
		}
	}
	return n
}

func countPhrase(tokens, terms []string) int {
	if len(terms) == 0 || len(tokens) < len(terms) {
		return 0
	}
	n := 0
	for i := 0; i+len(terms) <= len(tokens); i++ {
		ok := true
		for j, term := range terms {
			if tokens[i+j] != term {
				ok = false
				break
			}
		}
		if ok {
			n++
		}
	}
	return n
}

var suffixes = []string{"fulness", "ness", "ful", "ing", "ies", "ied", "es", "ed", "ly", "s"}

// stem strips one common English suffix
func stem(tok string) string {
	for _, s := range suffixes {
		if len(tok) > len(s)+2 && strings.HasSuffix(tok, s) {
			return strings.TrimSuffix(tok, s)
		}
	}
	return tok
}
