package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/query"
	"github.com/maktabah-search-api/internal/repository"
)

// headlineDelimiter separates ts_headline fragments
const headlineDelimiter = " ... "

// fieldSQL maps an analyzed field to its tsvector column and tsquery constructor
var fieldSQL = map[query.Field]struct {
	vector  string
	tsquery string
	simple  bool
}{
	query.FieldText:       {vector: "r.text_simple", tsquery: "plainto_tsquery('simple', %s)", simple: true},
	query.FieldTextStem:   {vector: "r.text_english", tsquery: "plainto_tsquery('english', %s)"},
	query.FieldTextJoined: {vector: "r.text_simple", tsquery: "phraseto_tsquery('simple', %s)", simple: true},
	query.FieldTextPrefix: {vector: "r.text_simple", tsquery: "to_tsquery('simple', %s)", simple: true},
}

// CorpusRepository implements repository.CorpusRepository over PostgreSQL full-text search
type CorpusRepository struct {
	db *sqlx.DB
}

// NewCorpusRepository creates a new PostgreSQL corpus repository
func NewCorpusRepository(db *sqlx.DB) repository.CorpusRepository {
	return &CorpusRepository{db: db}
}

// SearchRows returns one window of matching rows and the raw match count
func (r *CorpusRepository) SearchRows(ctx context.Context, q query.Query, from, size int, hl *repository.Highlight) (repository.RowPage, error) {
	count := newBuilder()
	countSQL := count.matched(q) + `
		SELECT COUNT(*) FROM matched`

	var total int
	if err := r.db.GetContext(ctx, &total, countSQL, count.args...); err != nil {
		return repository.RowPage{}, models.Unavailable("count verse rows", err)
	}

	page := repository.RowPage{Total: total, Hits: []repository.Hit{}}
	if from >= total {
		return page, nil
	}

	b := newBuilder()
	sql := b.matched(q) + fmt.Sprintf(`
		SELECT m.id, m.book_id, m.chapter, m.verse, m.author, m.text, m.chapter_name, m.volume, m.score,
		       0 AS type_count, %s AS headline
		FROM matched m, qs
		ORDER BY m.score DESC, m.chapter ASC, m.verse ASC, m.author ASC
		LIMIT %s OFFSET %s`, b.headline(q, hl, "m.text"), b.arg(size), b.arg(from))

	var rows []repository.SQLRow
	if err := r.db.SelectContext(ctx, &rows, sql, b.args...); err != nil {
		return repository.RowPage{}, models.Unavailable("search verse rows", err)
	}
	for _, row := range rows {
		page.Hits = append(page.Hits, row.Hit(hl, headlineDelimiter))
	}
	return page, nil
}

// AggregateVerses groups matching rows by chapter_verse and work type in SQL, keeping the
// top rows per group while counting all of them
func (r *CorpusRepository) AggregateVerses(ctx context.Context, q query.Query, opts repository.AggregateOptions) ([]repository.Bucket, error) {
	b := newBuilder()
	sql := b.matched(q) + `,
		ranked AS (
			SELECT m.*,
			       COUNT(*) OVER (PARTITION BY m.chapter, m.verse, (m.chapter_name = '')) AS type_count,
			       ROW_NUMBER() OVER (PARTITION BY m.chapter, m.verse, (m.chapter_name = '')
			                          ORDER BY m.score DESC, m.author ASC) AS type_rank
			FROM matched m
		)` + fmt.Sprintf(`
		SELECT k.id, k.book_id, k.chapter, k.verse, k.author, k.text, k.chapter_name, k.volume, k.score,
		       k.type_count, %s AS headline
		FROM ranked k, qs`, b.headline(q, opts.Highlight, "k.text"))
	if opts.TopHits > 0 {
		sql += fmt.Sprintf(`
		WHERE k.type_rank <= %s`, b.arg(opts.TopHits))
	}
	sql += `
		ORDER BY k.chapter, k.verse, k.type_rank`

	var rows []repository.SQLRow
	if err := r.db.SelectContext(ctx, &rows, sql, b.args...); err != nil {
		return nil, models.Unavailable("aggregate verses", err)
	}

	ranked := make([]repository.RankedRow, 0, len(rows))
	for _, row := range rows {
		ranked = append(ranked, row.Ranked(opts.Highlight, headlineDelimiter))
	}
	buckets := repository.AssembleBuckets(ranked, opts.TopHits)
	return repository.TruncateBuckets(buckets, opts.Order, opts.MaxBuckets), nil
}

// FindByCoordinate returns every row stored at (chapter, verse) sorted by author
func (r *CorpusRepository) FindByCoordinate(ctx context.Context, chapter, verse int) ([]models.VerseRow, error) {
	var rows []repository.SQLRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id::text AS id, book_id, chapter, verse, author, text, chapter_name, volume,
		       0::float8 AS score, 0 AS type_count, NULL::text AS headline
		FROM verse_rows
		WHERE chapter = $1 AND verse = $2
		ORDER BY author ASC, id ASC
	`, chapter, verse)
	if err != nil {
		return nil, models.Unavailable("find verse rows", err)
	}

	results := make([]models.VerseRow, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.VerseRow())
	}
	return results, nil
}

// Ping checks database connectivity
func (r *CorpusRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return models.Unavailable("ping postgres", err)
	}
	return nil
}

// builder accumulates positional arguments while SQL text is assembled
type builder struct {
	args []interface{}
}

func newBuilder() *builder {
	return &builder{args: make([]interface{}, 0, 8)}
}

func (b *builder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// matched renders the qs and matched CTEs: one tsquery per should-clause, a boosted
// ts_rank sum as score, and the equality filters
func (b *builder) matched(q query.Query) string {
	var tsqueries, conds, scores []string
	for i, m := range q.Should {
		f, ok := fieldSQL[m.Field]
		if !ok {
			continue
		}
		text := q.Text
		if m.Field == query.FieldTextPrefix {
			text = PrefixQuery(q.Terms)
		}
		col := fmt.Sprintf("q%d", i)
		tsqueries = append(tsqueries, fmt.Sprintf(f.tsquery, b.arg(text))+" AS "+col)
		conds = append(conds, fmt.Sprintf("%s @@ qs.%s", f.vector, col))
		scores = append(scores, fmt.Sprintf("CASE WHEN %s @@ qs.%s THEN ts_rank(%s, qs.%s) * %.4f ELSE 0 END",
			f.vector, col, f.vector, col, m.Boost))
	}

	where := []string{"(" + strings.Join(conds, " OR ") + ")"}
	if q.Filters.Author != "" {
		where = append(where, "r.author = "+b.arg(q.Filters.Author))
	}
	if q.Filters.Chapter != nil {
		where = append(where, "r.chapter = "+b.arg(*q.Filters.Chapter))
	}
	if t, ok := q.WorkType(); ok {
		if t == models.WorkTypeNarrative {
			where = append(where, "r.chapter_name <> ''")
		} else {
			where = append(where, "r.chapter_name = ''")
		}
	}

	return fmt.Sprintf(`
		WITH qs AS (SELECT %s),
		matched AS (
			SELECT r.id::text AS id, r.book_id, r.chapter, r.verse, r.author, r.text, r.chapter_name, r.volume,
			       (%s)::float8 AS score
			FROM verse_rows r, qs
			WHERE %s
		)`, strings.Join(tsqueries, ", "), strings.Join(scores, " + "), strings.Join(where, " AND "))
}

// headline renders the ts_headline expression, or NULL when highlights are off. Only
// clauses analyzed with the simple configuration are highlighted.
func (b *builder) headline(q query.Query, hl *repository.Highlight, textCol string) string {
	if hl == nil {
		return "NULL::text"
	}
	var parts []string
	for i, m := range q.Should {
		if f, ok := fieldSQL[m.Field]; ok && f.simple {
			parts = append(parts, fmt.Sprintf("qs.q%d", i))
		}
	}
	if len(parts) == 0 {
		return "NULL::text"
	}
	return fmt.Sprintf("ts_headline('simple', %s, %s, %s)", textCol, strings.Join(parts, " || "), b.arg(HeadlineOptions(hl)))
}

// PrefixQuery renders terms as a to_tsquery prefix conjunction
func PrefixQuery(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, t+":*")
	}
	return strings.Join(parts, " & ")
}

// HeadlineOptions renders the ts_headline option string
func HeadlineOptions(hl *repository.Highlight) string {
	words := repository.HeadlineWords(hl.FragmentSize)
	return fmt.Sprintf(`StartSel="%s", StopSel="%s", MaxWords=%d, MinWords=%d, MaxFragments=%d, FragmentDelimiter="%s"`,
		hl.PreTag, hl.PostTag, words, words/2, hl.Fragments, headlineDelimiter)
}
