// Package sqlite implements the verse corpus over SQLite FTS5 tables.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/query"
	"github.com/maktabah-search-api/internal/repository"
)

// Only one fragment is produced by snippet(), so no delimiter ever occurs
const snippetDelimiter = "\x00"

// ftsTable maps an analyzed field to the FTS5 table holding it
var ftsTable = map[query.Field]string{
	query.FieldText:       "verse_fts",
	query.FieldTextStem:   "verse_fts_stem",
	query.FieldTextJoined: "verse_fts",
	query.FieldTextPrefix: "verse_fts",
}

var _ repository.CorpusRepository = (*CorpusRepository)(nil)

// CorpusRepository implements repository.CorpusRepository over SQLite
type CorpusRepository struct {
	db *sqlx.DB
}

// NewCorpusRepository creates a new SQLite corpus repository
func NewCorpusRepository(db *sqlx.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
}

// SearchRows returns one window of matching rows and the raw match count
func (r *CorpusRepository) SearchRows(ctx context.Context, q query.Query, from, size int, hl *repository.Highlight) (repository.RowPage, error) {
	count := &builder{}
	var total int
	if err := r.db.GetContext(ctx, &total, count.matched(q, nil)+` SELECT COUNT(*) FROM matched`, count.args...); err != nil {
		return repository.RowPage{}, models.Unavailable("count verse rows", err)
	}

	page := repository.RowPage{Total: total, Hits: []repository.Hit{}}
	if from >= total {
		return page, nil
	}

	b := &builder{}
	sql := b.matched(q, hl) + `
		SELECT id, book_id, chapter, verse, author, text, chapter_name, volume, score, 0 AS type_count, headline
		FROM matched
		ORDER BY score DESC, chapter ASC, verse ASC, author ASC
		LIMIT ? OFFSET ?`
	b.args = append(b.args, size, from)

	var rows []repository.SQLRow
	if err := r.db.SelectContext(ctx, &rows, sql, b.args...); err != nil {
		return repository.RowPage{}, models.Unavailable("search verse rows", err)
	}
	for _, row := range rows {
		page.Hits = append(page.Hits, row.Hit(hl, snippetDelimiter))
	}
	return page, nil
}

// AggregateVerses groups matching rows by chapter_verse and work type
func (r *CorpusRepository) AggregateVerses(ctx context.Context, q query.Query, opts repository.AggregateOptions) ([]repository.Bucket, error) {
	b := &builder{}
	sql := b.matched(q, opts.Highlight) + `,
		ranked AS (
			SELECT m.*,
			       COUNT(*) OVER (PARTITION BY m.chapter, m.verse, (m.chapter_name = '')) AS type_count,
			       ROW_NUMBER() OVER (PARTITION BY m.chapter, m.verse, (m.chapter_name = '')
			                          ORDER BY m.score DESC, m.author ASC) AS type_rank
			FROM matched m
		)
		SELECT id, book_id, chapter, verse, author, text, chapter_name, volume, score, type_count, headline
		FROM ranked`
	if opts.TopHits > 0 {
		sql += ` WHERE type_rank <= ?`
		b.args = append(b.args, opts.TopHits)
	}
	sql += ` ORDER BY chapter, verse, type_rank`

	var rows []repository.SQLRow
	if err := r.db.SelectContext(ctx, &rows, sql, b.args...); err != nil {
		return nil, models.Unavailable("aggregate verses", err)
	}

	ranked := make([]repository.RankedRow, 0, len(rows))
	for _, row := range rows {
		ranked = append(ranked, row.Ranked(opts.Highlight, snippetDelimiter))
	}
	buckets := repository.AssembleBuckets(ranked, opts.TopHits)
	return repository.TruncateBuckets(buckets, opts.Order, opts.MaxBuckets), nil
}

// FindByCoordinate returns every row stored at (chapter, verse) sorted by author
func (r *CorpusRepository) FindByCoordinate(ctx context.Context, chapter, verse int) ([]models.VerseRow, error) {
	var rows []repository.SQLRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT CAST(id AS TEXT) AS id, book_id, chapter, verse, author, text, chapter_name, volume,
		       0.0 AS score, 0 AS type_count, NULL AS headline
		FROM verse_rows
		WHERE chapter = ? AND verse = ?
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

// Ping checks that the corpus file is readable
func (r *CorpusRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return models.Unavailable("ping sqlite", err)
	}
	return nil
}

type builder struct {
	args []interface{}
}

// matched renders one materialized FTS5 subquery per should-clause, the union of
// their row ids, and the matched CTE carrying the boosted -bm25 sum as score
func (b *builder) matched(q query.Query, hl *repository.Highlight) string {
	var ctes, ids, joins, scores, headlines []string
	for i, m := range q.Should {
		table, ok := ftsTable[m.Field]
		if !ok {
			continue
		}
		name := fmt.Sprintf("m%d", i)

		snippet := "NULL"
		if hl != nil {
			snippet = fmt.Sprintf("snippet(%s, 0, ?, ?, '…', ?)", table)
			b.args = append(b.args, hl.PreTag, hl.PostTag, repository.HeadlineWords(hl.FragmentSize))
			headlines = append(headlines, name+".hl")
		}
		b.args = append(b.args, MatchExpression(m.Field, q.Terms))

		ctes = append(ctes, fmt.Sprintf(
			"%[1]s AS MATERIALIZED (SELECT rowid AS id, -bm25(%[2]s) AS s, %[3]s AS hl FROM %[2]s WHERE %[2]s MATCH ?)",
			name, table, snippet))
		ids = append(ids, "SELECT id FROM "+name)
		joins = append(joins, fmt.Sprintf("LEFT JOIN %[1]s ON %[1]s.id = r.id", name))
		scores = append(scores, fmt.Sprintf("COALESCE(%s.s, 0) * %.4f", name, m.Boost))
	}

	headline := "NULL"
	if len(headlines) > 0 {
		headline = "COALESCE(" + strings.Join(headlines, ", ") + ")"
	}

	where := []string{"1 = 1"}
	if q.Filters.Author != "" {
		where = append(where, "r.author = ?")
		b.args = append(b.args, q.Filters.Author)
	}
	if q.Filters.Chapter != nil {
		where = append(where, "r.chapter = ?")
		b.args = append(b.args, *q.Filters.Chapter)
	}
	if t, ok := q.WorkType(); ok {
		if t == models.WorkTypeNarrative {
			where = append(where, "r.chapter_name <> ''")
		} else {
			where = append(where, "r.chapter_name = ''")
		}
	}

	return fmt.Sprintf(`
		WITH %s,
		hits AS (%s),
		matched AS (
			SELECT CAST(r.id AS TEXT) AS id, r.book_id, r.chapter, r.verse, r.author, r.text, r.chapter_name, r.volume,
			       (%s) AS score, %s AS headline
			FROM hits h
			JOIN verse_rows r ON r.id = h.id
			%s
			WHERE %s
		)`,
		strings.Join(ctes, ",\n\t\t"),
		strings.Join(ids, " UNION "),
		strings.Join(scores, " + "),
		headline,
		strings.Join(joins, "\n\t\t\t"),
		strings.Join(where, " AND "))
}

// MatchExpression renders the FTS5 query for one analyzed field. Terms come from
// query.Tokenize and never contain double quotes.
func MatchExpression(field query.Field, terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+t+`"`)
	}

	switch field {
	case query.FieldTextJoined:
		return `"` + strings.Join(terms, " ") + `"`
	case query.FieldTextPrefix:
		for i := range quoted {
			quoted[i] += "*"
		}
		return strings.Join(quoted, " AND ")
	default:
		return strings.Join(quoted, " OR ")
	}
}
