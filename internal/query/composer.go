// Package query turns free-text verse searches into weighted multi-field match requests.
package query

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/maktabah-search-api/internal/config"
	"github.com/maktabah-search-api/internal/models"
)

// Field names one analyzed view of a verse row
type Field string

const (
	FieldText       Field = "text"
	FieldTextStem   Field = "text.stem"
	FieldTextJoined Field = "text.joined"
	FieldTextPrefix Field = "text.prefix"
	FieldAuthor     Field = "author.enum"
	FieldChapter    Field = "chapter"
)

// Match is one boosted should-clause over a text field
type Match struct {
	Field Field
	Boost float64
}

// Filters are the optional equality filters of a search
type Filters struct {
	Author    string
	Chapter   *int
	WorkTypes []models.WorkType
}

// Query is a composed search request, independent of the backing index
type Query struct {
	Text               string
	Terms              []string
	Should             []Match
	MinimumShouldMatch int
	Filters            Filters
}

// WorkType returns the single work type the query is restricted to, if any
func (q Query) WorkType() (models.WorkType, bool) {
	if len(q.Filters.WorkTypes) == 1 {
		return q.Filters.WorkTypes[0], true
	}
	return "", false
}

// Boost returns the boost of the given field, zero when it is not matched
func (q Query) Boost(f Field) float64 {
	for _, m := range q.Should {
		if m.Field == f {
			return m.Boost
		}
	}
	return 0
}

// Body renders the query as an Elasticsearch bool query
func (q Query) Body() map[string]any {
	should := make([]map[string]any, 0, len(q.Should))
	for _, m := range q.Should {
		should = append(should, map[string]any{
			"match": map[string]any{
				string(m.Field): map[string]any{"query": q.Text, "boost": m.Boost},
			},
		})
	}

	filter := []map[string]any{}
	if q.Filters.Author != "" {
		filter = append(filter, map[string]any{"term": map[string]any{string(FieldAuthor): q.Filters.Author}})
	}
	if q.Filters.Chapter != nil {
		filter = append(filter, map[string]any{"term": map[string]any{string(FieldChapter): *q.Filters.Chapter}})
	}
	if t, ok := q.WorkType(); ok {
		exists := map[string]any{"exists": map[string]any{"field": "chapter_name"}}
		if t == models.WorkTypeNarrative {
			filter = append(filter, exists)
		} else {
			filter = append(filter, map[string]any{"bool": map[string]any{"must_not": exists}})
		}
	}

	return map[string]any{
		"bool": map[string]any{
			"should":               should,
			"minimum_should_match": q.MinimumShouldMatch,
			"filter":               filter,
		},
	}
}

// Composer builds queries with fixed analyzer boosts
type Composer struct {
	boosts config.Boosts
}

// NewComposer creates a composer from search settings
func NewComposer(cfg config.SearchConfig) *Composer {
	return &Composer{boosts: cfg.Boosts}
}

// Compose validates the query text and builds the boosted match with its filters
func (c *Composer) Compose(text string, filters Filters) (Query, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Query{}, fmt.Errorf("%w: query text is required", models.ErrInvalidQuery)
	}

	terms := Tokenize(trimmed)
	if len(terms) == 0 {
		return Query{}, fmt.Errorf("%w: query %q has no searchable terms", models.ErrInvalidQuery, trimmed)
	}

	if filters.Chapter != nil && *filters.Chapter < 1 {
		return Query{}, fmt.Errorf("%w: chapter must be at least 1, got %d", models.ErrInvalidQuery, *filters.Chapter)
	}

	return Query{
		Text:  trimmed,
		Terms: terms,
		Should: []Match{
			{Field: FieldText, Boost: c.boosts.Base},
			{Field: FieldTextStem, Boost: c.boosts.Stem},
			{Field: FieldTextJoined, Boost: c.boosts.Joined},
			{Field: FieldTextPrefix, Boost: c.boosts.Prefix},
		},
		MinimumShouldMatch: 1,
		Filters: Filters{
			Author:    filters.Author,
			Chapter:   filters.Chapter,
			WorkTypes: normalizeWorkTypes(filters.WorkTypes),
		},
	}, nil
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
}

// normalizeWorkTypes dedupes the type filter; asking for every type is no filter
func normalizeWorkTypes(types []models.WorkType) []models.WorkType {
	seen := map[models.WorkType]bool{}
	out := []models.WorkType{}
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) != 1 {
		return nil
	}
	return out
}
