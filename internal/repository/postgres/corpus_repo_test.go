package postgres

import (
	"strings"
	"testing"

	"github.com/maktabah-search-api/internal/config"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/query"
	"github.com/maktabah-search-api/internal/repository"
)

func compose(t *testing.T, text string, f query.Filters) query.Query {
	t.Helper()
	q, err := query.NewComposer(config.DefaultSearch()).Compose(text, f)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	return q
}

func TestMatched_ArgsAndBoosts(t *testing.T) {
	chapter := 7
	q := compose(t, "Most Merciful", query.Filters{
		Author:    "Pickthall",
		Chapter:   &chapter,
		WorkTypes: []models.WorkType{models.WorkTypeScripture},
	})

	b := newBuilder()
	sql := b.matched(q)

	if len(b.args) != 6 {
		t.Fatalf("expected 6 args, got %d: %v", len(b.args), b.args)
	}
	if b.args[3] != "most:* & merciful:*" {
		t.Errorf("prefix arg = %v", b.args[3])
	}
	if b.args[4] != "Pickthall" || b.args[5] != 7 {
		t.Errorf("unexpected filter args %v", b.args[4:])
	}

	for _, want := range []string{
		"plainto_tsquery('simple', $1) AS q0",
		"plainto_tsquery('english', $2) AS q1",
		"phraseto_tsquery('simple', $3) AS q2",
		"to_tsquery('simple', $4) AS q3",
		"* 1.2000",
		"* 1.5000",
		"* 0.8000",
		"r.author = $5",
		"r.chapter = $6",
		"r.chapter_name = ''",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("expected SQL to contain %q\n%s", want, sql)
		}
	}
}

func TestMatched_NarrativeFilter(t *testing.T) {
	q := compose(t, "prayer", query.Filters{WorkTypes: []models.WorkType{models.WorkTypeNarrative}})
	sql := newBuilder().matched(q)
	if !strings.Contains(sql, "r.chapter_name <> ''") {
		t.Errorf("expected narrative filter\n%s", sql)
	}
}

func TestHeadline(t *testing.T) {
	q := compose(t, "mercy", query.Filters{})

	b := newBuilder()
	if got := b.headline(q, nil, "m.text"); got != "NULL::text" {
		t.Errorf("expected NULL headline, got %q", got)
	}
	if len(b.args) != 0 {
		t.Errorf("expected no args, got %v", b.args)
	}

	hl := &repository.Highlight{PreTag: "<em>", PostTag: "</em>", FragmentSize: 150, Fragments: 3}
	got := b.headline(q, hl, "m.text")
	if got != "ts_headline('simple', m.text, qs.q0 || qs.q2 || qs.q3, $1)" {
		t.Errorf("unexpected headline %q", got)
	}
	if opts := b.args[0].(string); !strings.Contains(opts, "MaxFragments=3") || !strings.Contains(opts, `StartSel="<em>"`) {
		t.Errorf("unexpected options %q", opts)
	}
}

func TestPrefixQuery(t *testing.T) {
	if got := PrefixQuery([]string{"ayat", "kursi"}); got != "ayat:* & kursi:*" {
		t.Errorf("PrefixQuery = %q", got)
	}
}
