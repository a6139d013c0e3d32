package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maktabah-search-api/internal/metrics"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/repository/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func verse(chapter, verse int, typ models.WorkType, authors ...string) models.AggregatedVerse {
	chapterName := ""
	if typ == models.WorkTypeNarrative {
		chapterName = "Stories"
	}
	v := models.AggregatedVerse{Chapter: chapter, Verse: verse, Type: typ}
	for _, a := range authors {
		v.Translations = append(v.Translations, row(chapter, verse, a, chapterName, a+" text of the verse"))
	}
	v.Representative = v.Translations[0]
	return v
}

func entry(order int, section string, chapter int, typ models.WorkType, verses ...int) models.ManifestEntry {
	return models.ManifestEntry{Order: order, Section: section, Chapter: chapter, Verses: verses, Type: typ}
}

func TestReorder_MatchesAndReportsUnused(t *testing.T) {
	story := &models.Story{
		Query: "throne",
		Title: "Throne",
		Verses: []models.AggregatedVerse{
			verse(2, 255, models.WorkTypeScripture, "Pickthall", "Saheeh International"),
			verse(1, 1, models.WorkTypeScripture, "Saheeh International"),
		},
	}
	entries := []models.ManifestEntry{entry(1, "intro", 2, models.WorkTypeScripture, 255)}

	svc := NewReorderService(nil, 2, time.Second, zap.NewNop())
	res, err := svc.Reorder(context.Background(), story, entries, ReorderOptions{FetchMissing: false, Manifest: "throne.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := res.Story
	if out.VersesCount() != 1 || out.Verses[0].Chapter != 2 || out.Verses[0].Verse != 255 {
		t.Fatalf("unexpected output verses %+v", out.Verses)
	}
	if out.TranslationsCount() != 2 {
		t.Errorf("expected 2 translations, got %d", out.TranslationsCount())
	}
	if out.Reorder == nil || out.Reorder.Manifest != "throne.csv" {
		t.Errorf("expected reorder source, got %+v", out.Reorder)
	}
	if out.Title != "Throne" || out.Query != "throne" {
		t.Errorf("expected header carried over, got %q %q", out.Title, out.Query)
	}
	if len(out.Sections) != 1 || out.Sections[0].Name != "intro" || out.Sections[0].Start != 0 {
		t.Errorf("unexpected sections %+v", out.Sections)
	}

	unused := res.Unused[models.WorkTypeScripture]
	if res.Unused.Total() != 1 || len(unused) != 1 {
		t.Fatalf("expected one unused verse, got %+v", res.Unused)
	}
	if unused[0].Chapter != 1 || unused[0].Verse != 1 || unused[0].Translations != 1 {
		t.Errorf("unexpected unused verse %+v", unused[0])
	}
}

func TestReorder_OrderSectionsAndTypes(t *testing.T) {
	story := &models.Story{Verses: []models.AggregatedVerse{
		verse(3, 1, models.WorkTypeScripture, "A"),
		verse(3, 2, models.WorkTypeScripture, "A"),
		verse(3, 3, models.WorkTypeScripture, "A"),
		verse(1, 1, models.WorkTypeNarrative, "Bukhari"),
		verse(1, 1, models.WorkTypeScripture, "A"),
		verse(9, 9, models.WorkTypeScripture, "A"),
	}}
	entries := []models.ManifestEntry{
		entry(3, "ending", 3, models.WorkTypeScripture, 3),
		entry(1, "birth", 1, models.WorkTypeNarrative, 1),
		entry(2, "birth", 3, models.WorkTypeScripture, 1, 2),
	}

	svc := NewReorderService(nil, 1, 0, zap.NewNop())
	res, err := svc.Reorder(context.Background(), story, entries, ReorderOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := []string{}
	for _, v := range res.Story.Verses {
		got = append(got, models.CompositeKey(v.Chapter, v.Verse)+":"+string(v.Type))
	}
	want := []string{"1_1:narrative", "3_1:scripture", "3_2:scripture", "3_3:scripture"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}

	if len(res.Story.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %+v", res.Story.Sections)
	}
	if res.Story.Sections[0] != (models.Section{Name: "birth", Start: 0}) || res.Story.Sections[1] != (models.Section{Name: "ending", Start: 3}) {
		t.Errorf("unexpected sections %+v", res.Story.Sections)
	}

	if res.Unused.Total() != 2 {
		t.Fatalf("expected 2 unused verses, got %+v", res.Unused)
	}
	unused := res.Unused[models.WorkTypeScripture]
	if unused[0].Chapter != 1 || unused[1].Chapter != 9 {
		t.Errorf("expected unused sorted by coordinate, got %+v", unused)
	}
}

func TestReorder_GapFill(t *testing.T) {
	corpus := memory.NewCorpusRepository([]models.VerseRow{
		row(4, 1, "Yusuf Ali", "", "O mankind, reverence your Guardian-Lord"),
		row(4, 1, "Pickthall", "", "O mankind! Be careful of your duty"),
		row(4, 1, "Bukhari", "Marriage", "Narrated about the rights of women"),
		row(4, 2, "Bukhari", "Marriage", "Narrated about orphans"),
	})
	story := &models.Story{Verses: []models.AggregatedVerse{verse(4, 3, models.WorkTypeScripture, "Pickthall")}}
	entries := []models.ManifestEntry{
		entry(1, "women", 4, models.WorkTypeScripture, 1, 2, 3),
	}

	svc := NewReorderService(corpus, 2, time.Second, zap.NewNop())
	res, err := svc.Reorder(context.Background(), story, entries, ReorderOptions{FetchMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Story.VersesCount() != 2 {
		t.Fatalf("expected (4,1) fetched and (4,3) matched, got %+v", res.Story.Verses)
	}
	fetched := res.Story.Verses[0]
	if fetched.Verse != 1 || fetched.Type != models.WorkTypeScripture || len(fetched.Translations) != 2 {
		t.Errorf("unexpected fetched verse %+v", fetched)
	}
	if fetched.Translations[0].Author != "Pickthall" {
		t.Errorf("expected author order, got %q first", fetched.Translations[0].Author)
	}
	if res.Story.Verses[1].Verse != 3 {
		t.Errorf("expected manifest order preserved, got %+v", res.Story.Verses[1])
	}
	if res.Fetched != 1 {
		t.Errorf("Fetched = %d, want 1", res.Fetched)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Verse != 2 {
		t.Errorf("expected (4,2) skipped for lacking scripture rows, got %+v", res.Skipped)
	}
	if res.Unused.Total() != 0 {
		t.Errorf("expected no unused verses, got %+v", res.Unused)
	}
}

func TestReorder_GapFillOutcomes(t *testing.T) {
	corpus := memory.NewCorpusRepository([]models.VerseRow{
		row(8, 1, "Pickthall", "", "They ask thee of the spoils"),
		row(8, 2, "Bukhari", "Jihad", "Narrated about the spoils"),
	})
	entries := []models.ManifestEntry{entry(1, "spoils", 8, models.WorkTypeScripture, 1, 2, 3)}

	count := func(outcome string) float64 {
		return testutil.ToFloat64(metrics.GapFillTotal.WithLabelValues(outcome))
	}
	fetched, empty, skipped := count(metrics.GapFillFetched), count(metrics.GapFillEmpty), count(metrics.GapFillSkipped)

	svc := NewReorderService(corpus, 2, time.Second, zap.NewNop())
	res, err := svc.Reorder(context.Background(), &models.Story{}, entries, ReorderOptions{FetchMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fetched != 1 || len(res.Skipped) != 2 {
		t.Fatalf("expected 1 fetched and 2 skipped, got %d and %+v", res.Fetched, res.Skipped)
	}

	if d := count(metrics.GapFillFetched) - fetched; d != 1 {
		t.Errorf("fetched delta = %v, want 1", d)
	}
	if d := count(metrics.GapFillSkipped) - skipped; d != 1 {
		t.Errorf("skipped delta = %v, want 1 for the narrative-only verse", d)
	}
	if d := count(metrics.GapFillEmpty) - empty; d != 1 {
		t.Errorf("empty delta = %v, want 1", d)
	}
}

func TestReorder_GapFillDisabledSkips(t *testing.T) {
	corpus := &failingCorpus{}
	story := &models.Story{Verses: []models.AggregatedVerse{}}
	entries := []models.ManifestEntry{entry(1, "s", 5, models.WorkTypeScripture, 1, 2)}

	svc := NewReorderService(corpus, 2, time.Second, zap.NewNop())
	res, err := svc.Reorder(context.Background(), story, entries, ReorderOptions{FetchMissing: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Story.VersesCount() != 0 || len(res.Skipped) != 2 {
		t.Errorf("expected both verses skipped, got %+v", res)
	}
	if corpus.calls.Load() != 0 {
		t.Error("expected no corpus lookups with gap-filling disabled")
	}
}

func TestReorder_UnavailableAborts(t *testing.T) {
	story := &models.Story{Verses: []models.AggregatedVerse{}}
	entries := []models.ManifestEntry{entry(1, "s", 5, models.WorkTypeScripture, 1, 2, 3)}

	svc := NewReorderService(&failingCorpus{}, 2, time.Second, zap.NewNop())
	res, err := svc.Reorder(context.Background(), story, entries, ReorderOptions{FetchMissing: true})
	if !errors.Is(err, models.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
	if res != nil {
		t.Error("expected no partial output")
	}
}

func TestReorder_BoundedGapFillKeepsOrder(t *testing.T) {
	var rows []models.VerseRow
	var verses []int
	for v := 1; v <= 12; v++ {
		rows = append(rows, row(6, v, "Pickthall", "", "verse text"))
		verses = append(verses, v)
	}
	corpus := &slowCorpus{CorpusRepository: memory.NewCorpusRepository(rows), delay: 5 * time.Millisecond}

	svc := NewReorderService(corpus, 3, time.Second, zap.NewNop())
	res, err := svc.Reorder(context.Background(), &models.Story{}, []models.ManifestEntry{
		entry(1, "cattle", 6, models.WorkTypeScripture, verses...),
	}, ReorderOptions{FetchMissing: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if corpus.peak > 3 {
		t.Errorf("peak concurrency %d exceeds 3 workers", corpus.peak)
	}
	if res.Story.VersesCount() != 12 {
		t.Fatalf("expected 12 verses, got %d", res.Story.VersesCount())
	}
	for i, v := range res.Story.Verses {
		if v.Verse != i+1 {
			t.Errorf("position %d holds verse %d", i, v.Verse)
		}
	}
}

func TestPreview(t *testing.T) {
	short := "In the name of Allah"
	if preview(short) != short {
		t.Errorf("expected short text unchanged")
	}

	long := strings.Repeat("ب", 100)
	got := preview(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != previewLength+3 {
		t.Errorf("unexpected preview %q", got)
	}
}
