package story

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/maktabah-search-api/internal/config"
	"github.com/maktabah-search-api/internal/models"
)

func sampleStory() *models.Story {
	vol := 4
	rep := models.VerseRow{Chapter: 2, Verse: 255, Author: "Pickthall", BookID: "en-pickthall", Text: `Allah! There is no "god" save Him & <none> else`, Score: 3.25}
	return &models.Story{
		Query:       `throne & "seat"`,
		Title:       "Ayat al-Kursi's story",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Verses: []models.AggregatedVerse{
			{
				Chapter: 2, Verse: 255, Type: models.WorkTypeScripture,
				Representative: rep,
				Translations: []models.VerseRow{
					rep,
					{Chapter: 2, Verse: 255, Author: "Yusuf Ali", BookID: "en-yusufali", Text: "Allah. There is no god but He"},
				},
			},
			{
				Chapter: 3, Verse: 7, Type: models.WorkTypeNarrative,
				Representative: models.VerseRow{Chapter: 3, Verse: 7, Author: "Bukhari", BookID: "bukhari", ChapterName: "Belief", Text: "Narrated Abu Huraira", Score: 1.5},
				Translations: []models.VerseRow{
					{Chapter: 3, Verse: 7, Author: "Bukhari", BookID: "bukhari", ChapterName: "Belief", Text: "Narrated Abu Huraira", Volume: &vol, Score: 1.5},
				},
			},
		},
		Sections: []models.Section{{Name: "Throne", Start: 0}, {Name: "Hadith", Start: 1}, {Name: "Epilogue", Start: 2}},
		Reorder:  &models.ReorderSource{Manifest: "throne.csv", ReorderedAt: time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)},
	}
}

func TestEscape(t *testing.T) {
	got := Escape(`a & b < c > d "e" 'f'`)
	want := "a &amp; b &lt; c &gt; d &quot;e&quot; &apos;f&apos;"
	if got != want {
		t.Errorf("Escape = %q, want %q", got, want)
	}
}

func TestMarshal_Layout(t *testing.T) {
	doc := string(Marshal(sampleStory()))

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<story query="throne &amp; &quot;seat&quot;" generated="2024-05-01T12:00:00Z">`,
		"<title>Ayat al-Kursi&apos;s story</title>",
		"<verses_count>2</verses_count>",
		"<translations_count>3</translations_count>",
		"<reorder_source>throne.csv</reorder_source>",
		`<verse chapter="2" verse="255" type="scripture" author="Pickthall">`,
		`<translation book_id="bukhari" author="Bukhari" volume="4">Narrated Abu Huraira</translation>`,
		"&lt;none&gt;",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}

	throne := strings.Index(doc, `<section name="Throne"/>`)
	first := strings.Index(doc, `<verse chapter="2"`)
	hadith := strings.Index(doc, `<section name="Hadith"/>`)
	second := strings.Index(doc, `<verse chapter="3"`)
	epilogue := strings.Index(doc, `<section name="Epilogue"/>`)
	if !(throne < first && first < hadith && hadith < second && second < epilogue) {
		t.Errorf("sections out of place: %d %d %d %d %d", throne, first, hadith, second, epilogue)
	}
}

func TestRoundTrip(t *testing.T) {
	in := sampleStory()
	out, err := Unmarshal(Marshal(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", out, in)
	}
}

func TestRoundTrip_SanitizesCharacters(t *testing.T) {
	in := sampleStory()
	in.Title = "bad \xff byte"
	in.Verses[0].Representative.Text = "a\x0bb"
	in.Verses[0].Translations[1].Text = "line\r\none\x00"
	in.Sections[0].Name = "Thr\x1bone"

	out, err := Unmarshal(Marshal(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Title != "bad \uFFFD byte" {
		t.Errorf("Title = %q", out.Title)
	}
	if got := out.Verses[0].Representative.Text; got != "ab" {
		t.Errorf("representative text = %q, want %q", got, "ab")
	}
	if got := out.Verses[0].Translations[1].Text; got != "line\r\none" {
		t.Errorf("translation text = %q, want %q", got, "line\r\none")
	}
	if out.Sections[0].Name != "Throne" {
		t.Errorf("section name = %q", out.Sections[0].Name)
	}
}

func TestDecode_Legacy(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<story query="Moses" generated="2024-01-15T10:20:30.123Z">
  <metadata>
    <title>The Story of Moses</title>
    <verses_count>2</verses_count>
  </metadata>
  <verses>
    <verse chapter="20" verse="9" author="Pickthall">
      <chapter_name></chapter_name>
      <book_id>en-pickthall</book_id>
      <score>2.5</score>
      <text>Hath there come unto thee the story of Moses?</text>
      <translations>
        <translation book_id="en-pickthall" author="Pickthall">Hath there come unto thee the story of Moses?</translation>
        <translation book_id="en-hilali" author="Hilali" available="false"></translation>
      </translations>
    </verse>
    <verse chapter="55" verse="3" author="Bukhari">
      <chapter_name>Prophets</chapter_name>
      <book_id>bukhari</book_id>
      <text>Narrated Ibn Abbas</text>
    </verse>
  </verses>
</story>`

	s, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Title != "The Story of Moses" || s.Reorder != nil || s.GeneratedAt.Nanosecond() != 123000000 {
		t.Errorf("unexpected header %+v", s)
	}
	if s.VersesCount() != 2 || s.TranslationsCount() != 1 {
		t.Fatalf("expected 2 verses and 1 translation, got %d and %d", s.VersesCount(), s.TranslationsCount())
	}
	if s.Verses[0].Type != models.WorkTypeScripture || s.Verses[1].Type != models.WorkTypeNarrative {
		t.Errorf("unexpected classification %s %s", s.Verses[0].Type, s.Verses[1].Type)
	}
	if s.Verses[0].Representative.Score != 2.5 || s.Verses[0].Translations[0].Score != 2.5 {
		t.Errorf("unexpected scores %+v", s.Verses[0])
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := map[string]string{
		"not xml":       "<story",
		"no story":      "<stories/>",
		"bad chapter":   `<story><verses><verse chapter="x" verse="1"/></verses></story>`,
		"bad type":      `<story><verses><verse chapter="1" verse="1" type="poetry"/></verses></story>`,
		"bad generated": `<story generated="yesterday"/>`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(doc)); !errors.Is(err, models.ErrStoryMalformed) {
				t.Errorf("expected ErrStoryMalformed, got %v", err)
			}
		})
	}
}

func TestStore(t *testing.T) {
	catalog, err := config.ParseCatalog([]byte("stories:\n  throne:\n    title: The Throne\n  moses:\n    title: Moses\n"))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	dir := t.TempDir()
	store := NewStore(dir, catalog)

	if err := store.Save("throne", sampleStory()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save("secret", sampleStory()); !errors.Is(err, models.ErrStoryNotFound) {
		t.Errorf("expected ErrStoryNotFound saving outside the catalog, got %v", err)
	}

	s, err := store.Load("throne")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.VersesCount() != 2 {
		t.Errorf("expected 2 verses, got %d", s.VersesCount())
	}

	if _, err := store.Load("moses"); !errors.Is(err, models.ErrStoryNotFound) {
		t.Errorf("expected ErrStoryNotFound for missing file, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "secret.xml"), Marshal(sampleStory()), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load("secret"); !errors.Is(err, models.ErrStoryNotFound) {
		t.Errorf("expected ErrStoryNotFound outside the catalog, got %v", err)
	}
	if _, err := store.Raw("../secret"); !errors.Is(err, models.ErrStoryNotFound) {
		t.Errorf("expected ErrStoryNotFound for traversal, got %v", err)
	}

	list := store.List()
	if len(list) != 2 || list[0].Name != "moses" || list[0].Available || !list[1].Available || list[1].Title != "The Throne" {
		t.Errorf("unexpected list %+v", list)
	}
}
