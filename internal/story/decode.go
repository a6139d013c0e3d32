package story

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/maktabah-search-api/internal/models"
)

// Decode parses a story document. Verses without a type attribute are classified by
// their chapter name, and translations marked available="false" are skipped.
func Decode(r io.Reader) (*models.Story, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", models.ErrStoryMalformed, err)
	}

	root := xmlquery.FindOne(doc, "/story")
	if root == nil {
		return nil, fmt.Errorf("%w: missing story element", models.ErrStoryMalformed)
	}

	s := &models.Story{
		Query:  root.SelectAttr("query"),
		Verses: []models.AggregatedVerse{},
	}
	if generated := root.SelectAttr("generated"); generated != "" {
		if s.GeneratedAt, err = parseTime(generated); err != nil {
			return nil, fmt.Errorf("%w: generated: %w", models.ErrStoryMalformed, err)
		}
	}

	if meta := xmlquery.FindOne(root, "metadata"); meta != nil {
		s.Title = childText(meta, "title")
		if source := childText(meta, "reorder_source"); source != "" {
			s.Reorder = &models.ReorderSource{Manifest: source}
			if at := childText(meta, "reordered"); at != "" {
				if s.Reorder.ReorderedAt, err = parseTime(at); err != nil {
					return nil, fmt.Errorf("%w: reordered: %w", models.ErrStoryMalformed, err)
				}
			}
		}
	}

	verses := xmlquery.FindOne(root, "verses")
	if verses == nil {
		return s, nil
	}
	for n := verses.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		switch n.Data {
		case "section":
			s.Sections = append(s.Sections, models.Section{Name: n.SelectAttr("name"), Start: len(s.Verses)})
		case "verse":
			v, err := decodeVerse(n)
			if err != nil {
				return nil, fmt.Errorf("%w: verse %d: %w", models.ErrStoryMalformed, len(s.Verses)+1, err)
			}
			s.Verses = append(s.Verses, v)
		}
	}
	return s, nil
}

// Unmarshal parses a story document held in memory
func Unmarshal(data []byte) (*models.Story, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile parses the story document at path
func ReadFile(path string) (*models.Story, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open story %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

func decodeVerse(n *xmlquery.Node) (models.AggregatedVerse, error) {
	chapter, err := strconv.Atoi(n.SelectAttr("chapter"))
	if err != nil || chapter < 1 {
		return models.AggregatedVerse{}, fmt.Errorf("chapter %q", n.SelectAttr("chapter"))
	}
	verse, err := strconv.Atoi(n.SelectAttr("verse"))
	if err != nil || verse < 1 {
		return models.AggregatedVerse{}, fmt.Errorf("verse %q", n.SelectAttr("verse"))
	}

	chapterName := childText(n, "chapter_name")
	typ := models.ClassifyWorkType(chapterName)
	if attr := n.SelectAttr("type"); attr != "" {
		if typ, err = models.ParseWorkType(attr); err != nil {
			return models.AggregatedVerse{}, err
		}
	}

	var score float64
	if raw := childText(n, "score"); raw != "" {
		if score, err = strconv.ParseFloat(raw, 64); err != nil {
			return models.AggregatedVerse{}, fmt.Errorf("score %q", raw)
		}
	}

	rep := models.VerseRow{
		Chapter:     chapter,
		Verse:       verse,
		Text:        childText(n, "text"),
		Author:      n.SelectAttr("author"),
		BookID:      childText(n, "book_id"),
		ChapterName: chapterName,
		Score:       score,
	}

	v := models.AggregatedVerse{
		Chapter:        chapter,
		Verse:          verse,
		Type:           typ,
		Representative: rep,
		Translations:   []models.VerseRow{},
	}
	for _, t := range xmlquery.Find(n, "translations/translation") {
		if t.SelectAttr("available") == "false" {
			continue
		}
		row := models.VerseRow{
			Chapter:     chapter,
			Verse:       verse,
			Text:        t.InnerText(),
			Author:      t.SelectAttr("author"),
			BookID:      t.SelectAttr("book_id"),
			ChapterName: chapterName,
		}
		if raw := t.SelectAttr("volume"); raw != "" {
			vol, err := strconv.Atoi(raw)
			if err != nil {
				return models.AggregatedVerse{}, fmt.Errorf("volume %q", raw)
			}
			row.Volume = &vol
		}
		if row.BookID == rep.BookID && row.Author == rep.Author {
			row.Score = rep.Score
		}
		v.Translations = append(v.Translations, row)
	}
	return v, nil
}

func childText(n *xmlquery.Node, name string) string {
	if c := xmlquery.FindOne(n, name); c != nil {
		return strings.TrimSpace(c.InnerText())
	}
	return ""
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}
