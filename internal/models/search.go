package models

import (
	"fmt"
	"math"
	"strings"
)

// WorkType classifies a verse row as scripture or narrative collection
type WorkType string

const (
	WorkTypeScripture WorkType = "scripture"
	WorkTypeNarrative WorkType = "narrative"
)

// ParseWorkType accepts the canonical names plus the corpus' legacy labels
func ParseWorkType(s string) (WorkType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scripture", "quran":
		return WorkTypeScripture, nil
	case "narrative", "narrative-collection", "hadith":
		return WorkTypeNarrative, nil
	}
	return "", fmt.Errorf("unknown work type %q", s)
}

// ClassifyWorkType infers the work type from the chapter name signal
func ClassifyWorkType(chapterName string) WorkType {
	if strings.TrimSpace(chapterName) == "" {
		return WorkTypeScripture
	}
	return WorkTypeNarrative
}

// VerseRow is one (work, chapter, verse, translator) record of the corpus
type VerseRow struct {
	ID          string  `json:"id" db:"id"`
	Chapter     int     `json:"chapter" db:"chapter"`
	Verse       int     `json:"verse" db:"verse"`
	Text        string  `json:"text" db:"text"`
	Author      string  `json:"author" db:"author"`
	BookID      string  `json:"book_id" db:"book_id"`
	ChapterName string  `json:"chapter_name,omitempty" db:"chapter_name"`
	Volume      *int    `json:"volume,omitempty" db:"volume"`
	Score       float64 `json:"score" db:"score"`
}

// WorkType returns the row's classification
func (r VerseRow) WorkType() WorkType {
	return ClassifyWorkType(r.ChapterName)
}

// CompositeKey returns the aggregation key shared by every translation of a verse
func (r VerseRow) CompositeKey() string {
	return CompositeKey(r.Chapter, r.Verse)
}

// CompositeKey formats the chapter_verse aggregation key
func CompositeKey(chapter, verse int) string {
	return fmt.Sprintf("%d_%d", chapter, verse)
}

// AggregatedVerse is one unique verse with its representative row and same-type translations
type AggregatedVerse struct {
	Chapter        int        `json:"chapter"`
	Verse          int        `json:"verse"`
	Type           WorkType   `json:"type"`
	Representative VerseRow   `json:"representative"`
	Translations   []VerseRow `json:"translations"`
	Highlights     []string   `json:"highlights,omitempty"`
}

// Score is the representative row's score
func (v AggregatedVerse) Score() float64 {
	return v.Representative.Score
}

// SearchRequest is the request for verse search
type SearchRequest struct {
	Query     string     `json:"query"`
	Page      int        `json:"page"`
	Size      int        `json:"size"`
	Author    string     `json:"author,omitempty"`
	Chapter   *int       `json:"chapter,omitempty"`
	WorkTypes []WorkType `json:"work_types,omitempty"`
}

// SearchPage is the response for verse search
type SearchPage struct {
	Results    []AggregatedVerse `json:"results"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Size       int               `json:"size"`
	TotalPages int               `json:"totalPages"`
}

// TotalPages returns ceil(total/size), zero for a non-positive size
func TotalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(size)))
}
