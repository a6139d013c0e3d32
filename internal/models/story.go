package models

import (
	"sort"
	"time"
)

// Story is a named, ordered curation of verses for a topic
type Story struct {
	Query       string            `json:"query"`
	Title       string            `json:"title"`
	GeneratedAt time.Time         `json:"generated"`
	Verses      []AggregatedVerse `json:"verses"`
	Sections    []Section         `json:"sections,omitempty"`
	Reorder     *ReorderSource    `json:"reorder,omitempty"`
}

// Section marks where a labelled run of verses begins. Start indexes Story.Verses;
// a section with no verses of its own has Start equal to the next section's Start.
type Section struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
}

// ReorderSource records the manifest a reordered story was built from
type ReorderSource struct {
	Manifest    string    `json:"manifest"`
	ReorderedAt time.Time `json:"reordered_at"`
}

// VersesCount returns the number of verse entries
func (s Story) VersesCount() int {
	return len(s.Verses)
}

// TranslationsCount returns the number of translation rows across all verses
func (s Story) TranslationsCount() int {
	n := 0
	for _, v := range s.Verses {
		n += len(v.Translations)
	}
	return n
}

// ManifestEntry is one row of an externally supplied ordering manifest
type ManifestEntry struct {
	Order      int      `json:"order"`
	Section    string   `json:"section"`
	Chapter    int      `json:"chapter"`
	VerseRange string   `json:"verse_range"`
	Verses     []int    `json:"verses"`
	Type       WorkType `json:"type"`
}

// UnusedVerse is one story pool entry no manifest row referenced
type UnusedVerse struct {
	Chapter      int      `json:"chapter"`
	Verse        int      `json:"verse"`
	Type         WorkType `json:"type"`
	Translations int      `json:"translations"`
	Preview      string   `json:"preview"`
}

// UnusedReport groups unused verses by work type
type UnusedReport map[WorkType][]UnusedVerse

// Total returns the number of unused verses across types
func (r UnusedReport) Total() int {
	n := 0
	for _, vs := range r {
		n += len(vs)
	}
	return n
}

// Types returns the report's work types in a stable order
func (r UnusedReport) Types() []WorkType {
	types := make([]WorkType, 0, len(r))
	for t := range r {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
