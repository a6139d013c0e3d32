// Package manifest reads reorder manifests: one CSV record per
// (order, section, chapter, verse_range, type) row.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/maktabah-search-api/internal/models"
)

// Columns lists the required header columns
var Columns = []string{"order", "section", "chapter", "verse_range", "type"}

// maxRangeSpan bounds a single verse_range expansion
const maxRangeSpan = 1000

// ReadFile parses the manifest at path
func ReadFile(path string) ([]models.ManifestEntry, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads every record, failing on the first malformed row, and returns the
// entries sorted by ascending order
func Parse(r io.Reader) ([]models.ManifestEntry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.ManifestEntry{}, nil
	}
	if err != nil {
		return nil, &models.ManifestError{Line: 1, Field: "header", Err: err}
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, &models.ManifestError{Line: 1, Field: "header", Value: strings.Join(header, ","), Err: fmt.Errorf("missing column %s", col)}
		}
	}

	entries := []models.ManifestEntry{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &models.ManifestError{Line: line, Field: "record", Err: err}
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}

		field := func(name string) string {
			if i := idx[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		e, err := parseEntry(line, field)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })
	return entries, nil
}

func parseEntry(line int, field func(string) string) (models.ManifestEntry, error) {
	order, err := strconv.Atoi(field("order"))
	if err != nil {
		return models.ManifestEntry{}, &models.ManifestError{Line: line, Field: "order", Value: field("order"), Err: err}
	}

	chapter, err := strconv.Atoi(field("chapter"))
	if err != nil || chapter < 1 {
		return models.ManifestEntry{}, &models.ManifestError{Line: line, Field: "chapter", Value: field("chapter"), Err: err}
	}

	verses, err := ExpandRange(field("verse_range"))
	if err != nil {
		return models.ManifestEntry{}, &models.ManifestError{Line: line, Field: "verse_range", Value: field("verse_range"), Err: err}
	}

	typ, err := models.ParseWorkType(field("type"))
	if err != nil {
		return models.ManifestEntry{}, &models.ManifestError{Line: line, Field: "type", Value: field("type"), Err: err}
	}

	return models.ManifestEntry{
		Order:      order,
		Section:    field("section"),
		Chapter:    chapter,
		VerseRange: field("verse_range"),
		Verses:     verses,
		Type:       typ,
	}, nil
}

// ExpandRange expands "4" to [4] and "51-53" to [51 52 53]
func ExpandRange(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	startStr, endStr, isRange := strings.Cut(s, "-")

	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return nil, fmt.Errorf("parse verse %q: %w", startStr, err)
	}
	end := start
	if isRange {
		if end, err = strconv.Atoi(strings.TrimSpace(endStr)); err != nil {
			return nil, fmt.Errorf("parse verse %q: %w", endStr, err)
		}
	}

	if start < 1 {
		return nil, fmt.Errorf("verse %d must be at least 1", start)
	}
	if end < start {
		return nil, fmt.Errorf("range end %d precedes start %d", end, start)
	}
	if end-start >= maxRangeSpan {
		return nil, fmt.Errorf("range spans more than %d verses", maxRangeSpan)
	}

	verses := make([]int, 0, end-start+1)
	for v := start; v <= end; v++ {
		verses = append(verses, v)
	}
	return verses, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
