package repository

import (
	"database/sql"
	"strings"

	"github.com/maktabah-search-api/internal/models"
)

// SQLRow is the scan target shared by the SQL corpus backends
type SQLRow struct {
	ID          string         `db:"id"`
	BookID      string         `db:"book_id"`
	Chapter     int            `db:"chapter"`
	Verse       int            `db:"verse"`
	Author      string         `db:"author"`
	Text        string         `db:"text"`
	ChapterName sql.NullString `db:"chapter_name"`
	Volume      sql.NullInt64  `db:"volume"`
	Score       float64        `db:"score"`
	TypeCount   int            `db:"type_count"`
	Headline    sql.NullString `db:"headline"`
}

// VerseRow converts the scanned row
func (r SQLRow) VerseRow() models.VerseRow {
	row := models.VerseRow{
		ID:          r.ID,
		Chapter:     r.Chapter,
		Verse:       r.Verse,
		Text:        r.Text,
		Author:      r.Author,
		BookID:      r.BookID,
		ChapterName: r.ChapterName.String,
		Score:       r.Score,
	}
	if r.Volume.Valid {
		v := int(r.Volume.Int64)
		row.Volume = &v
	}
	return row
}

// Hit converts the scanned row, splitting the headline into fragments. A headline
// without the pre tag carries no match and yields no fragments.
func (r SQLRow) Hit(hl *Highlight, delimiter string) Hit {
	h := Hit{Row: r.VerseRow()}
	if hl == nil || !r.Headline.Valid || !strings.Contains(r.Headline.String, hl.PreTag) {
		return h
	}
	for _, frag := range strings.Split(r.Headline.String, delimiter) {
		if frag = strings.TrimSpace(frag); frag != "" && strings.Contains(frag, hl.PreTag) {
			h.Highlights = append(h.Highlights, frag)
		}
		if hl.Fragments > 0 && len(h.Highlights) == hl.Fragments {
			break
		}
	}
	return h
}

// Ranked converts the scanned row into an aggregation input
func (r SQLRow) Ranked(hl *Highlight, delimiter string) RankedRow {
	return RankedRow{Hit: r.Hit(hl, delimiter), TypeCount: r.TypeCount}
}

// HeadlineWords approximates a fragment size in characters as a word budget
func HeadlineWords(fragmentSize int) int {
	words := fragmentSize / 6
	if words < 10 {
		words = 10
	}
	if words > 64 {
		words = 64
	}
	return words
}
