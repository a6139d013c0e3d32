package services

import (
	"sort"

	"github.com/maktabah-search-api/internal/metrics"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/repository"
	"go.uber.org/zap"
)

// dominantGroup picks the work-type group with the most rows. Ties go to the group with
// the best top score, then to scripture.
func dominantGroup(b repository.Bucket) (repository.TypeGroup, bool) {
	if len(b.Groups) == 0 {
		return repository.TypeGroup{}, false
	}

	best := b.Groups[0]
	for _, g := range b.Groups[1:] {
		if g.DocCount != best.DocCount {
			if g.DocCount > best.DocCount {
				best = g
			}
			continue
		}
		gs, bs := topScore(g), topScore(best)
		if gs > bs || (gs == bs && g.Type == models.WorkTypeScripture) {
			best = g
		}
	}
	return best, len(best.Hits) > 0
}

func topScore(g repository.TypeGroup) float64 {
	if len(g.Hits) == 0 {
		return 0
	}
	return g.Hits[0].Row.Score
}

// resolveBucket collapses a bucket into one AggregatedVerse of its dominant type,
// logging and counting the rows of every other type it drops
func resolveBucket(b repository.Bucket, logger *zap.Logger) (models.AggregatedVerse, bool) {
	dominant, ok := dominantGroup(b)
	if !ok {
		return models.AggregatedVerse{}, false
	}

	for _, g := range b.Groups {
		if g.Type == dominant.Type {
			continue
		}
		metrics.TypeDropsTotal.WithLabelValues(string(g.Type)).Add(float64(g.DocCount))
		logger.Debug("dropped minority work type",
			zap.Int("chapter", b.Chapter),
			zap.Int("verse", b.Verse),
			zap.String("kept", string(dominant.Type)),
			zap.String("dropped", string(g.Type)),
			zap.Int("rows", g.DocCount),
		)
	}

	rep := dominant.Hits[0]
	rows := make([]models.VerseRow, 0, len(dominant.Hits))
	for _, h := range dominant.Hits {
		rows = append(rows, h.Row)
	}
	sortByAuthor(rows)

	return models.AggregatedVerse{
		Chapter:        b.Chapter,
		Verse:          b.Verse,
		Type:           dominant.Type,
		Representative: rep.Row,
		Translations:   rows,
		Highlights:     rep.Highlights,
	}, true
}

// verseFromRows builds an AggregatedVerse from rows of one coordinate, keeping only
// those of the given type. The representative is the best scored row.
func verseFromRows(rows []models.VerseRow, typ models.WorkType) (models.AggregatedVerse, bool) {
	kept := make([]models.VerseRow, 0, len(rows))
	for _, r := range rows {
		if r.WorkType() == typ {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return models.AggregatedVerse{}, false
	}

	rep := kept[0]
	for _, r := range kept[1:] {
		if r.Score > rep.Score || (r.Score == rep.Score && r.Author < rep.Author) {
			rep = r
		}
	}
	sortByAuthor(kept)

	return models.AggregatedVerse{
		Chapter:        rep.Chapter,
		Verse:          rep.Verse,
		Type:           typ,
		Representative: rep,
		Translations:   kept,
	}, true
}

// dominantType returns the type with the most rows among rows, scripture on ties
func dominantType(rows []models.VerseRow) models.WorkType {
	counts := map[models.WorkType]int{}
	for _, r := range rows {
		counts[r.WorkType()]++
	}
	if counts[models.WorkTypeNarrative] > counts[models.WorkTypeScripture] {
		return models.WorkTypeNarrative
	}
	return models.WorkTypeScripture
}

func sortByAuthor(rows []models.VerseRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Author < rows[j].Author })
}

// sortByRelevance orders verses by (score desc, chapter asc, verse asc)
func sortByRelevance(verses []models.AggregatedVerse) {
	sort.SliceStable(verses, func(i, j int) bool {
		a, b := verses[i], verses[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.Verse < b.Verse
	})
}
