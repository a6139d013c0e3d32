package repository

import (
	"sort"

	"github.com/maktabah-search-api/internal/models"
)

// Order selects how buckets are ranked before truncation
type Order string

const (
	// OrderRelevance ranks by (top score desc, chapter asc, verse asc)
	OrderRelevance Order = "relevance"
	// OrderTextual ranks by (chapter asc, verse asc)
	OrderTextual Order = "textual"
)

// Highlight requests inline highlight fragments on matched text
type Highlight struct {
	PreTag       string
	PostTag      string
	FragmentSize int
	Fragments    int
}

// AggregateOptions bounds a composite-key aggregation
type AggregateOptions struct {
	// MaxBuckets caps the number of chapter_verse buckets returned
	MaxBuckets int
	// TopHits caps the rows kept per work-type group, 0 keeps all
	TopHits int
	Order   Order
	// Highlight is nil when highlights are not requested
	Highlight *Highlight
}

// Hit is one matching row with its optional highlight fragments
type Hit struct {
	Row        models.VerseRow
	Highlights []string
}

// RowPage is a row-level window of matches
type RowPage struct {
	Hits  []Hit
	Total int
}

// TypeGroup holds the rows of one work type inside a bucket
type TypeGroup struct {
	Type     models.WorkType
	DocCount int
	Hits     []Hit
}

// Bucket is one chapter_verse aggregation bucket
type Bucket struct {
	Key     string
	Chapter int
	Verse   int
	Groups  []TypeGroup
}

// DocCount returns the matching row count across groups
func (b Bucket) DocCount() int {
	n := 0
	for _, g := range b.Groups {
		n += g.DocCount
	}
	return n
}

// MaxScore returns the best score among the bucket's hits
func (b Bucket) MaxScore() float64 {
	best := 0.0
	for _, g := range b.Groups {
		for _, h := range g.Hits {
			if h.Row.Score > best {
				best = h.Row.Score
			}
		}
	}
	return best
}

// RankedRow is a matched row annotated with its work-type group size
type RankedRow struct {
	Hit
	TypeCount int
}

// AssembleBuckets folds ranked rows into buckets. Groups keep at most topHits rows
// (0 keeps all) sorted by score desc then author asc.
func AssembleBuckets(rows []RankedRow, topHits int) []Bucket {
	type groupKey struct {
		key string
		typ models.WorkType
	}

	var buckets []Bucket
	bucketIdx := map[string]int{}
	groupIdx := map[groupKey]int{}

	for _, r := range rows {
		key := r.Row.CompositeKey()
		bi, ok := bucketIdx[key]
		if !ok {
			bi = len(buckets)
			bucketIdx[key] = bi
			buckets = append(buckets, Bucket{Key: key, Chapter: r.Row.Chapter, Verse: r.Row.Verse})
		}

		gk := groupKey{key: key, typ: r.Row.WorkType()}
		gi, ok := groupIdx[gk]
		if !ok {
			gi = len(buckets[bi].Groups)
			groupIdx[gk] = gi
			buckets[bi].Groups = append(buckets[bi].Groups, TypeGroup{Type: gk.typ})
		}

		g := &buckets[bi].Groups[gi]
		g.Hits = append(g.Hits, r.Hit)
		if r.TypeCount > g.DocCount {
			g.DocCount = r.TypeCount
		}
	}

	for bi := range buckets {
		for gi := range buckets[bi].Groups {
			g := &buckets[bi].Groups[gi]
			SortHits(g.Hits)
			if g.DocCount < len(g.Hits) {
				g.DocCount = len(g.Hits)
			}
			if topHits > 0 && len(g.Hits) > topHits {
				g.Hits = g.Hits[:topHits]
			}
		}
	}
	return buckets
}

// SortHits orders hits by score desc, then author asc
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Row.Score != hits[j].Row.Score {
			return hits[i].Row.Score > hits[j].Row.Score
		}
		return hits[i].Row.Author < hits[j].Row.Author
	})
}

// SortBuckets orders buckets in place
func SortBuckets(buckets []Bucket, order Order) {
	sort.SliceStable(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if order == OrderRelevance {
			if sa, sb := a.MaxScore(), b.MaxScore(); sa != sb {
				return sa > sb
			}
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.Verse < b.Verse
	})
}

// TruncateBuckets sorts buckets and keeps the first limit (0 keeps all)
func TruncateBuckets(buckets []Bucket, order Order, limit int) []Bucket {
	SortBuckets(buckets, order)
	if limit > 0 && len(buckets) > limit {
		return buckets[:limit]
	}
	return buckets
}
