package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gap-fill outcomes, one per manifest verse missing from the story
const (
	GapFillFetched = "fetched"
	GapFillEmpty   = "empty"
	GapFillSkipped = "skipped"
)

// Search and curation Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "maktabah",
			Name:      "search_duration_seconds",
			Help:      "Verse search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"strategy", "status"},
	)

	TypeDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maktabah",
			Name:      "type_collision_drops_total",
			Help:      "Rows dropped because another work type dominated their chapter_verse key",
		},
		[]string{"type"},
	)

	GapFillTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maktabah",
			Name:      "gapfill_lookups_total",
			Help:      "Manifest verses missing from the story by gap-fill outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(TypeDropsTotal)
	prometheus.MustRegister(GapFillTotal)
}
