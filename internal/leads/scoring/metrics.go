package scoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	// scoresComputedTotal counts evaluations by resulting label
	scoresComputedTotal *prometheus.CounterVec

	// scoreDistribution tracks the spread of computed scores
	scoreDistribution prometheus.Histogram

	// recalculationDuration tracks wall time of recalculations by scope
	recalculationDuration *prometheus.HistogramVec

	// scoreUpdatesTotal counts score rows written back to the lead tables
	scoreUpdatesTotal prometheus.Counter

	// hotTransitionsTotal counts leads that moved into the Hot band
	hotTransitionsTotal prometheus.Counter
)

// InitMetrics registers the scoring metrics with the default registry.
// Safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		scoresComputedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_scores_computed_total",
				Help: "Total number of lead scores computed by label",
			},
			[]string{"label"},
		)

		scoreDistribution = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lead_score",
				Help:    "Distribution of computed lead scores (0-100)",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		)

		recalculationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lead_score_recalculation_duration_seconds",
				Help:    "Duration of lead score recalculations in seconds",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"scope"},
		)

		scoreUpdatesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lead_score_updates_total",
				Help: "Total number of lead score rows persisted",
			},
		)

		hotTransitionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lead_score_hot_transitions_total",
				Help: "Total number of leads whose label moved into Hot",
			},
		)
	})
}

func recordScore(score int, label Label) {
	scoresComputedTotal.WithLabelValues(string(label)).Inc()
	scoreDistribution.Observe(float64(score))
}
