package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the catalog module.
// Tracks pause toggles and segment lookup durations.
type Metrics struct {
	PauseToggled       prometheus.Counter
	GetSegmentDuration prometheus.Histogram
}

// New creates a new Metrics instance with all catalog module metrics registered.
func New() *Metrics {
	return &Metrics{
		PauseToggled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "entrant_pause_toggles_total",
			Help: "Total number of segment pause toggles by organizers",
		}),
		GetSegmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "entrant_get_segment_duration_seconds",
			Help:    "Duration of segment lookups (registration critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementPauseToggled records a successful pause toggle.
func (m *Metrics) IncrementPauseToggled() {
	m.PauseToggled.Inc()
}

// ObserveGetSegment records the duration of a segment lookup.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveGetSegment(start time.Time) {
	m.GetSegmentDuration.Observe(time.Since(start).Seconds())
}
