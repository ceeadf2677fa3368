package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module. Refusal
// counters are labeled by reason so capacity pressure and pause churn are
// visible separately from eligibility failures.
type Metrics struct {
	Created          prometheus.Counter
	Confirmed        prometheus.Counter
	Cancelled        prometheus.Counter
	Expired          prometheus.Counter
	Refused          *prometheus.CounterVec
	EligibilityFails *prometheus.CounterVec
	CreateDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all registration module metrics
// registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "entrant_registrations_created_total",
			Help: "Total registrations created (pending or confirmed)",
		}),
		Confirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "entrant_registrations_confirmed_total",
			Help: "Total payment confirmations (excluding idempotent repeats)",
		}),
		Cancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "entrant_registrations_cancelled_total",
			Help: "Total caller-initiated cancellations",
		}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "entrant_registrations_expired_total",
			Help: "Total pending registrations expired by the sweeper",
		}),
		Refused: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "entrant_registrations_refused_total",
			Help: "Total refused registration attempts by reason",
		}, []string{"reason"}),
		EligibilityFails: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "entrant_eligibility_failures_total",
			Help: "Total eligibility failures by constraint kind",
		}, []string{"kind"}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "entrant_create_registration_duration_seconds",
			Help:    "Duration of CreateRegistration (capacity gate critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRefused records a refused attempt with its reason.
func (m *Metrics) IncrementRefused(reason string) {
	m.Refused.WithLabelValues(reason).Inc()
}

// IncrementEligibilityFail records a failed constraint check by kind.
func (m *Metrics) IncrementEligibilityFail(kind string) {
	m.EligibilityFails.WithLabelValues(kind).Inc()
}

// ObserveCreate records the duration of a CreateRegistration call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
