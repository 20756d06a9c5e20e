package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions              *prometheus.CounterVec
	StoreErrors            prometheus.Counter
	TrackedKeys            prometheus.Gauge
	Evictions              *prometheus.CounterVec
	CleanupRunsTotal       *prometheus.CounterVec
	CleanupDurationSeconds prometheus.Histogram
}

// New registers the rate limiter collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "showroom_ratelimit_store_errors_total",
			Help: "Rate window store failures (requests were let through)",
		}),
		TrackedKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "showroom_ratelimit_tracked_keys",
			Help: "Rate windows currently held in memory",
		}),
		Evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_ratelimit_evictions_total",
			Help: "Rate windows dropped, by reason",
		}, []string{"reason"}),
		CleanupRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_ratelimit_cleanup_runs_total",
			Help: "Total number of idle window sweeps",
		}, []string{"status"}),
		CleanupDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "showroom_ratelimit_cleanup_duration_seconds",
			Help: "Duration of idle window sweeps in seconds",
		}),
	}
}

func (m *Metrics) RecordDecision(class string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.Decisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.StoreErrors.Inc()
}

func (m *Metrics) SetTrackedKeys(n int) {
	m.TrackedKeys.Set(float64(n))
}

func (m *Metrics) AddEvictions(reason string, n int) {
	m.Evictions.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) IncrementCleanupRuns(status string) {
	m.CleanupRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCleanupDuration(durationSeconds float64) {
	m.CleanupDurationSeconds.Observe(durationSeconds)
}
