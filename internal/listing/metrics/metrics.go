package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the listing proxy collectors.
type Metrics struct {
	VendorRequests     *prometheus.CounterVec
	VendorLatency      *prometheus.HistogramVec
	VendorRetries      prometheus.Counter
	Searches           *prometheus.CounterVec
	PagesPerSearch     prometheus.Histogram
	CircuitState       prometheus.Gauge
	CircuitTransitions *prometheus.CounterVec
}

// New registers the listing collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VendorRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_vendor_requests_total",
			Help: "Vendor API calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		VendorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "showroom_vendor_request_duration_seconds",
			Help:    "Vendor API call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"operation"}),
		VendorRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "showroom_vendor_retries_total",
			Help: "Vendor page fetches retried after a retryable failure",
		}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_listing_searches_total",
			Help: "Listing searches by outcome (complete, partial, failed)",
		}, []string{"outcome"}),
		PagesPerSearch: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "showroom_listing_pages_per_search",
			Help:    "Vendor pages attempted per listing search",
			Buckets: []float64{1, 2, 3, 4, 5, 6},
		}),
		CircuitState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "showroom_vendor_circuit_open",
			Help: "1 while the vendor circuit breaker is open",
		}),
		CircuitTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_vendor_circuit_transitions_total",
			Help: "Vendor circuit breaker transitions by target state",
		}, []string{"to"}),
	}
}

func (m *Metrics) ObserveVendorCall(operation, outcome string, d time.Duration) {
	m.VendorRequests.WithLabelValues(operation, outcome).Inc()
	m.VendorLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncrementRetries() {
	m.VendorRetries.Inc()
}

func (m *Metrics) RecordSearch(outcome string, pagesAttempted int) {
	m.Searches.WithLabelValues(outcome).Inc()
	m.PagesPerSearch.Observe(float64(pagesAttempted))
}

func (m *Metrics) CircuitOpened() {
	m.CircuitState.Set(1)
	m.CircuitTransitions.WithLabelValues("open").Inc()
}

func (m *Metrics) CircuitClosed() {
	m.CircuitState.Set(0)
	m.CircuitTransitions.WithLabelValues("closed").Inc()
}
