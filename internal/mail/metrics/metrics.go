package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the mail relay collectors.
type Metrics struct {
	Submissions  *prometheus.CounterVec
	Uploads      *prometheus.CounterVec
	UploadBytes  prometheus.Counter
	SendDuration prometheus.Histogram
}

// New registers the mail collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_mail_submissions_total",
			Help: "Mail submissions by kind (contact, trade_in) and outcome",
		}, []string{"kind", "outcome"}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_mail_uploads_total",
			Help: "Object storage uploads by outcome",
		}, []string{"outcome"}),
		UploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "showroom_mail_upload_bytes_total",
			Help: "Bytes uploaded to object storage",
		}),
		SendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "showroom_mail_smtp_send_duration_seconds",
			Help:    "SMTP delivery latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordSubmission(kind, outcome string) {
	m.Submissions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordUpload(ok bool, size int) {
	if !ok {
		m.Uploads.WithLabelValues("failed").Inc()
		return
	}
	m.Uploads.WithLabelValues("ok").Inc()
	m.UploadBytes.Add(float64(size))
}

func (m *Metrics) ObserveSend(d time.Duration) {
	m.SendDuration.Observe(d.Seconds())
}
