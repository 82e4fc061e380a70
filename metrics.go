package folioengine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "folioengine"

// Metrics holds the application-level Prometheus collectors. HTTP request
// metrics come from the echoprometheus middleware on the same registry.
type Metrics struct {
	LoginAttempts  *prometheus.CounterVec
	RecordsCreated *prometheus.CounterVec
	UploadBytes    prometheus.Counter
	UploadFailures prometheus.Counter
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result (success, invalid, limited, error).",
		}, []string{"result"}),
		RecordsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_created_total",
			Help:      "Records created by kind (contact, portfolio, blog).",
		}, []string{"kind"}),
		UploadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes received in image uploads.",
		}),
		UploadFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upload_failures_total",
			Help:      "Image uploads rejected or failed in object storage.",
		}),
	}
}
