package rayleigh

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// clientMetrics instruments the transport with a request counter and latency
// histogram. A nil *clientMetrics is a disabled one, so call sites never
// branch on whether instrumentation was configured.
type clientMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rayleigh_api_requests_total",
				Help: "API requests issued, by operation and HTTP status code.",
			},
			[]string{"operation", "code"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rayleigh_api_request_duration_seconds",
				Help:    "API request latency, by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	for _, collector := range []prometheus.Collector{m.requests, m.latency} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observe records one request. code is the HTTP status, or "error" for a
// request that never produced a response.
func (m *clientMetrics) observe(operation, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, code).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}
