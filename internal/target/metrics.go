package target

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics uses its own registry so several servers can coexist in one
// process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echoburst_target_requests_total",
				Help: "add-person requests handled, by variant and status code",
			},
			[]string{"variant", "code"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "echoburst_target_request_duration_seconds",
				Help:    "add-person handling time, by variant",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"variant"},
		),
	}
	m.registry.MustRegister(m.requests, m.latency)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
