package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API's Prometheus collectors. Each instance has its
// own registry.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	layoutTime  prometheus.Histogram
	layoutItems prometheus.Counter
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotgrid",
			Name:      "api_requests_total",
			Help:      "API requests by operation and response status.",
		}, []string{"operation", "status"}),
		layoutTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotgrid",
			Name:      "layout_duration_seconds",
			Help:      "Time spent assigning lanes.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		layoutItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotgrid",
			Name:      "layout_allocations_total",
			Help:      "Allocations laid out.",
		}),
	}
	m.registry.MustRegister(m.requests, m.layoutTime, m.layoutItems)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(operation string, status int) {
	m.requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

func (m *Metrics) observeLayout(n int, took time.Duration) {
	m.layoutItems.Add(float64(n))
	m.layoutTime.Observe(took.Seconds())
}
