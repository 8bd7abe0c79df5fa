package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics shared by every route.
type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	IdempotentReplays prometheus.Counter
	RateLimited       prometheus.Counter
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orders_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		IdempotentReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_http_idempotent_replays_total",
			Help: "Responses replayed for a repeated Idempotency-Key",
		}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_http_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limit",
		}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}
