package producer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for order event publishing.
type Metrics struct {
	Published      *prometheus.CounterVec
	Failures       prometheus.Counter
	CircuitDropped prometheus.Counter
	CircuitState   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_events_published_total",
			Help: "Total number of order events written to Kafka",
		}, []string{"event_type"}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_events_publish_failures_total",
			Help: "Total number of order event produce failures",
		}),
		CircuitDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_events_circuit_dropped_total",
			Help: "Total number of order events dropped while the Kafka circuit was open",
		}),
		CircuitState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "orders_events_circuit_state",
			Help: "Kafka circuit breaker state (0=closed, 1=open)",
		}),
	}
}
