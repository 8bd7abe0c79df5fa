package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ordering module.
// Tracks lifecycle transitions, paid amounts and use case durations.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	PaidAmount       *prometheus.CounterVec
	DiscountsApplied prometheus.Counter
	EventsDropped    prometheus.Counter
	OperationLatency *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_status_transitions_total",
			Help: "Total number of orders entering each status",
		}, []string{"status"}),
		PaidAmount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_paid_amount_total",
			Help: "Sum of paid order totals per currency",
		}, []string{"currency"}),
		DiscountsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_discounts_applied_total",
			Help: "Total number of orders paid with a customer discount",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_events_dropped_total",
			Help: "Total number of order events that could not be handed to the publisher",
		}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orders_operation_duration_seconds",
			Help:    "Duration of ordering use cases",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// ObserveOperation records a use case duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
