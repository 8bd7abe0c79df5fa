package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the catalog module.
type Metrics struct {
	ProductsCreated  prometheus.Counter
	UnitsRestocked   prometheus.Counter
	OperationLatency *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		ProductsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_products_created_total",
			Help: "Total number of products listed",
		}),
		UnitsRestocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_product_units_restocked_total",
			Help: "Total number of stock units added through restocking",
		}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orders_catalog_operation_duration_seconds",
			Help:    "Duration of catalog use cases",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// ObserveOperation records a use case duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
