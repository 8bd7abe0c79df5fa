package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the customer module.
type Metrics struct {
	CustomersCreated prometheus.Counter
	VipUpgrades      prometheus.Counter
	OperationLatency *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		CustomersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_customers_created_total",
			Help: "Total number of customers registered",
		}),
		VipUpgrades: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orders_customers_vip_upgrades_total",
			Help: "Total number of customers upgraded to VIP",
		}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orders_customer_operation_duration_seconds",
			Help:    "Duration of customer use cases",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// ObserveOperation records a use case duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
