package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ledger"

// Metrics holds the prometheus collectors of the ledger service.
type Metrics struct {
	OrdersPlaced       prometheus.Counter
	OrdersReconciled   prometheus.Counter
	InventoryFailures  prometheus.Counter
	StockClamped       prometheus.Counter
	BillsRecalculated  *prometheus.CounterVec
	ConflictRetries    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Total number of orders placed",
		}),
		OrdersReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_reconciled_total",
			Help:      "Total number of order edits reconciled against stock",
		}),
		InventoryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_inventory_failures_total",
			Help:      "Order lines whose stock update was skipped because the item is missing",
		}),
		StockClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_clamped_total",
			Help:      "Stock deltas that would have driven available stock below zero",
		}),
		BillsRecalculated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_recalculated_total",
			Help:      "Orders visited by bill recalculation",
		}, []string{"updated"}),
		ConflictRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_retries_total",
			Help:      "Units of work retried after a write conflict",
		}, []string{"operation"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger write operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of requests to ledger service",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of ledger service requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}

	reg.MustRegister(
		m.OrdersPlaced,
		m.OrdersReconciled,
		m.InventoryFailures,
		m.StockClamped,
		m.BillsRecalculated,
		m.ConflictRetries,
		m.OperationDuration,
		m.HTTPRequests,
		m.HTTPRequestLatency,
	)
	return m
}

// NewDefault registers with the global prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// ObserveOperation records how long a write operation took.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// RecordRecalc counts one visited order.
func (m *Metrics) RecordRecalc(updated bool) {
	if updated {
		m.BillsRecalculated.WithLabelValues("true").Inc()
		return
	}
	m.BillsRecalculated.WithLabelValues("false").Inc()
}
