// Package metrics provides Prometheus metrics collection for ORM activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name unless another is given.
const DefaultNamespace = "ro"

// Collector holds all Prometheus metrics for the ORM. It implements
// ports.Observer. A nil *Collector records nothing.
type Collector struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Signal metrics
	SignalsTotal *prometheus.CounterVec

	// Transaction metrics
	TransactionsTotal *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New(namespace string) *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer, namespace)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer, namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Collector{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of model operations",
			},
			[]string{"model", "operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Model operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"model", "operation"},
		),
		SignalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Total number of lifecycle signal dispatches",
			},
			[]string{"signal", "status"},
		),
		TransactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of finished transactions by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Operation records one model operation.
func (c *Collector) Operation(model, op string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.OperationsTotal.WithLabelValues(model, op, status(err)).Inc()
	c.OperationDuration.WithLabelValues(model, op).Observe(elapsed.Seconds())
}

// Signal records one signal dispatch.
func (c *Collector) Signal(name string, err error) {
	if c == nil {
		return
	}
	c.SignalsTotal.WithLabelValues(name, status(err)).Inc()
}

// Transaction records a transaction outcome.
func (c *Collector) Transaction(outcome string) {
	if c == nil {
		return
	}
	c.TransactionsTotal.WithLabelValues(outcome).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
