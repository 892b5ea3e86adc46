// Package metrics exposes ledger counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "jaggery"

// Ledger records operation outcomes and stock movements.
type Ledger struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	stockKg    *prometheus.CounterVec
}

// NewLedger registers the ledger collectors, plus the Go and process
// collectors, on a private registry.
func NewLedger() *Ledger {
	reg := prometheus.NewRegistry()
	m := &Ledger{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		stockKg: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "stock_moved_kg_total",
			Help:      "Kilograms received into lots or dispatched from them.",
		}, []string{"direction"}),
	}
	reg.MustRegister(
		m.operations,
		m.stockKg,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe counts one ledger operation as "ok" or "rejected".
func (m *Ledger) Observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// StockMoved adds kg to the counter for direction.
func (m *Ledger) StockMoved(direction string, kg decimal.Decimal) {
	if !kg.IsPositive() {
		return
	}
	m.stockKg.WithLabelValues(direction).Add(kg.InexactFloat64())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Ledger) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
