// Package metrics defines the Prometheus collectors exposed on /-/metrics.
//
// All recording methods are safe on a nil *Metrics so components built
// without metrics (CLI one-shots, tests) need no guards.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quotesync"

// Sync cycle results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Sources of added quotes.
const (
	SourceEditor = "editor"
	SourceImport = "import"
	SourceServer = "server"
)

// Metrics groups the domain collectors.
type Metrics struct {
	syncCycles  *prometheus.CounterVec
	storeQuotes prometheus.Gauge
	quotesAdded *prometheus.CounterVec
	circuit     *prometheus.GaugeVec
}

// New registers the collectors on reg. Use prometheus.DefaultRegisterer in
// the server so promhttp.Handler picks them up, and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		syncCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Sync cycles by result.",
		}, []string{"result"}),
		storeQuotes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_quotes",
			Help:      "Number of quotes currently in the store.",
		}),
		quotesAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_added_total",
			Help:      "Quotes appended to the store by source.",
		}, []string{"source"}),
		circuit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_circuit_state",
			Help:      "Circuit breaker state per remote service: 0 closed, 1 half-open, 2 open.",
		}, []string{"service"}),
	}
}

// SyncCycle counts one finished sync cycle.
func (m *Metrics) SyncCycle(result string) {
	if m == nil {
		return
	}

	m.syncCycles.WithLabelValues(result).Inc()
}

// StoreSize sets the current quote count.
func (m *Metrics) StoreSize(n int) {
	if m == nil {
		return
	}

	m.storeQuotes.Set(float64(n))
}

// QuotesAdded counts quotes appended from source.
func (m *Metrics) QuotesAdded(source string, n int) {
	if m == nil || n <= 0 {
		return
	}

	m.quotesAdded.WithLabelValues(source).Add(float64(n))
}

// CircuitState records the breaker state of a remote service.
func (m *Metrics) CircuitState(service string, state int) {
	if m == nil {
		return
	}

	m.circuit.WithLabelValues(service).Set(float64(state))
}
