package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine counters on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Batches      *prometheus.CounterVec
	Quotes       *prometheus.CounterVec
	Transactions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safeswap",
			Name:      "batches_total",
			Help:      "Dispatched batches by execution mode and outcome.",
		}, []string{"mode", "outcome"}),
		Quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safeswap",
			Name:      "quotes_total",
			Help:      "Quote requests by source and outcome.",
		}, []string{"source", "outcome"}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safeswap",
			Name:      "prepared_transactions_total",
			Help:      "Prepared transactions by type.",
		}, []string{"type"}),
	}
	m.registry.MustRegister(m.Batches, m.Quotes, m.Transactions)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveBatch(mode, outcome string) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) ObserveQuote(source, outcome string) {
	if m == nil {
		return
	}
	m.Quotes.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveTransaction(txType string) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(txType).Inc()
}

// WriteTextfile dumps all counters in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
