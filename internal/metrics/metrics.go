package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters
type Metrics struct {
	registry *prometheus.Registry

	PlansGenerated       *prometheus.CounterVec
	PaymentsRegistered   prometheus.Counter
	PaymentsReversed     prometheus.Counter
	FallbackResolutions  prometheus.Counter
	MissingLedgerEntries prometheus.Counter
}

// New registers the counters on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PlansGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pratiche",
			Name:      "plans_generated_total",
			Help:      "Amortization plans generated or regenerated.",
		}, []string{"method"}),
		PaymentsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pratiche",
			Name:      "payments_registered_total",
			Help:      "Installment payments registered.",
		}),
		PaymentsReversed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pratiche",
			Name:      "payments_reversed_total",
			Help:      "Installment payments reversed.",
		}),
		FallbackResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pratiche",
			Name:      "rate_fallback_resolutions_total",
			Help:      "Moratory rates resolved from an expired row.",
		}),
		MissingLedgerEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pratiche",
			Name:      "reversal_missing_ledger_entries_total",
			Help:      "Linked ledger entries already gone when a payment was reversed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PlansGenerated,
		m.PaymentsRegistered,
		m.PaymentsReversed,
		m.FallbackResolutions,
		m.MissingLedgerEntries,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
