package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the process-wide collectors. Services receive it through fx
// and never register collectors on the default registry.
type Metrics struct {
	Registry *prometheus.Registry

	EntitlementDecisions *prometheus.CounterVec
	UsageIncrements      *prometheus.CounterVec
	ProviderErrors       *prometheus.CounterVec
	WebhookEvents        *prometheus.CounterVec
	FAQGenerations       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		EntitlementDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopfaq",
			Name:      "entitlement_decisions_total",
			Help:      "Entitlement decisions by action and outcome.",
		}, []string{"action", "outcome"}),
		UsageIncrements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopfaq",
			Name:      "usage_increments_total",
			Help:      "Usage ledger increments by metric type.",
		}, []string{"type"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopfaq",
			Name:      "billing_provider_errors_total",
			Help:      "Billing provider failures by operation and kind.",
		}, []string{"operation", "kind"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopfaq",
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by topic and result.",
		}, []string{"topic", "result"}),
		FAQGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopfaq",
			Name:      "faq_generations_total",
			Help:      "FAQ generation attempts by AI provider and result.",
		}, []string{"provider", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.EntitlementDecisions,
		m.UsageIncrements,
		m.ProviderErrors,
		m.WebhookEvents,
		m.FAQGenerations,
	)
	return m
}
