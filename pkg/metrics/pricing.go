package metrics

import "github.com/prometheus/client_golang/prometheus"

// PricingMetrics counts price resolutions and order view placeholders.
type PricingMetrics struct {
	resolutions  *prometheus.CounterVec
	placeholders prometheus.Counter
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_resolutions_total",
		Help: "Price resolutions by product kind and outcome.",
	}, []string{"kind", "outcome"})
	placeholders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_view_placeholders_total",
		Help: "Order lines rendered as unavailable because the product could not be loaded.",
	})
	reg.MustRegister(resolutions, placeholders)
	return &PricingMetrics{
		resolutions:  resolutions,
		placeholders: placeholders,
	}
}

// IncResolution records one resolution outcome.
func (p *PricingMetrics) IncResolution(kind, outcome string) {
	if p == nil || p.resolutions == nil {
		return
	}
	p.resolutions.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncPlaceholder records an order line that fell back to the placeholder.
func (p *PricingMetrics) IncPlaceholder() {
	if p == nil || p.placeholders == nil {
		return
	}
	p.placeholders.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
