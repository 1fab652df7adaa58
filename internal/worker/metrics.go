package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bookkeeper/internal/services"
)

// Metrics exposes the latest budget totals as Prometheus gauges on a
// private registry.
type Metrics struct {
	registry  *prometheus.Registry
	paid      *prometheus.GaugeVec
	limit     *prometheus.GaugeVec
	exceeded  *prometheus.GaugeVec
	refreshes *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		paid: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bookkeeper_budget_paid",
				Help: "Amount paid in the current period",
			},
			[]string{"period"}, // day, week, month
		),
		limit: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bookkeeper_budget_limit",
				Help: "Current limit of the period",
			},
			[]string{"period"},
		),
		exceeded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bookkeeper_budget_exceeded",
				Help: "1 when more was paid than the period limit allows",
			},
			[]string{"period"},
		),
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_refreshes_total",
				Help: "Total number of totals refreshes by result",
			},
			[]string{"result"}, // ok, error
		),
	}
}

// Observe records a successful refresh.
func (m *Metrics) Observe(t services.Totals) {
	for _, p := range t.Periods() {
		name := services.PeriodName(p.Length)
		m.paid.WithLabelValues(name).Set(float64(p.Paid))
		m.limit.WithLabelValues(name).Set(float64(p.Limit))
		exceeded := 0.0
		if p.Exceeded() {
			exceeded = 1
		}
		m.exceeded.WithLabelValues(name).Set(exceeded)
	}
	m.refreshes.WithLabelValues("ok").Inc()
}

// Failed records a refresh that returned an error.
func (m *Metrics) Failed() {
	m.refreshes.WithLabelValues("error").Inc()
}

// WriteTextfile writes the current values in the text exposition format,
// atomically, for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
