// Package metrics exposes the notification subsystem as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tradealert/internal/notify"
)

const namespace = "tradealert"

// Metrics counts published events and delivery outcomes. Observe is a bus
// observer and Report is a notify.Reporter.
type Metrics struct {
	published  *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

// New registers the collectors on reg. historySize is sampled on scrape.
func New(reg prometheus.Registerer, historySize func() int) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Events accepted by the bus.",
			},
			[]string{"category", "severity"},
		),
		deliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "External delivery attempts by outcome.",
			},
			[]string{"category", "outcome"},
		),
	}
	if historySize != nil {
		f.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "history_size",
				Help:      "Events currently retained in history.",
			},
			func() float64 { return float64(historySize()) },
		)
	}
	// Pre-create series so dashboards see zeros before the first event.
	for _, c := range notify.Categories {
		for _, o := range []notify.Outcome{notify.OutcomeSent, notify.OutcomeFailed, notify.OutcomeSkipped} {
			m.deliveries.WithLabelValues(string(c), string(o))
		}
	}
	return m
}

func (m *Metrics) Observe(e notify.Event) {
	m.published.WithLabelValues(string(e.Category), string(e.Severity)).Inc()
}

func (m *Metrics) Report(r notify.DeliveryReport) {
	m.deliveries.WithLabelValues(string(r.Category), string(r.Outcome)).Inc()
}
