package graph

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/graphsync/internal/source"
)

// Metrics exposes graph activity to Prometheus. A nil *Metrics records
// nothing.
type Metrics struct {
	events     *prometheus.CounterVec
	operations *prometheus.CounterVec
	live       *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which tests use to read values directly.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphsync_updater_events_total",
				Help: "Remote events drained by updaters, by outcome.",
			},
			[]string{"kind", "event", "result"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphsync_operations_total",
				Help: "Entity operations run through the three-phase protocol, by outcome.",
			},
			[]string{"kind", "op", "result"},
		),
		live: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "graphsync_live_entities",
				Help: "Entities currently registered, by kind.",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.operations, m.live)
	}
	return m
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	if code := CodeOf(err); code != "" {
		return string(code)
	}
	return string(CodeUnknown)
}

func (m *Metrics) event(kind source.Kind, t source.EventType, err error) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind.String(), t.String(), result(err)).Inc()
}

func (m *Metrics) operation(kind source.Kind, op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind.String(), op, result(err)).Inc()
}

func (m *Metrics) registered(kind source.Kind) {
	if m == nil {
		return
	}
	m.live.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) unregistered(kind source.Kind) {
	if m == nil {
		return
	}
	m.live.WithLabelValues(kind.String()).Dec()
}
