package graph

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/source"
)

func TestMetrics_TrackLiveEntities(t *testing.T) {
	m := NewMetrics(nil)
	f := newFixture(t, WithMetrics(m))
	p := f.mirror(testSeed())

	assert.Equal(t, 4.0, promtest.ToFloat64(m.live.WithLabelValues("getter")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.live.WithLabelValues("system")))

	require.NoError(t, f.system(p).Remove(f.ctx))
	assert.Zero(t, promtest.ToFloat64(m.live.WithLabelValues("getter")))
	assert.Zero(t, promtest.ToFloat64(m.live.WithLabelValues("system")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.live.WithLabelValues("value")))
}

func TestMetrics_CountOperationsByOutcome(t *testing.T) {
	m := NewMetrics(nil)
	f := newFixture(t, WithMetrics(m))
	p := f.mirror(testSeed())
	v := f.value(p)

	v.SetNameInput("renamed")
	require.NoError(t, v.PushName(f.ctx))
	assert.Error(t, v.PushName(f.ctx))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.operations.WithLabelValues("value", "push_name", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(
		m.operations.WithLabelValues("value", "push_name", string(CodeNewNameIsSameAsCurrent))))
	assert.Equal(t, float64(testSeedSize),
		sumStarts(m, "project", "system", "object", "state", "action", "getter", "setter", "value"))
}

func sumStarts(m *Metrics, kinds ...string) float64 {
	var total float64
	for _, k := range kinds {
		total += promtest.ToFloat64(m.operations.WithLabelValues(k, "start_updating", "ok"))
	}
	return total
}

func TestMetrics_CountEvents(t *testing.T) {
	m := NewMetrics(nil)
	f := newFixture(t, WithMetrics(m))
	p := detached(t, f)

	u := p.Updater()
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "one")))
	u.AppendEvent(source.Added(source.KindValue, valueDiff("v1", "one")))
	_ = u.Update(f.ctx)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.events.WithLabelValues("project", "added", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(
		m.events.WithLabelValues("project", "added", string(CodeAlreadyAdded))))
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) }, "collectors register once per registry")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.registered(source.KindValue)
		m.operation(source.KindValue, "push_name", nil)
		m.event(source.KindValue, source.EventAdded, nil)
	})
}
