package events

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	kinds []Kind
}

func (m *memSink) Emit(kind Kind, _ Fields) {
	m.kinds = append(m.kinds, kind)
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	sink := MultiSink{a, b}

	sink.Emit(KindFocusCreated, Fields{FieldRoomJID: "orange@c"})
	sink.Emit(KindFocusDestroyed, nil)

	assert.Equal(t, []Kind{KindFocusCreated, KindFocusDestroyed}, a.kinds)
	assert.Equal(t, []Kind{KindFocusCreated, KindFocusDestroyed}, b.kinds)
}

func TestCounterSinkCountsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewCounterSink(reg)

	sink.Emit(KindPeerConnectionStats, nil)
	sink.Emit(KindPeerConnectionStats, nil)
	sink.Emit(KindFocusCreated, nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "focus_events_total", families[0].GetName())

	counts := map[string]float64{}
	for _, metric := range families[0].GetMetric() {
		require.Len(t, metric.GetLabel(), 1)
		counts[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, float64(2), counts[string(KindPeerConnectionStats)])
	assert.Equal(t, float64(1), counts[string(KindFocusCreated)])
}
