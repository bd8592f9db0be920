package events

import "github.com/prometheus/client_golang/prometheus"

// CounterSink counts emitted events by kind.
type CounterSink struct {
	events *prometheus.CounterVec
}

func NewCounterSink(reg prometheus.Registerer) *CounterSink {
	s := &CounterSink{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "focus",
				Name:      "events_total",
				Help:      "Conference events emitted, by kind.",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(s.events)
	return s
}

func (s *CounterSink) Emit(kind Kind, _ Fields) {
	s.events.WithLabelValues(string(kind)).Inc()
}
