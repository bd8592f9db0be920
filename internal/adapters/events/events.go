// Package events carries structured conference telemetry to pluggable
// observability sinks.
package events

import "github.com/rs/zerolog/log"

// Kind names an event series.
type Kind string

const (
	KindPeerConnectionStats Kind = "peer_connection_stats"
	KindDisplayNameChanged  Kind = "endpoint_display_name"
	KindConferenceRoom      Kind = "conference_room"
	KindFocusCreated        Kind = "focus_created"
	KindFocusDestroyed      Kind = "focus_destroyed"
)

// Well-known field names.
const (
	FieldConferenceID = "conference_id"
	FieldEndpointID   = "endpoint_id"
	FieldDisplayName  = "display_name"
	FieldRoomJID      = "room_jid"
	FieldBridgeJID    = "bridge_jid"
	FieldContent      = "content"
)

type Fields map[string]string

// Sink consumes emitted events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Emit(kind Kind, fields Fields)
}

// LogSink writes every event to the structured log.
type LogSink struct{}

func (LogSink) Emit(kind Kind, fields Fields) {
	ev := log.Info().Str("module", "events").Str("kind", string(kind))
	for k, v := range fields {
		ev = ev.Str(k, v)
	}
	ev.Msg("event")
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(kind Kind, fields Fields) {
	for _, s := range m {
		s.Emit(kind, fields)
	}
}

// Discard drops every event. Useful as a default.
type Discard struct{}

func (Discard) Emit(Kind, Fields) {}
