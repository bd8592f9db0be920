// Package xmpp models the signaling stanzas exchanged by the focus. A
// stanza is decoded exactly once at the transport boundary into a
// kind-tagged value; everything above this package dispatches on the
// tag, never on wire bytes.
package xmpp

import (
	"github.com/google/uuid"

	"github.com/dkeye/Focus/internal/colibri"
	"github.com/dkeye/Focus/internal/domain"
)

// Kind tags the decoded stanza.
type Kind int

const (
	KindUnknown Kind = iota
	KindMute
	KindConference
	KindDial
	KindLog
	KindPresence
	KindResult
	KindError
)

// IQ types.
const (
	TypeSet    = "set"
	TypeGet    = "get"
	TypeResult = "result"
	TypeError  = "error"
)

// Condition is an error condition carried by an error stanza.
type Condition string

const (
	ConditionBadRequest          Condition = "bad-request"
	ConditionForbidden           Condition = "forbidden"
	ConditionInternalServerError Condition = "internal-server-error"
	ConditionNotAllowed          Condition = "not-allowed"
	ConditionServiceUnavailable  Condition = "service-unavailable"
)

// Stanza is one inbound or outbound signaling message. Exactly one
// payload field is set, matching Kind.
type Stanza struct {
	Kind Kind
	ID   string
	Type string
	From domain.JID
	To   domain.JID

	Error      *StanzaError
	Mute       *Mute
	Dial       *Dial
	Conference *colibri.ConferenceIQ
	Log        *LogPayload
	Presence   *Presence
}

// StanzaError describes the error element of an error stanza.
type StanzaError struct {
	Condition Condition
}

// Mute is a request to change the mute state of a room occupant.
type Mute struct {
	// TargetJID is the occupant whose state should change. Empty means
	// the request is incomplete.
	TargetJID domain.JID
	// Mute is nil when the request did not carry a state at all.
	Mute *bool
}

// Dial is a call-control request to be relayed to the gateway.
type Dial struct {
	Source      string
	Destination string
	Headers     []Header
}

type Header struct {
	Name  string
	Value string
}

// LogPayload is a client-submitted diagnostic log extension.
type LogPayload struct {
	LogID   string
	Message string
}

// PCStatsLogID identifies the only diagnostic log kind the focus
// forwards to the observability sink.
const PCStatsLogID = "PeerConnectionStats"

// Presence is a room presence update.
type Presence struct {
	Unavailable bool
	Nick        string
}

// NextID returns a fresh stanza correlation id.
func NextID() string {
	return uuid.NewString()
}

// NewResult builds a success reply to req, preserving its correlation id
// and reversing its addressing.
func NewResult(req *Stanza) *Stanza {
	return &Stanza{
		Kind: KindResult,
		ID:   req.ID,
		Type: TypeResult,
		From: req.To,
		To:   req.From,
	}
}

// NewError builds an error reply to req carrying the given condition.
func NewError(req *Stanza, cond Condition) *Stanza {
	return &Stanza{
		Kind:  KindError,
		ID:    req.ID,
		Type:  TypeError,
		From:  req.To,
		To:    req.From,
		Error: &StanzaError{Condition: cond},
	}
}
