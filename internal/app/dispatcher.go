package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Focus/internal/adapters/events"
	"github.com/dkeye/Focus/internal/colibri"
	"github.com/dkeye/Focus/internal/domain"
	"github.com/dkeye/Focus/internal/xmpp"
)

// ConferenceControl is the slice of a conference the dispatcher needs.
type ConferenceControl interface {
	ID() string
	Bridge() string
	Gateway() domain.JID
	Role(jid domain.JID) (domain.Role, bool)
	HandleMuteRequest(requester, target domain.JID, mute bool) bool
	ApplyRecordingState(from domain.JID, token string, desired bool, directory string) bool
	Participant(roomJID domain.JID) (*domain.Participant, bool)
	UpdateDisplayName(roomJID domain.JID, name string) (domain.EndpointID, bool)
}

// Dispatcher classifies inbound stanzas and routes each to the first
// matching handler: mute, recording, dial-out, diagnostic log, presence.
// Malformed or incomplete requests are dropped, not answered; only the
// typed error replies below ever go back out.
type Dispatcher struct {
	conf   ConferenceControl
	conn   xmpp.Connection
	events events.Sink
}

func NewDispatcher(conf ConferenceControl, conn xmpp.Connection, sink events.Sink) *Dispatcher {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Dispatcher{conf: conf, conn: conn, events: sink}
}

// HandleStanza dispatches one decoded stanza. The predicate order is
// fixed; only the first match handles the stanza.
func (d *Dispatcher) HandleStanza(ctx context.Context, st *xmpp.Stanza) {
	switch {
	case d.acceptMute(st):
		d.handleMute(st)
	case d.acceptRecording(st):
		d.handleRecording(st)
	case d.acceptDial(st):
		d.handleDial(ctx, st)
	case d.acceptLog(st):
		d.handleLog(st)
	case d.acceptPresence(st):
		d.handlePresence(st)
	default:
		log.Debug().Str("module", "app.dispatcher").Str("from", string(st.From)).Int("kind", int(st.Kind)).Msg("unexpected stanza")
	}
}

func (d *Dispatcher) acceptMute(st *xmpp.Stanza) bool {
	return st.Kind == xmpp.KindMute
}

func (d *Dispatcher) acceptRecording(st *xmpp.Stanza) bool {
	// Recording requests come from the room, never from the bridge.
	bridge := d.conf.Bridge()
	return st.Kind == xmpp.KindConference &&
		st.Conference.Recording != nil &&
		(bridge == "" || string(st.From) != bridge)
}

func (d *Dispatcher) acceptDial(st *xmpp.Stanza) bool {
	return st.Kind == xmpp.KindDial
}

func (d *Dispatcher) acceptLog(st *xmpp.Stanza) bool {
	return st.Kind == xmpp.KindLog && st.Log != nil
}

func (d *Dispatcher) acceptPresence(st *xmpp.Stanza) bool {
	return st.Kind == xmpp.KindPresence && st.Presence != nil
}

func (d *Dispatcher) handleMute(st *xmpp.Stanza) {
	m := st.Mute
	if m.Mute == nil || m.TargetJID == "" {
		// Incomplete request, drop it.
		return
	}

	if !d.conf.HandleMuteRequest(st.From, m.TargetJID, *m.Mute) {
		d.send(xmpp.NewError(st, xmpp.ConditionInternalServerError))
		return
	}

	d.send(xmpp.NewResult(st))

	if m.TargetJID != st.From {
		push := &xmpp.Stanza{
			Kind: xmpp.KindMute,
			ID:   xmpp.NextID(),
			Type: xmpp.TypeSet,
			To:   m.TargetJID,
			Mute: &xmpp.Mute{TargetJID: m.TargetJID, Mute: m.Mute},
		}
		go d.send(push)
	}
}

func (d *Dispatcher) handleRecording(st *xmpp.Stanza) {
	rec := st.Conference.Recording
	actual := d.conf.ApplyRecordingState(st.From, rec.Token, rec.State, rec.Directory)

	// The reply carries the resulting state, never an echo of the
	// request.
	reply := xmpp.NewResult(st)
	reply.Conference = &colibri.ConferenceIQ{
		ID:        st.Conference.ID,
		Recording: &colibri.Recording{State: actual},
	}
	d.send(reply)
}

func (d *Dispatcher) handleDial(ctx context.Context, st *xmpp.Stanza) {
	role, member := d.conf.Role(st.From)
	if !member {
		d.send(xmpp.NewError(st, xmpp.ConditionForbidden))
		return
	}
	if role < domain.RoleModerator {
		d.send(xmpp.NewError(st, xmpp.ConditionNotAllowed))
		return
	}
	gateway := d.conf.Gateway()
	if gateway == "" {
		d.send(xmpp.NewError(st, xmpp.ConditionServiceUnavailable))
		return
	}

	// Relay to the gateway under a fresh correlation id and without the
	// requester's address; rewrite both back on the reply so the
	// gateway hop stays invisible to the requester.
	requester := st.From
	originalID := st.ID

	relay := *st
	relay.From = ""
	relay.To = gateway
	relay.ID = xmpp.NextID()

	reply, err := d.conn.SendAndAwait(ctx, &relay)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatcher").Str("gateway", string(gateway)).Msg("dial relay failed")
		return
	}

	forward := *reply
	forward.From = ""
	forward.To = requester
	forward.ID = originalID
	d.send(&forward)
}

func (d *Dispatcher) handleLog(st *xmpp.Stanza) {
	p, ok := d.conf.Participant(st.From)
	if !ok {
		log.Info().Str("module", "app.dispatcher").Str("jid", string(st.From)).Msg("ignoring log request from an unknown sender")
		return
	}
	if st.Log.LogID != xmpp.PCStatsLogID {
		log.Info().Str("module", "app.dispatcher").Str("log_id", st.Log.LogID).Msg("ignoring log request with an unknown id")
		return
	}
	d.events.Emit(events.KindPeerConnectionStats, events.Fields{
		events.FieldConferenceID: d.conf.ID(),
		events.FieldEndpointID:   string(p.EndpointID),
		events.FieldContent:      st.Log.Message,
	})
}

func (d *Dispatcher) handlePresence(st *xmpp.Stanza) {
	// Only becoming-present is tracked; leaving the room is handled by
	// the membership watcher.
	if st.Presence.Unavailable {
		return
	}
	if _, ok := d.conf.Participant(st.From); !ok {
		return
	}
	if d.conf.ID() == "" {
		log.Error().Str("module", "app.dispatcher").Str("jid", string(st.From)).Msg("cannot attribute presence, no conference id")
		return
	}

	endpoint, changed := d.conf.UpdateDisplayName(st.From, st.Presence.Nick)
	if !changed {
		return
	}
	d.events.Emit(events.KindDisplayNameChanged, events.Fields{
		events.FieldConferenceID: d.conf.ID(),
		events.FieldEndpointID:   string(endpoint),
		events.FieldDisplayName:  st.Presence.Nick,
	})
}

func (d *Dispatcher) send(st *xmpp.Stanza) {
	if err := d.conn.Send(st); err != nil {
		log.Error().Err(err).Str("module", "app.dispatcher").Str("to", string(st.To)).Msg("send failed")
	}
}
