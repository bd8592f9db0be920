package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Focus/internal/adapters/events"
	"github.com/dkeye/Focus/internal/colibri"
	"github.com/dkeye/Focus/internal/config"
	"github.com/dkeye/Focus/internal/domain"
)

// Conference binds the room-side view of one conference (participants,
// policies, settings) to the bridge-side view owned by its colibri
// engine.
type Conference struct {
	room     domain.RoomName
	gateway  domain.JID
	engine   *colibri.Engine
	settings *config.ConferenceSettings

	roles     RoleResolver
	mute      MutePolicy
	recording RecordingPolicy
	events    events.Sink

	mu           sync.RWMutex
	participants map[domain.JID]*domain.Participant
}

type ConferenceDeps struct {
	Gateway   domain.JID
	Roles     RoleResolver
	Mute      MutePolicy
	Recording RecordingPolicy
	Events    events.Sink
}

func NewConference(room domain.RoomName, engine *colibri.Engine, settings *config.ConferenceSettings, deps ConferenceDeps) *Conference {
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	return &Conference{
		room:         room,
		gateway:      deps.Gateway,
		engine:       engine,
		settings:     settings,
		roles:        deps.Roles,
		mute:         deps.Mute,
		recording:    deps.Recording,
		events:       deps.Events,
		participants: make(map[domain.JID]*domain.Participant),
	}
}

func (c *Conference) Room() domain.RoomName               { return c.room }
func (c *Conference) Engine() *colibri.Engine             { return c.engine }
func (c *Conference) Settings() *config.ConferenceSettings { return c.settings }

// ID returns the bridge-assigned conference id, "" before allocation.
func (c *Conference) ID() string {
	return c.engine.ConferenceID()
}

// Bridge returns the bridge address the conference is bound to.
func (c *Conference) Bridge() string {
	return c.engine.Bridge()
}

// Gateway returns the call-control gateway address, "" when none is
// configured.
func (c *Conference) Gateway() domain.JID {
	return c.gateway
}

// AddParticipant registers a room occupant and its bridge-facing
// endpoint identity.
func (c *Conference) AddParticipant(roomJID domain.JID, endpointID domain.EndpointID) *domain.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := domain.NewParticipant(roomJID, endpointID)
	c.participants[roomJID] = p
	log.Info().Str("module", "app.conference").Str("room", string(c.room)).Str("jid", string(roomJID)).Str("endpoint", string(endpointID)).Msg("participant added")
	return p
}

// RemoveParticipant drops the occupant and expires its channels,
// best-effort.
func (c *Conference) RemoveParticipant(roomJID domain.JID) {
	c.mu.Lock()
	p, ok := c.participants[roomJID]
	delete(c.participants, roomJID)
	c.mu.Unlock()
	if !ok {
		return
	}
	c.engine.ExpireChannels(c.engine.ParticipantChannels(string(p.EndpointID)))
	log.Info().Str("module", "app.conference").Str("room", string(c.room)).Str("jid", string(roomJID)).Msg("participant removed")
}

// Participant resolves a room occupant address to its participant, if
// known.
func (c *Conference) Participant(roomJID domain.JID) (*domain.Participant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.participants[roomJID]
	return p, ok
}

func (c *Conference) ParticipantCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.participants)
}

// Role resolves the room role of an occupant.
func (c *Conference) Role(jid domain.JID) (domain.Role, bool) {
	return c.roles.ResolveRole(jid)
}

// HandleMuteRequest applies the mute policy and, when accepted, forces
// the target's channel directions on the bridge.
func (c *Conference) HandleMuteRequest(requester, target domain.JID, mute bool) bool {
	role, member := c.roles.ResolveRole(requester)
	if !member {
		return false
	}
	if !c.mute.Allow(requester, role, target, mute) {
		return false
	}
	p, ok := c.Participant(target)
	if !ok {
		log.Info().Str("module", "app.conference").Str("jid", string(target)).Msg("mute target is not a participant")
		return false
	}
	return c.engine.MuteParticipant(c.engine.ParticipantChannels(string(p.EndpointID)), mute)
}

// ApplyRecordingState delegates to the recording policy and returns the
// resulting ground-truth state.
func (c *Conference) ApplyRecordingState(from domain.JID, token string, desired bool, directory string) bool {
	return c.recording.Apply(from, token, desired, directory)
}

// UpdateDisplayName stores a changed display name and reports whether it
// actually changed, along with the participant's endpoint identity.
func (c *Conference) UpdateDisplayName(roomJID domain.JID, name string) (domain.EndpointID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.participants[roomJID]
	if !ok {
		return "", false
	}
	if p.DisplayName == name {
		return p.EndpointID, false
	}
	p.DisplayName = name
	return p.EndpointID, true
}

// Stop expires every bridge resource of the conference.
func (c *Conference) Stop(ctx context.Context) {
	c.engine.ExpireConference(ctx)
}
