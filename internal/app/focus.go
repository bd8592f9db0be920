package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Focus/internal/adapters/events"
	"github.com/dkeye/Focus/internal/colibri"
	"github.com/dkeye/Focus/internal/config"
	"github.com/dkeye/Focus/internal/domain"
)

// ManagerOptions wires the collaborators shared by every conference the
// focus hosts. Bridge and Gateway are service-wide defaults; per-room
// properties may override them.
type ManagerOptions struct {
	Bridge    string
	Gateway   domain.JID
	Link      colibri.Connection
	Roles     RoleResolver
	Mute      MutePolicy
	Recording RecordingPolicy
	Events    events.Sink

	// Auth and Reservation gate conference creation when set; joining an
	// existing conference is never gated.
	Auth        AuthenticationAuthority
	Reservation ReservationSystem
}

// ErrNotAuthenticated is returned when the authentication authority does
// not vouch for the would-be conference owner.
var ErrNotAuthenticated = errors.New("owner is not authenticated")

// ErrNoBridgeLink is returned when the manager was built without a
// bridge connection; no conference can allocate channels without one.
var ErrNoBridgeLink = errors.New("no bridge link configured")

// ReservationError reports a reservation backend refusing a room.
type ReservationError struct {
	Result  ReservationResult
	Message string
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("reservation refused: %s (%d)", e.Message, e.Result)
}

// Manager is the registry of live conferences, one per room.
type Manager struct {
	opts ManagerOptions

	mu          sync.RWMutex
	conferences map[domain.RoomName]*Conference
}

type ConferenceInfo struct {
	Room         domain.RoomName `json:"room"`
	ID           string          `json:"id"`
	State        string          `json:"state"`
	Participants int             `json:"participants"`
}

// allocateOptions lifts the per-room tuning properties into the shape
// the channel allocator understands. Unset properties stay nil so the
// bridge applies its own defaults.
func allocateOptions(settings *config.ConferenceSettings) colibri.AllocateOptions {
	var opts colibri.AllocateOptions
	if v, ok := settings.ChannelLastN(); ok {
		opts.ChannelLastN = &v
	}
	if v, ok := settings.AdaptiveLastN(); ok {
		opts.AdaptiveLastN = &v
	}
	if v, ok := settings.AdaptiveSimulcast(); ok {
		opts.AdaptiveSimulcast = &v
	}
	if v, ok := settings.OpenSctp(); ok {
		opts.OpenSctp = &v
	}
	return opts
}

func NewManager(opts ManagerOptions) *Manager {
	if opts.Events == nil {
		opts.Events = events.Discard{}
	}
	if opts.Mute == nil {
		opts.Mute = ModeratorMutePolicy{}
	}
	if opts.Recording == nil {
		opts.Recording = NewTokenRecordingPolicy("")
	}
	return &Manager{
		opts:        opts,
		conferences: make(map[domain.RoomName]*Conference),
	}
}

// GetOrCreate returns the conference for the room, creating it with the
// given per-room properties on first use. Creation is attributed to
// owner and subject to the authentication and reservation gates.
func (m *Manager) GetOrCreate(room domain.RoomName, owner domain.JID, props map[string]string) (*Conference, error) {
	m.mu.RLock()
	conf, ok := m.conferences[room]
	m.mu.RUnlock()
	if ok {
		return conf, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if conf, ok = m.conferences[room]; ok {
		return conf, nil
	}

	if m.opts.Link == nil {
		return nil, fmt.Errorf("create %s: %w", room, ErrNoBridgeLink)
	}
	if m.opts.Auth != nil && !m.opts.Auth.IsUserAuthenticated(owner) {
		return nil, fmt.Errorf("create %s: %w", room, ErrNotAuthenticated)
	}
	if m.opts.Reservation != nil {
		if result, msg := m.opts.Reservation.CreateConference(owner, room); result != ReservationOK {
			return nil, &ReservationError{Result: result, Message: msg}
		}
	}

	settings := config.NewConferenceSettings(props)
	engine := colibri.NewEngine(m.opts.Link)
	engine.SetAllocateOptions(allocateOptions(settings))

	bridge := settings.Bridge()
	if bridge == "" {
		bridge = m.opts.Bridge
	}
	if err := engine.SetBridge(bridge); err != nil {
		// Unreachable on a fresh engine; keep the log for safety.
		log.Error().Err(err).Str("module", "app.focus").Str("room", string(room)).Msg("bind bridge")
	}

	gateway := domain.JID(settings.CallControl())
	if gateway == "" {
		gateway = m.opts.Gateway
	}

	conf = NewConference(room, engine, settings, ConferenceDeps{
		Gateway:   gateway,
		Roles:     m.opts.Roles,
		Mute:      m.opts.Mute,
		Recording: m.opts.Recording,
		Events:    m.opts.Events,
	})
	m.conferences[room] = conf

	log.Info().Str("module", "app.focus").Str("room", string(room)).Str("bridge", bridge).Msg("conference created")
	m.opts.Events.Emit(events.KindFocusCreated, events.Fields{
		events.FieldRoomJID:   string(room),
		events.FieldBridgeJID: bridge,
	})
	return conf, nil
}

// Get returns the conference for the room without creating one.
func (m *Manager) Get(room domain.RoomName) (*Conference, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conf, ok := m.conferences[room]
	return conf, ok
}

// List snapshots the live conferences.
func (m *Manager) List() []ConferenceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ConferenceInfo, 0, len(m.conferences))
	for room, conf := range m.conferences {
		out = append(out, ConferenceInfo{
			Room:         room,
			ID:           conf.ID(),
			State:        conf.Engine().Lifecycle(),
			Participants: conf.ParticipantCount(),
		})
	}
	return out
}

// Destroy expires the conference's bridge resources and forgets it.
func (m *Manager) Destroy(ctx context.Context, room domain.RoomName) {
	m.mu.Lock()
	conf, ok := m.conferences[room]
	delete(m.conferences, room)
	m.mu.Unlock()
	if !ok {
		return
	}
	conf.Stop(ctx)
	log.Info().Str("module", "app.focus").Str("room", string(room)).Msg("conference destroyed")
	m.opts.Events.Emit(events.KindFocusDestroyed, events.Fields{
		events.FieldRoomJID: string(room),
	})
}
