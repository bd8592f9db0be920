package colibri

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"
)

// Reply is the outcome of a request/response round trip. Condition is
// non-empty when the peer answered with an error stanza; Conference is
// nil when the reply was not a conference element.
type Reply struct {
	Conference *ConferenceIQ
	Condition  string
}

// Connection abstracts the messaging transport used to reach the bridge.
// Owned by the adapter; the adapter must close it.
type Connection interface {
	// Send dispatches a request without waiting for any reply.
	Send(to string, iq *ConferenceIQ) error
	// SendAndAwait blocks until a reply arrives or the transport-level
	// timeout fires, in which case it returns an error and the eventual
	// late reply is discarded.
	SendAndAwait(ctx context.Context, to string, iq *ConferenceIQ) (*Reply, error)
}

// Conference lifecycle, tracked per engine.
const (
	lifecycleIdle = "idle"
	lifecycleLive = "live"

	eventAllocated = "allocated"
	eventExpired   = "expired"
)

// Engine orchestrates request construction, transport send/receive and
// merging of responses into the state mirror. Every public operation is
// serialized against all other operations on the same conference; the
// mirror and the pending request are only ever touched under e.mu.
// Engines for different conferences are fully independent. The
// lifecycle FSM is the authority on whether the conference is live: it
// gates bridge rebinding and the expire-all no-op.
type Engine struct {
	mu        sync.Mutex
	conn      Connection
	bridge    string
	state     *State
	lifecycle *fsm.FSM
	opts      AllocateOptions
}

func NewEngine(conn Connection) *Engine {
	return &Engine{
		conn:  conn,
		state: NewState(),
		lifecycle: fsm.NewFSM(
			lifecycleIdle,
			fsm.Events{
				{Name: eventAllocated, Src: []string{lifecycleIdle, lifecycleLive}, Dst: lifecycleLive},
				{Name: eventExpired, Src: []string{lifecycleLive}, Dst: lifecycleIdle},
			}, nil,
		),
	}
}

// SetAllocateOptions configures per-conference tuning attached to
// allocate requests. Call before the first allocation.
func (e *Engine) SetAllocateOptions(opts AllocateOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = opts
}

// SetBridge binds the conference to a bridge address. The bridge cannot
// be swapped while the conference is live.
func (e *Engine) SetBridge(address string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lifecycle.Is(lifecycleLive) {
		return fmt.Errorf("%w: cannot change the bridge on a live conference", ErrInvalidState)
	}
	e.bridge = address
	return nil
}

// Lifecycle reports the conference lifecycle state: "idle" before the
// first allocation and after expiry, "live" in between.
func (e *Engine) Lifecycle() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle.Current()
}

// Bridge returns the bound bridge address.
func (e *Engine) Bridge() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bridge
}

// ConferenceID returns the bridge-assigned conference id, or "" before
// the first successful allocation.
func (e *Engine) ConferenceID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ID()
}

// CreateChannels allocates one channel per requested content for the
// given endpoint, blocks for the bridge's reply and merges it into the
// state mirror. The returned snapshot covers the requested contents plus
// the endpoint's own channels from contents the bridge reported
// implicitly.
func (e *Engine) CreateChannels(ctx context.Context, endpoint string, useBundle, isInitiator bool, contents []string) (*ConferenceIQ, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req := newAllocateRequest(e.state.ID(), endpoint, useBundle, isInitiator, contents, e.opts)

	reply, err := e.conn.SendAndAwait(ctx, e.bridge, req)
	if err != nil {
		return nil, fmt.Errorf("%w: allocate channels: %v", ErrNetworkFailure, err)
	}
	if reply.Condition != "" {
		return nil, fmt.Errorf("%w: allocate channels: %s", ErrProtocolError, reply.Condition)
	}
	if reply.Conference == nil {
		return nil, fmt.Errorf("%w: allocate channels: reply is not a conference", ErrProtocolError)
	}

	e.state.merge(reply.Conference)
	e.transition(ctx, eventAllocated)

	return responseSubset(reply.Conference, endpoint, contents), nil
}

// ExpireChannels requests expiry of exactly the channels listed in the
// snapshot. Expiry is advisory cleanup: a transport failure is logged,
// never surfaced.
func (e *Engine) ExpireChannels(channels *ConferenceIQ) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := newExpireRequest(e.state.ID(), channels)
	if !ok {
		return
	}
	if err := e.conn.Send(e.bridge, req); err != nil {
		log.Error().Err(err).Str("module", "colibri").Str("conf", e.state.ID()).Msg("expire channels send failed")
	}
	for _, content := range channels.Contents {
		for _, ch := range content.Channels {
			e.state.removeChannel(content.Name, ch.ID)
		}
	}
}

// UpdateTransportInfo sends a transport update for the non-bundled
// channels in the reference snapshot. Fire-and-forget: transport updates
// are idempotent and superseded by later ones.
func (e *Engine) UpdateTransportInfo(isInitiator bool, byContent map[string]*Transport, ref *ConferenceIQ) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := newTransportUpdateRequest(e.state.ID(), isInitiator, byContent, ref)
	if !ok {
		return
	}
	if err := e.conn.Send(e.bridge, req); err != nil {
		log.Error().Err(err).Str("module", "colibri").Str("conf", e.state.ID()).Msg("transport update send failed")
	}
}

// UpdateBundleTransportInfo sends a shared-transport update for every
// bundled channel in the reference snapshot. Fire-and-forget.
func (e *Engine) UpdateBundleTransportInfo(isInitiator bool, transport *Transport, ref *ConferenceIQ) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := newBundleTransportUpdateRequest(e.state.ID(), isInitiator, transport, ref)
	if !ok {
		return
	}
	if err := e.conn.Send(e.bridge, req); err != nil {
		log.Error().Err(err).Str("module", "colibri").Str("conf", e.state.ID()).Msg("bundle transport update send failed")
	}
}

// UpdateSourcesInfo pushes the current source and source-group view for
// every channel of the reference snapshot. Channels without sources get
// the explicit clear sentinel, channels without groups the empty
// simulcast group. Blocks for a reply but treats the update as
// best-effort once sent; nothing is merged back.
func (e *Engine) UpdateSourcesInfo(ctx context.Context, sources map[string][]Source, groups map[string][]SourceGroup, ref *ConferenceIQ) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := newSourceUpdateRequest(e.state.ID(), sources, groups, ref)
	if !ok {
		return nil
	}
	if _, err := e.conn.SendAndAwait(ctx, e.bridge, req); err != nil {
		return fmt.Errorf("%w: source update: %v", ErrNetworkFailure, err)
	}
	return nil
}

// ExpireConference requests expiry of every channel currently known and
// unconditionally resets the state mirror, whatever the outcome of the
// expire request. A conference that never went live has nothing to
// expire.
func (e *Engine) ExpireConference(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lifecycle.Is(lifecycleIdle) {
		log.Info().Str("module", "colibri").Msg("nothing to expire, no conference allocated yet")
		return
	}

	if req, ok := newExpireRequest(e.state.ID(), e.state.Snapshot()); ok {
		if err := e.conn.Send(e.bridge, req); err != nil {
			log.Error().Err(err).Str("module", "colibri").Str("conf", e.state.ID()).Msg("expire conference send failed")
		}
	}

	e.state.Reset()
	e.transition(ctx, eventExpired)
}

// MuteParticipant forces the direction of every channel in the snapshot
// to sendonly (mute) or sendrecv (unmute). The snapshot must contribute
// at least one audio and one video channel; otherwise nothing is sent
// and false is returned. The bridge message is dispatch-and-return, the
// next state sync is the ground truth.
func (e *Engine) MuteParticipant(channels *ConferenceIQ, mute bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	audio := channels.Content(ContentAudio)
	if audio == nil {
		log.Error().Str("module", "colibri").Str("conf", e.state.ID()).Msg("failed to mute, no audio content")
		return false
	}
	video := channels.Content(ContentVideo)
	if video == nil {
		log.Error().Str("module", "colibri").Str("conf", e.state.ID()).Msg("failed to mute, no video content")
		return false
	}
	if len(audio.Channels) == 0 || len(video.Channels) == 0 {
		log.Error().Str("module", "colibri").Str("conf", e.state.ID()).Msg("failed to mute, no channels to modify")
		return false
	}

	direction := SendRecv
	if mute {
		direction = SendOnly
	}
	req := newDirectionRequest(e.state.ID(), []*Content{audio, video}, direction)

	if err := e.conn.Send(e.bridge, req); err != nil {
		log.Error().Err(err).Str("module", "colibri").Str("conf", e.state.ID()).Msg("mute send failed")
	}
	return true
}

// ParticipantChannels returns a snapshot of the channels currently
// allocated for the given endpoint.
func (e *Engine) ParticipantChannels(endpoint string) *ConferenceIQ {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ParticipantSnapshot(endpoint)
}

// ChannelCount reports the number of channels in the mirror, across all
// contents.
func (e *Engine) ChannelCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ChannelCount()
}

func (e *Engine) transition(ctx context.Context, event string) {
	if err := e.lifecycle.Event(ctx, event); err != nil {
		var noop fsm.NoTransitionError
		if errors.As(err, &noop) {
			return
		}
		log.Debug().Err(err).Str("module", "colibri").Str("event", event).Msg("lifecycle transition rejected")
	}
}
