package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Focus/internal/colibri"
	"github.com/dkeye/Focus/internal/config"
	"github.com/dkeye/Focus/internal/domain"
)

// stubLink answers every allocation with a one-channel-per-content
// conference, the minimum for an engine to go live.
type stubLink struct {
	mu      sync.Mutex
	sent    []*colibri.ConferenceIQ
	awaited []*colibri.ConferenceIQ
}

func (l *stubLink) Send(_ string, iq *colibri.ConferenceIQ) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, iq)
	return nil
}

func (l *stubLink) SendAndAwait(_ context.Context, _ string, iq *colibri.ConferenceIQ) (*colibri.Reply, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.awaited = append(l.awaited, iq)

	resp := &colibri.ConferenceIQ{ID: "conf-1"}
	for _, content := range iq.Contents {
		out := &colibri.Content{Name: content.Name}
		for i, ch := range content.Channels {
			out.Channels = append(out.Channels, &colibri.Channel{
				ID:       content.Name + "-" + ch.Endpoint + "-" + string(rune('a'+i)),
				Endpoint: ch.Endpoint,
			})
		}
		resp.Contents = append(resp.Contents, out)
	}
	return &colibri.Reply{Conference: resp}, nil
}

func newTestManager() (*Manager, *stubLink) {
	link := &stubLink{}
	return NewManager(ManagerOptions{
		Bridge:  "bridge.example.com",
		Gateway: "gw.example.com",
		Link:    link,
		Roles:   StaticRoleResolver{},
	}), link
}

func TestGetOrCreateReturnsSameConference(t *testing.T) {
	m, _ := newTestManager()

	first, err := m.GetOrCreate("orange", "orange@c/alice", nil)
	require.NoError(t, err)
	second, err := m.GetOrCreate("orange", "orange@c/bob", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := m.GetOrCreate("lemon", "lemon@c/alice", nil)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	m, _ := newTestManager()

	confs := make([]*Conference, 16)
	var wg sync.WaitGroup
	for i := range confs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conf, err := m.GetOrCreate("orange", "orange@c/alice", nil)
			assert.NoError(t, err)
			confs[i] = conf
		}(i)
	}
	wg.Wait()

	for _, conf := range confs[1:] {
		assert.Same(t, confs[0], conf)
	}
	assert.Len(t, m.List(), 1)
}

func TestGetOrCreateAppliesDefaultsAndOverrides(t *testing.T) {
	m, _ := newTestManager()

	plain, err := m.GetOrCreate("orange", "orange@c/alice", nil)
	require.NoError(t, err)
	assert.Equal(t, "bridge.example.com", plain.Bridge())
	assert.Equal(t, domain.JID("gw.example.com"), plain.Gateway())

	custom, err := m.GetOrCreate("lemon", "lemon@c/alice", map[string]string{
		config.BridgeProp:      "other-bridge.example.com",
		config.CallControlProp: "other-gw.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "other-bridge.example.com", custom.Bridge())
	assert.Equal(t, domain.JID("other-gw.example.com"), custom.Gateway())
}

func TestAllocateOptionsFromSettings(t *testing.T) {
	opts := allocateOptions(config.NewConferenceSettings(map[string]string{
		config.ChannelLastNProp:      "5",
		config.AdaptiveLastNProp:     "true",
		config.AdaptiveSimulcastProp: "bogus",
	}))

	require.NotNil(t, opts.ChannelLastN)
	assert.Equal(t, 5, *opts.ChannelLastN)
	require.NotNil(t, opts.AdaptiveLastN)
	assert.True(t, *opts.AdaptiveLastN)
	// Malformed and absent properties stay unset.
	assert.Nil(t, opts.AdaptiveSimulcast)
	assert.Nil(t, opts.OpenSctp)
}

func TestDestroyExpiresConference(t *testing.T) {
	m, link := newTestManager()

	conf, err := m.GetOrCreate("orange", "orange@c/alice", nil)
	require.NoError(t, err)
	conf.AddParticipant("orange@c/alice", "ep-alice")
	_, err = conf.Engine().CreateChannels(context.Background(), "ep-alice", true, true,
		[]string{colibri.ContentAudio, colibri.ContentVideo})
	require.NoError(t, err)
	require.Equal(t, "conf-1", conf.ID())

	infos := m.List()
	require.Len(t, infos, 1)
	assert.Equal(t, "live", infos[0].State)

	m.Destroy(context.Background(), "orange")

	_, ok := m.Get("orange")
	assert.False(t, ok)
	assert.Empty(t, conf.ID())
	// The expire-all request went out on the wire.
	link.mu.Lock()
	defer link.mu.Unlock()
	require.NotEmpty(t, link.sent)
}

func TestDestroyUnknownRoomIsNoop(t *testing.T) {
	m, link := newTestManager()
	m.Destroy(context.Background(), "nowhere")

	link.mu.Lock()
	defer link.mu.Unlock()
	assert.Empty(t, link.sent)
	assert.Empty(t, link.awaited)
}

func TestRemoveParticipantExpiresChannels(t *testing.T) {
	m, link := newTestManager()

	conf, err := m.GetOrCreate("orange", "orange@c/alice", nil)
	require.NoError(t, err)
	conf.AddParticipant("orange@c/alice", "ep-alice")
	_, err = conf.Engine().CreateChannels(context.Background(), "ep-alice", true, true,
		[]string{colibri.ContentAudio, colibri.ContentVideo})
	require.NoError(t, err)
	require.Equal(t, 2, conf.Engine().ChannelCount())

	conf.RemoveParticipant("orange@c/alice")

	assert.Zero(t, conf.ParticipantCount())
	assert.Zero(t, conf.Engine().ChannelCount())
	link.mu.Lock()
	defer link.mu.Unlock()
	require.NotEmpty(t, link.sent)
}

func TestHandleMuteRequestResolvesTargetChannels(t *testing.T) {
	link := &stubLink{}
	m := NewManager(ManagerOptions{
		Bridge: "bridge.example.com",
		Link:   link,
		Roles: StaticRoleResolver{
			"orange@c/alice": domain.RoleModerator,
			"orange@c/bob":   domain.RoleMember,
		},
	})

	conf, err := m.GetOrCreate("orange", "orange@c/alice", nil)
	require.NoError(t, err)
	conf.AddParticipant("orange@c/bob", "ep-bob")
	_, err = conf.Engine().CreateChannels(context.Background(), "ep-bob", true, true,
		[]string{colibri.ContentAudio, colibri.ContentVideo})
	require.NoError(t, err)

	assert.True(t, conf.HandleMuteRequest("orange@c/alice", "orange@c/bob", true))

	// A member cannot unmute someone else.
	assert.False(t, conf.HandleMuteRequest("orange@c/bob", "orange@c/alice", false))
	// Non-members cannot mute at all.
	assert.False(t, conf.HandleMuteRequest("orange@c/ghost", "orange@c/bob", true))
	// Unknown targets are rejected before touching the bridge.
	assert.False(t, conf.HandleMuteRequest("orange@c/alice", "orange@c/nobody", true))
}

type allowListAuth map[domain.JID]bool

func (a allowListAuth) CreateLoginURL(string, domain.JID, domain.RoomName, bool) string { return "" }
func (a allowListAuth) IsUserAuthenticated(jid domain.JID) bool                         { return a[jid] }
func (a allowListAuth) UserIdentity(jid domain.JID) (string, bool)                      { return string(jid), a[jid] }
func (a allowListAuth) IsExternal() bool                                                { return false }
func (a allowListAuth) Start() error                                                    { return nil }
func (a allowListAuth) Stop()                                                           {}

type denyReservation struct {
	result ReservationResult
}

func (r denyReservation) CreateConference(domain.JID, domain.RoomName) (ReservationResult, string) {
	if r.result == ReservationOK {
		return ReservationOK, ""
	}
	return r.result, "room is not reserved"
}

func TestGetOrCreateWithoutLinkFails(t *testing.T) {
	m := NewManager(ManagerOptions{
		Bridge: "bridge.example.com",
		Roles:  StaticRoleResolver{},
	})

	_, err := m.GetOrCreate("orange", "orange@c/alice", nil)
	assert.ErrorIs(t, err, ErrNoBridgeLink)
	assert.Empty(t, m.List())
}

func TestGetOrCreateAuthenticationGate(t *testing.T) {
	m := NewManager(ManagerOptions{
		Bridge: "bridge.example.com",
		Link:   &stubLink{},
		Roles:  StaticRoleResolver{},
		Auth:   allowListAuth{"orange@c/alice": true},
	})

	_, err := m.GetOrCreate("orange", "orange@c/mallory", nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, m.List())

	conf, err := m.GetOrCreate("orange", "orange@c/alice", nil)
	require.NoError(t, err)

	// Joining the existing conference is not gated.
	same, err := m.GetOrCreate("orange", "orange@c/mallory", nil)
	require.NoError(t, err)
	assert.Same(t, conf, same)
}

func TestGetOrCreateReservationGate(t *testing.T) {
	m := NewManager(ManagerOptions{
		Bridge:      "bridge.example.com",
		Link:        &stubLink{},
		Roles:       StaticRoleResolver{},
		Reservation: denyReservation{result: ReservationConflict},
	})

	_, err := m.GetOrCreate("orange", "orange@c/alice", nil)
	var resErr *ReservationError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, ReservationConflict, resErr.Result)
	assert.Empty(t, m.List())
}
