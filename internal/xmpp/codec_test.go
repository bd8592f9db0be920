package xmpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Focus/internal/domain"
)

func TestDecodeMute(t *testing.T) {
	raw := `<iq id="42" type="set" from="room@conference.example.com/alice" to="focus@example.com">` +
		`<mute xmlns="http://jitsi.org/jitmeet/audio" jid="room@conference.example.com/bob">true</mute></iq>`

	st, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindMute, st.Kind)
	assert.Equal(t, "42", st.ID)
	assert.Equal(t, domain.JID("room@conference.example.com/alice"), st.From)
	require.NotNil(t, st.Mute)
	assert.Equal(t, domain.JID("room@conference.example.com/bob"), st.Mute.TargetJID)
	require.NotNil(t, st.Mute.Mute)
	assert.True(t, *st.Mute.Mute)
}

func TestDecodeMuteWithoutState(t *testing.T) {
	raw := `<iq id="1" type="set"><mute xmlns="http://jitsi.org/jitmeet/audio" jid="room@c/bob"></mute></iq>`

	st, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindMute, st.Kind)
	require.NotNil(t, st.Mute)
	assert.Nil(t, st.Mute.Mute)
}

func TestDecodeDial(t *testing.T) {
	raw := `<iq id="7" type="set" from="room@c/alice">` +
		`<dial xmlns="urn:xmpp:rayo:1" from="sip:alice@example.com" to="tel:+15551234567">` +
		`<header name="X-Room" value="orange"/></dial></iq>`

	st, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindDial, st.Kind)
	require.NotNil(t, st.Dial)
	assert.Equal(t, "sip:alice@example.com", st.Dial.Source)
	assert.Equal(t, "tel:+15551234567", st.Dial.Destination)
	require.Len(t, st.Dial.Headers, 1)
	assert.Equal(t, Header{Name: "X-Room", Value: "orange"}, st.Dial.Headers[0])
}

func TestDecodeConference(t *testing.T) {
	raw := `<iq id="3" type="set" from="bridge.example.com">` +
		`<conference xmlns="http://jitsi.org/protocol/colibri" id="conf-9"/></iq>`

	st, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindConference, st.Kind)
	require.NotNil(t, st.Conference)
	assert.Equal(t, "conf-9", st.Conference.ID)
}

func TestDecodeResultAndError(t *testing.T) {
	st, err := Decode([]byte(`<iq id="5" type="result" from="gw.example.com"/>`))
	require.NoError(t, err)
	assert.Equal(t, KindResult, st.Kind)

	raw := `<iq id="6" type="error"><error type="cancel">` +
		`<service-unavailable xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`
	st, err = Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindError, st.Kind)
	require.NotNil(t, st.Error)
	assert.Equal(t, ConditionServiceUnavailable, st.Error.Condition)
}

func TestDecodeLogMessage(t *testing.T) {
	raw := `<message from="room@c/alice"><log xmlns="urn:xmpp:eventlog" id="PeerConnectionStats">` +
		`<message>{"stats":1}</message></log></message>`

	st, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindLog, st.Kind)
	require.NotNil(t, st.Log)
	assert.Equal(t, PCStatsLogID, st.Log.LogID)
	assert.Equal(t, `{"stats":1}`, st.Log.Message)
}

func TestDecodeMessageWithoutLogIsUnknown(t *testing.T) {
	st, err := Decode([]byte(`<message from="room@c/alice"><body>hi</body></message>`))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, st.Kind)
}

func TestDecodePresence(t *testing.T) {
	raw := `<presence from="room@c/alice"><nick xmlns="http://jabber.org/protocol/nick"> Alice </nick></presence>`

	st, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindPresence, st.Kind)
	require.NotNil(t, st.Presence)
	assert.False(t, st.Presence.Unavailable)
	assert.Equal(t, "Alice", st.Presence.Nick)

	st, err = Decode([]byte(`<presence from="room@c/alice" type="unavailable"/>`))
	require.NoError(t, err)
	assert.True(t, st.Presence.Unavailable)
}

func TestDecodeRejectsUnexpectedRoot(t *testing.T) {
	_, err := Decode([]byte(`<stream:features/>`))
	assert.Error(t, err)
}

func TestMarshalDecodeMuteRoundTrip(t *testing.T) {
	mute := true
	st := &Stanza{
		Kind: KindMute,
		ID:   NextID(),
		Type: TypeSet,
		From: "focus@example.com",
		To:   "room@c/bob",
		Mute: &Mute{TargetJID: "room@c/bob", Mute: &mute},
	}

	data, err := Marshal(st)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindMute, got.Kind)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, st.Mute.TargetJID, got.Mute.TargetJID)
	require.NotNil(t, got.Mute.Mute)
	assert.True(t, *got.Mute.Mute)
}

func TestMarshalDecodeDialRoundTrip(t *testing.T) {
	st := &Stanza{
		Kind: KindDial,
		ID:   "d-1",
		Type: TypeSet,
		To:   "gw.example.com",
		Dial: &Dial{
			Source:      "sip:alice@example.com",
			Destination: "tel:+15551234567",
			Headers:     []Header{{Name: "X-Room", Value: "orange"}},
		},
	}

	data, err := Marshal(st)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindDial, got.Kind)
	assert.Equal(t, st.Dial, got.Dial)
}

func TestMarshalErrorCarriesCondition(t *testing.T) {
	req := &Stanza{Kind: KindDial, ID: "d-2", From: "room@c/alice", To: "focus@example.com"}
	data, err := Marshal(NewError(req, ConditionForbidden))
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindError, got.Kind)
	assert.Equal(t, "d-2", got.ID)
	require.NotNil(t, got.Error)
	assert.Equal(t, ConditionForbidden, got.Error.Condition)
}

func TestReplyAddressing(t *testing.T) {
	req := &Stanza{ID: "r-1", From: "room@c/alice", To: "focus@example.com"}

	res := NewResult(req)
	assert.Equal(t, "r-1", res.ID)
	assert.Equal(t, req.To, res.From)
	assert.Equal(t, req.From, res.To)
	assert.Equal(t, TypeResult, res.Type)

	errSt := NewError(req, ConditionNotAllowed)
	assert.Equal(t, "r-1", errSt.ID)
	assert.Equal(t, req.To, errSt.From)
	assert.Equal(t, req.From, errSt.To)
	assert.Equal(t, TypeError, errSt.Type)
}

func TestNextIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NextID()
		require.NotEmpty(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}
