package colibri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateRequestShape(t *testing.T) {
	lastN := 3
	req := newAllocateRequest("", "alice", true, true,
		[]string{ContentAudio, ContentVideo},
		AllocateOptions{ChannelLastN: &lastN})

	require.Len(t, req.Contents, 2)
	for _, content := range req.Contents {
		require.Len(t, content.Channels, 1)
		ch := content.Channels[0]
		assert.Equal(t, "alice", ch.Endpoint)
		assert.Equal(t, "alice", ch.BundleID)
		require.NotNil(t, ch.Initiator)
		assert.True(t, *ch.Initiator)
	}

	// Last-N tuning only applies to the video channel.
	assert.Nil(t, req.Content(ContentAudio).Channels[0].LastN)
	require.NotNil(t, req.Content(ContentVideo).Channels[0].LastN)
	assert.Equal(t, 3, *req.Content(ContentVideo).Channels[0].LastN)
}

func TestAllocateRequestOpenSctp(t *testing.T) {
	open := true
	req := newAllocateRequest("", "alice", true, false,
		[]string{ContentData}, AllocateOptions{OpenSctp: &open})

	data := req.Content(ContentData)
	require.NotNil(t, data)
	assert.Empty(t, data.Channels)
	require.Len(t, data.SctpConnections, 1)
	assert.Equal(t, "alice", data.SctpConnections[0].Endpoint)
}

func TestExpireRequestSkipsUnallocated(t *testing.T) {
	ref := &ConferenceIQ{Contents: []*Content{{
		Name: ContentAudio,
		Channels: []*Channel{
			{ID: "ch-1"},
			{Endpoint: "pending"}, // never allocated, nothing to expire
		},
	}}}

	req, ok := newExpireRequest("conf-1", ref)
	require.True(t, ok)
	require.Len(t, req.Contents, 1)
	require.Len(t, req.Contents[0].Channels, 1)
	ch := req.Contents[0].Channels[0]
	assert.Equal(t, "ch-1", ch.ID)
	require.NotNil(t, ch.Expire)
	assert.Zero(t, *ch.Expire)

	_, ok = newExpireRequest("conf-1", &ConferenceIQ{})
	assert.False(t, ok)
}

func TestSourceUpdateRequestSentinels(t *testing.T) {
	ref := &ConferenceIQ{Contents: []*Content{
		{Name: ContentAudio, Channels: []*Channel{{ID: "ch-1"}}},
		{Name: ContentVideo, Channels: []*Channel{{ID: "ch-2"}}},
	}}

	sources := map[string][]Source{
		ContentAudio: {{SSRC: 1234}},
	}
	req, ok := newSourceUpdateRequest("conf-1", sources, nil, ref)
	require.True(t, ok)

	audio := req.Content(ContentAudio).Channels[0]
	require.Len(t, audio.Sources, 1)
	assert.EqualValues(t, 1234, audio.Sources[0].SSRC)

	// No sources for video: the explicit clear sentinel goes out.
	video := req.Content(ContentVideo).Channels[0]
	require.Len(t, video.Sources, 1)
	assert.EqualValues(t, EmptySourceSSRC, video.Sources[0].SSRC)

	// No groups anywhere: every channel disables simulcast explicitly.
	for _, content := range req.Contents {
		require.Len(t, content.Channels[0].SourceGroups, 1)
		assert.Equal(t, SimulcastSemantics, content.Channels[0].SourceGroups[0].Semantics)
		assert.Empty(t, content.Channels[0].SourceGroups[0].Sources)
	}
}

func TestBundleTransportUpdateTouchesOnlyBundles(t *testing.T) {
	ref := &ConferenceIQ{Contents: []*Content{{
		Name: ContentAudio,
		Channels: []*Channel{
			{ID: "ch-1", BundleID: "alice"},
			{ID: "ch-2"},
		},
	}}}

	transport := &Transport{Ufrag: "u", Pwd: "p"}
	req, ok := newBundleTransportUpdateRequest("conf-1", false, transport, ref)
	require.True(t, ok)
	require.Len(t, req.Contents, 1)
	require.Len(t, req.Contents[0].Channels, 1)
	assert.Equal(t, "ch-1", req.Contents[0].Channels[0].ID)
	assert.Same(t, transport, req.Contents[0].Channels[0].Transport)
}

func TestTransportUpdateKeyedByContent(t *testing.T) {
	ref := &ConferenceIQ{Contents: []*Content{
		{Name: ContentAudio, Channels: []*Channel{{ID: "ch-1"}}},
		{Name: ContentVideo, Channels: []*Channel{{ID: "ch-2"}}},
	}}

	byContent := map[string]*Transport{
		ContentAudio: {Ufrag: "u"},
	}
	req, ok := newTransportUpdateRequest("conf-1", true, byContent, ref)
	require.True(t, ok)
	require.Len(t, req.Contents, 1)
	assert.Equal(t, ContentAudio, req.Contents[0].Name)
}
