package colibri

// Request construction. Every engine operation builds exactly one
// outgoing conference request from a fresh value; there is no shared
// builder to reset between operations.

// AllocateOptions carries per-conference tuning attached to allocate
// requests. Nil pointers mean the property was not configured.
type AllocateOptions struct {
	ChannelLastN      *int
	AdaptiveLastN     *bool
	AdaptiveSimulcast *bool
	OpenSctp          *bool
}

// newAllocateRequest builds a request allocating one channel per
// requested content for the given endpoint.
func newAllocateRequest(confID, endpoint string, useBundle, isInitiator bool, contents []string, opts AllocateOptions) *ConferenceIQ {
	iq := &ConferenceIQ{ID: confID}
	for _, name := range contents {
		content := &Content{Name: name}
		if name == ContentData && opts.OpenSctp != nil && *opts.OpenSctp {
			sctp := &SctpConnection{
				Endpoint:  endpoint,
				Initiator: boolPtr(isInitiator),
			}
			if useBundle {
				sctp.BundleID = endpoint
			}
			content.SctpConnections = append(content.SctpConnections, sctp)
			iq.Contents = append(iq.Contents, content)
			continue
		}
		ch := &Channel{
			Endpoint:  endpoint,
			Initiator: boolPtr(isInitiator),
		}
		if useBundle {
			ch.BundleID = endpoint
		}
		if name == ContentVideo {
			ch.LastN = opts.ChannelLastN
			ch.Adaptive = opts.AdaptiveLastN
			ch.Simulcast = opts.AdaptiveSimulcast
		}
		content.Channels = append(content.Channels, ch)
		iq.Contents = append(iq.Contents, content)
	}
	return iq
}

// newExpireRequest builds a request expiring exactly the channels listed
// in the reference snapshot. Returns false when there is nothing to
// expire.
func newExpireRequest(confID string, ref *ConferenceIQ) (*ConferenceIQ, bool) {
	iq := &ConferenceIQ{ID: confID}
	hasWork := false
	for _, content := range ref.Contents {
		out := &Content{Name: content.Name}
		for _, ch := range content.Channels {
			if ch.ID == "" {
				continue
			}
			out.Channels = append(out.Channels, &Channel{ID: ch.ID, Expire: intPtr(0)})
			hasWork = true
		}
		for _, sc := range content.SctpConnections {
			if sc.ID == "" {
				continue
			}
			out.SctpConnections = append(out.SctpConnections, &SctpConnection{ID: sc.ID, Expire: intPtr(0)})
			hasWork = true
		}
		if len(out.Channels) > 0 || len(out.SctpConnections) > 0 {
			iq.Contents = append(iq.Contents, out)
		}
	}
	return iq, hasWork
}

// newTransportUpdateRequest builds a non-bundled transport update for
// the channels in the reference snapshot, keyed by content name.
// Returns false when no referenced channel has a transport to carry.
func newTransportUpdateRequest(confID string, isInitiator bool, byContent map[string]*Transport, ref *ConferenceIQ) (*ConferenceIQ, bool) {
	iq := &ConferenceIQ{ID: confID}
	hasWork := false
	for _, content := range ref.Contents {
		transport := byContent[content.Name]
		if transport == nil {
			continue
		}
		out := &Content{Name: content.Name}
		for _, ch := range content.Channels {
			if ch.ID == "" {
				continue
			}
			out.Channels = append(out.Channels, &Channel{
				ID:        ch.ID,
				Initiator: boolPtr(isInitiator),
				Transport: transport,
			})
			hasWork = true
		}
		if len(out.Channels) > 0 {
			iq.Contents = append(iq.Contents, out)
		}
	}
	return iq, hasWork
}

// newBundleTransportUpdateRequest builds a shared-transport update for
// every channel bundle in the reference snapshot.
func newBundleTransportUpdateRequest(confID string, isInitiator bool, transport *Transport, ref *ConferenceIQ) (*ConferenceIQ, bool) {
	iq := &ConferenceIQ{ID: confID}
	hasWork := false
	for _, content := range ref.Contents {
		out := &Content{Name: content.Name}
		for _, ch := range content.Channels {
			if ch.ID == "" || ch.BundleID == "" {
				continue
			}
			out.Channels = append(out.Channels, &Channel{
				ID:        ch.ID,
				BundleID:  ch.BundleID,
				Initiator: boolPtr(isInitiator),
				Transport: transport,
			})
			hasWork = true
		}
		if len(out.Channels) > 0 {
			iq.Contents = append(iq.Contents, out)
		}
	}
	return iq, hasWork
}

// newSourceUpdateRequest builds a source/source-group update covering
// every channel of the reference snapshot. A content with no sources to
// attach gets the explicit empty-source sentinel (clear all); a content
// with no groups gets the empty simulcast group (disable simulcast).
// Returns false only when the snapshot holds no channels at all.
func newSourceUpdateRequest(confID string, sources map[string][]Source, groups map[string][]SourceGroup, ref *ConferenceIQ) (*ConferenceIQ, bool) {
	iq := &ConferenceIQ{ID: confID}
	hasWork := false
	for _, content := range ref.Contents {
		out := &Content{Name: content.Name}
		for _, ch := range content.Channels {
			reqChannel := &Channel{ID: ch.ID}

			if media := sources[content.Name]; len(media) > 0 {
				reqChannel.Sources = append(reqChannel.Sources, media...)
			} else {
				reqChannel.Sources = append(reqChannel.Sources, EmptySource())
			}

			if grp := groups[content.Name]; len(grp) > 0 {
				reqChannel.SourceGroups = append(reqChannel.SourceGroups, grp...)
			} else {
				reqChannel.SourceGroups = append(reqChannel.SourceGroups, EmptySimulcastGroup())
			}

			out.Channels = append(out.Channels, reqChannel)
			hasWork = true
		}
		if len(out.Channels) > 0 {
			iq.Contents = append(iq.Contents, out)
		}
	}
	return iq, hasWork
}

// newDirectionRequest builds a request forcing the direction of every
// listed channel, used to mute and unmute a participant.
func newDirectionRequest(confID string, contents []*Content, direction Direction) *ConferenceIQ {
	iq := &ConferenceIQ{ID: confID}
	for _, content := range contents {
		out := &Content{Name: content.Name}
		for _, ch := range content.Channels {
			out.Channels = append(out.Channels, &Channel{ID: ch.ID, Direction: direction})
		}
		iq.Contents = append(iq.Contents, out)
	}
	return iq
}
