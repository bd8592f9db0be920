package colibri

// State is the in-memory mirror of everything the focus believes is true
// about the bridge-allocated conference. It is owned by exactly one
// Engine and only ever mutated inside the engine's serialized region, so
// it carries no lock of its own.
type State struct {
	id       string
	contents []*Content
}

func NewState() *State {
	return &State{}
}

// ID returns the bridge-assigned conference id, or "" before the first
// successful allocation.
func (s *State) ID() string {
	return s.id
}

// Content returns the named content, or nil.
func (s *State) Content(name string) *Content {
	for _, c := range s.contents {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *State) ensureContent(name string) *Content {
	if c := s.Content(name); c != nil {
		return c
	}
	c := &Content{Name: name}
	s.contents = append(s.contents, c)
	return c
}

// Snapshot returns a conference IQ enumerating every channel currently
// known, suitable as input to an expire-all request.
func (s *State) Snapshot() *ConferenceIQ {
	iq := &ConferenceIQ{ID: s.id}
	for _, c := range s.contents {
		cc := &Content{Name: c.Name}
		cc.Channels = append(cc.Channels, c.Channels...)
		cc.SctpConnections = append(cc.SctpConnections, c.SctpConnections...)
		iq.Contents = append(iq.Contents, cc)
	}
	return iq
}

// ParticipantSnapshot returns a conference IQ holding only the
// channels allocated for the given endpoint, grouped by content.
func (s *State) ParticipantSnapshot(endpoint string) *ConferenceIQ {
	iq := &ConferenceIQ{ID: s.id}
	for _, c := range s.contents {
		cc := &Content{Name: c.Name}
		for _, ch := range c.Channels {
			if ch.Endpoint == endpoint {
				cc.Channels = append(cc.Channels, ch)
			}
		}
		for _, sc := range c.SctpConnections {
			if sc.Endpoint == endpoint {
				cc.SctpConnections = append(cc.SctpConnections, sc)
			}
		}
		iq.Contents = append(iq.Contents, cc)
	}
	return iq
}

// ChannelCount reports the total number of channels across all contents.
func (s *State) ChannelCount() int {
	n := 0
	for _, c := range s.contents {
		n += len(c.Channels)
	}
	return n
}

// Reset discards the id and every content. Local state must not leak
// into a future reallocation.
func (s *State) Reset() {
	s.id = ""
	s.contents = nil
}

// removeChannel drops the channel with the given id from the named
// content, if present.
func (s *State) removeChannel(content, id string) {
	c := s.Content(content)
	if c == nil {
		return
	}
	for i, ch := range c.Channels {
		if ch.ID == id {
			c.Channels = append(c.Channels[:i], c.Channels[i+1:]...)
			return
		}
	}
}
