package colibri

// merge reconciles an allocation response into the state mirror.
//
// Channels are matched by bridge-assigned id when present, otherwise by
// (content name, endpoint) pair. New entries are inserted; entries the
// response does not mention are left untouched, since the bridge only
// enumerates what changed.
func (s *State) merge(resp *ConferenceIQ) {
	if s.id == "" {
		s.id = resp.ID
	}
	for _, respContent := range resp.Contents {
		content := s.ensureContent(respContent.Name)
		for _, respChannel := range respContent.Channels {
			if existing := content.findChannel(respChannel); existing != nil {
				*existing = *respChannel
				continue
			}
			content.Channels = append(content.Channels, respChannel)
		}
		for _, respSctp := range respContent.SctpConnections {
			if existing := content.findSctp(respSctp); existing != nil {
				*existing = *respSctp
				continue
			}
			content.SctpConnections = append(content.SctpConnections, respSctp)
		}
	}
}

func (c *Content) findChannel(want *Channel) *Channel {
	for _, ch := range c.Channels {
		if want.ID != "" && ch.ID == want.ID {
			return ch
		}
		if want.ID == "" && want.Endpoint != "" && ch.Endpoint == want.Endpoint {
			return ch
		}
	}
	return nil
}

func (c *Content) findSctp(want *SctpConnection) *SctpConnection {
	for _, sc := range c.SctpConnections {
		if want.ID != "" && sc.ID == want.ID {
			return sc
		}
		if want.ID == "" && want.Endpoint != "" && sc.Endpoint == want.Endpoint {
			return sc
		}
	}
	return nil
}

// responseSubset formulates the part of an allocation response relevant
// to the caller: the contents it explicitly requested, plus the caller's
// own channels from any other content the bridge reported implicitly.
func responseSubset(resp *ConferenceIQ, endpoint string, requested []string) *ConferenceIQ {
	wanted := make(map[string]bool, len(requested))
	for _, name := range requested {
		wanted[name] = true
	}

	out := &ConferenceIQ{ID: resp.ID}
	for _, content := range resp.Contents {
		if wanted[content.Name] {
			out.Contents = append(out.Contents, content)
			continue
		}
		own := &Content{Name: content.Name}
		for _, ch := range content.Channels {
			if ch.Endpoint == endpoint {
				own.Channels = append(own.Channels, ch)
			}
		}
		for _, sc := range content.SctpConnections {
			if sc.Endpoint == endpoint {
				own.SctpConnections = append(own.SctpConnections, sc)
			}
		}
		if len(own.Channels) > 0 || len(own.SctpConnections) > 0 {
			out.Contents = append(out.Contents, own)
		}
	}
	return out
}
