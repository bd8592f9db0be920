// Package colibri implements the control-plane side of the channel
// allocate/update/expire protocol spoken with a remote media bridge.
package colibri

import "encoding/xml"

// Namespace of the conference element.
const Namespace = "http://jitsi.org/protocol/colibri"

// Well-known content (media type) names.
const (
	ContentAudio = "audio"
	ContentVideo = "video"
	ContentData  = "data"
)

// Direction of a channel.
type Direction string

const (
	SendRecv Direction = "sendrecv"
	SendOnly Direction = "sendonly"
	RecvOnly Direction = "recvonly"
	Inactive Direction = "inactive"
)

// EmptySourceSSRC is the sentinel SSRC carried by a source update to
// clear all sources of a channel. Distinct from sending no sources at
// all, which means "no change requested".
const EmptySourceSSRC = -1

// SimulcastSemantics is the grouping semantics of a simulcast group.
const SimulcastSemantics = "SIM"

// ConferenceIQ is the wire form of a single conference request or
// response, and doubles as the snapshot type exchanged with the engine.
type ConferenceIQ struct {
	XMLName  xml.Name   `xml:"http://jitsi.org/protocol/colibri conference"`
	ID       string     `xml:"id,attr,omitempty"`
	Contents []*Content `xml:"content"`

	Recording *Recording `xml:"recording,omitempty"`
}

// Content groups the channels of one media type.
type Content struct {
	Name            string            `xml:"name,attr"`
	Channels        []*Channel        `xml:"channel"`
	SctpConnections []*SctpConnection `xml:"sctpconnection"`
}

// Channel describes one bridge-side per-participant, per-media endpoint.
type Channel struct {
	ID        string     `xml:"id,attr,omitempty"`
	Endpoint  string     `xml:"endpoint,attr,omitempty"`
	Initiator *bool      `xml:"initiator,attr,omitempty"`
	Direction Direction  `xml:"direction,attr,omitempty"`
	BundleID  string     `xml:"channel-bundle-id,attr,omitempty"`
	Expire    *int       `xml:"expire,attr,omitempty"`
	LastN     *int       `xml:"last-n,attr,omitempty"`
	Adaptive  *bool      `xml:"adaptive-last-n,attr,omitempty"`
	Simulcast *bool      `xml:"adaptive-simulcast,attr,omitempty"`
	Transport *Transport `xml:"transport"`

	Sources      []Source      `xml:"source"`
	SourceGroups []SourceGroup `xml:"ssrc-group"`
}

// SctpConnection is the bridge-side end of an SCTP association, used for
// data channels when openSctp is enabled.
type SctpConnection struct {
	ID        string     `xml:"id,attr,omitempty"`
	Endpoint  string     `xml:"endpoint,attr,omitempty"`
	Initiator *bool      `xml:"initiator,attr,omitempty"`
	BundleID  string     `xml:"channel-bundle-id,attr,omitempty"`
	Expire    *int       `xml:"expire,attr,omitempty"`
	Port      int        `xml:"port,attr,omitempty"`
	Transport *Transport `xml:"transport"`
}

// Source is one SSRC descriptor of a channel.
type Source struct {
	SSRC int64 `xml:"ssrc,attr"`
}

// EmptySource returns the explicit clear-all-sources sentinel.
func EmptySource() Source {
	return Source{SSRC: EmptySourceSSRC}
}

// SourceGroup is a grouping descriptor for simulcast and similar
// layered-stream relationships.
type SourceGroup struct {
	Semantics string   `xml:"semantics,attr"`
	Sources   []Source `xml:"source"`
}

// EmptySimulcastGroup returns the explicit disable-simulcast sentinel,
// distinct from omitting source groups entirely.
func EmptySimulcastGroup() SourceGroup {
	return SourceGroup{Semantics: SimulcastSemantics}
}

// Transport carries the ICE/DTLS descriptor for a channel or bundle.
// Its internals are opaque to the engine; negotiation is owned elsewhere.
type Transport struct {
	Ufrag       string       `xml:"ufrag,attr,omitempty"`
	Pwd         string       `xml:"pwd,attr,omitempty"`
	RTCPMux     bool         `xml:"rtcp-mux,omitempty"`
	Fingerprint *Fingerprint `xml:"fingerprint"`
	Candidates  []Candidate  `xml:"candidate"`
}

// Fingerprint is a DTLS certificate fingerprint.
type Fingerprint struct {
	Hash  string `xml:"hash,attr"`
	Setup string `xml:"setup,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Candidate is a single ICE candidate.
type Candidate struct {
	Foundation string `xml:"foundation,attr"`
	Component  int    `xml:"component,attr"`
	Protocol   string `xml:"protocol,attr"`
	Priority   uint32 `xml:"priority,attr"`
	IP         string `xml:"ip,attr"`
	Port       int    `xml:"port,attr"`
	Type       string `xml:"type,attr"`
	RelAddr    string `xml:"rel-addr,attr,omitempty"`
	RelPort    int    `xml:"rel-port,attr,omitempty"`
	Generation int    `xml:"generation,attr"`
}

// Recording is the recording-state element piggybacked on conference
// stanzas by clients and answered with ground truth by the focus.
type Recording struct {
	State     bool   `xml:"state,attr"`
	Token     string `xml:"token,attr,omitempty"`
	Directory string `xml:"directory,attr,omitempty"`
}

// Content returns the named content of the snapshot, or nil.
func (iq *ConferenceIQ) Content(name string) *Content {
	for _, c := range iq.Contents {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Channel returns the channel of the content identified by id, or nil.
func (c *Content) Channel(id string) *Channel {
	for _, ch := range c.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
