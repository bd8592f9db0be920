package config

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Property names attached to a create-conference request by the client.
const (
	BridgeProp            = "bridge"
	CallControlProp       = "call_control"
	ChannelLastNProp      = "channelLastN"
	AdaptiveLastNProp     = "adaptiveLastN"
	AdaptiveSimulcastProp = "adaptiveSimulcast"
	OpenSctpProp          = "openSctp"
	StartAudioMutedProp   = "startAudioMuted"
	StartVideoMutedProp   = "startVideoMuted"
)

// ConferenceSettings is a typed, read-only view over the untyped key/value
// properties of a single conference. Values come from untrusted client
// config, so accessors report "unset" instead of guessing defaults and a
// malformed value never aborts anything.
type ConferenceSettings struct {
	props map[string]string
}

func NewConferenceSettings(props map[string]string) *ConferenceSettings {
	if props == nil {
		props = map[string]string{}
	}
	return &ConferenceSettings{props: props}
}

// Bridge returns the pre-configured bridge address, or "" when none was
// passed in the config.
func (s *ConferenceSettings) Bridge() string {
	return s.props[BridgeProp]
}

// CallControl returns the pre-configured call-control gateway address, or
// "" when none was passed in the config.
func (s *ConferenceSettings) CallControl() string {
	return s.props[CallControlProp]
}

func (s *ConferenceSettings) ChannelLastN() (int, bool) {
	return s.getInt(ChannelLastNProp)
}

func (s *ConferenceSettings) AdaptiveLastN() (bool, bool) {
	return s.getBool(AdaptiveLastNProp)
}

func (s *ConferenceSettings) AdaptiveSimulcast() (bool, bool) {
	return s.getBool(AdaptiveSimulcastProp)
}

func (s *ConferenceSettings) OpenSctp() (bool, bool) {
	return s.getBool(OpenSctpProp)
}

func (s *ConferenceSettings) StartAudioMuted() (int, bool) {
	return s.getInt(StartAudioMutedProp)
}

func (s *ConferenceSettings) StartVideoMuted() (int, bool) {
	return s.getInt(StartVideoMutedProp)
}

func (s *ConferenceSettings) getBool(name string) (bool, bool) {
	raw := s.props[name]
	if raw == "" {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func (s *ConferenceSettings) getInt(name string) (int, bool) {
	raw := s.props[name]
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Error().Str("module", "config").Str("name", name).Str("value", raw).Msg("invalid integer property")
		return 0, false
	}
	return val, true
}
