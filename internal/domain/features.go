package domain

// Capability identifiers advertised by clients during service discovery.
const (
	FeatureAudio = "urn:xmpp:jingle:apps:rtp:audio"
	FeatureVideo = "urn:xmpp:jingle:apps:rtp:video"
	FeatureICE   = "urn:xmpp:jingle:transports:ice-udp:1"
	FeatureSCTP  = "urn:xmpp:jingle:transports:dtls-sctp:1"
	FeatureDTLS  = "urn:xmpp:jingle:apps:dtls:0"

	FeatureRTCPMux   = "urn:ietf:rfc:5761"
	FeatureRTPBundle = "urn:ietf:rfc:5888"
)

// DefaultFeatureSet returns the capability set assumed for a participant
// when discovery fails or is not supported.
func DefaultFeatureSet() []string {
	return []string{
		FeatureAudio,
		FeatureVideo,
		FeatureICE,
		FeatureSCTP,
		FeatureDTLS,
	}
}

// SupportsAll reports whether every feature in required is present in
// capabilities.
func SupportsAll(required []string, capabilities []string) bool {
	for _, want := range required {
		found := false
		for _, have := range capabilities {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SameFeatures reports whether two feature lists contain the same
// elements, order being irrelevant.
func SameFeatures(a, b []string) bool {
	return len(a) == len(b) && SupportsAll(a, b)
}
