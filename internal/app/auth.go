package app

import "github.com/dkeye/Focus/internal/domain"

// AuthenticationAuthority encapsulates the external login system
// (Shibboleth, OAuth, messaging domain) that vouches for room occupants.
// No implementation lives in this module; deployments inject their own.
type AuthenticationAuthority interface {
	// CreateLoginURL returns the URL the user must visit to log in.
	// popup marks live authentication of an already running conference.
	CreateLoginURL(machineUID string, peerJID domain.JID, room domain.RoomName, popup bool) string

	// IsUserAuthenticated reports whether the occupant holds a valid
	// session.
	IsUserAuthenticated(jid domain.JID) bool

	// UserIdentity returns the login associated with the occupant, if
	// any.
	UserIdentity(jid domain.JID) (string, bool)

	// IsExternal reports whether users must visit the login URL rather
	// than being authenticated in-band.
	IsExternal() bool

	Start() error
	Stop()
}
