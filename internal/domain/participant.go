// Package domain contains entity without logic, just meta-data.
package domain

type (
	// JID is an address within the signaling domain (room occupant,
	// bridge component, gateway component).
	JID string

	// EndpointID is the bridge-facing identity of a participant. It may
	// differ from the room occupant address.
	EndpointID string

	// RoomName identifies a conference room.
	RoomName string
)

// Role is the authorization level of a room occupant as observed from
// room membership. Higher values carry more permissions.
type Role int

const (
	RoleVisitor Role = iota
	RoleMember
	RoleModerator
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleVisitor:
		return "visitor"
	case RoleMember:
		return "member"
	case RoleModerator:
		return "moderator"
	case RoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// Participant represents a single room occupant of a conference.
// Channel ownership lives in the colibri state mirror, keyed by EndpointID.
type Participant struct {
	RoomJID     JID
	EndpointID  EndpointID
	DisplayName string
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(roomJID JID, endpointID EndpointID) *Participant {
	return &Participant{RoomJID: roomJID, EndpointID: endpointID}
}
