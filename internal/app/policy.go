package app

import (
	"sync"

	"github.com/dkeye/Focus/internal/domain"
)

// RoleResolver reports the room role of an occupant. Membership tracking
// is owned by the room watcher, not by this package.
type RoleResolver interface {
	// ResolveRole returns false when the occupant is not a room member
	// at all.
	ResolveRole(jid domain.JID) (domain.Role, bool)
}

// MutePolicy decides whether a mute request is accepted.
type MutePolicy interface {
	Allow(requester domain.JID, requesterRole domain.Role, target domain.JID, mute bool) bool
}

// RecordingPolicy owns the recording state of a conference. Apply
// returns the resulting state, which may differ from the desired one
// when the request is rejected.
type RecordingPolicy interface {
	Apply(from domain.JID, token string, desired bool, directory string) bool
}

// StaticRoleResolver resolves roles from a fixed table.
type StaticRoleResolver map[domain.JID]domain.Role

func (r StaticRoleResolver) ResolveRole(jid domain.JID) (domain.Role, bool) {
	role, ok := r[jid]
	return role, ok
}

// ModeratorMutePolicy lets occupants mute themselves and moderators mute
// anyone; unmuting someone else is never allowed.
type ModeratorMutePolicy struct{}

func (ModeratorMutePolicy) Allow(requester domain.JID, requesterRole domain.Role, target domain.JID, mute bool) bool {
	if requester == target {
		return true
	}
	if !mute {
		return false
	}
	return requesterRole >= domain.RoleModerator
}

// TokenRecordingPolicy toggles recording for requests presenting the
// configured token and reports the unchanged state to everyone else.
type TokenRecordingPolicy struct {
	Token string

	mu    sync.Mutex
	state bool
}

func NewTokenRecordingPolicy(token string) *TokenRecordingPolicy {
	return &TokenRecordingPolicy{Token: token}
}

func (p *TokenRecordingPolicy) Apply(_ domain.JID, token string, desired bool, _ string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if token == p.Token {
		p.state = desired
	}
	return p.state
}
