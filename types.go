package eduAuth

import (
	"github.com/MrEthical07/eduAuth/accounts"
	"github.com/MrEthical07/eduAuth/session"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	Subject string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Version uint32 `json:"-"`
}

// HasRole reports whether the identity holds one of roles.
func (i *Identity) HasRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// TokenPair is returned by Login and Refresh.
type TokenPair = session.TokenPair

// AccountStore is the authoritative account record store.
type AccountStore = accounts.Store

// Account roles.
const (
	RoleUser       = accounts.RoleUser
	RoleInstructor = accounts.RoleInstructor
	RoleAdmin      = accounts.RoleAdmin
)
