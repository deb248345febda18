// Package models defines the identity domain: roles, accounts, and the
// per-request principal produced by resolution.
package models

import "time"

// Role is the coarse access tier of an account. The set is closed; anything
// else is rejected at the edge.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleAgent      Role = "agent"
)

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleSuperAdmin, RoleAdmin, RoleAgent:
		return Role(raw), true
	default:
		return "", false
	}
}

// rank gives the total order used by coarse role gating.
func (r Role) rank() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleAgent:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r outranks or equals min.
func (r Role) AtLeast(min Role) bool {
	return r.rank() >= min.rank()
}

// Source records which credential channel produced a principal. The *_claims
// and *_stale variants mark principals built from embedded credential fields
// after a failed fresh lookup, so the staleness window is visible in logs.
type Source string

const (
	SourceToken          Source = "token"
	SourceTokenClaims    Source = "token_claims"
	SourceRoleCredential Source = "role_credential"
	SourceSession        Source = "session"
	SourceSessionStale   Source = "session_stale"
)

// Principal is the resolved identity for one request. It is constructed
// fresh on every request and never cached across requests.
type Principal struct {
	SubjectID      string
	Email          string
	DisplayName    string
	Role           Role
	RoleCredential string
	Grants         []string
	Source         Source
}

// Account is the durable record backing a principal. RoleCredential is an
// opaque shared secret scoped per role family, used by automated agent
// clients in place of a signed token.
type Account struct {
	ID             string
	Email          string
	DisplayName    string
	Role           Role
	RoleCredential string
	Grants         []string
	PasswordHash   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Principal builds a fresh principal from the account's current record.
func (a *Account) Principal(source Source) *Principal {
	grants := make([]string, len(a.Grants))
	copy(grants, a.Grants)
	return &Principal{
		SubjectID:      a.ID,
		Email:          a.Email,
		DisplayName:    a.DisplayName,
		Role:           a.Role,
		RoleCredential: a.RoleCredential,
		Grants:         grants,
		Source:         source,
	}
}
