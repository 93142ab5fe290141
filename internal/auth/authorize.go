package auth

import "slices"

// Principal is an authenticated user bound to its session.
type Principal struct {
	User        User
	Session     Session
	Permissions []string
}

// NewPrincipal resolves the effective permissions of user.
func NewPrincipal(user User, session Session) Principal {
	return Principal{
		User:        user,
		Session:     session,
		Permissions: Effective(user.Profile, user.Permissions),
	}
}

// HasPermission reports whether the principal can execute the action identified by key.
func (p Principal) HasPermission(key string) bool {
	return Allowed(p.User.Profile, p.User.Permissions, key)
}

// IsAdmin reports the privileged profile.
func (p Principal) IsAdmin() bool { return p.User.Profile == ProfileAdmin }

// Scope returns the condominium the principal is confined to, or "" for all.
func (p Principal) Scope() string {
	if p.IsAdmin() {
		return ""
	}
	return p.User.CondominiumID
}

// CanAccessCondominium reports whether records of condominiumID are visible.
// Records without a condominium are visible to everyone.
func (p Principal) CanAccessCondominium(condominiumID string) bool {
	scope := p.Scope()
	return scope == "" || condominiumID == "" || scope == condominiumID
}

// HasAll reports whether every key is granted.
func (p Principal) HasAll(keys ...string) bool {
	return !slices.ContainsFunc(keys, func(k string) bool { return !p.HasPermission(k) })
}
