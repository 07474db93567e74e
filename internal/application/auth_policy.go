package application

import "crypto/subtle"

// AuthPolicy decides whether a login attempt is acceptable and whether a
// given display name carries administrative rights. ChatService and the
// transport layer only ever see this interface, so the static PIN scheme can
// later be swapped for a real credential store without touching them.
type AuthPolicy interface {
	Authenticate(name, pin string) bool
	IsPrivileged(name string) bool
}

// StaticAuthPolicy authenticates every non-empty name against one shared PIN
// and grants admin rights to an exact-match allow-list.
type StaticAuthPolicy struct {
	pin    string
	admins map[string]struct{}
}

// NewStaticAuthPolicy builds a policy from the configured PIN and admin names.
func NewStaticAuthPolicy(pin string, admins []string) *StaticAuthPolicy {
	set := make(map[string]struct{}, len(admins))
	for _, name := range admins {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return &StaticAuthPolicy{pin: pin, admins: set}
}

// Authenticate reports whether the name/PIN pair may log in. The PIN compare
// is constant-time.
func (p *StaticAuthPolicy) Authenticate(name, pin string) bool {
	if p == nil || name == "" || p.pin == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.pin), []byte(pin)) == 1
}

// IsPrivileged reports whether the name is on the admin allow-list.
// Matching is exact and case-sensitive.
func (p *StaticAuthPolicy) IsPrivileged(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.admins[name]
	return ok
}
