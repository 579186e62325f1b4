// Package auth holds roles, the authenticated principal, bearer tokens and
// password hashing.
package auth

import (
	"context"
	"fmt"
)

// Role is an authorization role carried by every account.
type Role string

const (
	RoleCustomer  Role = "Customer"
	RoleModerator Role = "Moderator"
)

// ParseRole converts a stored role name to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleModerator:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }

// Principal is the caller identity extracted from a verified bearer token.
type Principal struct {
	Subject string
	Email   string
	Role    Role
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role Role) bool {
	return p != nil && p.Role == role
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
