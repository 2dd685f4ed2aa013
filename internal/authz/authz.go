// Package authz centralizes the engine's capability checks: every mutating
// operation takes an authenticated actor and the services enforce role
// predicates here instead of ad hoc.
package authz

import (
	"errors"

	"github.com/acaraku/acaraku/internal/domain"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not permitted for this user")
)

// RequireUser enforces that the operation carries an authenticated identity.
func RequireUser(actor *domain.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	return nil
}

// RequireRole enforces authentication plus a role predicate.
func RequireRole(actor *domain.User, role domain.Role) error {
	if err := RequireUser(actor); err != nil {
		return err
	}
	if actor.Role != role {
		return ErrForbidden
	}
	return nil
}
