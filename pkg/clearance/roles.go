// Package clearance holds the project-scoped permission model and the
// clearance lifecycle for risk flags. Everything here is pure: no I/O,
// no shared state, safe for concurrent use.
package clearance

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is a user's role within one project. Values match the wire format.
type Role string

const (
	RoleAttorney              Role = "ATTORNEY"
	RoleAnalyst               Role = "ANALYST"
	RoleMainProductionContact Role = "MAIN_PRODUCTION_CONTACT"
	RoleProductionAssistant   Role = "PRODUCTION_ASSISTANT"
	RoleViewer                Role = "VIEWER"
)

var allRoles = []Role{
	RoleAttorney,
	RoleAnalyst,
	RoleMainProductionContact,
	RoleProductionAssistant,
	RoleViewer,
}

// AllRoles returns every recognized role in display order.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	_, ok := grants[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts an external value (request body, database row) into a Role.
// Matching is exact; unknown values return *UnknownRoleError.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", &UnknownRoleError{Role: r}
	}
	return r, nil
}

// IsReadOnly reports whether the role should be presented as read-only.
// It is a presentation hint; mutations are always gated by HasCapability.
// Panics with *UnknownRoleError for an unrecognized role.
func IsReadOnly(role Role) bool {
	mustBeKnown(role)
	return role == RoleViewer || role == RoleProductionAssistant
}

// Actor is the caller on whose behalf an operation runs: a user and the
// role that user holds in the project being acted on.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) String() string {
	return fmt.Sprintf("%s(%s)", a.UserID, a.Role)
}

// IsCreatorMembership reports whether a membership belongs to the project's
// creator. Such memberships cannot be removed, whatever the caller's role.
func IsCreatorMembership(memberUserID, creatorUserID uuid.UUID) bool {
	return memberUserID != uuid.Nil && memberUserID == creatorUserID
}
