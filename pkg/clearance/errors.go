package clearance

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the role does not hold the capability the action requires.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidStatus means a value fell outside a closed enumeration
	// (status or role). It signals a contract mismatch, not a user error.
	ErrInvalidStatus = errors.New("invalid status")
)

// UnknownRoleError reports a role value outside the closed set.
type UnknownRoleError struct {
	Role Role
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", string(e.Role))
}

func (e *UnknownRoleError) Unwrap() error {
	return ErrInvalidStatus
}

// UnknownCapabilityError reports a capability value outside the closed set.
type UnknownCapabilityError struct {
	Capability Capability
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability %q", string(e.Capability))
}

// DeniedError reports a role that lacks a capability.
type DeniedError struct {
	Role       Role
	Capability Capability
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("role %s lacks capability %s", e.Role, e.Capability)
}

func (e *DeniedError) Unwrap() error {
	return ErrUnauthorized
}

// TransitionError describes a rejected status transition.
type TransitionError struct {
	From ClearanceStatus
	To   ClearanceStatus
	Role Role
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s by %s: %v", e.From, e.To, e.Role, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
