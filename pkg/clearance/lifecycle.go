package clearance

import (
	"strings"
)

// ClearanceStatus is the review outcome recorded on a risk flag.
// The machine is flat: any status may follow any other.
type ClearanceStatus string

const (
	StatusPending              ClearanceStatus = "PENDING"
	StatusCleared              ClearanceStatus = "CLEARED"
	StatusNotClear             ClearanceStatus = "NOT_CLEAR"
	StatusNegotiatedByAttorney ClearanceStatus = "NEGOTIATED_BY_ATTORNEY"
	StatusBrandedIntegration   ClearanceStatus = "BRANDED_INTEGRATION"
	StatusNoClearanceNecessary ClearanceStatus = "NO_CLEARANCE_NECESSARY"
	StatusPermissible          ClearanceStatus = "PERMISSIBLE"
)

var allStatuses = []ClearanceStatus{
	StatusPending,
	StatusCleared,
	StatusNotClear,
	StatusNegotiatedByAttorney,
	StatusBrandedIntegration,
	StatusNoClearanceNecessary,
	StatusPermissible,
}

// InitialStatus is assigned to every newly detected risk flag.
const InitialStatus = StatusPending

// AllStatuses returns every recognized status.
func AllStatuses() []ClearanceStatus {
	out := make([]ClearanceStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s is a recognized status.
func (s ClearanceStatus) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s ClearanceStatus) String() string {
	return string(s)
}

// Label returns the human form, e.g. "Negotiated By Attorney".
func (s ClearanceStatus) Label() string {
	words := strings.Split(strings.ToLower(string(s)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ParseStatus validates an external status value. Matching is exact.
func ParseStatus(s string) (ClearanceStatus, error) {
	st := ClearanceStatus(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// AttemptTransition decides whether role may move a risk flag from current
// to requested. On success it returns requested unchanged; that value is
// what the caller must persist. Self-transitions are allowed.
//
// Checks run in order: role recognized, role holds EditRiskStatus, both
// statuses recognized. A role without EditRiskStatus is therefore refused
// with ErrUnauthorized whatever the status pair.
func AttemptTransition(current, requested ClearanceStatus, role Role) (ClearanceStatus, error) {
	fail := func(err error) (ClearanceStatus, error) {
		return "", &TransitionError{From: current, To: requested, Role: role, Err: err}
	}

	set, ok := grants[role]
	if !ok {
		return fail(&UnknownRoleError{Role: role})
	}
	if _, ok := set[CapEditRiskStatus]; !ok {
		return fail(ErrUnauthorized)
	}
	if !current.Valid() || !requested.Valid() {
		return fail(ErrInvalidStatus)
	}
	return requested, nil
}

// CanAnnotate reports whether role may edit comments and restrictions on a
// risk flag. Annotation is never blocked by the flag's status.
func CanAnnotate(role Role) bool {
	return HasCapability(role, CapEditRiskAnnotations)
}
