package clearance

// Capability is a discrete permission checked independently of other capabilities.
type Capability string

const (
	CapUploadScript        Capability = "UploadScript"
	CapEditRiskStatus      Capability = "EditRiskStatus"
	CapEditRiskAnnotations Capability = "EditRiskAnnotations"
	CapRenameVersion       Capability = "RenameVersion"
	CapDeleteScript        Capability = "DeleteScript"
	CapDeleteProject       Capability = "DeleteProject"
	CapManageMembers       Capability = "ManageMembers"
	CapAddViewerMember     Capability = "AddViewerMember"
)

var allCapabilities = []Capability{
	CapUploadScript,
	CapEditRiskStatus,
	CapEditRiskAnnotations,
	CapRenameVersion,
	CapDeleteScript,
	CapDeleteProject,
	CapManageMembers,
	CapAddViewerMember,
}

// AllCapabilities returns every capability in table order.
func AllCapabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// Valid reports whether c is a recognized capability.
func (c Capability) Valid() bool {
	for _, known := range allCapabilities {
		if c == known {
			return true
		}
	}
	return false
}

type capabilitySet map[Capability]struct{}

func setOf(caps ...Capability) capabilitySet {
	s := make(capabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// grants is the authoritative role to capability table. Absence means denied.
var grants = map[Role]capabilitySet{
	RoleAttorney: setOf(
		CapUploadScript,
		CapEditRiskStatus,
		CapEditRiskAnnotations,
		CapRenameVersion,
		CapDeleteScript,
		CapDeleteProject,
		CapManageMembers,
		CapAddViewerMember,
	),
	RoleAnalyst: setOf(
		CapUploadScript,
		CapEditRiskStatus,
		CapEditRiskAnnotations,
		CapDeleteScript,
		CapManageMembers,
		CapAddViewerMember,
	),
	RoleMainProductionContact: setOf(
		CapEditRiskAnnotations,
		CapRenameVersion,
	),
	RoleProductionAssistant: setOf(
		CapEditRiskAnnotations,
	),
	RoleViewer: setOf(),
}

// HasCapability reports whether role grants capability.
//
// An unrecognized role is a programming error and panics with
// *UnknownRoleError. Use CheckCapability for values that have not been
// validated yet.
func HasCapability(role Role, capability Capability) bool {
	set := mustBeKnown(role)
	_, ok := set[capability]
	return ok
}

// CheckCapability is the error-returning form of HasCapability.
// It returns *UnknownRoleError for an unrecognized role, *UnknownCapabilityError
// for an unrecognized capability and *DeniedError (matching ErrUnauthorized)
// when the role lacks the capability.
func CheckCapability(role Role, capability Capability) error {
	set, ok := grants[role]
	if !ok {
		return &UnknownRoleError{Role: role}
	}
	if !capability.Valid() {
		return &UnknownCapabilityError{Capability: capability}
	}
	if _, ok := set[capability]; !ok {
		return &DeniedError{Role: role, Capability: capability}
	}
	return nil
}

// Capabilities lists the capabilities granted to role, in table order.
func Capabilities(role Role) ([]Capability, error) {
	set, ok := grants[role]
	if !ok {
		return nil, &UnknownRoleError{Role: role}
	}
	out := make([]Capability, 0, len(set))
	for _, c := range allCapabilities {
		if _, ok := set[c]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// CheckInvite decides whether actor may add a member with the invitee role.
// Any invite needs ManageMembers; inviting a viewer also needs AddViewerMember.
func CheckInvite(actor, invitee Role) error {
	if !invitee.Valid() {
		return &UnknownRoleError{Role: invitee}
	}
	if err := CheckCapability(actor, CapManageMembers); err != nil {
		return err
	}
	if invitee == RoleViewer {
		return CheckCapability(actor, CapAddViewerMember)
	}
	return nil
}

func mustBeKnown(role Role) capabilitySet {
	set, ok := grants[role]
	if !ok {
		panic(&UnknownRoleError{Role: role})
	}
	return set
}
