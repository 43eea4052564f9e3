package clearance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptTransition_EditingRolesAllPairs(t *testing.T) {
	for _, role := range []Role{RoleAttorney, RoleAnalyst} {
		for _, from := range AllStatuses() {
			for _, to := range AllStatuses() {
				got, err := AttemptTransition(from, to, role)
				require.NoError(t, err, "%s: %s -> %s", role, from, to)
				assert.Equal(t, to, got)
			}
		}
	}
}

func TestAttemptTransition_NonEditingRolesAlwaysUnauthorized(t *testing.T) {
	for _, role := range []Role{RoleMainProductionContact, RoleProductionAssistant, RoleViewer} {
		for _, from := range AllStatuses() {
			for _, to := range AllStatuses() {
				got, err := AttemptTransition(from, to, role)
				require.Error(t, err, "%s: %s -> %s", role, from, to)
				assert.ErrorIs(t, err, ErrUnauthorized)
				assert.NotErrorIs(t, err, ErrInvalidStatus)
				assert.Empty(t, got)
			}
		}
	}
}

func TestAttemptTransition_UnknownStatus(t *testing.T) {
	_, err := AttemptTransition(StatusPending, ClearanceStatus("UNKNOWN_STATUS"), RoleAttorney)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = AttemptTransition(ClearanceStatus("pending"), StatusCleared, RoleAnalyst)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAttemptTransition_UnknownRole(t *testing.T) {
	_, err := AttemptTransition(StatusPending, StatusCleared, Role("INTERN"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	var unknown *UnknownRoleError
	assert.True(t, errors.As(err, &unknown))
}

func TestAttemptTransition_ErrorCarriesContext(t *testing.T) {
	_, err := AttemptTransition(StatusCleared, StatusNotClear, RoleViewer)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusCleared, te.From)
	assert.Equal(t, StatusNotClear, te.To)
	assert.Equal(t, RoleViewer, te.Role)
}

func TestAttemptTransition_ReviewScenario(t *testing.T) {
	got, err := AttemptTransition(StatusPending, StatusCleared, RoleAnalyst)
	require.NoError(t, err)
	assert.Equal(t, StatusCleared, got)

	_, err = AttemptTransition(StatusPending, StatusCleared, RoleProductionAssistant)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, CanAnnotate(RoleProductionAssistant))

	got, err = AttemptTransition(StatusCleared, StatusCleared, RoleAttorney)
	require.NoError(t, err)
	assert.Equal(t, StatusCleared, got)

	_, err = AttemptTransition(StatusCleared, StatusCleared, RoleViewer)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, CanAnnotate(RoleViewer))
}

func TestCanAnnotate(t *testing.T) {
	for _, role := range AllRoles() {
		assert.Equal(t, HasCapability(role, CapEditRiskAnnotations), CanAnnotate(role), role)
	}
	assert.True(t, CanAnnotate(RoleMainProductionContact))
	assert.False(t, CanAnnotate(RoleViewer))
}

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("Cleared")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestClearanceStatus_Label(t *testing.T) {
	assert.Equal(t, "Negotiated By Attorney", StatusNegotiatedByAttorney.Label())
	assert.Equal(t, "Pending", StatusPending.Label())
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusPending, InitialStatus)
	assert.Len(t, AllStatuses(), 7)
}
