package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/models"
)

type riskFixture struct {
	svc       RiskService
	risks     *mockRiskFlagRepository
	publisher *mockPublisher
	projectID uuid.UUID
	flag      *models.RiskFlag
}

func newRiskFixture() *riskFixture {
	projectID := uuid.New()
	risks := newMockRiskFlagRepository(projectID)
	publisher := &mockPublisher{}
	f := risks.add(&models.RiskFlag{
		ScriptID:   uuid.New(),
		Category:   models.CategoryMusicChoreography,
		Severity:   models.SeverityHigh,
		EntityName: "Happy Birthday",
		Status:     clearance.StatusPending,
	})
	svc := NewRiskService(risks, publisher, nil, zap.NewNop()).(*riskService)
	svc.inTx = passthroughTx
	return &riskFixture{
		svc:       svc,
		risks:     risks,
		publisher: publisher,
		projectID: projectID,
		flag:      f,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestRiskService_Update_StatusByAnalyst(t *testing.T) {
	f := newRiskFixture()
	actor := actorOf(clearance.RoleAnalyst)

	got, err := f.svc.Update(context.Background(), actor, f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Status: strPtr(string(clearance.StatusCleared)),
	})
	require.NoError(t, err)
	assert.Equal(t, clearance.StatusCleared, got.Status)
	assert.Equal(t, clearance.StatusCleared, f.risks.flags[f.flag.ID].Status)

	require.Len(t, f.publisher.statusChanges, 1)
	ev := f.publisher.statusChanges[0]
	assert.Equal(t, "PENDING", ev.From)
	assert.Equal(t, "CLEARED", ev.To)
	assert.Equal(t, actor.UserID, ev.ActorID)
}

func TestRiskService_Update_SameStatusPublishesNothing(t *testing.T) {
	f := newRiskFixture()

	_, err := f.svc.Update(context.Background(), actorOf(clearance.RoleAttorney), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Status: strPtr(string(clearance.StatusPending)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.risks.updates)
	assert.Empty(t, f.publisher.statusChanges)
}

func TestRiskService_Update_ProductionAssistant(t *testing.T) {
	f := newRiskFixture()
	pa := actorOf(clearance.RoleProductionAssistant)

	_, err := f.svc.Update(context.Background(), pa, f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Status:   strPtr(string(clearance.StatusCleared)),
		Comments: strPtr("looks fine"),
	})
	assert.ErrorIs(t, err, clearance.ErrUnauthorized)
	assert.Zero(t, f.risks.updates, "a refused field must block the whole update")

	got, err := f.svc.Update(context.Background(), pa, f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Comments:     strPtr("Licensed via Warner Chappell"),
		Restrictions: strPtr("Background only"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Licensed via Warner Chappell", got.Comments)
	assert.Equal(t, "Background only", got.Restrictions)
	assert.Equal(t, clearance.StatusPending, got.Status)

	_, err = f.svc.Update(context.Background(), pa, f.projectID, f.flag.ID, models.RiskFlagUpdate{IsRedacted: boolPtr(true)})
	assert.ErrorIs(t, err, clearance.ErrUnauthorized)
}

func TestRiskService_Update_ViewerCannotAnnotate(t *testing.T) {
	f := newRiskFixture()

	_, err := f.svc.Update(context.Background(), actorOf(clearance.RoleViewer), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Comments: strPtr("hi"),
	})
	assert.ErrorIs(t, err, clearance.ErrUnauthorized)
}

func TestRiskService_Update_InvalidStatus(t *testing.T) {
	f := newRiskFixture()

	_, err := f.svc.Update(context.Background(), actorOf(clearance.RoleAttorney), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Status: strPtr("UNKNOWN_STATUS"),
	})
	assert.ErrorIs(t, err, clearance.ErrInvalidStatus)
	assert.NotErrorIs(t, err, clearance.ErrUnauthorized)
	assert.Zero(t, f.risks.updates)
}

func TestRiskService_Update_Redaction(t *testing.T) {
	f := newRiskFixture()

	got, err := f.svc.Update(context.Background(), actorOf(clearance.RoleAttorney), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		IsRedacted: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, got.IsRedacted)
	assert.Empty(t, f.publisher.statusChanges)
}

func TestRiskService_Update_UnsafeAnnotation(t *testing.T) {
	f := newRiskFixture()

	_, err := f.svc.Update(context.Background(), actorOf(clearance.RoleAnalyst), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Comments: strPtr(`<script>alert(1)</script>`),
	})
	assert.ErrorIs(t, err, apperrors.ErrUnsafeContent)
	assert.Zero(t, f.risks.updates)
}

func TestRiskService_Update_NotFoundAndEmpty(t *testing.T) {
	f := newRiskFixture()

	_, err := f.svc.Update(context.Background(), actorOf(clearance.RoleAttorney), uuid.New(), f.flag.ID, models.RiskFlagUpdate{IsRedacted: boolPtr(true)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.svc.Update(context.Background(), actorOf(clearance.RoleViewer), f.projectID, f.flag.ID, models.RiskFlagUpdate{})
	require.NoError(t, err)
	assert.Equal(t, f.flag.ID, got.ID)
	assert.Zero(t, f.risks.updates)
}

func TestRiskService_Update_LocksRowInTransaction(t *testing.T) {
	f := newRiskFixture()
	f.svc.(*riskService).inTx = markingRunner("tx")

	_, err := f.svc.Update(context.Background(), actorOf(clearance.RoleProductionAssistant), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Comments: strPtr("Need the license by Friday"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"tx"}, f.risks.lockedIn)
	assert.Equal(t, []string{"tx"}, f.risks.updatedIn)
}

func TestRiskService_Update_KeepsEarlierFields(t *testing.T) {
	f := newRiskFixture()
	ctx := context.Background()

	_, err := f.svc.Update(ctx, actorOf(clearance.RoleProductionAssistant), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Comments: strPtr("Waiting on the publisher"),
	})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, actorOf(clearance.RoleAnalyst), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Status: strPtr(string(clearance.StatusCleared)),
	})
	require.NoError(t, err)

	stored := f.risks.flags[f.flag.ID]
	assert.Equal(t, clearance.StatusCleared, stored.Status)
	assert.Equal(t, "Waiting on the publisher", stored.Comments)
	require.Len(t, f.publisher.statusChanges, 1)
	assert.Equal(t, "PENDING", f.publisher.statusChanges[0].From)
}

func TestRiskService_Update_RefusalPublishesNothing(t *testing.T) {
	f := newRiskFixture()

	_, err := f.svc.Update(context.Background(), actorOf(clearance.RoleViewer), f.projectID, f.flag.ID, models.RiskFlagUpdate{
		Status: strPtr(string(clearance.StatusCleared)),
	})
	assert.ErrorIs(t, err, clearance.ErrUnauthorized)
	assert.Empty(t, f.publisher.statusChanges)
	assert.Zero(t, f.risks.updates)
	assert.Equal(t, clearance.StatusPending, f.risks.flags[f.flag.ID].Status)
}
