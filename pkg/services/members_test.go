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

type memberFixture struct {
	svc       MemberService
	members   *mockMemberRepository
	roles     *mockRoleCache
	projectID uuid.UUID
	creator   *models.User
	ben       *models.User
}

func newMemberFixture(t *testing.T) *memberFixture {
	t.Helper()
	creator := &models.User{ID: uuid.New(), Username: "ana"}
	ben := &models.User{ID: uuid.New(), Username: "ben"}

	members := newMockMemberRepository()
	projects := newMockProjectRepository(members)
	p := &models.Project{Name: "Heist", CreatedBy: creator.ID}
	require.NoError(t, projects.Create(context.Background(), p))
	require.NoError(t, members.Add(context.Background(), p.ID, creator.ID, clearance.RoleAttorney))

	roles := newMockRoleCache()
	access := NewAccessService(members, roles, zap.NewNop())
	return &memberFixture{
		svc:       NewMemberService(projects, members, newMockUserRepository(creator, ben), access, nil, zap.NewNop()),
		members:   members,
		roles:     roles,
		projectID: p.ID,
		creator:   creator,
		ben:       ben,
	}
}

func TestMemberService_Add(t *testing.T) {
	ctx := context.Background()
	f := newMemberFixture(t)

	_, err := f.svc.Add(ctx, actorOf(clearance.RoleMainProductionContact), f.projectID, MemberInvite{UserID: f.ben.ID, Role: clearance.RoleAnalyst})
	assert.ErrorIs(t, err, clearance.ErrUnauthorized)

	_, err = f.svc.Add(ctx, actorOf(clearance.RoleAnalyst), f.projectID, MemberInvite{UserID: f.ben.ID, Role: "PRODUCER"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.Add(ctx, actorOf(clearance.RoleAnalyst), f.projectID, MemberInvite{UserID: uuid.New(), Role: clearance.RoleAnalyst})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	members, err := f.svc.Add(ctx, actorOf(clearance.RoleAnalyst), f.projectID, MemberInvite{UserID: f.ben.ID})
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, clearance.RoleViewer, f.members.roles[memberKey{f.projectID, f.ben.ID}])
	assert.Contains(t, f.roles.invalidated, memberKey{f.projectID, f.ben.ID})

	_, err = f.svc.Add(ctx, actorOf(clearance.RoleAnalyst), f.projectID, MemberInvite{UserID: f.ben.ID, Role: clearance.RoleAnalyst})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestMemberService_UpdateRole(t *testing.T) {
	ctx := context.Background()
	f := newMemberFixture(t)
	require.NoError(t, f.members.Add(ctx, f.projectID, f.ben.ID, clearance.RoleViewer))
	f.roles.Set(ctx, f.projectID, f.ben.ID, clearance.RoleViewer)

	_, err := f.svc.UpdateRole(ctx, actorOf(clearance.RoleAnalyst), f.projectID, f.creator.ID, clearance.RoleViewer)
	assert.ErrorIs(t, err, apperrors.ErrCreatorProtected)

	_, err = f.svc.UpdateRole(ctx, actorOf(clearance.RoleProductionAssistant), f.projectID, f.ben.ID, clearance.RoleAnalyst)
	assert.ErrorIs(t, err, clearance.ErrUnauthorized)

	_, err = f.svc.UpdateRole(ctx, actorOf(clearance.RoleAnalyst), f.projectID, f.ben.ID, clearance.RoleAnalyst)
	require.NoError(t, err)
	assert.Equal(t, clearance.RoleAnalyst, f.members.roles[memberKey{f.projectID, f.ben.ID}])
	_, cached := f.roles.Get(ctx, f.projectID, f.ben.ID)
	assert.False(t, cached, "role change must invalidate the cached role")

	_, err = f.svc.UpdateRole(ctx, actorOf(clearance.RoleAnalyst), f.projectID, uuid.New(), clearance.RoleAnalyst)
	assert.ErrorIs(t, err, apperrors.ErrNotMember)
}

func TestMemberService_Remove(t *testing.T) {
	ctx := context.Background()
	f := newMemberFixture(t)
	require.NoError(t, f.members.Add(ctx, f.projectID, f.ben.ID, clearance.RoleAnalyst))

	err := f.svc.Remove(ctx, actorOf(clearance.RoleAttorney), f.projectID, f.creator.ID)
	assert.ErrorIs(t, err, apperrors.ErrCreatorProtected)
	assert.Contains(t, f.members.roles, memberKey{f.projectID, f.creator.ID})

	err = f.svc.Remove(ctx, actorOf(clearance.RoleViewer), f.projectID, f.ben.ID)
	assert.ErrorIs(t, err, clearance.ErrUnauthorized)

	require.NoError(t, f.svc.Remove(ctx, actorOf(clearance.RoleAnalyst), f.projectID, f.ben.ID))
	assert.NotContains(t, f.members.roles, memberKey{f.projectID, f.ben.ID})
	assert.Contains(t, f.roles.invalidated, memberKey{f.projectID, f.ben.ID})

	err = f.svc.Remove(ctx, actorOf(clearance.RoleAnalyst), f.projectID, f.ben.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotMember)
}
