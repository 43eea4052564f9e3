//go:build integration

package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/models"
)

func TestProjectRepository_ListForUserAndCounts(t *testing.T) {
	ctx := setup(t)
	repo := NewProjectRepository()
	ana := createUser(t, ctx, "ana")
	ben := createUser(t, ctx, "ben")

	heist := createProject(t, ctx, ana, "Heist")
	createProject(t, ctx, ben, "Other")

	s := createScript(t, ctx, heist, ana, nil)
	createFlags(t, ctx, s, models.SeverityHigh, models.SeverityLow)
	createScript(t, ctx, heist, ana, nil)

	projects, err := repo.ListForUser(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Heist", projects[0].Name)

	counts, err := repo.Counts(ctx, []uuid.UUID{heist.ID})
	require.NoError(t, err)
	assert.Equal(t, ProjectCounts{Scripts: 2, Risks: 2}, counts[heist.ID])
}

func TestProjectRepository_UpdateDetails(t *testing.T) {
	ctx := setup(t)
	repo := NewProjectRepository()
	ana := createUser(t, ctx, "ana")
	p := createProject(t, ctx, ana, "Heist")

	p.Director = "K. Bigelow"
	p.Genre = "Thriller"
	require.NoError(t, repo.UpdateDetails(ctx, p))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "K. Bigelow", got.Director)
	assert.Equal(t, "Thriller", got.Genre)

	p.ID = uuid.New()
	assert.ErrorIs(t, repo.UpdateDetails(ctx, p), apperrors.ErrNotFound)
}

func TestProjectRepository_SoftDeleteCascadesToScripts(t *testing.T) {
	ctx := setup(t)
	repo := NewProjectRepository()
	ana := createUser(t, ctx, "ana")
	p := createProject(t, ctx, ana, "Heist")
	s := createScript(t, ctx, p, ana, nil)

	require.NoError(t, repo.SoftDelete(ctx, p.ID))

	_, err := repo.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = NewScriptRepository().Get(ctx, p.ID, s.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	projects, err := repo.ListForUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = NewMemberRepository().GetRole(ctx, p.ID, ana.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotMember)

	assert.ErrorIs(t, repo.SoftDelete(ctx, p.ID), apperrors.ErrNotFound)
}

func TestMemberRepository(t *testing.T) {
	ctx := setup(t)
	repo := NewMemberRepository()
	ana := createUser(t, ctx, "ana")
	ben := createUser(t, ctx, "ben")
	p := createProject(t, ctx, ana, "Heist")

	require.NoError(t, repo.Add(ctx, p.ID, ben.ID, clearance.RoleViewer))
	assert.ErrorIs(t, repo.Add(ctx, p.ID, ben.ID, clearance.RoleAnalyst), apperrors.ErrConflict)

	role, err := repo.GetRole(ctx, p.ID, ben.ID)
	require.NoError(t, err)
	assert.Equal(t, clearance.RoleViewer, role)

	require.NoError(t, repo.UpdateRole(ctx, p.ID, ben.ID, clearance.RoleProductionAssistant))
	members, err := repo.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "ana", members[0].Username)
	assert.Equal(t, clearance.RoleProductionAssistant, members[1].Role)

	require.NoError(t, repo.Remove(ctx, p.ID, ben.ID))
	assert.ErrorIs(t, repo.Remove(ctx, p.ID, ben.ID), apperrors.ErrNotMember)
	assert.ErrorIs(t, repo.UpdateRole(ctx, p.ID, ben.ID, clearance.RoleViewer), apperrors.ErrNotMember)
}
