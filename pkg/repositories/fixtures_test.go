//go:build integration

package repositories

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/testhelpers"
)

// setup returns a scoped context on a freshly emptied database.
func setup(t *testing.T) context.Context {
	t.Helper()
	tdb := testhelpers.GetTestDB(t)
	tdb.Reset(t)
	return tdb.Context(t)
}

func createUser(t *testing.T, ctx context.Context, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "hash",
	}
	require.NoError(t, NewUserRepository().Create(ctx, u))
	return u
}

// createProject creates a project owned by creator with creator as Attorney.
func createProject(t *testing.T, ctx context.Context, creator *models.User, name string) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, CreatedBy: creator.ID}
	require.NoError(t, NewProjectRepository().Create(ctx, p))
	require.NoError(t, NewMemberRepository().Add(ctx, p.ID, creator.ID, clearance.RoleAttorney))
	return p
}

func createScript(t *testing.T, ctx context.Context, p *models.Project, uploader *models.User, version *string) *models.Script {
	t.Helper()
	s := &models.Script{ProjectID: p.ID, Filename: "draft.pdf", VersionName: version, UploadedBy: uploader.ID}
	require.NoError(t, NewScriptRepository().Create(ctx, s))
	return s
}

func createFlags(t *testing.T, ctx context.Context, s *models.Script, severities ...models.Severity) []*models.RiskFlag {
	t.Helper()
	flags := make([]*models.RiskFlag, len(severities))
	for i, sev := range severities {
		flags[i] = &models.RiskFlag{
			Category:    models.CategoryLocations,
			SubCategory: models.UnknownSubCategory,
			Severity:    sev,
			EntityName:  fmt.Sprintf("Entity %d", i),
			PageNumber:  i + 1,
			Status:      clearance.InitialStatus,
		}
	}
	require.NoError(t, NewRiskFlagRepository().CreateBatch(ctx, s.ID, flags))
	return flags
}

func strPtr(s string) *string { return &s }
