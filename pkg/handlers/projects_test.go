package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

func TestProjectsHandler_Create(t *testing.T) {
	userID := uuid.New()
	invitee := uuid.New()
	projects := &mockProjectService{overview: &models.ProjectOverview{
		Project: models.Project{ID: uuid.New(), Name: "Night Shift"},
	}}
	h := NewProjectsHandler(projects, &mockAccessService{}, zap.NewNop())

	body := `{"name":"Night Shift","director":"R. Vale","members":[{"userId":"` + invitee.String() + `","role":"ANALYST"}]}`
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(body)), userID)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, userID, projects.creatorID)
	require.NotNil(t, projects.created.Name)
	assert.Equal(t, "Night Shift", *projects.created.Name)
	require.Len(t, projects.created.Members, 1)
	assert.Equal(t, invitee, projects.created.Members[0].UserID)
	assert.Equal(t, clearance.RoleAnalyst, projects.created.Members[0].Role)

	var got models.ProjectOverview
	decodeData(t, rec, &got)
	assert.Equal(t, "Night Shift", got.Name)
}

func TestProjectsHandler_Create_Unauthenticated(t *testing.T) {
	h := NewProjectsHandler(&mockProjectService{}, &mockAccessService{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectsHandler_Update_Denied(t *testing.T) {
	projects := &mockProjectService{err: &clearance.DeniedError{Role: clearance.RoleViewer, Capability: clearance.CapManageMembers}}
	h := NewProjectsHandler(projects, &mockAccessService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPatch, "/api/projects/x", strings.NewReader(`{"genre":"Drama"}`))
	req.SetPathValue("pid", uuid.NewString())
	req = withActor(req, clearance.Actor{UserID: uuid.New(), Role: clearance.RoleViewer})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, projects.update.Genre)
	assert.Equal(t, "Drama", *projects.update.Genre)
	assert.Equal(t, "Only Attorneys and Analysts can manage members", decodeError(t, rec)["message"])
}

func TestProjectsHandler_Delete(t *testing.T) {
	projectID := uuid.New()
	projects := &mockProjectService{}
	h := NewProjectsHandler(projects, &mockAccessService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodDelete, "/api/projects/x", nil)
	req.SetPathValue("pid", projectID.String())
	req = withActor(req, clearance.Actor{UserID: uuid.New(), Role: clearance.RoleAttorney})
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, projectID, projects.deleted)
}

func TestProjectsHandler_Get_NotFound(t *testing.T) {
	h := NewProjectsHandler(&mockProjectService{err: apperrors.ErrNotFound}, &mockAccessService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects/x", nil)
	req.SetPathValue("pid", uuid.NewString())
	req = withActor(req, clearance.Actor{UserID: uuid.New(), Role: clearance.RoleViewer})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectsHandler_Access(t *testing.T) {
	view := &services.AccessView{Role: clearance.RoleViewer, ReadOnly: true}
	h := NewProjectsHandler(&mockProjectService{}, &mockAccessService{view: view}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects/x/access", nil)
	req.SetPathValue("pid", uuid.NewString())
	req = withActor(req, clearance.Actor{UserID: uuid.New(), Role: clearance.RoleViewer})
	rec := httptest.NewRecorder()
	h.Access(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got services.AccessView
	decodeData(t, rec, &got)
	assert.True(t, got.ReadOnly)
	assert.Equal(t, clearance.RoleViewer, got.Role)
}

func TestProjectsHandler_RegisterRoutes(t *testing.T) {
	userID := uuid.New()
	projectID := uuid.New()
	passthrough := func(next http.HandlerFunc) http.HandlerFunc { return next }

	projects := &mockProjectService{overview: &models.ProjectOverview{Project: models.Project{ID: projectID, Name: "Night Shift"}}}
	access := &mockAccessService{actor: clearance.Actor{UserID: userID, Role: clearance.RoleViewer}}

	authed := &stubAuthService{claims: &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()}}}
	mux := http.NewServeMux()
	NewProjectsHandler(projects, access, zap.NewNop()).RegisterRoutes(mux,
		auth.NewMiddleware(authed, zap.NewNop()), passthrough, NewMembershipMiddleware(access, zap.NewNop()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+projectID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	anonymous := http.NewServeMux()
	NewProjectsHandler(projects, access, zap.NewNop()).RegisterRoutes(anonymous,
		auth.NewMiddleware(&stubAuthService{}, zap.NewNop()), passthrough, NewMembershipMiddleware(access, zap.NewNop()))

	rec = httptest.NewRecorder()
	anonymous.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
