package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// withActor returns a request context carrying claims for the actor's user
// and the actor itself, as the middleware chain would.
func withActor(r *http.Request, actor clearance.Actor) *http.Request {
	ctx := withClaimsContext(r.Context(), actor.UserID)
	return r.WithContext(auth.WithActor(ctx, actor))
}

func withClaims(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(withClaimsContext(r.Context(), userID))
}

func withClaimsContext(ctx context.Context, userID uuid.UUID) context.Context {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
		Username:         "ana",
		Email:            "ana@example.com",
	}
	return context.WithValue(ctx, auth.ClaimsKey, claims)
}

type stubAuthService struct {
	claims *auth.Claims
}

func (s *stubAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	if s.claims == nil {
		return nil, "", errors.New("no token")
	}
	return s.claims, "token", nil
}

type mockAccessService struct {
	actor      clearance.Actor
	resolveErr error
	view       *services.AccessView
}

func (m *mockAccessService) ResolveActor(ctx context.Context, projectID, userID uuid.UUID) (clearance.Actor, error) {
	if m.resolveErr != nil {
		return clearance.Actor{}, m.resolveErr
	}
	return m.actor, nil
}

func (m *mockAccessService) View(actor clearance.Actor) (*services.AccessView, error) {
	return m.view, nil
}

func (m *mockAccessService) Forget(ctx context.Context, projectID, userID uuid.UUID) {}

type mockAccountService struct {
	session    *services.Session
	err        error
	registered services.RegisterRequest
	loginEmail string
}

func (m *mockAccountService) Register(ctx context.Context, req services.RegisterRequest) (*services.Session, error) {
	m.registered = req
	return m.session, m.err
}

func (m *mockAccountService) Login(ctx context.Context, email, password string) (*services.Session, error) {
	m.loginEmail = email
	return m.session, m.err
}

type mockUserService struct {
	users []models.UserSummary
	query string
}

func (m *mockUserService) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	m.query = query
	return m.users, nil
}

type mockProjectService struct {
	overview  *models.ProjectOverview
	projects  []*models.ProjectOverview
	timeline  *models.ProjectTimeline
	err       error
	creatorID uuid.UUID
	created   services.CreateProjectRequest
	update    models.ProjectDetailsUpdate
	deleted   uuid.UUID
}

func (m *mockProjectService) Create(ctx context.Context, creatorID uuid.UUID, req services.CreateProjectRequest) (*models.ProjectOverview, error) {
	m.creatorID = creatorID
	m.created = req
	return m.overview, m.err
}

func (m *mockProjectService) List(ctx context.Context, userID uuid.UUID) ([]*models.ProjectOverview, error) {
	return m.projects, m.err
}

func (m *mockProjectService) Get(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) (*models.ProjectOverview, error) {
	return m.overview, m.err
}

func (m *mockProjectService) Update(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, update models.ProjectDetailsUpdate) (*models.ProjectOverview, error) {
	m.update = update
	return m.overview, m.err
}

func (m *mockProjectService) Delete(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) error {
	m.deleted = projectID
	return m.err
}

func (m *mockProjectService) Timeline(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) (*models.ProjectTimeline, error) {
	return m.timeline, m.err
}

type mockMemberService struct {
	members []*models.ProjectMember
	err     error
	invite  services.MemberInvite
	role    clearance.Role
	target  uuid.UUID
}

func (m *mockMemberService) List(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) ([]*models.ProjectMember, error) {
	return m.members, m.err
}

func (m *mockMemberService) Add(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, invite services.MemberInvite) ([]*models.ProjectMember, error) {
	m.invite = invite
	return m.members, m.err
}

func (m *mockMemberService) UpdateRole(ctx context.Context, actor clearance.Actor, projectID, userID uuid.UUID, role clearance.Role) ([]*models.ProjectMember, error) {
	m.target = userID
	m.role = role
	return m.members, m.err
}

func (m *mockMemberService) Remove(ctx context.Context, actor clearance.Actor, projectID, userID uuid.UUID) error {
	m.target = userID
	return m.err
}

type mockScriptService struct {
	detail   *models.ScriptDetail
	script   *models.Script
	file     *services.ExportFile
	err      error
	upload   services.UploadRequest
	uploaded []byte
	filter   models.RiskFilter
	renamed  string
}

func (m *mockScriptService) Upload(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, req services.UploadRequest) (*models.ScriptDetail, error) {
	m.upload = req
	if req.Content != nil {
		m.uploaded, _ = io.ReadAll(req.Content)
	}
	return m.detail, m.err
}

func (m *mockScriptService) Get(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID, filter models.RiskFilter) (*models.ScriptDetail, error) {
	m.filter = filter
	return m.detail, m.err
}

func (m *mockScriptService) Rename(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID, versionName string) (*models.Script, error) {
	m.renamed = versionName
	return m.script, m.err
}

func (m *mockScriptService) Delete(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID) error {
	return m.err
}

func (m *mockScriptService) Export(ctx context.Context, actor clearance.Actor, projectID, scriptID uuid.UUID) (*services.ExportFile, error) {
	return m.file, m.err
}

type mockRiskService struct {
	risk   *models.RiskFlag
	err    error
	update models.RiskFlagUpdate
}

func (m *mockRiskService) Get(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID) (*models.RiskFlag, error) {
	return m.risk, m.err
}

func (m *mockRiskService) Update(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID, update models.RiskFlagUpdate) (*models.RiskFlag, error) {
	m.update = update
	return m.risk, m.err
}

type mockCommentService struct {
	comments []*models.Comment
	comment  *models.Comment
	err      error
	text     string
}

func (m *mockCommentService) List(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID) ([]*models.Comment, error) {
	return m.comments, m.err
}

func (m *mockCommentService) Add(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID, text string) (*models.Comment, error) {
	m.text = text
	return m.comment, m.err
}

type mockNotificationService struct {
	notifications []*models.Notification
	unread        int
	err           error
	markedFor     uuid.UUID
}

func (m *mockNotificationService) List(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	return m.notifications, m.err
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return m.unread, m.err
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	m.markedFor = userID
	return m.err
}

var (
	_ services.AccessService       = (*mockAccessService)(nil)
	_ services.AccountService      = (*mockAccountService)(nil)
	_ services.UserService         = (*mockUserService)(nil)
	_ services.ProjectService      = (*mockProjectService)(nil)
	_ services.MemberService       = (*mockMemberService)(nil)
	_ services.ScriptService       = (*mockScriptService)(nil)
	_ services.RiskService         = (*mockRiskService)(nil)
	_ services.CommentService      = (*mockCommentService)(nil)
	_ services.NotificationService = (*mockNotificationService)(nil)
	_ auth.AuthService             = (*stubAuthService)(nil)
)
