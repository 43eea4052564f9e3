package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/events"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
)

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type scopeMarkerKey struct{}

// markingRunner runs fn with ctx tagged as name so mocks can report which
// database scope a call ran in.
func markingRunner(name string) txRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(context.WithValue(ctx, scopeMarkerKey{}, name))
	}
}

func scopeMarker(ctx context.Context) string {
	name, _ := ctx.Value(scopeMarkerKey{}).(string)
	return name
}

// mockUserRepository keeps users in memory.
type mockUserRepository struct {
	users     map[uuid.UUID]*models.User
	createErr error
	touched   []uuid.UUID
	searchQ   string
	searchN   int
}

func newMockUserRepository(users ...*models.User) *mockUserRepository {
	m := &mockUserRepository{users: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) Create(ctx context.Context, u *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepository) GetByUsernames(ctx context.Context, usernames []string) ([]*models.User, error) {
	var out []*models.User
	for _, name := range usernames {
		for _, u := range m.users {
			if strings.EqualFold(u.Username, name) {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (m *mockUserRepository) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	m.searchQ, m.searchN = query, limit
	var out []*models.User
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.touched = append(m.touched, id)
	return nil
}

var _ repositories.UserRepository = (*mockUserRepository)(nil)

type memberKey struct{ project, user uuid.UUID }

// mockMemberRepository keeps memberships in memory.
type mockMemberRepository struct {
	roles     map[memberKey]clearance.Role
	getCalls  int
	removeErr error
}

func newMockMemberRepository() *mockMemberRepository {
	return &mockMemberRepository{roles: map[memberKey]clearance.Role{}}
}

func (m *mockMemberRepository) Add(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role) error {
	k := memberKey{projectID, userID}
	if _, ok := m.roles[k]; ok {
		return apperrors.ErrConflict
	}
	m.roles[k] = role
	return nil
}

func (m *mockMemberRepository) GetRole(ctx context.Context, projectID, userID uuid.UUID) (clearance.Role, error) {
	m.getCalls++
	if r, ok := m.roles[memberKey{projectID, userID}]; ok {
		return r, nil
	}
	return "", apperrors.ErrNotMember
}

func (m *mockMemberRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectMember, error) {
	var out []*models.ProjectMember
	for k, r := range m.roles {
		if k.project == projectID {
			out = append(out, &models.ProjectMember{ProjectID: projectID, UserID: k.user, Role: r})
		}
	}
	return out, nil
}

func (m *mockMemberRepository) ListByProjects(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]*models.ProjectMember, error) {
	out := map[uuid.UUID][]*models.ProjectMember{}
	for _, id := range projectIDs {
		members, _ := m.ListByProject(ctx, id)
		out[id] = members
	}
	return out, nil
}

func (m *mockMemberRepository) UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role) error {
	k := memberKey{projectID, userID}
	if _, ok := m.roles[k]; !ok {
		return apperrors.ErrNotMember
	}
	m.roles[k] = role
	return nil
}

func (m *mockMemberRepository) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	k := memberKey{projectID, userID}
	if _, ok := m.roles[k]; !ok {
		return apperrors.ErrNotMember
	}
	delete(m.roles, k)
	return nil
}

var _ repositories.MemberRepository = (*mockMemberRepository)(nil)

// mockProjectRepository keeps projects in memory.
type mockProjectRepository struct {
	projects    map[uuid.UUID]*models.Project
	counts      map[uuid.UUID]repositories.ProjectCounts
	members     *mockMemberRepository
	softDeleted []uuid.UUID
	createErr   error
}

func newMockProjectRepository(members *mockMemberRepository) *mockProjectRepository {
	return &mockProjectRepository{
		projects: map[uuid.UUID]*models.Project{},
		counts:   map[uuid.UUID]repositories.ProjectCounts{},
		members:  members,
	}
}

func (m *mockProjectRepository) Create(ctx context.Context, p *models.Project) error {
	if m.createErr != nil {
		return m.createErr
	}
	p.ID = uuid.New()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProjectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	var out []*models.Project
	for id, p := range m.projects {
		if _, ok := m.members.roles[memberKey{id, userID}]; ok && p.DeletedAt == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockProjectRepository) UpdateDetails(ctx context.Context, p *models.Project) error {
	if _, ok := m.projects[p.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjectRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	m.softDeleted = append(m.softDeleted, id)
	return nil
}

func (m *mockProjectRepository) Counts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]repositories.ProjectCounts, error) {
	out := map[uuid.UUID]repositories.ProjectCounts{}
	for _, id := range ids {
		out[id] = m.counts[id]
	}
	return out, nil
}

var _ repositories.ProjectRepository = (*mockProjectRepository)(nil)

// mockScriptRepository keeps scripts in memory.
type mockScriptRepository struct {
	scripts    map[uuid.UUID]*models.Script
	active     int
	finished   []models.ScriptStatus
	finishedIn []string
	finishErr  map[models.ScriptStatus]error
	timeline   []*models.TimelineEntry
}

func newMockScriptRepository() *mockScriptRepository {
	return &mockScriptRepository{scripts: map[uuid.UUID]*models.Script{}}
}

func (m *mockScriptRepository) Create(ctx context.Context, s *models.Script) error {
	s.ID = uuid.New()
	s.UploadedAt = time.Now()
	cp := *s
	m.scripts[s.ID] = &cp
	return nil
}

func (m *mockScriptRepository) Get(ctx context.Context, projectID, scriptID uuid.UUID) (*models.Script, error) {
	s, ok := m.scripts[scriptID]
	if !ok || s.ProjectID != projectID || s.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockScriptRepository) CountActive(ctx context.Context, projectID uuid.UUID) (int, error) {
	return m.active, nil
}

func (m *mockScriptRepository) FinishAnalysis(ctx context.Context, scriptID uuid.UUID, status models.ScriptStatus, totalPages, riskCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.finishErr[status]; err != nil {
		return err
	}
	m.finished = append(m.finished, status)
	m.finishedIn = append(m.finishedIn, scopeMarker(ctx))
	if s, ok := m.scripts[scriptID]; ok {
		s.Status, s.TotalPages, s.RiskCount = status, totalPages, riskCount
	}
	return nil
}

func (m *mockScriptRepository) Rename(ctx context.Context, projectID, scriptID uuid.UUID, versionName *string) error {
	s, ok := m.scripts[scriptID]
	if !ok || s.ProjectID != projectID || s.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	s.VersionName = versionName
	return nil
}

func (m *mockScriptRepository) SoftDelete(ctx context.Context, projectID, scriptID uuid.UUID) error {
	s, ok := m.scripts[scriptID]
	if !ok || s.ProjectID != projectID || s.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	s.DeletedAt = &now
	return nil
}

func (m *mockScriptRepository) Timeline(ctx context.Context, projectID uuid.UUID) ([]*models.TimelineEntry, error) {
	return m.timeline, nil
}

var _ repositories.ScriptRepository = (*mockScriptRepository)(nil)

// mockRiskFlagRepository keeps flags in memory, keyed to a single project.
type mockRiskFlagRepository struct {
	projectID uuid.UUID
	flags     map[uuid.UUID]*models.RiskFlag
	order     []uuid.UUID
	updates   int
	batchErr  error
	batchIn   string
	lockedIn  []string
	updatedIn []string
}

func newMockRiskFlagRepository(projectID uuid.UUID) *mockRiskFlagRepository {
	return &mockRiskFlagRepository{projectID: projectID, flags: map[uuid.UUID]*models.RiskFlag{}}
}

func (m *mockRiskFlagRepository) add(f *models.RiskFlag) *models.RiskFlag {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	cp := *f
	m.flags[f.ID] = &cp
	m.order = append(m.order, f.ID)
	return f
}

func (m *mockRiskFlagRepository) CreateBatch(ctx context.Context, scriptID uuid.UUID, flags []*models.RiskFlag) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.batchIn = scopeMarker(ctx)
	for _, f := range flags {
		f.ID = uuid.New()
		f.ScriptID = scriptID
		m.add(f)
	}
	return nil
}

func (m *mockRiskFlagRepository) Get(ctx context.Context, projectID, riskID uuid.UUID) (*models.RiskFlag, error) {
	f, ok := m.flags[riskID]
	if !ok || projectID != m.projectID {
		return nil, apperrors.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockRiskFlagRepository) GetForUpdate(ctx context.Context, projectID, riskID uuid.UUID) (*models.RiskFlag, error) {
	m.lockedIn = append(m.lockedIn, scopeMarker(ctx))
	return m.Get(ctx, projectID, riskID)
}

func (m *mockRiskFlagRepository) ListByScript(ctx context.Context, scriptID uuid.UUID) ([]*models.RiskFlag, error) {
	var out []*models.RiskFlag
	for _, id := range m.order {
		if f := m.flags[id]; f.ScriptID == scriptID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRiskFlagRepository) Update(ctx context.Context, f *models.RiskFlag) error {
	if _, ok := m.flags[f.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.updates++
	m.updatedIn = append(m.updatedIn, scopeMarker(ctx))
	cp := *f
	m.flags[f.ID] = &cp
	return nil
}

var _ repositories.RiskFlagRepository = (*mockRiskFlagRepository)(nil)

type mockCommentRepository struct {
	comments []*models.Comment
}

func (m *mockCommentRepository) Create(ctx context.Context, c *models.Comment) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.comments = append(m.comments, c)
	return nil
}

func (m *mockCommentRepository) ListByRisk(ctx context.Context, riskID uuid.UUID) ([]*models.Comment, error) {
	var out []*models.Comment
	for _, c := range m.comments {
		if c.RiskID == riskID {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ repositories.CommentRepository = (*mockCommentRepository)(nil)

type mockNotificationRepository struct {
	created []*models.Notification
	unread  int
	marked  []uuid.UUID
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.New()
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range m.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return m.unread, nil
}

func (m *mockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	m.marked = append(m.marked, userID)
	return nil
}

var _ repositories.NotificationRepository = (*mockNotificationRepository)(nil)

// mockPublisher records published events.
type mockPublisher struct {
	mu            sync.Mutex
	statusChanges []events.RiskStatusChanged
	mentions      []events.UserMentioned
	analyzed      []events.ScriptAnalyzed
}

func (p *mockPublisher) PublishRiskStatusChanged(ctx context.Context, e events.RiskStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanges = append(p.statusChanges, e)
	return nil
}

func (p *mockPublisher) PublishUserMentioned(ctx context.Context, e events.UserMentioned) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mentions = append(p.mentions, e)
	return nil
}

func (p *mockPublisher) PublishScriptAnalyzed(ctx context.Context, e events.ScriptAnalyzed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analyzed = append(p.analyzed, e)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

var _ events.Publisher = (*mockPublisher)(nil)

// mockRoleCache is an in-memory role cache.
type mockRoleCache struct {
	roles       map[memberKey]clearance.Role
	invalidated []memberKey
}

func newMockRoleCache() *mockRoleCache {
	return &mockRoleCache{roles: map[memberKey]clearance.Role{}}
}

func (c *mockRoleCache) Get(ctx context.Context, projectID, userID uuid.UUID) (clearance.Role, bool) {
	r, ok := c.roles[memberKey{projectID, userID}]
	return r, ok
}

func (c *mockRoleCache) Set(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role) {
	c.roles[memberKey{projectID, userID}] = role
}

func (c *mockRoleCache) Invalidate(ctx context.Context, projectID, userID uuid.UUID) {
	k := memberKey{projectID, userID}
	delete(c.roles, k)
	c.invalidated = append(c.invalidated, k)
}

type mockTokenIssuer struct{}

func (mockTokenIssuer) Issue(userID uuid.UUID, username, email string) (string, time.Time, error) {
	return "token-for-" + username, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), nil
}

func actorOf(role clearance.Role) clearance.Actor {
	return clearance.Actor{UserID: uuid.New(), Role: role}
}
