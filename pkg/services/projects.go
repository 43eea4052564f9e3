package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/metrics"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
)

// MemberInvite asks for a user to be added to a project with a role.
// An empty role means VIEWER.
type MemberInvite struct {
	UserID uuid.UUID      `json:"userId"`
	Role   clearance.Role `json:"role"`
}

// CreateProjectRequest is the input to ProjectService.Create.
type CreateProjectRequest struct {
	models.ProjectDetailsUpdate
	Members []MemberInvite `json:"members,omitempty"`
}

// ProjectService manages projects and their version timelines.
type ProjectService interface {
	// Create makes the creator an ATTORNEY member and adds any invited users.
	// Invites for the creator, for unknown users or for users already added
	// are skipped.
	Create(ctx context.Context, creatorID uuid.UUID, req CreateProjectRequest) (*models.ProjectOverview, error)
	// List returns the active projects the user is a member of.
	List(ctx context.Context, userID uuid.UUID) ([]*models.ProjectOverview, error)
	Get(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) (*models.ProjectOverview, error)
	Update(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, update models.ProjectDetailsUpdate) (*models.ProjectOverview, error)
	// Delete soft-deletes the project and all of its scripts.
	Delete(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) error
	Timeline(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) (*models.ProjectTimeline, error)
}

type projectService struct {
	projectRepo repositories.ProjectRepository
	memberRepo  repositories.MemberRepository
	userRepo    repositories.UserRepository
	scriptRepo  repositories.ScriptRepository
	access      AccessService
	metrics     *metrics.Metrics
	inTx        txRunner
	logger      *zap.Logger
}

var _ ProjectService = (*projectService)(nil)

// NewProjectService creates a ProjectService.
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	memberRepo repositories.MemberRepository,
	userRepo repositories.UserRepository,
	scriptRepo repositories.ScriptRepository,
	access AccessService,
	m *metrics.Metrics,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
		scriptRepo:  scriptRepo,
		access:      access,
		metrics:     m,
		inTx:        defaultTx,
		logger:      logger.Named("projects"),
	}
}

func (s *projectService) Create(ctx context.Context, creatorID uuid.UUID, req CreateProjectRequest) (*models.ProjectOverview, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: project name is required", apperrors.ErrInvalidInput)
	}
	for _, inv := range req.Members {
		if inv.Role != "" && !inv.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidInput, inv.Role)
		}
	}

	project := &models.Project{CreatedBy: creatorID}
	req.ProjectDetailsUpdate.Apply(project)
	project.Name = strings.TrimSpace(project.Name)

	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.projectRepo.Create(ctx, project); err != nil {
			return err
		}
		if err := s.memberRepo.Add(ctx, project.ID, creatorID, clearance.RoleAttorney); err != nil {
			return fmt.Errorf("failed to add creator: %w", err)
		}
		return s.addInvites(ctx, project.ID, creatorID, req.Members)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created project",
		zap.String("project_id", project.ID.String()),
		zap.String("created_by", creatorID.String()))

	return s.overview(ctx, project)
}

func (s *projectService) addInvites(ctx context.Context, projectID, creatorID uuid.UUID, invites []MemberInvite) error {
	seen := map[uuid.UUID]bool{creatorID: true}
	for _, inv := range invites {
		if seen[inv.UserID] {
			continue
		}
		seen[inv.UserID] = true

		if _, err := s.userRepo.GetByID(ctx, inv.UserID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.Debug("Skipping invite for unknown user", zap.String("user_id", inv.UserID.String()))
				continue
			}
			return err
		}

		role := inv.Role
		if role == "" {
			role = clearance.RoleViewer
		}
		if err := s.memberRepo.Add(ctx, projectID, inv.UserID, role); err != nil && !errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("failed to add invited member: %w", err)
		}
	}
	return nil
}

func (s *projectService) List(ctx context.Context, userID uuid.UUID) ([]*models.ProjectOverview, error) {
	projects, err := s.projectRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return []*models.ProjectOverview{}, nil
	}

	ids := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	members, err := s.memberRepo.ListByProjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.projectRepo.Counts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ProjectOverview, len(projects))
	for i, p := range projects {
		out[i] = &models.ProjectOverview{
			Project:      *p,
			Members:      nonNilMembers(members[p.ID]),
			TotalScripts: counts[p.ID].Scripts,
			TotalRisks:   counts[p.ID].Risks,
		}
	}
	return out, nil
}

func (s *projectService) Get(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) (*models.ProjectOverview, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.overview(ctx, project)
}

func (s *projectService) Update(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, update models.ProjectDetailsUpdate) (*models.ProjectOverview, error) {
	if err := authorize(s.metrics, actor, clearance.CapManageMembers); err != nil {
		return nil, err
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, fmt.Errorf("%w: project name cannot be blank", apperrors.ErrInvalidInput)
	}

	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	update.Apply(project)
	project.Name = strings.TrimSpace(project.Name)

	if err := s.projectRepo.UpdateDetails(ctx, project); err != nil {
		return nil, err
	}
	return s.overview(ctx, project)
}

func (s *projectService) Delete(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) error {
	if err := authorize(s.metrics, actor, clearance.CapDeleteProject); err != nil {
		return err
	}

	members, err := s.memberRepo.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.projectRepo.SoftDelete(ctx, projectID); err != nil {
		return err
	}
	for _, m := range members {
		s.access.Forget(ctx, projectID, m.UserID)
	}

	s.logger.Info("Deleted project",
		zap.String("project_id", projectID.String()),
		zap.String("actor", actor.String()))
	return nil
}

func (s *projectService) Timeline(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) (*models.ProjectTimeline, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	entries, err := s.scriptRepo.Timeline(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.TimelineEntry{}
	}

	timeline := &models.ProjectTimeline{
		ProjectID:     project.ID,
		ProjectName:   project.Name,
		TotalVersions: len(entries),
		Versions:      entries,
	}
	for _, e := range entries {
		timeline.TotalHighRisks += e.HighRisks
	}
	return timeline, nil
}

func (s *projectService) overview(ctx context.Context, project *models.Project) (*models.ProjectOverview, error) {
	members, err := s.memberRepo.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	counts, err := s.projectRepo.Counts(ctx, []uuid.UUID{project.ID})
	if err != nil {
		return nil, err
	}
	return &models.ProjectOverview{
		Project:      *project,
		Members:      nonNilMembers(members),
		TotalScripts: counts[project.ID].Scripts,
		TotalRisks:   counts[project.ID].Risks,
	}, nil
}

func nonNilMembers(m []*models.ProjectMember) []*models.ProjectMember {
	if m == nil {
		return []*models.ProjectMember{}
	}
	return m
}
