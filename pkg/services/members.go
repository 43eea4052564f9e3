package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/metrics"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
)

// MemberService manages project memberships.
type MemberService interface {
	List(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) ([]*models.ProjectMember, error)
	Add(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, invite MemberInvite) ([]*models.ProjectMember, error)
	// UpdateRole changes a member's role. The creator's role is fixed.
	UpdateRole(ctx context.Context, actor clearance.Actor, projectID, userID uuid.UUID, role clearance.Role) ([]*models.ProjectMember, error)
	// Remove deletes a membership. The creator cannot be removed.
	Remove(ctx context.Context, actor clearance.Actor, projectID, userID uuid.UUID) error
}

type memberService struct {
	projectRepo repositories.ProjectRepository
	memberRepo  repositories.MemberRepository
	userRepo    repositories.UserRepository
	access      AccessService
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

var _ MemberService = (*memberService)(nil)

// NewMemberService creates a MemberService.
func NewMemberService(
	projectRepo repositories.ProjectRepository,
	memberRepo repositories.MemberRepository,
	userRepo repositories.UserRepository,
	access AccessService,
	m *metrics.Metrics,
	logger *zap.Logger,
) MemberService {
	return &memberService{
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
		access:      access,
		metrics:     m,
		logger:      logger.Named("members"),
	}
}

func (s *memberService) List(ctx context.Context, actor clearance.Actor, projectID uuid.UUID) ([]*models.ProjectMember, error) {
	members, err := s.memberRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return nonNilMembers(members), nil
}

func (s *memberService) Add(ctx context.Context, actor clearance.Actor, projectID uuid.UUID, invite MemberInvite) ([]*models.ProjectMember, error) {
	role := invite.Role
	if role == "" {
		role = clearance.RoleViewer
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidInput, role)
	}

	err := clearance.CheckInvite(actor.Role, role)
	s.metrics.RecordDecision("AddMember", string(actor.Role), decisionOutcome(err))
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByID(ctx, invite.UserID); err != nil {
		return nil, err
	}
	if err := s.memberRepo.Add(ctx, projectID, invite.UserID, role); err != nil {
		return nil, err
	}
	s.access.Forget(ctx, projectID, invite.UserID)

	s.logger.Info("Added project member",
		zap.String("project_id", projectID.String()),
		zap.String("user_id", invite.UserID.String()),
		zap.String("role", string(role)),
		zap.String("actor", actor.String()))

	return s.List(ctx, actor, projectID)
}

func (s *memberService) UpdateRole(ctx context.Context, actor clearance.Actor, projectID, userID uuid.UUID, role clearance.Role) ([]*models.ProjectMember, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidInput, role)
	}
	err := clearance.CheckInvite(actor.Role, role)
	s.metrics.RecordDecision("UpdateMemberRole", string(actor.Role), decisionOutcome(err))
	if err != nil {
		return nil, err
	}

	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if clearance.IsCreatorMembership(userID, project.CreatedBy) {
		return nil, apperrors.ErrCreatorProtected
	}

	if err := s.memberRepo.UpdateRole(ctx, projectID, userID, role); err != nil {
		return nil, err
	}
	s.access.Forget(ctx, projectID, userID)

	s.logger.Info("Changed member role",
		zap.String("project_id", projectID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
		zap.String("actor", actor.String()))

	return s.List(ctx, actor, projectID)
}

func (s *memberService) Remove(ctx context.Context, actor clearance.Actor, projectID, userID uuid.UUID) error {
	if err := authorize(s.metrics, actor, clearance.CapManageMembers); err != nil {
		return err
	}

	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if clearance.IsCreatorMembership(userID, project.CreatedBy) {
		return apperrors.ErrCreatorProtected
	}

	if err := s.memberRepo.Remove(ctx, projectID, userID); err != nil {
		return err
	}
	s.access.Forget(ctx, projectID, userID)

	s.logger.Info("Removed project member",
		zap.String("project_id", projectID.String()),
		zap.String("user_id", userID.String()),
		zap.String("actor", actor.String()))
	return nil
}
