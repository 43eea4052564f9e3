package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/cache"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
)

// AccessView is what a client needs to enable or disable controls for the
// caller in one project.
type AccessView struct {
	Role         clearance.Role              `json:"role"`
	Capabilities []clearance.Capability      `json:"capabilities"`
	ReadOnly     bool                        `json:"readOnly"`
	CanAnnotate  bool                        `json:"canAnnotate"`
	Statuses     []clearance.ClearanceStatus `json:"statuses"`
}

// AccessService resolves project membership into an actor.
type AccessService interface {
	// ResolveActor returns the caller's actor for the project, or
	// apperrors.ErrNotMember.
	ResolveActor(ctx context.Context, projectID, userID uuid.UUID) (clearance.Actor, error)
	// View describes what actor may do.
	View(actor clearance.Actor) (*AccessView, error)
	// Forget drops any cached role for the membership.
	Forget(ctx context.Context, projectID, userID uuid.UUID)
}

type accessService struct {
	memberRepo repositories.MemberRepository
	roles      cache.RoleCache
	logger     *zap.Logger
}

var _ AccessService = (*accessService)(nil)

// NewAccessService creates an AccessService. roles may be cache.NoopRoleCache{}.
func NewAccessService(memberRepo repositories.MemberRepository, roles cache.RoleCache, logger *zap.Logger) AccessService {
	return &accessService{
		memberRepo: memberRepo,
		roles:      roles,
		logger:     logger.Named("access"),
	}
}

func (s *accessService) ResolveActor(ctx context.Context, projectID, userID uuid.UUID) (clearance.Actor, error) {
	if role, ok := s.roles.Get(ctx, projectID, userID); ok {
		return clearance.Actor{UserID: userID, Role: role}, nil
	}

	role, err := s.memberRepo.GetRole(ctx, projectID, userID)
	if err != nil {
		return clearance.Actor{}, err
	}
	if !role.Valid() {
		s.logger.Error("Membership row holds an unknown role",
			zap.String("project_id", projectID.String()),
			zap.String("user_id", userID.String()),
			zap.String("role", string(role)))
		return clearance.Actor{}, &clearance.UnknownRoleError{Role: role}
	}

	s.roles.Set(ctx, projectID, userID, role)
	return clearance.Actor{UserID: userID, Role: role}, nil
}

func (s *accessService) View(actor clearance.Actor) (*AccessView, error) {
	caps, err := clearance.Capabilities(actor.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to list capabilities: %w", err)
	}
	return &AccessView{
		Role:         actor.Role,
		Capabilities: caps,
		ReadOnly:     clearance.IsReadOnly(actor.Role),
		CanAnnotate:  clearance.CanAnnotate(actor.Role),
		Statuses:     clearance.AllStatuses(),
	}, nil
}

func (s *accessService) Forget(ctx context.Context, projectID, userID uuid.UUID) {
	s.roles.Invalidate(ctx, projectID, userID)
}
