package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/events"
	"github.com/scriptsentries/clearance-engine/pkg/metrics"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
	"github.com/scriptsentries/clearance-engine/pkg/validation"
)

// RiskService applies reviewer decisions to risk flags.
type RiskService interface {
	Get(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID) (*models.RiskFlag, error)
	// Update applies a partial update. Every present field is authorized
	// before anything is written; a single refusal rejects the whole update.
	Update(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID, update models.RiskFlagUpdate) (*models.RiskFlag, error)
}

type riskService struct {
	riskRepo  repositories.RiskFlagRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	inTx      txRunner
	logger    *zap.Logger
}

var _ RiskService = (*riskService)(nil)

// NewRiskService creates a RiskService.
func NewRiskService(riskRepo repositories.RiskFlagRepository, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) RiskService {
	return &riskService{
		riskRepo:  riskRepo,
		publisher: publisher,
		metrics:   m,
		inTx:      defaultTx,
		logger:    logger.Named("risks"),
	}
}

func (s *riskService) Get(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID) (*models.RiskFlag, error) {
	return s.riskRepo.Get(ctx, projectID, riskID)
}

func (s *riskService) Update(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID, update models.RiskFlagUpdate) (*models.RiskFlag, error) {
	if update.IsEmpty() {
		return s.riskRepo.Get(ctx, projectID, riskID)
	}

	var flag *models.RiskFlag
	var previous clearance.ClearanceStatus
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		flag, err = s.riskRepo.GetForUpdate(ctx, projectID, riskID)
		if err != nil {
			return err
		}
		previous = flag.Status
		if err := s.apply(actor, flag, update); err != nil {
			return err
		}
		return s.riskRepo.Update(ctx, flag)
	})
	if err != nil {
		return nil, err
	}

	if update.IsRedacted != nil {
		s.logger.Info("Redaction changed",
			zap.String("risk_id", riskID.String()),
			zap.Bool("redacted", flag.IsRedacted),
			zap.String("actor", actor.String()))
	}
	if flag.Status != previous {
		if err := s.publisher.PublishRiskStatusChanged(ctx, events.RiskStatusChanged{
			ProjectID: projectID,
			RiskID:    flag.ID,
			ActorID:   actor.UserID,
			ActorRole: string(actor.Role),
			From:      string(previous),
			To:        string(flag.Status),
		}); err != nil {
			s.logger.Warn("Failed to publish status change", zap.Error(err))
		}
	}
	return flag, nil
}

// apply authorizes every present field of update and then writes them onto
// flag. Nothing is changed when any field is refused.
func (s *riskService) apply(actor clearance.Actor, flag *models.RiskFlag, update models.RiskFlagUpdate) error {
	next := flag.Status
	if update.Status != nil {
		var err error
		next, err = clearance.AttemptTransition(flag.Status, clearance.ClearanceStatus(*update.Status), actor.Role)
		s.metrics.RecordDecision("TransitionStatus", string(actor.Role), decisionOutcome(err))
		if err != nil {
			if errors.Is(err, clearance.ErrInvalidStatus) {
				s.logger.Error("Rejected status outside the known set",
					zap.String("risk_id", flag.ID.String()),
					zap.String("requested", *update.Status),
					zap.String("role", string(actor.Role)),
					zap.Error(err))
			}
			return err
		}
	}
	if update.Comments != nil || update.Restrictions != nil {
		if err := authorize(s.metrics, actor, clearance.CapEditRiskAnnotations); err != nil {
			return err
		}
	}
	if update.IsRedacted != nil {
		if err := authorize(s.metrics, actor, clearance.CapEditRiskStatus); err != nil {
			return err
		}
	}

	if update.Comments != nil {
		if err := validation.CheckAnnotation("comments", *update.Comments); err != nil {
			return err
		}
	}
	if update.Restrictions != nil {
		if err := validation.CheckAnnotation("restrictions", *update.Restrictions); err != nil {
			return err
		}
	}

	flag.Status = next
	if update.Comments != nil {
		flag.Comments = *update.Comments
	}
	if update.Restrictions != nil {
		flag.Restrictions = *update.Restrictions
	}
	if update.IsRedacted != nil {
		flag.IsRedacted = *update.IsRedacted
	}
	return nil
}
