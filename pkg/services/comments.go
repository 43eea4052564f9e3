package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/events"
	"github.com/scriptsentries/clearance-engine/pkg/metrics"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
	"github.com/scriptsentries/clearance-engine/pkg/validation"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// mentionExcerptLength bounds the comment text quoted in a notification.
const mentionExcerptLength = 80

// CommentService manages discussion threads on risk flags.
type CommentService interface {
	List(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID) ([]*models.Comment, error)
	// Add posts a comment and notifies every @mentioned user except the author.
	Add(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID, text string) (*models.Comment, error)
}

type commentService struct {
	commentRepo      repositories.CommentRepository
	riskRepo         repositories.RiskFlagRepository
	userRepo         repositories.UserRepository
	notificationRepo repositories.NotificationRepository
	publisher        events.Publisher
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

var _ CommentService = (*commentService)(nil)

// NewCommentService creates a CommentService.
func NewCommentService(
	commentRepo repositories.CommentRepository,
	riskRepo repositories.RiskFlagRepository,
	userRepo repositories.UserRepository,
	notificationRepo repositories.NotificationRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) CommentService {
	return &commentService{
		commentRepo:      commentRepo,
		riskRepo:         riskRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		metrics:          m,
		logger:           logger.Named("comments"),
	}
}

func (s *commentService) List(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID) ([]*models.Comment, error) {
	if _, err := s.riskRepo.Get(ctx, projectID, riskID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByRisk(ctx, riskID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

func (s *commentService) Add(ctx context.Context, actor clearance.Actor, projectID, riskID uuid.UUID, text string) (*models.Comment, error) {
	if err := authorize(s.metrics, actor, clearance.CapEditRiskAnnotations); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", apperrors.ErrInvalidInput)
	}
	if err := validation.CheckAnnotation("text", text); err != nil {
		return nil, err
	}

	risk, err := s.riskRepo.Get(ctx, projectID, riskID)
	if err != nil {
		return nil, err
	}
	author, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{RiskID: risk.ID, UserID: author.ID, Username: author.Username, Text: text}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.Info("Comment added",
		zap.String("risk_id", risk.ID.String()),
		zap.String("author", author.Username))

	s.notifyMentions(ctx, projectID, risk, author, comment)
	return comment, nil
}

// notifyMentions creates one notification per distinct mentioned user.
// Failures are logged; the comment itself is already saved.
func (s *commentService) notifyMentions(ctx context.Context, projectID uuid.UUID, risk *models.RiskFlag, author *models.User, comment *models.Comment) {
	names := MentionedUsernames(comment.Text, author.Username)
	if len(names) == 0 {
		return
	}

	users, err := s.userRepo.GetByUsernames(ctx, names)
	if err != nil {
		s.logger.Error("Failed to resolve mentions", zap.Error(err))
		return
	}

	message := MentionMessage(author.Username, risk, comment.Text)
	for _, u := range users {
		if u.ID == author.ID {
			continue
		}
		n := &models.Notification{
			UserID:    u.ID,
			ProjectID: &projectID,
			RiskID:    &risk.ID,
			Message:   message,
		}
		if err := s.notificationRepo.Create(ctx, n); err != nil {
			s.logger.Error("Failed to create mention notification",
				zap.String("user_id", u.ID.String()),
				zap.Error(err))
			continue
		}

		if err := s.publisher.PublishUserMentioned(ctx, events.UserMentioned{
			ProjectID:       projectID,
			RiskID:          risk.ID,
			CommentID:       comment.ID,
			AuthorID:        author.ID,
			MentionedUserID: u.ID,
		}); err != nil {
			s.logger.Warn("Failed to publish mention event", zap.Error(err))
		}
	}
}

// MentionedUsernames returns the distinct @usernames in text, lower-cased,
// in order of first appearance, excluding self.
func MentionedUsernames(text, self string) []string {
	var out []string
	seen := map[string]bool{strings.ToLower(self): true}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// MentionMessage renders the notification text for a mention.
func MentionMessage(author string, risk *models.RiskFlag, text string) string {
	excerpt := text
	if r := []rune(text); len(r) > mentionExcerptLength {
		excerpt = string(r[:mentionExcerptLength]) + "..."
	}
	return fmt.Sprintf("@%s mentioned you in a comment on risk #%s (%s): \"%s\"",
		author, shortID(risk.ID), risk.EntityName, excerpt)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
