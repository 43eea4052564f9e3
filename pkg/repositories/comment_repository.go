package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/scriptsentries/clearance-engine/pkg/database"
	"github.com/scriptsentries/clearance-engine/pkg/models"
)

// CommentRepository defines the interface for risk discussion threads.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByRisk(ctx context.Context, riskID uuid.UUID) ([]*models.Comment, error)
}

type commentRepository struct{}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository() CommentRepository {
	return &commentRepository{}
}

var _ CommentRepository = (*commentRepository)(nil)

func (r *commentRepository) Create(ctx context.Context, c *models.Comment) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO comments (risk_id, user_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, c.RiskID, c.UserID, c.Text).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListByRisk returns the thread oldest first.
func (r *commentRepository) ListByRisk(ctx context.Context, riskID uuid.UUID) ([]*models.Comment, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT c.id, c.risk_id, c.user_id, u.username, c.text, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.risk_id = $1
		ORDER BY c.created_at`, riskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.RiskID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}
