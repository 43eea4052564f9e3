package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/database"
	"github.com/scriptsentries/clearance-engine/pkg/models"
)

// MemberRepository defines the interface for project membership data access.
type MemberRepository interface {
	// Add inserts a membership. An existing membership returns apperrors.ErrConflict.
	Add(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role) error
	// GetRole returns apperrors.ErrNotMember when the user has no membership.
	GetRole(ctx context.Context, projectID, userID uuid.UUID) (clearance.Role, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectMember, error)
	ListByProjects(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]*models.ProjectMember, error)
	UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role) error
	Remove(ctx context.Context, projectID, userID uuid.UUID) error
}

type memberRepository struct{}

// NewMemberRepository creates a new membership repository.
func NewMemberRepository() MemberRepository {
	return &memberRepository{}
}

var _ MemberRepository = (*memberRepository)(nil)

func (r *memberRepository) Add(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx,
		`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
		projectID, userID, string(role))
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *memberRepository) GetRole(ctx context.Context, projectID, userID uuid.UUID) (clearance.Role, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return "", err
	}

	var role string
	err = q.QueryRow(ctx, `
		SELECT m.role
		FROM project_members m
		JOIN projects p ON p.id = m.project_id
		WHERE m.project_id = $1 AND m.user_id = $2 AND p.deleted_at IS NULL`,
		projectID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotMember
		}
		return "", fmt.Errorf("failed to get member role: %w", err)
	}
	return clearance.Role(role), nil
}

const memberSelect = `
	SELECT m.project_id, m.user_id, u.username, u.email, m.role, m.joined_at
	FROM project_members m
	JOIN users u ON u.id = m.user_id`

func (r *memberRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectMember, error) {
	byProject, err := r.ListByProjects(ctx, []uuid.UUID{projectID})
	if err != nil {
		return nil, err
	}
	return byProject[projectID], nil
}

func (r *memberRepository) ListByProjects(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]*models.ProjectMember, error) {
	result := make(map[uuid.UUID][]*models.ProjectMember, len(projectIDs))
	if len(projectIDs) == 0 {
		return result, nil
	}
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, memberSelect+`
		WHERE m.project_id = ANY($1)
		ORDER BY m.joined_at, u.username`, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.ProjectMember
		var role string
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Username, &m.Email, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Role = clearance.Role(role)
		result[m.ProjectID] = append(result[m.ProjectID], &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return result, nil
}

func (r *memberRepository) UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role clearance.Role) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx,
		`UPDATE project_members SET role = $3 WHERE project_id = $1 AND user_id = $2`,
		projectID, userID, string(role))
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotMember
	}
	return nil
}

func (r *memberRepository) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotMember
	}
	return nil
}
