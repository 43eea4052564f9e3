package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/database"
	"github.com/scriptsentries/clearance-engine/pkg/models"
)

// RiskFlagRepository defines the interface for risk flag data access.
type RiskFlagRepository interface {
	// CreateBatch bulk-inserts flags for a script, assigning IDs and timestamps.
	CreateBatch(ctx context.Context, scriptID uuid.UUID, flags []*models.RiskFlag) error
	// Get returns a flag only if it belongs to an active script of the project.
	Get(ctx context.Context, projectID, riskID uuid.UUID) (*models.RiskFlag, error)
	// GetForUpdate is Get with the flag's row locked until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, projectID, riskID uuid.UUID) (*models.RiskFlag, error)
	ListByScript(ctx context.Context, scriptID uuid.UUID) ([]*models.RiskFlag, error)
	// Update writes the mutable fields: status, comments, restrictions, is_redacted.
	Update(ctx context.Context, flag *models.RiskFlag) error
}

type riskFlagRepository struct{}

// NewRiskFlagRepository creates a new risk flag repository.
func NewRiskFlagRepository() RiskFlagRepository {
	return &riskFlagRepository{}
}

var _ RiskFlagRepository = (*riskFlagRepository)(nil)

var riskFlagCopyColumns = []string{
	"id", "script_id", "category", "sub_category", "severity", "entity_name", "snippet",
	"reason", "suggestion", "page_number", "is_redacted", "status", "created_at", "updated_at",
}

const riskFlagColumns = `f.id, f.script_id, f.category, f.sub_category, f.severity, f.entity_name, f.snippet,
	f.reason, f.suggestion, f.comments, f.restrictions, f.page_number, f.is_redacted, f.status,
	f.created_at, f.updated_at`

func scanRiskFlag(row pgx.Row) (*models.RiskFlag, error) {
	var f models.RiskFlag
	var category, severity, status string
	err := row.Scan(&f.ID, &f.ScriptID, &category, &f.SubCategory, &severity, &f.EntityName, &f.Snippet,
		&f.Reason, &f.Suggestion, &f.Comments, &f.Restrictions, &f.PageNumber, &f.IsRedacted, &status,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Category = models.RiskCategory(category)
	f.Severity = models.Severity(severity)
	f.Status = clearance.ClearanceStatus(status)
	return &f, nil
}

func (r *riskFlagRepository) CreateBatch(ctx context.Context, scriptID uuid.UUID, flags []*models.RiskFlag) error {
	if len(flags) == 0 {
		return nil
	}
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, f := range flags {
		f.ID = uuid.New()
		f.ScriptID = scriptID
		f.CreatedAt = now
		f.UpdatedAt = now
	}

	_, err = q.CopyFrom(ctx, pgx.Identifier{"risk_flags"}, riskFlagCopyColumns,
		pgx.CopyFromSlice(len(flags), func(i int) ([]any, error) {
			f := flags[i]
			return []any{
				f.ID, f.ScriptID, string(f.Category), f.SubCategory, string(f.Severity), f.EntityName,
				f.Snippet, f.Reason, f.Suggestion, f.PageNumber, f.IsRedacted, string(f.Status),
				f.CreatedAt, f.UpdatedAt,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to insert risk flags: %w", err)
	}
	return nil
}

func (r *riskFlagRepository) Get(ctx context.Context, projectID, riskID uuid.UUID) (*models.RiskFlag, error) {
	return r.get(ctx, projectID, riskID, "")
}

func (r *riskFlagRepository) GetForUpdate(ctx context.Context, projectID, riskID uuid.UUID) (*models.RiskFlag, error) {
	return r.get(ctx, projectID, riskID, " FOR UPDATE OF f")
}

func (r *riskFlagRepository) get(ctx context.Context, projectID, riskID uuid.UUID, lock string) (*models.RiskFlag, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	f, err := scanRiskFlag(q.QueryRow(ctx, `
		SELECT `+riskFlagColumns+`
		FROM risk_flags f
		JOIN scripts s ON s.id = f.script_id
		WHERE f.id = $1 AND s.project_id = $2 AND s.deleted_at IS NULL`+lock, riskID, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get risk flag: %w", err)
	}
	return f, nil
}

// ListByScript returns flags ordered by page; callers apply display sorting.
func (r *riskFlagRepository) ListByScript(ctx context.Context, scriptID uuid.UUID) ([]*models.RiskFlag, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+riskFlagColumns+`
		FROM risk_flags f
		WHERE f.script_id = $1
		ORDER BY f.page_number, f.created_at`, scriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk flags: %w", err)
	}
	defer rows.Close()

	var flags []*models.RiskFlag
	for rows.Next() {
		f, err := scanRiskFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk flag: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk flags: %w", err)
	}
	return flags, nil
}

func (r *riskFlagRepository) Update(ctx context.Context, f *models.RiskFlag) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		UPDATE risk_flags
		SET status = $2, comments = $3, restrictions = $4, is_redacted = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, string(f.Status), f.Comments, f.Restrictions, f.IsRedacted).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update risk flag: %w", err)
	}
	return nil
}
