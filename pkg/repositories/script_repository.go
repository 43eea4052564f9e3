package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/database"
	"github.com/scriptsentries/clearance-engine/pkg/models"
)

// ScriptRepository defines the interface for script version data access.
// Every read is scoped to a project and skips soft-deleted scripts.
type ScriptRepository interface {
	Create(ctx context.Context, script *models.Script) error
	Get(ctx context.Context, projectID, scriptID uuid.UUID) (*models.Script, error)
	CountActive(ctx context.Context, projectID uuid.UUID) (int, error)
	// FinishAnalysis records the outcome of the analysis pipeline.
	FinishAnalysis(ctx context.Context, scriptID uuid.UUID, status models.ScriptStatus, totalPages, riskCount int) error
	Rename(ctx context.Context, projectID, scriptID uuid.UUID, versionName *string) error
	SoftDelete(ctx context.Context, projectID, scriptID uuid.UUID) error
	// Timeline returns active scripts newest first with per-severity counts.
	Timeline(ctx context.Context, projectID uuid.UUID) ([]*models.TimelineEntry, error)
}

type scriptRepository struct{}

// NewScriptRepository creates a new script repository.
func NewScriptRepository() ScriptRepository {
	return &scriptRepository{}
}

var _ ScriptRepository = (*scriptRepository)(nil)

func (r *scriptRepository) Create(ctx context.Context, s *models.Script) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	if s.Status == "" {
		s.Status = models.ScriptStatusProcessing
	}

	query := `
		INSERT INTO scripts (project_id, filename, version_name, status, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at`

	err = q.QueryRow(ctx, query, s.ProjectID, s.Filename, s.VersionName, string(s.Status), s.UploadedBy).
		Scan(&s.ID, &s.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to create script: %w", err)
	}
	return nil
}

func (r *scriptRepository) Get(ctx context.Context, projectID, scriptID uuid.UUID) (*models.Script, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	var s models.Script
	var status string
	err = q.QueryRow(ctx, `
		SELECT id, project_id, filename, version_name, total_pages, risk_count, status,
		       uploaded_by, uploaded_at, deleted_at
		FROM scripts
		WHERE id = $1 AND project_id = $2 AND deleted_at IS NULL`, scriptID, projectID).
		Scan(&s.ID, &s.ProjectID, &s.Filename, &s.VersionName, &s.TotalPages, &s.RiskCount, &status,
			&s.UploadedBy, &s.UploadedAt, &s.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get script: %w", err)
	}
	s.Status = models.ScriptStatus(status)
	return &s, nil
}

func (r *scriptRepository) CountActive(ctx context.Context, projectID uuid.UUID) (int, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = q.QueryRow(ctx,
		`SELECT count(*) FROM scripts WHERE project_id = $1 AND deleted_at IS NULL`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count scripts: %w", err)
	}
	return n, nil
}

func (r *scriptRepository) FinishAnalysis(ctx context.Context, scriptID uuid.UUID, status models.ScriptStatus, totalPages, riskCount int) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx,
		`UPDATE scripts SET status = $2, total_pages = $3, risk_count = $4 WHERE id = $1`,
		scriptID, string(status), totalPages, riskCount)
	if err != nil {
		return fmt.Errorf("failed to record analysis result: %w", err)
	}
	return nil
}

func (r *scriptRepository) Rename(ctx context.Context, projectID, scriptID uuid.UUID, versionName *string) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE scripts SET version_name = $3
		WHERE id = $1 AND project_id = $2 AND deleted_at IS NULL`,
		scriptID, projectID, versionName)
	if err != nil {
		return fmt.Errorf("failed to rename script: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *scriptRepository) SoftDelete(ctx context.Context, projectID, scriptID uuid.UUID) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE scripts SET deleted_at = $3
		WHERE id = $1 AND project_id = $2 AND deleted_at IS NULL`,
		scriptID, projectID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete script: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *scriptRepository) Timeline(ctx context.Context, projectID uuid.UUID) ([]*models.TimelineEntry, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT s.id, s.version_name, s.filename, s.status, s.total_pages, s.risk_count,
		       count(f.id) FILTER (WHERE f.severity = 'HIGH'),
		       count(f.id) FILTER (WHERE f.severity = 'MEDIUM'),
		       count(f.id) FILTER (WHERE f.severity = 'LOW'),
		       u.username, s.uploaded_at
		FROM scripts s
		JOIN users u ON u.id = s.uploaded_by
		LEFT JOIN risk_flags f ON f.script_id = s.id
		WHERE s.project_id = $1 AND s.deleted_at IS NULL
		GROUP BY s.id, u.username
		ORDER BY s.uploaded_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	defer rows.Close()

	var entries []*models.TimelineEntry
	for rows.Next() {
		var e models.TimelineEntry
		var versionName *string
		var status string
		if err := rows.Scan(&e.ScriptID, &versionName, &e.Filename, &status, &e.TotalPages, &e.RiskCount,
			&e.HighRisks, &e.MediumRisks, &e.LowRisks, &e.UploadedBy, &e.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		e.Status = models.ScriptStatus(status)
		e.VersionName = (&models.Script{VersionName: versionName}).DisplayVersionName()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline: %w", err)
	}
	return entries, nil
}
