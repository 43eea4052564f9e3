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

// ProjectRepository defines the interface for project data access.
// Soft-deleted projects are invisible to every read.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	UpdateDetails(ctx context.Context, project *models.Project) error
	// SoftDelete marks the project and all its scripts deleted.
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// Counts returns the active script count and total risk count per project.
	Counts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProjectCounts, error)
}

// ProjectCounts holds the dashboard totals for one project.
type ProjectCounts struct {
	Scripts int
	Risks   int
}

type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

var _ ProjectRepository = (*projectRepository)(nil)

const projectColumns = `id, name, studio_name, director, producer, production_email, production_phone,
	genre, logline, expected_release, imdb_link, notes, created_by, created_at, updated_at, deleted_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.StudioName, &p.Director, &p.Producer, &p.ProductionEmail,
		&p.ProductionPhone, &p.Genre, &p.Logline, &p.ExpectedRelease, &p.IMDbLink, &p.Notes,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) Create(ctx context.Context, p *models.Project) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (name, studio_name, director, producer, production_email, production_phone,
			genre, logline, expected_release, imdb_link, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err = q.QueryRow(ctx, query,
		p.Name, p.StudioName, p.Director, p.Producer, p.ProductionEmail, p.ProductionPhone,
		p.Genre, p.Logline, p.ExpectedRelease, p.IMDbLink, p.Notes, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	p, err := scanProject(q.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListForUser returns active projects the user is a member of, newest first.
func (r *projectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT p.id, p.name, p.studio_name, p.director, p.producer, p.production_email, p.production_phone,
			p.genre, p.logline, p.expected_release, p.imdb_link, p.notes, p.created_by, p.created_at,
			p.updated_at, p.deleted_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1 AND p.deleted_at IS NULL
		ORDER BY p.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func (r *projectRepository) UpdateDetails(ctx context.Context, p *models.Project) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE projects
		SET name = $2, studio_name = $3, director = $4, producer = $5, production_email = $6,
		    production_phone = $7, genre = $8, logline = $9, expected_release = $10,
		    imdb_link = $11, notes = $12, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err = q.QueryRow(ctx, query,
		p.ID, p.Name, p.StudioName, p.Director, p.Producer, p.ProductionEmail,
		p.ProductionPhone, p.Genre, p.Logline, p.ExpectedRelease, p.IMDbLink, p.Notes,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

func (r *projectRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return database.InTx(ctx, func(ctx context.Context) error {
		q, err := database.QuerierFrom(ctx)
		if err != nil {
			return err
		}

		now := time.Now()
		tag, err := q.Exec(ctx,
			`UPDATE projects SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, now)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrNotFound
		}

		if _, err := q.Exec(ctx,
			`UPDATE scripts SET deleted_at = $2 WHERE project_id = $1 AND deleted_at IS NULL`, id, now); err != nil {
			return fmt.Errorf("failed to delete project scripts: %w", err)
		}
		return nil
	})
}

func (r *projectRepository) Counts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProjectCounts, error) {
	counts := make(map[uuid.UUID]ProjectCounts, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT s.project_id, count(DISTINCT s.id), count(f.id)
		FROM scripts s
		LEFT JOIN risk_flags f ON f.script_id = s.id
		WHERE s.project_id = ANY($1) AND s.deleted_at IS NULL
		GROUP BY s.project_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count project scripts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var c ProjectCounts
		if err := rows.Scan(&id, &c.Scripts, &c.Risks); err != nil {
			return nil, fmt.Errorf("failed to scan project counts: %w", err)
		}
		counts[id] = c
	}
	return counts, rows.Err()
}
