package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/database"
	"github.com/scriptsentries/clearance-engine/pkg/models"
)

// UserRepository defines the interface for account data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByUsernames resolves usernames case-insensitively. Unknown names are skipped.
	GetByUsernames(ctx context.Context, usernames []string) ([]*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type userRepository struct{}

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

var _ UserRepository = (*userRepository)(nil)

const userColumns = `id, username, email, password_hash, account_role, created_at, last_login_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AccountRole, &u.CreatedAt, &u.LastLoginAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user. Duplicate email or username returns apperrors.ErrConflict.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	if user.AccountRole == "" {
		user.AccountRole = models.AccountRoleAnalyst
	}

	query := `
		INSERT INTO users (username, email, password_hash, account_role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err = q.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash, user.AccountRole).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *userRepository) GetByUsernames(ctx context.Context, usernames []string) ([]*models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	lowered := make([]string, len(usernames))
	for i, name := range usernames {
		lowered[i] = strings.ToLower(name)
	}

	rows, err := q.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = ANY($1) ORDER BY username`, lowered)
	if err != nil {
		return nil, fmt.Errorf("failed to look up usernames: %w", err)
	}
	return collectUsers(rows)
}

// Search matches usernames case-insensitively, prefix matches first.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	pattern := escapeLike(strings.ToLower(query))
	rows, err := q.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(username) LIKE '%' || $1 || '%'
		ORDER BY (lower(username) LIKE $1 || '%') DESC, username
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return collectUsers(rows)
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func collectUsers(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
