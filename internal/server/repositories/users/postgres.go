package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/dbx"
	"github.com/slange/storefront/internal/server/models"
)

const pgUniqueViolation = "23505"

const publicColumns = `id, email, first_name, last_name, role, phone, is_active, is_email_verified, last_login, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, password_hash, first_name, last_name, role, phone, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Role, user.Phone, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + publicColumns + ` FROM users WHERE id = $1`
	return r.scanPublic(r.db.QueryRowContext(ctx, query, key))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + publicColumns + ` FROM users WHERE email = $1`
	return r.scanPublic(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetCredentialsByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + publicColumns + `, password_hash FROM users WHERE email = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(append(publicDest(user), &user.PasswordHash)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query :=
		`UPDATE users
		 SET password_hash = $2, password_reset_token = NULL, password_reset_expires = NULL, updated_at = now()
		 WHERE id = $1`

	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) SetPasswordReset(ctx context.Context, id, tokenHash string, expires time.Time) error {
	query :=
		`UPDATE users
		 SET password_reset_token = $2, password_reset_expires = $3, updated_at = now()
		 WHERE id = $1`

	return r.execOne(ctx, query, id, tokenHash, expires)
}

func (r *PostgresRepository) ConsumePasswordReset(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	query :=
		`UPDATE users
		 SET password_hash = $3, password_reset_token = NULL, password_reset_expires = NULL, updated_at = now()
		 WHERE id = $1 AND password_reset_token = $2 AND password_reset_expires > $4`

	return r.execOne(ctx, query, id, tokenHash, passwordHash, now)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, at)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, active)
}

func (r *PostgresRepository) SetRole(ctx context.Context, id string, role models.Role) error {
	query := `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, role)
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	query := `SELECT ` + publicColumns + ` FROM users ORDER BY created_at, id OFFSET $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0, limit)
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(publicDest(user)...); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func publicDest(u *models.User) []any {
	return []any{&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.Phone,
		&u.IsActive, &u.IsEmailVerified, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt}
}

func (r *PostgresRepository) scanPublic(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(publicDest(user)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// execOne runs an update keyed by id ($1) that must touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, id string, args ...any) error {
	key, ok := parseID(id)
	if !ok {
		return common.ErrorNotFound
	}
	res, err := r.db.ExecContext(ctx, query, append([]any{key}, args...)...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// parseID returns id in canonical form. An id that is not a uuid cannot
// match the primary key and would fail with invalid_text_representation.
func parseID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
