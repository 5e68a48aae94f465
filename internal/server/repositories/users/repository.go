// Package users contains the credential store: a Repository interface with
// PostgreSQL and MongoDB implementations.
package users

import (
	"context"
	"time"

	"github.com/slange/storefront/internal/server/models"
)

// Repository persists user credential records. Emails are stored already
// normalized; uniqueness is enforced by the store and reported as
// common.ErrAlreadyExists. Lookups that find nothing, and updates that match
// no record, return common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID and GetByEmail never populate PasswordHash.
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetCredentialsByEmail is the only lookup that returns the digest.
	GetCredentialsByEmail(ctx context.Context, email string) (*models.User, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetPasswordReset(ctx context.Context, id, tokenHash string, expires time.Time) error

	// ConsumePasswordReset replaces the digest only if tokenHash is the
	// stored reset token and it has not expired at now; the reset fields are
	// cleared in the same write.
	ConsumePasswordReset(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error

	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	SetRole(ctx context.Context, id string, role models.Role) error
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
}
