package users

import (
	"context"
	"testing"
	"time"

	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CreateAndLookups(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	u, err := r.Create(ctx, &models.User{Email: "a@x.io", PasswordHash: "digest", IsActive: true})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, models.RoleCustomer, u.Role)
	assert.Empty(t, u.PasswordHash)

	_, err = r.Create(ctx, &models.User{Email: "a@x.io"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, byID.PasswordHash)

	creds, err := r.GetCredentialsByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "digest", creds.PasswordHash)

	_, err = r.GetByEmail(ctx, "b@x.io")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, r.SetActive(ctx, "missing", true), common.ErrorNotFound)
}

func TestMemoryRepository_ConsumePasswordReset(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	u, err := r.Create(ctx, &models.User{Email: "a@x.io", PasswordHash: "old"})
	require.NoError(t, err)
	require.NoError(t, r.SetPasswordReset(ctx, u.ID, "h1", now.Add(time.Hour)))

	assert.ErrorIs(t, r.ConsumePasswordReset(ctx, u.ID, "other", "new", now), common.ErrorNotFound)
	assert.ErrorIs(t, r.ConsumePasswordReset(ctx, u.ID, "h1", "new", now.Add(time.Hour)), common.ErrorNotFound)

	require.NoError(t, r.ConsumePasswordReset(ctx, u.ID, "h1", "new", now))
	creds, err := r.GetCredentialsByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "new", creds.PasswordHash)
	assert.Nil(t, creds.PasswordResetToken)

	assert.ErrorIs(t, r.ConsumePasswordReset(ctx, u.ID, "h1", "again", now), common.ErrorNotFound)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	u, err := r.Create(ctx, &models.User{Email: "a@x.io"})
	require.NoError(t, err)
	u.Email = "mutated@x.io"

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", got.Email)
}
