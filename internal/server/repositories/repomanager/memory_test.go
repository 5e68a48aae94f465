package repomanager

import (
	"context"
	"errors"
	"testing"

	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/config"
	"github.com/slange/storefront/internal/server/models"
	"github.com/slange/storefront/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory_WithinTx_CommitAndRollback(t *testing.T) {
	m := NewInMemoryRepositoryManager()
	ctx := context.Background()

	err := m.WithinTx(ctx, func(ctx context.Context, repo users.Repository) error {
		_, err := repo.Create(ctx, &models.User{Email: "a@x.io", Role: models.RoleAdmin, IsActive: true})
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.WithinTx(ctx, func(ctx context.Context, repo users.Repository) error {
		u, err := repo.GetByEmail(ctx, "a@x.io")
		require.NoError(t, err)
		require.NoError(t, repo.SetActive(ctx, u.ID, false))
		if _, err := repo.Create(ctx, &models.User{Email: "b@x.io"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	u, err := m.Users().GetByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	_, err = m.Users().GetByEmail(ctx, "b@x.io")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestOpen_Memory(t *testing.T) {
	m, err := Open(context.Background(), &config.Config{StoreBackend: config.StoreMemory})
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(context.Background()))
	require.NoError(t, m.Ping(context.Background()))
	assert.IsType(t, &InMemoryRepositoryManager{}, m)
}
