package repomanager

import (
	"context"
	"sync"

	"github.com/slange/storefront/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves a process-local store. Transactions are
// serialized and roll back by restoring a snapshot taken before fn runs.
type InMemoryRepositoryManager struct {
	users *users.MemoryRepository
	txMu  sync.Mutex
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.users.Snapshot()
	if err := fn(ctx, m.users); err != nil {
		m.users.Restore(snapshot)
		return err
	}
	return nil
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *InMemoryRepositoryManager) Ping(context.Context) error          { return nil }
func (m *InMemoryRepositoryManager) Close(context.Context) error         { return nil }
