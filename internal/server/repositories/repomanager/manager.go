// Package repomanager vends credential-store repositories for the configured
// backend and owns the underlying connection.
package repomanager

import (
	"context"

	"github.com/slange/storefront/internal/server/repositories/users"
)

// RepositoryManager is the store handle injected into services.
type RepositoryManager interface {
	// Users returns a repository bound to the shared connection.
	Users() users.Repository

	// WithinTx runs fn with a repository whose writes commit together or
	// not at all.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error

	// RunMigrations brings the schema (or indexes) up to date.
	RunMigrations(ctx context.Context) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
