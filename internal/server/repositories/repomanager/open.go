package repomanager

import (
	"context"
	"fmt"
	"time"

	"github.com/slange/storefront/internal/server/config"
)

// connectTimeout bounds the initial ping of either backend.
const connectTimeout = 2 * time.Second

// Open connects to the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := OpenPostgres(ctx, cfg.DatabaseDSN, connectTimeout)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepositoryManager(db), nil
	case config.StoreMongo:
		client, err := ConnectMongo(ctx, cfg.MongoURI, connectTimeout)
		if err != nil {
			return nil, err
		}
		return NewMongoRepositoryManager(client, cfg.MongoDatabase), nil
	case config.StoreMemory:
		return NewInMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
