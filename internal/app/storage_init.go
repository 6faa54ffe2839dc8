package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
	"github.com/vladislavdragonenkov/pos-core/internal/storage/memory"
	"github.com/vladislavdragonenkov/pos-core/internal/storage/postgres"
)

// storageDependencies — durable-репозитории и, для postgres-драйвера,
// открытое соединение.
type storageDependencies struct {
	carts    domain.CartRepository
	statuses domain.StatusRepository
	events   domain.ProcessedEventRepository
	store    *postgres.Store
}

// initStorage создаёт репозитории выбранного драйвера.
// Для postgres применяются embedded-миграции.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (storageDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage driver")
		return storageDependencies{
			carts:    memory.NewCartRepository(),
			statuses: memory.NewStatusRepository(),
			events:   memory.NewProcessedEventRepository(),
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return storageDependencies{}, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return storageDependencies{}, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("using postgres storage driver")
		return storageDependencies{
			carts:    postgres.NewCartRepository(store),
			statuses: postgres.NewStatusRepository(store),
			events:   postgres.NewProcessedEventRepository(store),
			store:    store,
		}, nil

	default:
		return storageDependencies{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
