// internal/storage/factory/factory.go
package storage_factory

import (
	"context"
	"fmt"

	"price-peak-monitor/internal/config"
	"price-peak-monitor/internal/infrastructure/persistence/sqldb"
	"price-peak-monitor/internal/infrastructure/persistence/sqldb/repository/prices"
	"price-peak-monitor/internal/storage"
	"price-peak-monitor/pkg/logger"
)

// StoreDependencies зависимости для создания хранилища
type StoreDependencies struct {
	Config *config.Config
	// Cache кэш текущего максимума, nil - без кэша
	Cache storage.MaximumCache
}

// NewSnapshotStore создает хранилище по STORE_BACKEND.
// Соединение с БД открывается здесь и живет до Close.
func NewSnapshotStore(ctx context.Context, deps StoreDependencies) (storage.SnapshotStore, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config не может быть nil")
	}
	cfg := deps.Config

	var store storage.SnapshotStore
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("⚠️  Using in-memory store, history is lost on restart")
		store = storage.NewInMemoryStorage()

	case config.BackendPostgres, config.BackendMySQL:
		repo, err := newSQLStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = repo

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if deps.Cache != nil {
		logger.Info("🧠 Running maximum cached in Redis")
		store = storage.NewCachedStore(store, deps.Cache)
	}

	logger.Info("✅ Snapshot store ready (%s)", cfg.StoreBackend)
	return store, nil
}

func newSQLStore(ctx context.Context, cfg *config.Config) (*prices.Repository, error) {
	dialect, err := sqldb.ParseDialect(cfg.StoreBackend)
	if err != nil {
		return nil, err
	}

	var dsn string
	if dialect == sqldb.MySQL {
		dsn, err = cfg.MySQLDSN()
	} else {
		dsn, err = cfg.PostgresDSN()
	}
	if err != nil {
		return nil, err
	}

	db, err := sqldb.Connect(ctx, sqldb.Config{
		Dialect:         dialect,
		DSN:             dsn,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, storage.Wrap(storage.OpInit, err)
	}

	return prices.NewRepository(db, dialect), nil
}
