// internal/infrastructure/persistence/sqldb/connection.go
package sqldb

import (
	"context"
	"fmt"
	"time"

	"price-peak-monitor/pkg/logger"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Config параметры подключения
type Config struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// Connect открывает пул соединений и проверяет подключение.
// Пул открывается один раз при старте и переиспользуется всеми циклами.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Dialect, err)
	}

	// Настройки пула соединений
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Dialect, err)
	}

	logger.Info("✅ Connected to %s", cfg.Dialect)
	return db, nil
}
