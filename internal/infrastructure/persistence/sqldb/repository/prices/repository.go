// internal/infrastructure/persistence/sqldb/repository/prices/repository.go
package prices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"price-peak-monitor/internal/core/domain/snapshot"
	"price-peak-monitor/internal/infrastructure/persistence/sqldb"
	"price-peak-monitor/internal/storage"

	"github.com/jmoiron/sqlx"
)

const (
	insertQuery = `
	INSERT INTO prices (product_name, old_price, new_price, installment_price, timestamp)
	VALUES (:product_name, :old_price, :new_price, :installment_price, :timestamp)
	`

	// Тай-брейк: при равной цене побеждает более ранний снапшот
	maximumQuery = `
	SELECT new_price, timestamp FROM prices
	ORDER BY new_price DESC, timestamp ASC, id ASC
	LIMIT 1
	`

	countQuery = `SELECT COUNT(*) FROM prices`
)

// maximumRow строка результата запроса максимума
type maximumRow struct {
	NewPrice  int64     `db:"new_price"`
	Timestamp time.Time `db:"timestamp"`
}

// Repository реализация storage.SnapshotStore поверх таблицы prices
type Repository struct {
	db      *sqlx.DB
	dialect sqldb.Dialect
}

// NewRepository создает репозиторий цен
func NewRepository(db *sqlx.DB, dialect sqldb.Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

// Init применяет миграции схемы, повторный вызов безопасен
func (r *Repository) Init(ctx context.Context) error {
	migrator, err := sqldb.NewMigrator(r.db, r.dialect)
	if err != nil {
		return storage.Wrap(storage.OpInit, err)
	}
	return storage.Wrap(storage.OpInit, migrator.Migrate(ctx))
}

// Append записывает снапшот в историю
func (r *Repository) Append(ctx context.Context, s snapshot.PriceSnapshot) error {
	if err := s.Validate(); err != nil {
		return storage.Wrap(storage.OpAppend, err)
	}

	s.CapturedAt = s.CapturedAt.UTC()
	if _, err := r.db.NamedExecContext(ctx, insertQuery, s); err != nil {
		return storage.Wrap(storage.OpAppend, fmt.Errorf("ошибка записи снапшота: %w", err))
	}
	return nil
}

// CurrentMaximum возвращает максимальную new_price по всей истории
func (r *Repository) CurrentMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error) {
	var row maximumRow
	if err := r.db.GetContext(ctx, &row, maximumQuery); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snapshot.RunningMaximum{}, false, nil
		}
		return snapshot.RunningMaximum{}, false, storage.Wrap(storage.OpMaximum, fmt.Errorf("ошибка получения максимума: %w", err))
	}

	return snapshot.RunningMaximum{
		MaxPrice:   row.NewPrice,
		MaxPriceAt: row.Timestamp,
	}, true, nil
}

// Count количество строк в истории
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, countQuery); err != nil {
		return 0, storage.Wrap(storage.OpCount, fmt.Errorf("ошибка подсчета снапшотов: %w", err))
	}
	return count, nil
}

// Close закрывает пул соединений
func (r *Repository) Close() error {
	return r.db.Close()
}

var _ storage.SnapshotStore = (*Repository)(nil)
