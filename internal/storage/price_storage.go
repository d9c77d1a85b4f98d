// internal/storage/price_storage.go
package storage

import (
	"context"
	"fmt"

	"price-peak-monitor/internal/core/domain/snapshot"
)

// SnapshotStore хранилище истории цен: только добавление и запрос максимума.
// Снапшоты никогда не изменяются и не удаляются.
type SnapshotStore interface {
	// Init идемпотентно создает схему, безопасно вызывать при каждом старте
	Init(ctx context.Context) error
	// Append надежно записывает один снапшот, ошибка всегда возвращается
	Append(ctx context.Context, s snapshot.PriceSnapshot) error
	// CurrentMaximum возвращает false только для пустой истории
	CurrentMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error)
	// Count количество записанных снапшотов
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Операции хранилища для StoreError
const (
	OpInit    = "init"
	OpAppend  = "append"
	OpMaximum = "current_maximum"
	OpCount   = "count"
)

// StoreError ошибка хранилища
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Wrap оборачивает ошибку в StoreError, nil остается nil
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*StoreError); ok {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
