// internal/storage/cached_storage.go
package storage

import (
	"context"

	"price-peak-monitor/internal/core/domain/snapshot"
	"price-peak-monitor/pkg/logger"
)

// MaximumCache внешний кэш текущего максимума (Redis)
type MaximumCache interface {
	GetMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error)
	SetMaximum(ctx context.Context, max snapshot.RunningMaximum) error
	InvalidateMaximum(ctx context.Context) error
}

// CachedStore декоратор: максимум берется из кэша и обновляется
// инкрементально при каждой записи. Ошибки кэша не ломают хранилище,
// источником истины остается история.
type CachedStore struct {
	SnapshotStore
	cache MaximumCache
}

// SharedMaximum хранилище, чей максимум живет во внешнем кэше.
// Читатели обращаются к нему каждый раз, а не держат копию в памяти.
type SharedMaximum interface {
	SharesMaximum() bool
}

func NewCachedStore(inner SnapshotStore, cache MaximumCache) *CachedStore {
	return &CachedStore{SnapshotStore: inner, cache: cache}
}

func (c *CachedStore) SharesMaximum() bool {
	return true
}

// Init инициализирует схему и сбрасывает кэш: история могла измениться,
// пока процесс не работал
func (c *CachedStore) Init(ctx context.Context) error {
	if err := c.SnapshotStore.Init(ctx); err != nil {
		return err
	}
	if err := c.cache.InvalidateMaximum(ctx); err != nil {
		logger.Warn("⚠️ Failed to invalidate cached maximum: %v", err)
	}
	return nil
}

func (c *CachedStore) Append(ctx context.Context, s snapshot.PriceSnapshot) error {
	if err := c.SnapshotStore.Append(ctx, s); err != nil {
		return err
	}

	cached, ok, err := c.cache.GetMaximum(ctx)
	if err != nil {
		logger.Warn("⚠️ Cached maximum unavailable, dropping it: %v", err)
		c.invalidate(ctx)
		return nil
	}
	// при промахе кэш заполнится полным проходом при следующем чтении
	if ok && cached.Exceeds(s.NewPrice) {
		next := snapshot.RunningMaximum{MaxPrice: s.NewPrice, MaxPriceAt: s.CapturedAt}
		if err := c.cache.SetMaximum(ctx, next); err != nil {
			logger.Warn("⚠️ Failed to update cached maximum: %v", err)
			c.invalidate(ctx)
		}
	}
	return nil
}

func (c *CachedStore) CurrentMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error) {
	cached, ok, err := c.cache.GetMaximum(ctx)
	if err == nil && ok {
		return cached, true, nil
	}
	if err != nil {
		logger.Warn("⚠️ Cached maximum unavailable, scanning history: %v", err)
	}

	max, found, err := c.SnapshotStore.CurrentMaximum(ctx)
	if err != nil || !found {
		return max, found, err
	}

	if err := c.cache.SetMaximum(ctx, max); err != nil {
		logger.Warn("⚠️ Failed to cache maximum: %v", err)
	}
	return max, true, nil
}

func (c *CachedStore) invalidate(ctx context.Context) {
	if err := c.cache.InvalidateMaximum(ctx); err != nil {
		logger.Warn("⚠️ Failed to invalidate cached maximum: %v", err)
	}
}
