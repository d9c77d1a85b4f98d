// internal/storage/in_memory_storage.go
package storage

import (
	"context"
	"errors"
	"sync"

	"price-peak-monitor/internal/core/domain/snapshot"
)

var ErrStoreClosed = errors.New("store is closed")

// InMemoryStorage хранит историю в памяти процесса.
// Максимум каждый раз пересчитывается полным проходом по истории.
type InMemoryStorage struct {
	mu      sync.RWMutex
	history []snapshot.PriceSnapshot
	nextID  int64
	closed  bool
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{nextID: 1}
}

func (s *InMemoryStorage) Init(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Wrap(OpInit, ErrStoreClosed)
	}
	return nil
}

func (s *InMemoryStorage) Append(ctx context.Context, snap snapshot.PriceSnapshot) error {
	if err := ctx.Err(); err != nil {
		return Wrap(OpAppend, err)
	}
	if err := snap.Validate(); err != nil {
		return Wrap(OpAppend, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Wrap(OpAppend, ErrStoreClosed)
	}

	snap.ID = s.nextID
	s.nextID++
	if snap.OldPrice != nil {
		old := *snap.OldPrice
		snap.OldPrice = &old
	}
	s.history = append(s.history, snap)
	return nil
}

func (s *InMemoryStorage) CurrentMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return snapshot.RunningMaximum{}, false, Wrap(OpMaximum, ErrStoreClosed)
	}

	max, ok := snapshot.Maximum(s.history)
	return max, ok, nil
}

func (s *InMemoryStorage) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.history)), nil
}

// History возвращает копию истории в порядке записи
func (s *InMemoryStorage) History() []snapshot.PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]snapshot.PriceSnapshot, len(s.history))
	copy(out, s.history)
	return out
}

func (s *InMemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
