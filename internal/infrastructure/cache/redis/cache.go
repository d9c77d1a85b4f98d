// internal/infrastructure/cache/redis/cache.go
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"price-peak-monitor/internal/core/domain/snapshot"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "pricepeak:"

type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCacheWithClient создает Cache с существующим клиентом.
// scope отделяет ключи разных отслеживаемых страниц.
func NewCacheWithClient(client *redis.Client, scope string, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		prefix: keyPrefix + hashScope(scope) + ":",
		ttl:    ttl,
	}
}

// Set устанавливает значение в Redis с TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}

// Get получает значение из Redis, false при отсутствии ключа
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, json.Unmarshal(data, dest)
}

// Delete удаляет ключ из Redis
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// GetMaximum возвращает закэшированный текущий максимум
func (c *Cache) GetMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error) {
	var max snapshot.RunningMaximum
	ok, err := c.Get(ctx, "max", &max)
	if err != nil || !ok {
		return snapshot.RunningMaximum{}, false, err
	}
	return max, true, nil
}

// SetMaximum сохраняет текущий максимум
func (c *Cache) SetMaximum(ctx context.Context, max snapshot.RunningMaximum) error {
	return c.Set(ctx, "max", max)
}

// InvalidateMaximum удаляет закэшированный максимум
func (c *Cache) InvalidateMaximum(ctx context.Context) error {
	return c.Delete(ctx, "max")
}

func hashScope(scope string) string {
	sum := sha256.Sum256([]byte(scope))
	return hex.EncodeToString(sum[:8])
}
