// internal/infrastructure/cache/redis/redis_service.go
package redis

import (
	"context"
	"fmt"
	"time"

	"price-peak-monitor/internal/config"
	"price-peak-monitor/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// RedisService сервис для работы с Redis
type RedisService struct {
	config *config.Config
	client *redis.Client
	state  ServiceState
}

// ServiceState состояние сервиса
type ServiceState string

const (
	StateStopped ServiceState = "stopped"
	StateRunning ServiceState = "running"
	StateError   ServiceState = "error"
)

// NewRedisService создает новый Redis сервис
func NewRedisService(cfg *config.Config) *RedisService {
	return &RedisService{
		config: cfg,
		state:  StateStopped,
	}
}

// Start подключается к Redis и проверяет соединение
func (rs *RedisService) Start(ctx context.Context) error {
	if rs.state == StateRunning {
		return fmt.Errorf("Redis service already running")
	}

	rs.client = redis.NewClient(&redis.Options{
		Addr:         rs.config.RedisAddress(),
		Password:     rs.config.Redis.Password,
		DB:           rs.config.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	logger.Info("📡 Connecting to Redis: %s (DB: %d)", rs.config.RedisAddress(), rs.config.Redis.DB)

	if _, err := rs.client.Ping(pingCtx).Result(); err != nil {
		rs.client.Close()
		rs.state = StateError
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	rs.state = StateRunning
	logger.Info("✅ Successfully connected to Redis")
	return nil
}

// Stop закрывает соединение
func (rs *RedisService) Stop() error {
	if rs.state != StateRunning {
		return nil
	}
	rs.state = StateStopped
	return rs.client.Close()
}

// Cache возвращает кэш максимума для отслеживаемой страницы
func (rs *RedisService) Cache() *Cache {
	return NewCacheWithClient(rs.client, rs.config.Monitor.TargetURL, rs.config.Redis.TTL)
}

// State возвращает состояние сервиса
func (rs *RedisService) State() ServiceState {
	return rs.state
}
