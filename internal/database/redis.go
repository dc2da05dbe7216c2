package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"linguachat-backend/internal/config"
	"linguachat-backend/pkg/logger"
)

// RedisDB wraps the Redis client
type RedisDB struct {
	Client *redis.Client
}

// NewRedisDB creates a new Redis connection
func NewRedisDB(ctx context.Context, cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisDB{Client: client}, nil
}

// Close closes the Redis connection
func (db *RedisDB) Close() error {
	return db.Client.Close()
}

// StartHealthCheck pings Redis on an interval and logs failures.
// Intended to run as a background goroutine; returns when ctx is done.
func (db *RedisDB) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := db.Client.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				logger.Warn("Redis health check failed", zap.Error(err))
			}
		}
	}
}
