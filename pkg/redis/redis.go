package redis

import (
	"context"
	"fmt"

	"github.com/TIPmigs/sikad-server/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient создает клиент Redis для снимков последних позиций
func NewRedisClient(ctx context.Context, appCfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     appCfg.RedisAddr,
		Password: appCfg.RedisPass,
		DB:       appCfg.RedisDB,
		PoolSize: appCfg.RedisPoolSize,
	})

	// Проверяем соединение с Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}
