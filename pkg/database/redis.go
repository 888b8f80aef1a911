package database

import (
	"context"
	"fmt"
	"time"

	"quiz_backend/internal/config"
	"quiz_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// redis 只做测验缓存，连不上要尽快放弃，由调用方降级为直连存储
const redisPingTimeout = 3 * time.Second

func redisOptions(cfg *config.RedisConfig) *redis.Options {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	return &redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    poolSize,
		DialTimeout: redisPingTimeout,
	}
}

// InitRedis 建立测验缓存连接，ping 失败时关闭客户端并返回错误
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	opts := redisOptions(cfg)
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	logger.Log.Info("Quiz cache connected",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Duration("ttl", cfg.TTL),
	)
	return rdb, nil
}
