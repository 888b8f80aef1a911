package database

import (
	"testing"
	"time"

	"quiz_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOptions(t *testing.T) {
	opts := redisOptions(&config.RedisConfig{Host: "cache", Port: 6380, DB: 2})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, redisPingTimeout, opts.DialTimeout)

	opts = redisOptions(&config.RedisConfig{Host: "cache", Port: 6379, PoolSize: 32})
	assert.Equal(t, 32, opts.PoolSize)
}

func TestInitRedisUnreachable(t *testing.T) {
	start := time.Now()
	rdb, err := InitRedis(&config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Nil(t, rdb)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Less(t, time.Since(start), 2*redisPingTimeout)
}
