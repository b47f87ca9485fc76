package database

import (
	"learning_platform_backend/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisOptions(t *testing.T) {
	opts := RedisOptions(&config.RedisConfig{Host: "cache", Port: 6380, DB: 2, PoolSize: 20, MinIdleConns: 4, DialTimeoutSeconds: 2})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 4, opts.MinIdleConns)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)

	opts = RedisOptions(&config.RedisConfig{Host: "cache", Port: 6379, MinIdleConns: 80})
	assert.Equal(t, 50, opts.PoolSize)
	assert.Zero(t, opts.MinIdleConns)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
}
