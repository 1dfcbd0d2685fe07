// Package redisstore holds the Redis-backed side facilities: the secondary
// task mirror and the refresh-token denylist. Both are optional; when no
// Redis address is configured the no-op implementations are used and the
// rest of the application behaves identically.
package redisstore

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/taskdeck-api/internal/config"
)

// NewClient creates a Redis client from configuration. Callers should check
// cfg.Enabled() first; an empty address yields a client that cannot connect.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}
