package redisstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist records revoked refresh tokens until they would have expired
// anyway. Lookups fail open: if the backing store is unreachable the token is
// treated as still valid, favoring availability over strictness.
type TokenDenylist interface {
	// Revoke marks the token id as revoked for the given remaining lifetime.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether the token id has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisTokenDenylist stores revoked token ids as expiring Redis keys.
type RedisTokenDenylist struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisTokenDenylist creates a denylist backed by the given client.
func NewRedisTokenDenylist(client *redis.Client, logger *slog.Logger) *RedisTokenDenylist {
	if client == nil {
		panic("client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisTokenDenylist{
		client: client,
		logger: logger.With(slog.String("component", "token_denylist")),
	}
}

var _ TokenDenylist = (*RedisTokenDenylist)(nil)

func denylistKey(jti string) string {
	return "denylist:refresh:" + jti
}

// Revoke implements TokenDenylist.Revoke
func (d *RedisTokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; nothing to record.
		return nil
	}
	if err := d.client.Set(ctx, denylistKey(jti), "1", ttl).Err(); err != nil {
		d.logger.Error("failed to revoke refresh token",
			slog.String("jti", jti),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// IsRevoked implements TokenDenylist.IsRevoked
func (d *RedisTokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, denylistKey(jti)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NoopTokenDenylist is used when no Redis instance is configured. Revocation
// is then a best-effort no-op and refresh tokens stay valid until expiry.
type NoopTokenDenylist struct{}

var _ TokenDenylist = NoopTokenDenylist{}

// Revoke implements TokenDenylist.Revoke
func (NoopTokenDenylist) Revoke(context.Context, string, time.Duration) error { return nil }

// IsRevoked implements TokenDenylist.IsRevoked
func (NoopTokenDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }
