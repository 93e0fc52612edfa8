package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "camelot:revoked:"

// NewRedis returns a client for the token revocation list.
func NewRedis(addr, password string, db int) *redis.Client {
	op := redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return redis.NewClient(&op)
}

// RedisRevocations keeps revoked session token ids until the token would
// have expired anyway.
type RedisRevocations struct {
	client *redis.Client
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis.Revoke")
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis.IsRevoked")
	}
	return n > 0, nil
}
