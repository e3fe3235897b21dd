package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "capacity:idempotency:"

// keyClaimer is the subset of *redis.Client the store needs
type keyClaimer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisIdempotencyStore shares claimed keys between instances through Redis.
// The client is owned by the caller; Close does not close it.
type RedisIdempotencyStore struct {
	client    keyClaimer
	keyPrefix string
}

// NewRedisIdempotencyStore wraps an existing client. An empty prefix selects
// "capacity:idempotency:".
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	return newRedisIdempotencyStore(client, keyPrefix)
}

func newRedisIdempotencyStore(client keyClaimer, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// Claim implements IdempotencyStore with SETNX so concurrent instances race safely
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

// Release implements IdempotencyStore
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Close implements IdempotencyStore
func (s *RedisIdempotencyStore) Close() error { return nil }

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)
