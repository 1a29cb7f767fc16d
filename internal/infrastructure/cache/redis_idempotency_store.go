package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/clinicware/backend/internal/infrastructure/config"
)

const (
	defaultKeyPrefix    = "idempotency:"
	connectProbeTimeout = 5 * time.Second
)

// RedisIdempotencyStore is the cross-instance duplicate guard. SETNX
// gives an atomic check-and-set, so two concurrent receives of the
// same purchase agree on which one proceeds.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)

// NewRedisIdempotencyStore connects to Redis and verifies the
// connection before returning the store
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectProbeTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisIdempotencyStoreWithClient(client, ""), nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client, sharing
// it with other components. An empty keyPrefix uses the default.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed records the key with a TTL, reporting true when the
// key was newly recorded and false when it was already present
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	fresh, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark key processed: %w", err)
	}
	return fresh, nil
}

// IsProcessed reports whether the key is still recorded
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check key processed: %w", err)
	}
	return n > 0, nil
}

// Release drops the key so the operation can be retried before the TTL
// expires. Deleting an absent key is a no-op in Redis.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release key: %w", err)
	}
	return nil
}

// Close releases the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
