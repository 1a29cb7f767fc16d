package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes access tokens before they expire. The JWT
// middleware consults it on every authenticated request.
type TokenBlacklist interface {
	// AddToBlacklist adds a token's JTI (JWT ID) to the blacklist.
	// ttl should be the remaining time until token expiration.
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted checks if a token's JTI is in the blacklist
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

const blacklistKeyPrefix = "token:blacklist:jti:"

// RedisTokenBlacklist shares revocations across instances through Redis
type RedisTokenBlacklist struct {
	client *redis.Client
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

// NewRedisTokenBlacklist wraps an existing Redis client
func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

// AddToBlacklist records the JTI until its token would have expired
func (b *RedisTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, blacklistKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the JTI is revoked
func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return n > 0, nil
}

// InMemoryTokenBlacklist keeps revocations in-process, for tests and
// single-instance deployments. Expired entries are dropped on lookup.
type InMemoryTokenBlacklist struct {
	mu       sync.Mutex
	expiries map[string]time.Time
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)

// NewInMemoryTokenBlacklist builds an empty blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{expiries: make(map[string]time.Time)}
}

// AddToBlacklist records the JTI until its token would have expired
func (b *InMemoryTokenBlacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expiries[jti] = time.Now().Add(ttl)
	return nil
}

// IsBlacklisted reports whether the JTI is revoked
func (b *InMemoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.expiries[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.expiries, jti)
		return false, nil
	}
	return true, nil
}
