package shared

import (
	"context"
	"time"
)

// IdempotencyStore records operation keys that must not be applied twice,
// such as a receive or return on a given purchase, or a processed event ID.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release frees a key before its TTL expires. Callers that mark a
	// key ahead of a transaction use this to allow retries after a
	// rollback. Releasing an absent key is not an error.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed keys.
	// After this duration the same key can be processed again.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
