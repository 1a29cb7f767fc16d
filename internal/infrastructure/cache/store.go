// Package cache provides the idempotency stores guarding receives,
// payments and event redelivery against duplicate processing.
package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/clinicware/backend/internal/infrastructure/config"
)

// StoreOptions tunes idempotency store selection
type StoreOptions struct {
	Logger *zap.Logger

	// RequireRedis turns a Redis connection failure into a startup
	// error instead of falling back to the in-memory store. The
	// in-memory store does not share state across instances, so a
	// duplicate submission landing on another instance slips through.
	RequireRedis bool
}

// NewIdempotencyStore connects to Redis and returns a store backed by
// it, falling back to the in-memory store when Redis is unreachable
// and the options allow it
func NewIdempotencyStore(cfg config.RedisConfig, opts StoreOptions) (shared.IdempotencyStore, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		log.Info("using Redis idempotency store",
			zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)))
		return store, nil
	}

	if opts.RequireRedis {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	log.Warn("Redis unavailable, duplicate submissions on other instances will not be caught",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
