package cache

import (
	"context"
	"sync"
	"time"

	"github.com/clinicware/backend/internal/domain/shared"
)

const cleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps processed keys in a map. State lives
// in one process only, so it suits development and tests; production
// instances behind a load balancer need the Redis store.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	expiries  map[string]time.Time
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// NewInMemoryIdempotencyStore builds the store and starts its
// background sweeper for expired keys
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiries: make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// MarkProcessed records the key with a TTL, reporting true when the
// key was newly recorded and false when a live entry already exists
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.expiries[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.expiries[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether the key has a live entry
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, ok := s.expiries[key]
	return ok && time.Now().Before(expiry), nil
}

// Release drops the key so the operation can be retried before the TTL
// expires. Releasing an absent key is a no-op.
func (s *InMemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiries, key)
	return nil
}

// Size returns the number of stored keys, expired ones included until
// the next sweep
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiries)
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweep() {
	defer close(s.done)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) removeExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, expiry := range s.expiries {
		if now.After(expiry) {
			delete(s.expiries, key)
		}
	}
}
