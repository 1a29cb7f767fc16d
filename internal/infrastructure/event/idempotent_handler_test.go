package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/clinicware/backend/internal/infrastructure/cache"
)

// countingHandler records calls and returns a configurable error
type countingHandler struct {
	types []string
	calls atomic.Int64
	err   error
}

func (h *countingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.calls.Add(1)
	return h.err
}

func (h *countingHandler) EventTypes() []string { return h.types }

// failingStore always errors on MarkProcessed
type failingStore struct{}

func (failingStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, assert.AnError
}
func (failingStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	return false, assert.AnError
}
func (failingStore) Release(ctx context.Context, key string) error { return assert.AnError }
func (failingStore) Close() error                                  { return nil }

type receivedEvent struct {
	shared.BaseDomainEvent
}

func newReceivedEvent() *receivedEvent {
	return &receivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			"procurement.purchase.received", "Purchase", uuid.New(), uuid.New()),
	}
}

func newTestIdempotencyStore(t *testing.T) shared.IdempotencyStore {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestIdempotentHandlerDeliversNewEvents(t *testing.T) {
	inner := &countingHandler{}
	handler := NewIdempotentHandler(inner, newTestIdempotencyStore(t), zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), newReceivedEvent()))
	require.NoError(t, handler.Handle(context.Background(), newReceivedEvent()))

	assert.Equal(t, int64(2), inner.calls.Load())
	assert.Equal(t, int64(2), handler.Metrics().Stats().EventsProcessed)
}

func TestIdempotentHandlerSwallowsDuplicates(t *testing.T) {
	inner := &countingHandler{}
	handler := NewIdempotentHandler(inner, newTestIdempotencyStore(t), zap.NewNop())

	event := newReceivedEvent()
	for i := 0; i < 3; i++ {
		require.NoError(t, handler.Handle(context.Background(), event))
	}

	assert.Equal(t, int64(1), inner.calls.Load(), "only the first delivery reaches the handler")
	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(2), stats.EventsDuplicate)
}

func TestIdempotentHandlerPropagatesHandlerErrors(t *testing.T) {
	inner := &countingHandler{err: assert.AnError}
	handler := NewIdempotentHandler(inner, newTestIdempotencyStore(t), zap.NewNop())

	err := handler.Handle(context.Background(), newReceivedEvent())
	assert.ErrorIs(t, err, assert.AnError)

	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(0), stats.EventsProcessed)
	assert.Equal(t, int64(1), stats.EventsFailed)
}

func TestIdempotentHandlerProcessesOnStoreFailure(t *testing.T) {
	inner := &countingHandler{}
	handler := NewIdempotentHandler(inner, failingStore{}, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), newReceivedEvent()))
	assert.Equal(t, int64(1), inner.calls.Load(), "a broken store must not drop events")
}

func TestIdempotentHandlerDisabled(t *testing.T) {
	inner := &countingHandler{}
	cfg := shared.DefaultIdempotencyConfig()
	cfg.Enabled = false
	handler := NewIdempotentHandlerWithConfig(inner, newTestIdempotencyStore(t), zap.NewNop(), cfg, nil)

	event := newReceivedEvent()
	for i := 0; i < 3; i++ {
		require.NoError(t, handler.Handle(context.Background(), event))
	}

	assert.Equal(t, int64(3), inner.calls.Load(), "disabled idempotency passes every delivery through")
	assert.Equal(t, int64(0), handler.Metrics().Stats().EventsProcessed)
}

func TestIdempotentHandlerForwardsEventTypes(t *testing.T) {
	inner := &countingHandler{types: []string{"procurement.purchase.received", "procurement.purchase.returned"}}
	handler := NewIdempotentHandler(inner, newTestIdempotencyStore(t), zap.NewNop())

	assert.Equal(t, inner.types, handler.EventTypes())
}

func TestIdempotentHandlerSharedMetrics(t *testing.T) {
	store := newTestIdempotencyStore(t)
	metrics := &IdempotencyMetrics{}
	cfg := shared.DefaultIdempotencyConfig()

	h1 := NewIdempotentHandlerWithConfig(&countingHandler{}, store, zap.NewNop(), cfg, metrics)
	h2 := NewIdempotentHandlerWithConfig(&countingHandler{}, store, zap.NewNop(), cfg, metrics)

	require.NoError(t, h1.Handle(context.Background(), newReceivedEvent()))
	require.NoError(t, h2.Handle(context.Background(), newReceivedEvent()))

	assert.Equal(t, int64(2), metrics.Stats().EventsProcessed)
}

func TestIdempotentHandlerConcurrentDuplicates(t *testing.T) {
	inner := &countingHandler{}
	handler := NewIdempotentHandler(inner, newTestIdempotencyStore(t), zap.NewNop())
	event := newReceivedEvent()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, handler.Handle(context.Background(), event))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), inner.calls.Load())
	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(workers-1), stats.EventsDuplicate)
}

func TestIdempotencyMetricsStats(t *testing.T) {
	metrics := &IdempotencyMetrics{}
	metrics.EventsProcessed.Add(10)
	metrics.EventsDuplicate.Add(5)
	metrics.EventsFailed.Add(2)

	stats := metrics.Stats()
	assert.Equal(t, int64(10), stats.EventsProcessed)
	assert.Equal(t, int64(5), stats.EventsDuplicate)
	assert.Equal(t, int64(2), stats.EventsFailed)
}
