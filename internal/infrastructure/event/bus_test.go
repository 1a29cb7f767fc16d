package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/domain/shared"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string, tenantID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Purchase", uuid.New(), tenantID),
		Data:            "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("procurement.purchase.received")
	bus.Subscribe(handler, "procurement.purchase.received")

	event := newTestEvent("procurement.purchase.received", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("ingestion.upload.parsed")
	bus.Subscribe(handler, "ingestion.upload.parsed")

	event1 := newTestEvent("ingestion.upload.parsed", uuid.New())
	event2 := newTestEvent("ingestion.upload.parsed", uuid.New())
	err := bus.Publish(context.Background(), event1, event2)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newTestHandler("procurement.purchase.received")
	handler2 := newTestHandler("procurement.purchase.received")
	bus.Subscribe(handler1, "procurement.purchase.received")
	bus.Subscribe(handler2, "procurement.purchase.received")

	event := newTestEvent("procurement.purchase.received", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcardHandler := newTestHandler() // No event types = wildcard
	bus.Subscribe(wildcardHandler)

	event := newTestEvent("ledger.payable.created", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, wildcardHandler.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newTestHandler("procurement.purchase.received")
	handler1.setError(errors.New("handler error"))
	handler2 := newTestHandler("procurement.purchase.received")
	bus.Subscribe(handler1, "procurement.purchase.received")
	bus.Subscribe(handler2, "procurement.purchase.received")

	event := newTestEvent("procurement.purchase.received", uuid.New())
	err := bus.Publish(context.Background(), event)

	// One failing handler must not stop the others
	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("ingestion.upload.failed")
	bus.Subscribe(handler, "ingestion.upload.failed")

	event := newTestEvent("ingestion.upload.parsed", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 0)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("procurement.purchase.received")
	bus.Subscribe(handler, "procurement.purchase.received")

	event1 := newTestEvent("procurement.purchase.received", uuid.New())
	_ = bus.Publish(context.Background(), event1)
	assert.Len(t, handler.getHandled(), 1)

	bus.Unsubscribe(handler)

	event2 := newTestEvent("procurement.purchase.received", uuid.New())
	_ = bus.Publish(context.Background(), event2)
	assert.Len(t, handler.getHandled(), 1) // Still 1, not 2
}

type panickyHandler struct{}

func (h *panickyHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	panic("boom")
}

func (h *panickyHandler) EventTypes() []string {
	return []string{"procurement.purchase.received"}
}

func TestInMemoryEventBus_Publish_HandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	bus.Subscribe(&panickyHandler{})
	survivor := newTestHandler("procurement.purchase.received")
	bus.Subscribe(survivor, "procurement.purchase.received")

	event := newTestEvent("procurement.purchase.received", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, survivor.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	ctx := context.Background()
	err := bus.Start(ctx)
	require.NoError(t, err)

	handler := newTestHandler("procurement.purchase.received")
	bus.Subscribe(handler, "procurement.purchase.received")
	event := newTestEvent("procurement.purchase.received", uuid.New())
	err = bus.Publish(ctx, event)
	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = bus.Stop(ctx)
	require.NoError(t, err)
}
