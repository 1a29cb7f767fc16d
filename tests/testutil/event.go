package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/backend/internal/domain/shared"
)

// RecordingEventHandler captures every event it receives, for
// asserting on asynchronous publication
type RecordingEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	received   []shared.DomainEvent
	err        error
}

// NewRecordingEventHandler subscribes to the given event types
func NewRecordingEventHandler(eventTypes ...string) *RecordingEventHandler {
	return &RecordingEventHandler{eventTypes: eventTypes}
}

// EventTypes returns the subscribed event types
func (h *RecordingEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event and returns the configured error
func (h *RecordingEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return h.err
}

// Received returns a copy of the events seen so far
func (h *RecordingEventHandler) Received() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.received))
	copy(out, h.received)
	return out
}

// ReceivedCount returns how many events arrived
func (h *RecordingEventHandler) ReceivedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

// FailWith makes Handle return err from now on
func (h *RecordingEventHandler) FailWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Reset clears recorded events and the configured error
func (h *RecordingEventHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = nil
	h.err = nil
}

// StubEvent is a minimal domain event for bus and handler tests
type StubEvent struct {
	shared.BaseDomainEvent
	Payload string
}

// NewStubEvent builds an event of the given type for the tenant
func NewStubEvent(eventType string, tenantID uuid.UUID) *StubEvent {
	return &StubEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "StubAggregate", uuid.New(), tenantID),
		Payload:         "stub-payload",
	}
}

// NewStubEventWithID builds an event with a fixed event ID, for
// idempotency tests that replay the same event
func NewStubEventWithID(eventID uuid.UUID, eventType string, tenantID uuid.UUID) *StubEvent {
	e := NewStubEvent(eventType, tenantID)
	e.ID = eventID
	return e
}

// WaitForEvents blocks until the handler saw at least count events or
// the timeout elapsed, reporting whether the count was reached
func WaitForEvents(t *testing.T, handler *RecordingEventHandler, count int, timeout time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if handler.ReceivedCount() >= count {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return handler.ReceivedCount() >= count
}
