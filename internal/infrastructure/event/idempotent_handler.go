package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/domain/shared"
)

// IdempotencyMetrics counts event outcomes across handlers. A single
// instance may be shared by several wrapped handlers.
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// IdempotencyStats is a point-in-time copy of the counters
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// Stats snapshots the counters
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotentHandler suppresses duplicate deliveries of the same event
// ID before they reach the wrapped handler. A retried purchase receive
// re-publishes its events; downstream handlers must still see each
// event once.
type IdempotentHandler struct {
	inner   shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// NewIdempotentHandler wraps inner with the default idempotency
// configuration and a private metrics instance
func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger) *IdempotentHandler {
	return NewIdempotentHandlerWithConfig(inner, store, logger, shared.DefaultIdempotencyConfig(), nil)
}

// NewIdempotentHandlerWithConfig wraps inner with an explicit
// configuration. A nil metrics gets a fresh instance; passing the same
// metrics to several handlers aggregates their counts.
func NewIdempotentHandlerWithConfig(
	inner shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	cfg shared.IdempotencyConfig,
	metrics *IdempotencyMetrics,
) *IdempotentHandler {
	if metrics == nil {
		metrics = &IdempotencyMetrics{}
	}
	return &IdempotentHandler{
		inner:   inner,
		store:   store,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// EventTypes forwards the wrapped handler's subscription
func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

// Metrics returns the counters backing this handler
func (h *IdempotentHandler) Metrics() *IdempotencyMetrics {
	return h.metrics
}

// Handle delivers the event to the wrapped handler unless the event ID
// was already processed within the configured TTL
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.inner.Handle(ctx, event)
	}

	eventID := event.EventID().String()
	if h.alreadyProcessed(ctx, eventID, event.EventType()) {
		h.metrics.EventsDuplicate.Add(1)
		return nil
	}

	if err := h.inner.Handle(ctx, event); err != nil {
		h.metrics.EventsFailed.Add(1)
		h.logger.Error("event handler failed",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		// The key stays marked until the TTL expires, which spaces
		// out retries of a failing event
		return err
	}

	h.metrics.EventsProcessed.Add(1)
	return nil
}

func (h *IdempotentHandler) alreadyProcessed(ctx context.Context, eventID, eventType string) bool {
	fresh, err := h.store.MarkProcessed(ctx, eventID, h.config.TTL)
	if err != nil {
		// A duplicate delivery is recoverable, a dropped event is
		// not, so a store failure lets the event through
		h.logger.Warn("idempotency check failed, processing anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return false
	}
	if !fresh {
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
		)
	}
	return !fresh
}
