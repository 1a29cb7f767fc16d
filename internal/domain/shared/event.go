package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is raised by an aggregate when something business-relevant
// happened. Events are immutable once created.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent implements the DomainEvent accessors; concrete events
// embed it and add their own payload fields
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
}

// NewBaseDomainEvent stamps a new event with an ID and the current time
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
	}
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID { return e.ID }

// EventType returns the event type string
func (e *BaseDomainEvent) EventType() string { return e.Type }

// OccurredAt returns when the event was raised
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID returns the ID of the aggregate that raised the event
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }

// AggregateType returns the aggregate's type name
func (e *BaseDomainEvent) AggregateType() string { return e.AggType }

// TenantID returns the tenant the event belongs to
func (e *BaseDomainEvent) TenantID() uuid.UUID { return e.TenantIDValue }
