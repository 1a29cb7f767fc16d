package shared

import (
	"github.com/google/uuid"
)

// BaseAggregateRoot adds optimistic-lock versioning and an in-memory
// event buffer on top of BaseEntity. Events accumulate on the aggregate
// while a use case runs and are drained by the application layer after
// the transaction commits.
type BaseAggregateRoot struct {
	BaseEntity
	Version       int           `gorm:"not null;default:1"`
	pendingEvents []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot starts an aggregate at version 1 with no events
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// IncrementVersion bumps the optimistic-lock version
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent buffers an event for publication after commit
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pendingEvents = append(a.pendingEvents, event)
}

// GetDomainEvents returns the buffered events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pendingEvents
}

// ClearDomainEvents drops the buffer, called once the events are handed
// to the publisher
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pendingEvents = nil
}

// TenantAggregateRoot scopes an aggregate to one tenant. Every query
// against these rows must filter on TenantID.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
}

// NewTenantAggregateRoot creates a tenant-scoped aggregate
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          tenantID,
	}
}

// SetCreatedBy records the user who created the record
func (t *TenantAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	t.CreatedBy = &userID
}
