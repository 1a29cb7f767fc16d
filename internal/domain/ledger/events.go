package ledger

import (
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types published by the ledger context
const (
	EventTypePayableCreated = "ledger.payable.created"
	EventTypePayableSettled = "ledger.payable.settled"
)

// PayableCreatedEvent is published when a supplier payable is opened
type PayableCreatedEvent struct {
	shared.BaseDomainEvent
	PayableNumber string          `json:"payable_number"`
	SupplierName  string          `json:"supplier_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewPayableCreatedEvent creates a payable created event
func NewPayableCreatedEvent(p *SupplierPayable) *PayableCreatedEvent {
	return &PayableCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayableCreated, "SupplierPayable", p.ID, p.TenantID),
		PayableNumber:   p.PayableNumber,
		SupplierName:    p.SupplierName,
		TotalAmount:     p.TotalAmount,
	}
}

// PayableSettledEvent is published when a payable reaches zero outstanding
type PayableSettledEvent struct {
	shared.BaseDomainEvent
	PayableNumber string          `json:"payable_number"`
	SettledAmount decimal.Decimal `json:"settled_amount"`
}

// NewPayableSettledEvent creates a payable settled event
func NewPayableSettledEvent(p *SupplierPayable) *PayableSettledEvent {
	return &PayableSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayableSettled, "SupplierPayable", p.ID, p.TenantID),
		PayableNumber:   p.PayableNumber,
		SettledAmount:   p.SettledAmount,
	}
}
