package procurement

import (
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types published by the procurement context
const (
	EventTypePurchaseReceived = "procurement.purchase.received"
	EventTypePurchaseReturned = "procurement.purchase.returned"
)

// PurchaseReceivedEvent is published when a draft purchase is received
type PurchaseReceivedEvent struct {
	shared.BaseDomainEvent
	SupplierID   *uuid.UUID      `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	InvoiceNo    string          `json:"invoice_no"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// NewPurchaseReceivedEvent creates a purchase received event
func NewPurchaseReceivedEvent(p *Purchase) *PurchaseReceivedEvent {
	return &PurchaseReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseReceived, "Purchase", p.ID, p.TenantID),
		SupplierID:      p.SupplierID,
		SupplierName:    p.SupplierName,
		InvoiceNo:       p.InvoiceNo,
		Subtotal:        p.Subtotal,
		TaxAmount:       p.TaxAmount,
		TotalAmount:     p.TotalAmount,
	}
}

// PurchaseReturnedEvent is published when a return record is processed
type PurchaseReturnedEvent struct {
	shared.BaseDomainEvent
	OriginalPurchaseID uuid.UUID       `json:"original_purchase_id"`
	SupplierName       string          `json:"supplier_name"`
	InvoiceNo          string          `json:"invoice_no"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
}

// NewPurchaseReturnedEvent creates a purchase returned event
func NewPurchaseReturnedEvent(ret *Purchase, originalID uuid.UUID) *PurchaseReturnedEvent {
	return &PurchaseReturnedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypePurchaseReturned, "Purchase", ret.ID, ret.TenantID),
		OriginalPurchaseID: originalID,
		SupplierName:       ret.SupplierName,
		InvoiceNo:          ret.InvoiceNo,
		TotalAmount:        ret.TotalAmount,
	}
}
