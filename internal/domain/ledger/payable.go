package ledger

import (
	"fmt"
	"time"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayableStatus represents the settlement state of a supplier payable
type PayableStatus string

const (
	PayableStatusPending  PayableStatus = "PENDING"  // Unpaid, outstanding balance > 0
	PayableStatusPartial  PayableStatus = "PARTIAL"  // Partially settled
	PayableStatusSettled  PayableStatus = "SETTLED"  // Fully settled by payments and/or return credits
	PayableStatusReversed PayableStatus = "REVERSED" // Voided before settlement
)

// IsValid checks if the status is a valid PayableStatus
func (s PayableStatus) IsValid() bool {
	switch s {
	case PayableStatusPending, PayableStatusPartial, PayableStatusSettled, PayableStatusReversed:
		return true
	}
	return false
}

// String returns the string representation of PayableStatus
func (s PayableStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payable is in a terminal state
func (s PayableStatus) IsTerminal() bool {
	return s == PayableStatusSettled || s == PayableStatusReversed
}

// PayableSettlement records one reduction of the outstanding balance,
// either a payment or a purchase-return credit.
type PayableSettlement struct {
	ID        uuid.UUID       `json:"id"`
	PayableID uuid.UUID       `json:"payable_id"`
	RefType   RefType         `json:"ref_type"` // PAYMENT or PURCHASE_RETURN
	RefID     uuid.UUID       `json:"ref_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
	Note      string          `json:"note"`
}

// SupplierPayable tracks the amount owed to a supplier for one received
// purchase. It is created by the purchase-received event handler and settled
// by payments and return credits.
type SupplierPayable struct {
	shared.TenantAggregateRoot
	PayableNumber     string              `gorm:"type:varchar(30);not null;index" json:"payable_number"`
	SupplierID        uuid.UUID           `gorm:"type:uuid;index" json:"supplier_id"`
	SupplierName      string              `gorm:"type:varchar(200);not null" json:"supplier_name"`
	PurchaseID        uuid.UUID           `gorm:"type:uuid;not null;index" json:"purchase_id"`
	InvoiceNo         string              `gorm:"type:varchar(60)" json:"invoice_no"`
	TotalAmount       decimal.Decimal     `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	SettledAmount     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"settled_amount"`
	OutstandingAmount decimal.Decimal     `gorm:"type:decimal(18,4);not null" json:"outstanding_amount"`
	Status            PayableStatus       `gorm:"type:varchar(20);not null;index" json:"status"`
	Settlements       []PayableSettlement `gorm:"serializer:json;type:jsonb" json:"settlements"`
	SettledAt         *time.Time          `json:"settled_at"`
}

// TableName returns the table name for GORM
func (SupplierPayable) TableName() string {
	return "supplier_payables"
}

// NewSupplierPayable creates a payable for a received purchase
func NewSupplierPayable(
	tenantID uuid.UUID,
	payableNumber string,
	supplierID uuid.UUID,
	supplierName string,
	purchaseID uuid.UUID,
	invoiceNo string,
	totalAmount decimal.Decimal,
) (*SupplierPayable, error) {
	if payableNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYABLE_NUMBER", "Payable number cannot be empty")
	}
	if supplierName == "" {
		return nil, shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}
	if purchaseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PURCHASE", "Purchase ID cannot be empty")
	}
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payable amount must be positive")
	}

	p := &SupplierPayable{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PayableNumber:       payableNumber,
		SupplierID:          supplierID,
		SupplierName:        supplierName,
		PurchaseID:          purchaseID,
		InvoiceNo:           invoiceNo,
		TotalAmount:         totalAmount,
		SettledAmount:       decimal.Zero,
		OutstandingAmount:   totalAmount,
		Status:              PayableStatusPending,
		Settlements:         make([]PayableSettlement, 0),
	}
	p.AddDomainEvent(NewPayableCreatedEvent(p))
	return p, nil
}

// ApplyPayment reduces the outstanding balance by a payment
func (p *SupplierPayable) ApplyPayment(paymentID uuid.UUID, amount decimal.Decimal, note string) error {
	return p.applySettlement(RefTypePayment, paymentID, amount, note)
}

// ApplyReturnCredit reduces the outstanding balance by a purchase-return credit
func (p *SupplierPayable) ApplyReturnCredit(returnID uuid.UUID, amount decimal.Decimal, note string) error {
	return p.applySettlement(RefTypePurchaseReturn, returnID, amount, note)
}

func (p *SupplierPayable) applySettlement(refType RefType, refID uuid.UUID, amount decimal.Decimal, note string) error {
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot settle payable in %s status", p.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Settlement amount must be positive")
	}
	if amount.GreaterThan(p.OutstandingAmount) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Settlement amount %s exceeds outstanding amount %s", amount, p.OutstandingAmount))
	}
	if refID == uuid.Nil {
		return shared.NewDomainError("INVALID_REF_ID", "Settlement reference cannot be empty")
	}

	p.Settlements = append(p.Settlements, PayableSettlement{
		ID:        uuid.New(),
		PayableID: p.ID,
		RefType:   refType,
		RefID:     refID,
		Amount:    amount,
		AppliedAt: time.Now(),
		Note:      note,
	})

	p.SettledAmount = p.SettledAmount.Add(amount)
	p.OutstandingAmount = p.TotalAmount.Sub(p.SettledAmount)

	if p.OutstandingAmount.IsZero() {
		now := time.Now()
		p.Status = PayableStatusSettled
		p.SettledAt = &now
		p.AddDomainEvent(NewPayableSettledEvent(p))
	} else {
		p.Status = PayableStatusPartial
	}

	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Reverse voids the payable before any settlement has been applied
func (p *SupplierPayable) Reverse(reason string) error {
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reverse payable in %s status", p.Status))
	}
	if p.SettledAmount.GreaterThan(decimal.Zero) {
		return shared.NewDomainError("HAS_SETTLEMENTS", "Cannot reverse payable with existing settlements")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reversal reason is required")
	}

	p.Status = PayableStatusReversed
	p.OutstandingAmount = decimal.Zero
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// IsSettled returns true if the payable is fully settled
func (p *SupplierPayable) IsSettled() bool {
	return p.Status == PayableStatusSettled
}
