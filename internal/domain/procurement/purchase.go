package procurement

import (
	"fmt"
	"time"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus represents the lifecycle state of a purchase record
type PurchaseStatus string

const (
	PurchaseStatusDraft    PurchaseStatus = "DRAFT"
	PurchaseStatusReceived PurchaseStatus = "RECEIVED"
	PurchaseStatusReturned PurchaseStatus = "RETURNED"
)

// IsValid checks if the status is a valid PurchaseStatus
func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusDraft, PurchaseStatusReceived, PurchaseStatusReturned:
		return true
	}
	return false
}

// String returns the string representation of PurchaseStatus
func (s PurchaseStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// DRAFT moves to RECEIVED exactly once; RECEIVED and RETURNED are terminal.
// Returns are separate RETURNED-flagged records, never a transition on the
// original purchase.
func (s PurchaseStatus) CanTransitionTo(target PurchaseStatus) bool {
	return s == PurchaseStatusDraft && target == PurchaseStatusReceived
}

// PurchaseItem represents one invoice line. Items are owned exclusively by
// their purchase and are replaced wholesale on draft edits, never patched.
type PurchaseItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	PurchaseID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_id"`
	ProductID        *uuid.UUID      `gorm:"type:uuid;index" json:"product_id"` // nil until matched to a catalog product
	Name             string          `gorm:"type:varchar(200);not null" json:"name"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"` // Quantity * UnitPrice, server-computed
	BatchNumber      string          `gorm:"type:varchar(60)" json:"batch_number"`
	ExpiryDate       *time.Time      `json:"expiry_date"`
	ReturnedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"returned_quantity"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name for GORM
func (PurchaseItem) TableName() string {
	return "purchase_items"
}

// NewPurchaseItem creates a line item. The amount is always recomputed from
// quantity and unit price; client-supplied amounts are ignored upstream.
func NewPurchaseItem(purchaseID uuid.UUID, productID *uuid.UUID, name string, quantity, unitPrice, taxAmount decimal.Decimal, batchNumber string, expiryDate *time.Time) (*PurchaseItem, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ITEM_NAME", "Item name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_UNIT_PRICE", "Item unit price cannot be negative")
	}
	if taxAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX", "Item tax cannot be negative")
	}

	now := time.Now()
	return &PurchaseItem{
		ID:               uuid.New(),
		PurchaseID:       purchaseID,
		ProductID:        productID,
		Name:             name,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		TaxAmount:        taxAmount,
		Amount:           quantity.Mul(unitPrice),
		BatchNumber:      batchNumber,
		ExpiryDate:       expiryDate,
		ReturnedQuantity: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ReturnableQuantity returns the quantity not yet returned
func (i *PurchaseItem) ReturnableQuantity() decimal.Decimal {
	remaining := i.Quantity.Sub(i.ReturnedQuantity)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsLinked reports whether the item is matched to a catalog product
func (i *PurchaseItem) IsLinked() bool {
	return i.ProductID != nil && *i.ProductID != uuid.Nil
}

// Purchase represents a supplier invoice: a draft created from parsed or
// manual input, received exactly once, with returns recorded as separate
// RETURNED-flagged records referencing the original.
type Purchase struct {
	shared.TenantAggregateRoot
	SupplierID         *uuid.UUID      `gorm:"type:uuid;index" json:"supplier_id"`
	SupplierName       string          `gorm:"type:varchar(200)" json:"supplier_name"`
	InvoiceNo          string          `gorm:"type:varchar(60);not null" json:"invoice_no"`
	InvoiceDate        *time.Time      `json:"invoice_date"`
	Status             PurchaseStatus  `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"status"`
	Items              []PurchaseItem  `gorm:"foreignKey:PurchaseID;references:ID" json:"items"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	RoundOff           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"round_off"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"`
	Notes              string          `gorm:"type:text" json:"notes"`
	IsReturn           bool            `gorm:"not null;default:false;index" json:"is_return"`
	OriginalPurchaseID *uuid.UUID      `gorm:"type:uuid;index" json:"original_purchase_id"`
	ReceivedAt         *time.Time      `json:"received_at"`
}

// TableName returns the table name for GORM
func (Purchase) TableName() string {
	return "purchases"
}

// NewDraftPurchase creates a draft purchase with no stock or ledger effect
func NewDraftPurchase(tenantID uuid.UUID, supplierID *uuid.UUID, supplierName, invoiceNo string, invoiceDate *time.Time, roundOff decimal.Decimal, notes string) (*Purchase, error) {
	if invoiceNo == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NO", "Invoice number cannot be empty")
	}
	if len(invoiceNo) > 60 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NO", "Invoice number cannot exceed 60 characters")
	}

	return &Purchase{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SupplierID:          supplierID,
		SupplierName:        supplierName,
		InvoiceNo:           invoiceNo,
		InvoiceDate:         invoiceDate,
		Status:              PurchaseStatusDraft,
		Items:               make([]PurchaseItem, 0),
		Subtotal:            decimal.Zero,
		TaxAmount:           decimal.Zero,
		RoundOff:            roundOff,
		TotalAmount:         roundOff,
		Notes:               notes,
	}, nil
}

// ItemInput carries caller-supplied line data. Amount is intentionally
// absent: the engine computes it.
type ItemInput struct {
	ProductID   *uuid.UUID
	Name        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxAmount   decimal.Decimal
	BatchNumber string
	ExpiryDate  *time.Time
}

// ReplaceItems swaps all line items with the given set and recomputes
// totals. Overwrite semantics, not merge: the previous items are discarded.
// Only allowed while the purchase is a draft.
func (p *Purchase) ReplaceItems(inputs []ItemInput) error {
	if p.Status != PurchaseStatusDraft {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot edit items of a %s purchase", p.Status))
	}
	if len(inputs) == 0 {
		return shared.NewDomainError("INVALID_ITEMS", "Purchase requires at least one item")
	}

	items := make([]PurchaseItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := NewPurchaseItem(p.ID, in.ProductID, in.Name, in.Quantity, in.UnitPrice, in.TaxAmount, in.BatchNumber, in.ExpiryDate)
		if err != nil {
			return err
		}
		items = append(items, *item)
	}

	p.Items = items
	p.recalculateTotals()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// recalculateTotals recomputes subtotal, tax and total from the items
func (p *Purchase) recalculateTotals() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, item := range p.Items {
		subtotal = subtotal.Add(item.Amount)
		tax = tax.Add(item.TaxAmount)
	}
	p.Subtotal = subtotal
	p.TaxAmount = tax
	p.TotalAmount = subtotal.Add(tax).Add(p.RoundOff)
}

// SetRoundOff updates the round-off and recomputes the total
func (p *Purchase) SetRoundOff(roundOff decimal.Decimal) error {
	if p.Status != PurchaseStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot change round-off after receiving")
	}
	p.RoundOff = roundOff
	p.recalculateTotals()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// CanDelete reports whether the purchase may be deleted (drafts only)
func (p *Purchase) CanDelete() bool {
	return p.Status == PurchaseStatusDraft
}

// MarkReceived transitions the draft to RECEIVED. Receiving twice is
// rejected here; double-posting ledger entries is the most damaging bug
// class in this domain.
func (p *Purchase) MarkReceived() error {
	if p.Status == PurchaseStatusReceived {
		return shared.ErrAlreadyReceived
	}
	if !p.Status.CanTransitionTo(PurchaseStatusReceived) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot receive a %s purchase", p.Status))
	}
	if len(p.Items) == 0 {
		return shared.NewDomainError("INVALID_ITEMS", "Cannot receive a purchase without items")
	}

	now := time.Now()
	p.Status = PurchaseStatusReceived
	p.ReceivedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPurchaseReceivedEvent(p))
	return nil
}

// EffectiveTaxRate is the tax rate actually charged on this purchase,
// used to prorate tax on returns
func (p *Purchase) EffectiveTaxRate() decimal.Decimal {
	if p.Subtotal.IsZero() {
		return decimal.Zero
	}
	return p.TaxAmount.Div(p.Subtotal)
}

// ReturnLine identifies one item and quantity being returned
type ReturnLine struct {
	PurchaseItemID uuid.UUID       `json:"purchase_item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// BuildReturn validates the requested lines against the received purchase,
// marks the returned quantities on the original items, and produces a
// RETURNED-flagged purchase record referencing the original. The caller
// persists both records and the return's stock/ledger effects atomically.
func (p *Purchase) BuildReturn(lines []ReturnLine, notes string) (*Purchase, error) {
	if p.Status != PurchaseStatusReceived {
		return nil, shared.NewDomainError("INVALID_STATE", "Only a received purchase can be returned against")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_ITEMS", "Return requires at least one line")
	}

	itemsByID := make(map[uuid.UUID]*PurchaseItem, len(p.Items))
	for i := range p.Items {
		itemsByID[p.Items[i].ID] = &p.Items[i]
	}

	// Validate every line before mutating anything
	for _, line := range lines {
		item, ok := itemsByID[line.PurchaseItemID]
		if !ok {
			return nil, shared.NewDomainError("INVALID_ITEM",
				fmt.Sprintf("Purchase item %s does not belong to this purchase", line.PurchaseItemID))
		}
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Return quantity must be positive")
		}
		if line.Quantity.GreaterThan(item.ReturnableQuantity()) {
			return nil, shared.NewDomainError("RETURN_EXCEEDS_QUANTITY",
				fmt.Sprintf("Cannot return %s of %q, only %s remaining", line.Quantity, item.Name, item.ReturnableQuantity()))
		}
	}

	ret := &Purchase{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID),
		SupplierID:          p.SupplierID,
		SupplierName:        p.SupplierName,
		InvoiceNo:           p.InvoiceNo,
		InvoiceDate:         p.InvoiceDate,
		Status:              PurchaseStatusReturned,
		Items:               make([]PurchaseItem, 0, len(lines)),
		Subtotal:            decimal.Zero,
		TaxAmount:           decimal.Zero,
		RoundOff:            decimal.Zero,
		TotalAmount:         decimal.Zero,
		Notes:               notes,
		IsReturn:            true,
		OriginalPurchaseID:  &p.ID,
	}

	rate := p.EffectiveTaxRate()
	now := time.Now()
	for _, line := range lines {
		item := itemsByID[line.PurchaseItemID]
		item.ReturnedQuantity = item.ReturnedQuantity.Add(line.Quantity)
		item.UpdatedAt = now

		base := line.Quantity.Mul(item.UnitPrice)
		retItem := PurchaseItem{
			ID:          uuid.New(),
			PurchaseID:  ret.ID,
			ProductID:   item.ProductID,
			Name:        item.Name,
			Quantity:    line.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxAmount:   base.Mul(rate),
			Amount:      base,
			BatchNumber: item.BatchNumber,
			ExpiryDate:  item.ExpiryDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		ret.Items = append(ret.Items, retItem)
	}
	ret.recalculateTotals()

	p.UpdatedAt = now
	p.IncrementVersion()

	ret.AddDomainEvent(NewPurchaseReturnedEvent(ret, p.ID))
	return ret, nil
}
