package inventory

import (
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypePurchase   MovementType = "PURCHASE"
	MovementTypeReturn     MovementType = "RETURN"
	MovementTypeSale       MovementType = "SALE"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
)

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypePurchase, MovementTypeReturn, MovementTypeSale, MovementTypeAdjustment:
		return true
	}
	return false
}

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// StockHistory is one link in a product's append-only audit chain. NewQty
// must equal PreviousQty plus the signed Quantity delta at write time, so
// replaying the chain reproduces the current on-hand quantity.
type StockHistory struct {
	shared.BaseEntity
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	BatchID     *uuid.UUID      `gorm:"type:uuid" json:"batch_id"`
	Type        MovementType    `gorm:"type:varchar(20);not null" json:"type"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"` // signed delta
	PreviousQty decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"previous_qty"`
	NewQty      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"new_qty"`
	Reference   string          `gorm:"type:varchar(120)" json:"reference"`
	Notes       string          `gorm:"type:text" json:"notes"`
}

// TableName returns the table name for GORM
func (StockHistory) TableName() string {
	return "stock_histories"
}

// NewStockHistory creates a history row and enforces the chain invariant
func NewStockHistory(
	tenantID, productID uuid.UUID,
	batchID *uuid.UUID,
	movementType MovementType,
	quantity, previousQty, newQty decimal.Decimal,
	reference, notes string,
) (*StockHistory, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "History requires a product")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Movement type is not valid")
	}
	if quantity.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement delta cannot be zero")
	}
	if !newQty.Equal(previousQty.Add(quantity)) {
		return nil, shared.NewDomainError("BROKEN_STOCK_CHAIN",
			"New quantity must equal previous quantity plus the movement delta")
	}
	if newQty.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot go negative")
	}

	return &StockHistory{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		ProductID:   productID,
		BatchID:     batchID,
		Type:        movementType,
		Quantity:    quantity,
		PreviousQty: previousQty,
		NewQty:      newQty,
		Reference:   reference,
		Notes:       notes,
	}, nil
}
