package inventory

import (
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockTransaction is an append-only event log row correlating a stock
// change to the business document that caused it.
type StockTransaction struct {
	shared.BaseEntity
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ChangeQty decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"change_qty"` // signed
	Type      MovementType    `gorm:"type:varchar(20);not null" json:"type"`
	RefType   string          `gorm:"type:varchar(30);not null;index:idx_stock_txn_ref" json:"ref_type"`
	RefID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_txn_ref" json:"ref_id"`
}

// TableName returns the table name for GORM
func (StockTransaction) TableName() string {
	return "stock_transactions"
}

// NewStockTransaction creates an audit correlation row
func NewStockTransaction(tenantID, productID uuid.UUID, changeQty decimal.Decimal, movementType MovementType, refType string, refID uuid.UUID) (*StockTransaction, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Transaction requires a product")
	}
	if changeQty.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Change quantity cannot be zero")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Movement type is not valid")
	}
	if refType == "" || refID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Transaction requires a reference")
	}

	return &StockTransaction{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		ProductID:  productID,
		ChangeQty:  changeQty,
		Type:       movementType,
		RefType:    refType,
		RefID:      refID,
	}, nil
}
