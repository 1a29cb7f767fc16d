package inventory

import (
	"strings"
	"time"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockBatch is one received lot of a product with its own cost and expiry.
// Batches are immutable once created; consumption is tracked through the
// stock history, not by mutating the batch.
type StockBatch struct {
	shared.BaseEntity
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"cost_price"`
	BatchNumber string          `gorm:"type:varchar(60);not null" json:"batch_number"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
}

// TableName returns the table name for GORM
func (StockBatch) TableName() string {
	return "stock_batches"
}

// NewStockBatch creates an immutable stock batch for a received lot
func NewStockBatch(tenantID, productID uuid.UUID, quantity, costPrice decimal.Decimal, batchNumber string, expiryDate *time.Time) (*StockBatch, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Batch requires a product")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantity must be positive")
	}
	if costPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST_PRICE", "Batch cost price cannot be negative")
	}
	if strings.TrimSpace(batchNumber) == "" {
		batchNumber = GenerateBatchNumber()
	}

	return &StockBatch{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		ProductID:   productID,
		Quantity:    quantity,
		CostPrice:   costPrice,
		BatchNumber: strings.TrimSpace(batchNumber),
		ExpiryDate:  expiryDate,
	}, nil
}

// IsExpired reports whether the batch has passed its expiry date
func (b *StockBatch) IsExpired(now time.Time) bool {
	return b.ExpiryDate != nil && now.After(*b.ExpiryDate)
}

// GenerateBatchNumber issues a synthetic batch token for invoices that did
// not carry one. Short and unique, not user-meaningful.
func GenerateBatchNumber() string {
	return "B-" + strings.ToUpper(uuid.NewString()[:8])
}
