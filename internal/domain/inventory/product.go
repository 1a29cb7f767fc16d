package inventory

import (
	"time"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a pharmacy catalog item. Its on-hand quantity is mutated only
// through stock reconciliation so the stock history chain stays unbroken.
type Product struct {
	shared.TenantAggregateRoot
	Name          string          `gorm:"type:varchar(200);not null;index" json:"name"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"quantity"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"selling_price"`
	GSTPercent    decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0" json:"gst_percent"`
	MinStock      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"min_stock"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new catalog product with zero stock
func NewProduct(tenantID uuid.UUID, name string, purchasePrice, sellingPrice, gstPercent, minStock decimal.Decimal) (*Product, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot exceed 200 characters")
	}
	if purchasePrice.IsNegative() || sellingPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	if gstPercent.IsNegative() || gstPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_GST_PERCENT", "GST percent must be between 0 and 100")
	}
	if minStock.IsNegative() {
		return nil, shared.NewDomainError("INVALID_MIN_STOCK", "Minimum stock cannot be negative")
	}

	return &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Quantity:            decimal.Zero,
		PurchasePrice:       purchasePrice,
		SellingPrice:        sellingPrice,
		GSTPercent:          gstPercent,
		MinStock:            minStock,
	}, nil
}

// UpdatePricing updates catalog prices without touching stock
func (p *Product) UpdatePricing(purchasePrice, sellingPrice, gstPercent decimal.Decimal) error {
	if purchasePrice.IsNegative() || sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	if gstPercent.IsNegative() || gstPercent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_GST_PERCENT", "GST percent must be between 0 and 100")
	}

	p.PurchasePrice = purchasePrice
	p.SellingPrice = sellingPrice
	p.GSTPercent = gstPercent
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// IsBelowMinStock reports whether on-hand quantity has fallen below the
// configured reorder threshold
func (p *Product) IsBelowMinStock() bool {
	return p.Quantity.LessThan(p.MinStock)
}

// applyQuantity sets the reconciled on-hand quantity. Only the
// reconciliation service calls this; it never goes below zero.
func (p *Product) applyQuantity(newQty decimal.Decimal) {
	if newQty.IsNegative() {
		newQty = decimal.Zero
	}
	p.Quantity = newQty
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
