// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockHealthProvider implements StockHealthProvider using GORM.
// It queries the products and supplier_payables tables directly for
// aggregated health numbers.
type GormStockHealthProvider struct {
	db *gorm.DB
}

// NewGormStockHealthProvider creates a new GormStockHealthProvider.
func NewGormStockHealthProvider(db *gorm.DB) *GormStockHealthProvider {
	return &GormStockHealthProvider{db: db}
}

// GetLowStockCount returns the count of products below their minimum
// stock threshold for a tenant.
func (p *GormStockHealthProvider) GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("products").
		Where("tenant_id = ?", tenantID).
		Where("quantity < min_stock").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetOutstandingPayableCents returns the summed outstanding payable
// amount for a tenant in cents.
func (p *GormStockHealthProvider) GetOutstandingPayableCents(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var totalCents int64
	err := p.db.WithContext(ctx).
		Table("supplier_payables").
		Select("COALESCE(SUM(outstanding_amount * 100), 0)").
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []string{"PENDING", "PARTIAL"}).
		Scan(&totalCents).Error
	if err != nil {
		return 0, err
	}
	return totalCents, nil
}

// Ensure GormStockHealthProvider implements StockHealthProvider
var _ StockHealthProvider = (*GormStockHealthProvider)(nil)
