package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/inventory"
	"github.com/clinicware/backend/internal/domain/shared"
)

// GormStockBatchRepository implements StockBatchRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// Save persists a stock batch
func (r *GormStockBatchRepository) Save(ctx context.Context, batch *inventory.StockBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// FindByID finds a batch by ID within a tenant
func (r *GormStockBatchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockBatch, error) {
	var batch inventory.StockBatch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByProductID finds all batches of a product, newest first
func (r *GormStockBatchRepository) FindByProductID(ctx context.Context, tenantID, productID uuid.UUID) ([]*inventory.StockBatch, error) {
	var batches []*inventory.StockBatch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("created_at DESC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Ensure GormStockBatchRepository implements StockBatchRepository
var _ inventory.StockBatchRepository = (*GormStockBatchRepository)(nil)
