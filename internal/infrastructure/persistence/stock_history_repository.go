package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/inventory"
)

// GormStockHistoryRepository implements StockHistoryRepository using GORM.
// History rows are append-only; there is no update or delete path.
type GormStockHistoryRepository struct {
	db *gorm.DB
}

// NewGormStockHistoryRepository creates a new GormStockHistoryRepository
func NewGormStockHistoryRepository(db *gorm.DB) *GormStockHistoryRepository {
	return &GormStockHistoryRepository{db: db}
}

// Save appends a history row
func (r *GormStockHistoryRepository) Save(ctx context.Context, history *inventory.StockHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// FindByProductID returns a product's movement chain, oldest first, so
// replaying it reproduces the current on-hand quantity
func (r *GormStockHistoryRepository) FindByProductID(ctx context.Context, tenantID, productID uuid.UUID) ([]*inventory.StockHistory, error) {
	var histories []*inventory.StockHistory
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("created_at ASC").
		Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}

// Ensure GormStockHistoryRepository implements StockHistoryRepository
var _ inventory.StockHistoryRepository = (*GormStockHistoryRepository)(nil)
