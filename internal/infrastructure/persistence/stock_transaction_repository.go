package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/inventory"
)

// GormStockTransactionRepository implements StockTransactionRepository
// using GORM. Rows are append-only.
type GormStockTransactionRepository struct {
	db *gorm.DB
}

// NewGormStockTransactionRepository creates a new GormStockTransactionRepository
func NewGormStockTransactionRepository(db *gorm.DB) *GormStockTransactionRepository {
	return &GormStockTransactionRepository{db: db}
}

// Save appends a stock transaction row
func (r *GormStockTransactionRepository) Save(ctx context.Context, txn *inventory.StockTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindByRef returns the stock transactions correlated to one business
// document, e.g. every movement a purchase receive caused
func (r *GormStockTransactionRepository) FindByRef(ctx context.Context, tenantID uuid.UUID, refType string, refID uuid.UUID) ([]*inventory.StockTransaction, error) {
	var txns []*inventory.StockTransaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND ref_type = ? AND ref_id = ?", tenantID, refType, refID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// Ensure GormStockTransactionRepository implements StockTransactionRepository
var _ inventory.StockTransactionRepository = (*GormStockTransactionRepository)(nil)
