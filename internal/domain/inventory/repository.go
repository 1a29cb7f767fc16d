package inventory

import (
	"context"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductRepository manages catalog products
type ProductRepository interface {
	shared.TenantRepository[Product]
	// FindByIDForUpdate loads a product holding a row-level lock inside the
	// current transaction, serializing concurrent quantity mutations
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Product, error)
}

// StockBatchRepository manages received lots
type StockBatchRepository interface {
	Save(ctx context.Context, batch *StockBatch) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockBatch, error)
	FindByProductID(ctx context.Context, tenantID, productID uuid.UUID) ([]*StockBatch, error)
}

// StockHistoryRepository manages the append-only audit chain
type StockHistoryRepository interface {
	Save(ctx context.Context, history *StockHistory) error
	FindByProductID(ctx context.Context, tenantID, productID uuid.UUID) ([]*StockHistory, error)
}

// StockTransactionRepository manages the stock event log
type StockTransactionRepository interface {
	Save(ctx context.Context, txn *StockTransaction) error
	FindByRef(ctx context.Context, tenantID uuid.UUID, refType string, refID uuid.UUID) ([]*StockTransaction, error)
}
