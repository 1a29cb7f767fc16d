package procurement

import (
	"context"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SupplierRepository manages suppliers
type SupplierRepository interface {
	shared.TenantRepository[Supplier]
	// FindByTaxID looks up a supplier by normalized tax identifier
	FindByTaxID(ctx context.Context, tenantID uuid.UUID, normalizedTaxID string) (*Supplier, error)
}

// PurchaseFilter narrows purchase list queries
type PurchaseFilter struct {
	Status     *PurchaseStatus
	SupplierID *uuid.UUID
	IsReturn   *bool
	Search     string
	Page       int
	PageSize   int
}

// PurchaseRepository manages purchases and their items
type PurchaseRepository interface {
	// Save persists the purchase and its items. Draft item replacement
	// deletes the previous item set in the same transaction.
	Save(ctx context.Context, purchase *Purchase) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Purchase, error)
	// FindByIDForUpdate loads the purchase holding a row lock. Only
	// meaningful inside a transaction; concurrent receives and returns
	// on the same purchase serialize here.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Purchase, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter PurchaseFilter) ([]*Purchase, int64, error)
	// Delete removes a draft purchase and its items
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
