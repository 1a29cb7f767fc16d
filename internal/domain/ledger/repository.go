package ledger

import (
	"context"
	"time"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository manages per-tenant ledger accounts
type AccountRepository interface {
	shared.TenantRepository[Account]
	// FindByNormalizedName looks up an account by its case-folded name
	FindByNormalizedName(ctx context.Context, tenantID uuid.UUID, normalizedName string) (*Account, error)
}

// EntryFilter narrows ledger entry queries
type EntryFilter struct {
	AccountID   *uuid.UUID
	AccountName string
	RefType     *RefType
	RefID       *uuid.UUID
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// AccountBalance is one row of the ledger summary aggregation
type AccountBalance struct {
	AccountName string          `json:"account_name"`
	AccountID   *uuid.UUID      `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// EntryRepository manages append-only ledger entries
type EntryRepository interface {
	// SaveAll persists a balanced set of entries in the current transaction
	SaveAll(ctx context.Context, entries []*Entry) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Entry, error)
	FindByRef(ctx context.Context, tenantID uuid.UUID, refType RefType, refID uuid.UUID) ([]*Entry, error)
	Query(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]*Entry, int64, error)
	// QueryAll streams every entry matching the filter without pagination,
	// for CSV export
	QueryAll(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]*Entry, error)
}

// PayableRepository manages supplier payables
type PayableRepository interface {
	Save(ctx context.Context, payable *SupplierPayable) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SupplierPayable, error)
	FindByPurchaseID(ctx context.Context, tenantID, purchaseID uuid.UUID) (*SupplierPayable, error)
	FindOutstanding(ctx context.Context, tenantID uuid.UUID, supplierID *uuid.UUID, filter shared.Filter) ([]*SupplierPayable, int64, error)
	// NextPayableNumber issues the next sequential payable number for the day
	NextPayableNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
