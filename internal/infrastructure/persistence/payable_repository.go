package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/shared"
)

// GormPayableRepository implements PayableRepository using GORM
type GormPayableRepository struct {
	db *gorm.DB
}

// NewGormPayableRepository creates a new GormPayableRepository
func NewGormPayableRepository(db *gorm.DB) *GormPayableRepository {
	return &GormPayableRepository{db: db}
}

// Save creates or updates a payable
func (r *GormPayableRepository) Save(ctx context.Context, payable *ledger.SupplierPayable) error {
	return r.db.WithContext(ctx).Save(payable).Error
}

// FindByID finds a payable by ID within a tenant
func (r *GormPayableRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.SupplierPayable, error) {
	var payable ledger.SupplierPayable
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&payable).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payable, nil
}

// FindByPurchaseID finds the payable created for a received purchase
func (r *GormPayableRepository) FindByPurchaseID(ctx context.Context, tenantID, purchaseID uuid.UUID) (*ledger.SupplierPayable, error) {
	var payable ledger.SupplierPayable
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND purchase_id = ?", tenantID, purchaseID).
		First(&payable).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payable, nil
}

// FindOutstanding returns non-terminal payables, optionally narrowed to
// one supplier, plus the total count before pagination
func (r *GormPayableRepository) FindOutstanding(ctx context.Context, tenantID uuid.UUID, supplierID *uuid.UUID, filter shared.Filter) ([]*ledger.SupplierPayable, int64, error) {
	base := r.db.WithContext(ctx).Model(&ledger.SupplierPayable{}).
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []ledger.PayableStatus{ledger.PayableStatusPending, ledger.PayableStatusPartial})
	if supplierID != nil {
		base = base.Where("supplier_id = ?", *supplierID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		base = base.Where("payable_number ILIKE ? OR supplier_name ILIKE ? OR invoice_no ILIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	pageSize := filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	orderBy := ValidateSortField(filter.OrderBy, PayableSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var payables []*ledger.SupplierPayable
	if err := base.
		Order(orderBy + " " + orderDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payables).Error; err != nil {
		return nil, 0, err
	}
	return payables, total, nil
}

// NextPayableNumber issues the next sequential payable number for the
// tenant's current year, formatted PAY-YYYY-NNNN. Concurrent receives
// can race here; the payable number is informational, not a uniqueness
// anchor.
func (r *GormPayableRepository) NextPayableNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("PAY-%d-", year)

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&ledger.SupplierPayable{}).
		Select("payable_number").
		Where("tenant_id = ? AND payable_number LIKE ?", tenantID, prefix+"%").
		Order("payable_number DESC").
		Limit(1).
		Scan(&maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if len(maxNumber) >= 4 {
		var seq int
		if _, err := fmt.Sscanf(maxNumber[len(maxNumber)-4:], "%04d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}

	return fmt.Sprintf("%s%04d", prefix, nextSeq), nil
}

// Ensure GormPayableRepository implements PayableRepository
var _ ledger.PayableRepository = (*GormPayableRepository)(nil)
