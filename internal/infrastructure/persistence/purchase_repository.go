package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clinicware/backend/internal/domain/procurement"
	"github.com/clinicware/backend/internal/domain/shared"
)

// GormPurchaseRepository implements PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// Save persists the purchase and replaces its item set wholesale.
// Items are owned by the purchase; stale rows from a previous draft
// edit are deleted in the same transaction.
func (r *GormPurchaseRepository) Save(ctx context.Context, purchase *procurement.Purchase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(purchase).Error; err != nil {
			return err
		}
		if err := tx.Where("purchase_id = ?", purchase.ID).
			Delete(&procurement.PurchaseItem{}).Error; err != nil {
			return err
		}
		if len(purchase.Items) > 0 {
			if err := tx.Create(&purchase.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a purchase with its items within a tenant
func (r *GormPurchaseRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*procurement.Purchase, error) {
	var purchase procurement.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// FindByIDForUpdate loads a purchase holding a FOR UPDATE row lock on
// the purchase row. Only meaningful inside a transaction; the preloaded
// items are read without a lock.
func (r *GormPurchaseRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*procurement.Purchase, error) {
	var purchase procurement.Purchase
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// FindAll finds purchases matching the filter, with items, plus the
// total count before pagination
func (r *GormPurchaseRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter procurement.PurchaseFilter) ([]*procurement.Purchase, int64, error) {
	base := r.db.WithContext(ctx).Model(&procurement.Purchase{}).Where("tenant_id = ?", tenantID)
	base = r.applyFilter(base, filter)

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

	var purchases []*procurement.Purchase
	if err := base.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&purchases).Error; err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

// Delete removes a purchase and its items. State checks (draft only)
// are enforced by the application layer before calling this.
func (r *GormPurchaseRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_id = ?", id).
			Delete(&procurement.PurchaseItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&procurement.Purchase{}, "tenant_id = ? AND id = ?", tenantID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormPurchaseRepository) applyFilter(query *gorm.DB, filter procurement.PurchaseFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.IsReturn != nil {
		query = query.Where("is_return = ?", *filter.IsReturn)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("invoice_no ILIKE ? OR supplier_name ILIKE ?", pattern, pattern)
	}
	return query
}

// Ensure GormPurchaseRepository implements PurchaseRepository
var _ procurement.PurchaseRepository = (*GormPurchaseRepository)(nil)
