package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/procurement"
	"github.com/clinicware/backend/internal/domain/shared"
)

// GormSupplierRepository implements SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier by its ID
func (r *GormSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.Supplier, error) {
	var supplier procurement.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindByIDForTenant finds a supplier by ID within a tenant
func (r *GormSupplierRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.Supplier, error) {
	var supplier procurement.Supplier
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindByTaxID finds a supplier by its normalized tax identifier within a
// tenant. This is the only dedup lookup; name matching is never used.
func (r *GormSupplierRepository) FindByTaxID(ctx context.Context, tenantID uuid.UUID, normalizedTaxID string) (*procurement.Supplier, error) {
	if normalizedTaxID == "" {
		return nil, shared.NewDomainError("INVALID_TAX_ID", "Tax ID cannot be empty")
	}
	var supplier procurement.Supplier
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND tax_id = ?", tenantID, normalizedTaxID).
		First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindAll finds all suppliers matching the filter
func (r *GormSupplierRepository) FindAll(ctx context.Context, filter shared.Filter) ([]procurement.Supplier, error) {
	var suppliers []procurement.Supplier
	query := r.applyFilter(r.db.WithContext(ctx).Model(&procurement.Supplier{}), filter)

	if err := query.Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// FindAllForTenant finds all suppliers for a tenant
func (r *GormSupplierRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.Supplier, error) {
	var suppliers []procurement.Supplier
	query := r.applyFilter(r.db.WithContext(ctx).Model(&procurement.Supplier{}).Where("tenant_id = ?", tenantID), filter)

	if err := query.Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// Save creates or updates a supplier
func (r *GormSupplierRepository) Save(ctx context.Context, supplier *procurement.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

// Delete deletes a supplier
func (r *GormSupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&procurement.Supplier{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts suppliers matching the filter
func (r *GormSupplierRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applySearch(r.db.WithContext(ctx).Model(&procurement.Supplier{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies search, ordering and pagination to the query
func (r *GormSupplierRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applySearch(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, SupplierSortFields, "name")
	orderDir := ValidateSortOrder(filter.OrderDir)
	if orderBy == "name" && strings.TrimSpace(filter.OrderDir) == "" {
		orderDir = "ASC"
	}
	return query.Order(orderBy + " " + orderDir)
}

func (r *GormSupplierRepository) applySearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR tax_id ILIKE ?", pattern, pattern)
	}
	return query
}

// Ensure GormSupplierRepository implements SupplierRepository
var _ procurement.SupplierRepository = (*GormSupplierRepository)(nil)
