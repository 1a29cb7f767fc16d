package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/shared"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var account ledger.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByIDForTenant finds an account by ID within a tenant
func (r *GormAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var account ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByNormalizedName finds an account by its case-folded name.
// The resolver uses this for get-or-create semantics; two names that
// normalize alike always hit the same row.
func (r *GormAccountRepository) FindByNormalizedName(ctx context.Context, tenantID uuid.UUID, normalizedName string) (*ledger.Account, error) {
	if normalizedName == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	var account ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND normalized_name = ?", tenantID, normalizedName).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindAll finds all accounts matching the filter
func (r *GormAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Account, error) {
	var accounts []ledger.Account
	query := r.applyFilter(r.db.WithContext(ctx).Model(&ledger.Account{}), filter)

	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindAllForTenant finds all accounts for a tenant
func (r *GormAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]ledger.Account, error) {
	var accounts []ledger.Account
	query := r.applyFilter(r.db.WithContext(ctx).Model(&ledger.Account{}).Where("tenant_id = ?", tenantID), filter)

	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// Delete deletes an account
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&ledger.Account{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts accounts matching the filter
func (r *GormAccountRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&ledger.Account{})
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAccountRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if accountType, ok := filter.Filters["type"]; ok {
		query = query.Where("type = ?", accountType)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query.Order("name ASC")
}

// Ensure GormAccountRepository implements AccountRepository
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
