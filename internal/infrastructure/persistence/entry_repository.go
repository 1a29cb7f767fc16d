package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/shared"
)

// GormEntryRepository implements EntryRepository using GORM.
// Ledger entries are append-only; there is no update or delete path.
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

// SaveAll appends a balanced set of entries. The caller validates
// balance before this point; the repository persists atomically within
// the current transaction.
func (r *GormEntryRepository) SaveAll(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// FindByID finds an entry by ID within a tenant
func (r *GormEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByRef returns every entry posted for one business document
func (r *GormEntryRepository) FindByRef(ctx context.Context, tenantID uuid.UUID, refType ledger.RefType, refID uuid.UUID) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND ref_type = ? AND ref_id = ?", tenantID, refType, refID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Query returns a page of entries matching the filter plus the total count
func (r *GormEntryRepository) Query(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter) ([]*ledger.Entry, int64, error) {
	base := r.applyFilter(r.db.WithContext(ctx).Model(&ledger.Entry{}).Where("tenant_id = ?", tenantID), filter)

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

	var entries []*ledger.Entry
	if err := base.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// QueryAll streams every entry matching the filter without pagination.
// CSV export uses this; ordering is oldest first so the export reads as
// a journal.
func (r *GormEntryRepository) QueryAll(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter) ([]*ledger.Entry, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&ledger.Entry{}).Where("tenant_id = ?", tenantID), filter)

	var entries []*ledger.Entry
	if err := query.Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormEntryRepository) applyFilter(query *gorm.DB, filter ledger.EntryFilter) *gorm.DB {
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.AccountName != "" {
		query = query.Where("account_name = ?", filter.AccountName)
	}
	if filter.RefType != nil {
		query = query.Where("ref_type = ?", *filter.RefType)
	}
	if filter.RefID != nil {
		query = query.Where("ref_id = ?", *filter.RefID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}

// Ensure GormEntryRepository implements EntryRepository
var _ ledger.EntryRepository = (*GormEntryRepository)(nil)
