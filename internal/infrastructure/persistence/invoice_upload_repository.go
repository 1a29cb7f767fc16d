package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/ingestion"
	"github.com/clinicware/backend/internal/domain/shared"
)

// GormUploadRepository implements UploadRepository using GORM
type GormUploadRepository struct {
	db *gorm.DB
}

// NewGormUploadRepository creates a new GormUploadRepository
func NewGormUploadRepository(db *gorm.DB) *GormUploadRepository {
	return &GormUploadRepository{db: db}
}

// Save creates or updates an upload record
func (r *GormUploadRepository) Save(ctx context.Context, upload *ingestion.InvoiceUpload) error {
	return r.db.WithContext(ctx).Save(upload).Error
}

// SaveWithLock persists the record only if the stored version is the
// one this copy was loaded from. The domain increments the version
// before save, so the guard matches against version-1. A cancel that
// won the race leaves the stored version ahead and this write fails.
func (r *GormUploadRepository) SaveWithLock(ctx context.Context, upload *ingestion.InvoiceUpload) error {
	result := r.db.WithContext(ctx).
		Model(&ingestion.InvoiceUpload{}).
		Where("id = ? AND tenant_id = ? AND version = ?", upload.ID, upload.TenantID, upload.Version-1).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by").
		Updates(upload)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds an upload by ID within a tenant
func (r *GormUploadRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ingestion.InvoiceUpload, error) {
	var upload ingestion.InvoiceUpload
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &upload, nil
}

// FindAll returns a page of uploads for a tenant plus the total count,
// newest first
func (r *GormUploadRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*ingestion.InvoiceUpload, int64, error) {
	base := r.db.WithContext(ctx).Model(&ingestion.InvoiceUpload{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		base = base.Where("filename ILIKE ?", "%"+filter.Search+"%")
	}
	if status, ok := filter.Filters["status"]; ok {
		base = base.Where("status = ?", status)
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

	orderBy := ValidateSortField(filter.OrderBy, UploadSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var uploads []*ingestion.InvoiceUpload
	if err := base.
		Order(orderBy + " " + orderDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&uploads).Error; err != nil {
		return nil, 0, err
	}
	return uploads, total, nil
}

// Ensure GormUploadRepository implements UploadRepository
var _ ingestion.UploadRepository = (*GormUploadRepository)(nil)
