package ingestion

import (
	"context"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UploadRepository manages invoice upload records
type UploadRepository interface {
	Save(ctx context.Context, upload *InvoiceUpload) error
	// SaveWithLock persists the record only if its version is unchanged,
	// failing with a concurrency conflict otherwise. The parse worker uses
	// this for its final write so a cancel that raced ahead wins.
	SaveWithLock(ctx context.Context, upload *InvoiceUpload) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceUpload, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*InvoiceUpload, int64, error)
}
