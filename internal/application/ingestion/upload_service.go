package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicware/backend/internal/domain/ingestion"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseQueue accepts parse jobs for uploaded invoices
type ParseQueue interface {
	Enqueue(tenantID, uploadID uuid.UUID, mimeType string) error
}

// UploadService handles invoice upload intake, status polling and
// cancellation. Parsing itself happens in the background worker.
type UploadService struct {
	uploads   ingestion.UploadRepository
	documents DocumentStore
	queue     ParseQueue
	drafts    DraftCreator
	logger    *zap.Logger
}

// NewUploadService creates a new UploadService
func NewUploadService(
	uploads ingestion.UploadRepository,
	documents DocumentStore,
	queue ParseQueue,
	logger *zap.Logger,
) *UploadService {
	return &UploadService{
		uploads:   uploads,
		documents: documents,
		queue:     queue,
		logger:    logger,
	}
}

// Intake stores the file, creates the upload record in UPLOADED state
// and schedules the background parse. The caller gets the record id
// immediately and polls for the outcome.
func (s *UploadService) Intake(ctx context.Context, tenantID uuid.UUID, req IntakeRequest) (*UploadResponse, error) {
	if len(req.Data) == 0 {
		return nil, shared.NewDomainError("EMPTY_FILE", "Uploaded file is empty")
	}

	tempKey, err := s.documents.SaveTemp(ctx, tenantID, req.Filename, req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	upload, err := ingestion.NewInvoiceUpload(tenantID, req.UploadedBy, req.Filename, tempKey)
	if err != nil {
		return nil, err
	}
	if err := s.uploads.Save(ctx, upload); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(tenantID, upload.ID, req.MIMEType); err != nil {
		s.logger.Error("failed to enqueue parse job",
			zap.String("upload_id", upload.ID.String()),
			zap.Error(err),
		)
		if failErr := upload.MarkFailed("parse queue unavailable: " + err.Error()); failErr == nil {
			if saveErr := s.uploads.Save(ctx, upload); saveErr != nil {
				s.logger.Error("failed to persist queue failure",
					zap.String("upload_id", upload.ID.String()),
					zap.Error(saveErr),
				)
			}
		}
		return nil, fmt.Errorf("failed to schedule invoice parse: %w", err)
	}

	s.logger.Info("invoice upload accepted",
		zap.String("upload_id", upload.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("filename", req.Filename),
	)

	resp := ToUploadResponse(upload)
	return &resp, nil
}

// SetDraftCreator wires the procurement service for manual confirmation
// of parsed uploads. Set after construction to break the package cycle.
func (s *UploadService) SetDraftCreator(drafts DraftCreator) {
	s.drafts = drafts
}

// Confirm turns a parsed upload into a draft purchase. The background
// worker normally links a draft on its own; Confirm covers uploads that
// parsed without items or whose automatic draft creation failed, and is
// a no-op for uploads already linked.
func (s *UploadService) Confirm(ctx context.Context, tenantID, uploadID uuid.UUID, supplierID *uuid.UUID) (*UploadResponse, error) {
	upload, err := s.uploads.FindByID(ctx, tenantID, uploadID)
	if err != nil {
		return nil, err
	}

	if upload.Status != ingestion.UploadStatusParsed {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Upload is %s; only parsed uploads can be confirmed", upload.Status))
	}

	if upload.LinkedPurchaseID == nil {
		if s.drafts == nil {
			return nil, shared.NewDomainError("INVALID_STATE", "Draft creation is not available")
		}
		if upload.ParsedPayload == nil {
			return nil, shared.NewDomainError("INVALID_STATE", "Upload has no parsed payload")
		}
		purchaseID, err := s.drafts.CreateDraftFromInvoice(ctx, tenantID, uploadID, supplierID, upload.ParsedPayload)
		if err != nil {
			return nil, err
		}
		upload.LinkPurchase(purchaseID)
		if err := s.uploads.SaveWithLock(ctx, upload); err != nil {
			return nil, err
		}
	}

	resp := ToUploadResponse(upload)
	return &resp, nil
}

// Get returns the current state of an upload, including the parsed
// payload once available
func (s *UploadService) Get(ctx context.Context, tenantID, uploadID uuid.UUID) (*UploadResponse, error) {
	upload, err := s.uploads.FindByID(ctx, tenantID, uploadID)
	if err != nil {
		return nil, err
	}
	resp := ToUploadResponse(upload)
	return &resp, nil
}

// List returns upload records for a tenant, newest first
func (s *UploadService) List(ctx context.Context, tenantID uuid.UUID, filter UploadListFilter) ([]UploadResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}

	uploads, total, err := s.uploads.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToUploadResponses(uploads), total, nil
}

// Cancel marks an upload CANCELLED. The record version bump makes the
// worker's final optimistic write fail, so a cancel that lands while
// extraction is in flight still wins.
func (s *UploadService) Cancel(ctx context.Context, tenantID, uploadID uuid.UUID) (*UploadResponse, error) {
	upload, err := s.uploads.FindByID(ctx, tenantID, uploadID)
	if err != nil {
		return nil, err
	}

	if err := upload.Cancel(); err != nil {
		return nil, err
	}

	if err := s.uploads.SaveWithLock(ctx, upload); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == shared.ErrConcurrencyConflict.Code {
			// The worker finished first; report the state it wrote.
			current, findErr := s.uploads.FindByID(ctx, tenantID, uploadID)
			if findErr != nil {
				return nil, findErr
			}
			if current.Status == ingestion.UploadStatusParsed {
				return nil, shared.NewDomainError("ALREADY_PARSED",
					"Upload has already been parsed and cannot be cancelled")
			}
			resp := ToUploadResponse(current)
			return &resp, nil
		}
		return nil, err
	}

	s.logger.Info("invoice upload cancelled",
		zap.String("upload_id", uploadID.String()),
		zap.String("tenant_id", tenantID.String()),
	)

	resp := ToUploadResponse(upload)
	return &resp, nil
}
