package ingestion

import (
	"time"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UploadStatus represents the parse lifecycle of an uploaded invoice file
type UploadStatus string

const (
	UploadStatusUploaded  UploadStatus = "UPLOADED"  // initial, worker pending or running
	UploadStatusParsed    UploadStatus = "PARSED"    // terminal, payload available
	UploadStatusFailed    UploadStatus = "FAILED"    // terminal, diagnostic in provider meta
	UploadStatusCancelled UploadStatus = "CANCELLED" // terminal, user requested
)

// IsValid checks if the status is a valid UploadStatus
func (s UploadStatus) IsValid() bool {
	switch s {
	case UploadStatusUploaded, UploadStatusParsed, UploadStatusFailed, UploadStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of UploadStatus
func (s UploadStatus) String() string {
	return string(s)
}

// IsTerminal returns true once no further transition is possible.
// Pollers must stop on terminal states.
func (s UploadStatus) IsTerminal() bool {
	return s != UploadStatusUploaded
}

// CanTransitionTo checks a status transition. All transitions leave
// UPLOADED; there is no path back.
func (s UploadStatus) CanTransitionTo(target UploadStatus) bool {
	if s != UploadStatusUploaded {
		return false
	}
	return target == UploadStatusParsed || target == UploadStatusFailed || target == UploadStatusCancelled
}

// InvoiceUpload is one uploaded supplier invoice file and the state of its
// background parse. The record is mutated only by the parse worker or by an
// explicit user cancel; the engine never deletes it.
type InvoiceUpload struct {
	shared.TenantAggregateRoot
	Filename         string             `gorm:"type:varchar(255);not null" json:"filename"`
	StoredPath       string             `gorm:"type:varchar(500);not null" json:"stored_path"`
	Status           UploadStatus       `gorm:"type:varchar(20);not null;default:'UPLOADED';index" json:"status"`
	Provider         string             `gorm:"type:varchar(40)" json:"provider"` // extraction provider that produced the payload
	ParsedPayload    *StructuredInvoice `gorm:"type:jsonb" json:"parsed_payload"`
	LinkedPurchaseID *uuid.UUID         `gorm:"type:uuid;index" json:"linked_purchase_id"`
	UploadedBy       uuid.UUID          `gorm:"type:uuid;not null" json:"uploaded_by"`
	ProviderMeta     string             `gorm:"type:text" json:"provider_meta"` // diagnostic text, e.g. joined provider errors
}

// TableName returns the table name for GORM
func (InvoiceUpload) TableName() string {
	return "invoice_uploads"
}

// NewInvoiceUpload creates an upload record in UPLOADED state
func NewInvoiceUpload(tenantID, uploadedBy uuid.UUID, filename, storedPath string) (*InvoiceUpload, error) {
	if filename == "" {
		return nil, shared.NewDomainError("INVALID_FILENAME", "Filename cannot be empty")
	}
	if storedPath == "" {
		return nil, shared.NewDomainError("INVALID_STORED_PATH", "Stored path cannot be empty")
	}
	if uploadedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Uploader cannot be empty")
	}

	return &InvoiceUpload{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Filename:            filename,
		StoredPath:          storedPath,
		Status:              UploadStatusUploaded,
		UploadedBy:          uploadedBy,
	}, nil
}

// MarkParsed records a successful extraction with its normalized payload
// and the (possibly durable) file path
func (u *InvoiceUpload) MarkParsed(payload *StructuredInvoice, provider, storedPath string) error {
	if !u.Status.CanTransitionTo(UploadStatusParsed) {
		return shared.NewDomainError("INVALID_STATE",
			"Upload in "+u.Status.String()+" state cannot be marked parsed")
	}
	if payload == nil {
		return shared.NewDomainError("INVALID_PAYLOAD", "Parsed payload cannot be empty")
	}

	u.Status = UploadStatusParsed
	u.ParsedPayload = payload
	u.Provider = provider
	if storedPath != "" {
		u.StoredPath = storedPath
	}
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	u.AddDomainEvent(NewUploadParsedEvent(u))
	return nil
}

// MarkFailed records a terminal extraction failure with diagnostic text.
// A failure after partial work must never leave the record UPLOADED.
func (u *InvoiceUpload) MarkFailed(diagnostic string) error {
	if !u.Status.CanTransitionTo(UploadStatusFailed) {
		return shared.NewDomainError("INVALID_STATE",
			"Upload in "+u.Status.String()+" state cannot be marked failed")
	}

	u.Status = UploadStatusFailed
	u.ProviderMeta = diagnostic
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	u.AddDomainEvent(NewUploadFailedEvent(u))
	return nil
}

// Cancel marks the upload cancelled on user request. Allowed only while
// UPLOADED; the worker observes this at its checkpoints and aborts.
func (u *InvoiceUpload) Cancel() error {
	if u.Status == UploadStatusParsed {
		return shared.NewDomainError("ALREADY_PARSED", "Upload has already been parsed and cannot be cancelled")
	}
	if !u.Status.CanTransitionTo(UploadStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE",
			"Upload in "+u.Status.String()+" state cannot be cancelled")
	}

	u.Status = UploadStatusCancelled
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// LinkPurchase records the draft purchase created from this upload
func (u *InvoiceUpload) LinkPurchase(purchaseID uuid.UUID) {
	u.LinkedPurchaseID = &purchaseID
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

// SetProviderMeta records non-fatal diagnostic text, e.g. a degraded
// storage fallback
func (u *InvoiceUpload) SetProviderMeta(meta string) {
	u.ProviderMeta = meta
	u.UpdatedAt = time.Now()
}
