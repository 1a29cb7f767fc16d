package ingestion

import (
	"github.com/clinicware/backend/internal/domain/shared"
)

// Event types published by the ingestion context
const (
	EventTypeUploadParsed = "ingestion.upload.parsed"
	EventTypeUploadFailed = "ingestion.upload.failed"
)

// UploadParsedEvent is published when a background parse completes
type UploadParsedEvent struct {
	shared.BaseDomainEvent
	Filename string `json:"filename"`
	Provider string `json:"provider"`
}

// NewUploadParsedEvent creates an upload parsed event
func NewUploadParsedEvent(u *InvoiceUpload) *UploadParsedEvent {
	return &UploadParsedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUploadParsed, "InvoiceUpload", u.ID, u.TenantID),
		Filename:        u.Filename,
		Provider:        u.Provider,
	}
}

// UploadFailedEvent is published when both extraction providers failed or
// a downstream step errored
type UploadFailedEvent struct {
	shared.BaseDomainEvent
	Filename   string `json:"filename"`
	Diagnostic string `json:"diagnostic"`
}

// NewUploadFailedEvent creates an upload failed event
func NewUploadFailedEvent(u *InvoiceUpload) *UploadFailedEvent {
	return &UploadFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUploadFailed, "InvoiceUpload", u.ID, u.TenantID),
		Filename:        u.Filename,
		Diagnostic:      u.ProviderMeta,
	}
}
