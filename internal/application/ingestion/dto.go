package ingestion

import (
	"time"

	"github.com/clinicware/backend/internal/domain/ingestion"
	"github.com/google/uuid"
)

// IntakeRequest carries a new invoice file into the engine
type IntakeRequest struct {
	Filename   string
	MIMEType   string
	Data       []byte
	UploadedBy uuid.UUID
}

// UploadResponse is the API shape of an upload record. ParsedPayload is
// present only once the status is PARSED.
type UploadResponse struct {
	ID               uuid.UUID                    `json:"id"`
	Filename         string                       `json:"filename"`
	Status           string                       `json:"status"`
	Terminal         bool                         `json:"terminal"`
	Provider         string                       `json:"provider,omitempty"`
	ParsedPayload    *ingestion.StructuredInvoice `json:"parsed_payload,omitempty"`
	LinkedPurchaseID *uuid.UUID                   `json:"linked_purchase_id,omitempty"`
	Diagnostic       string                       `json:"diagnostic,omitempty"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

// UploadListFilter filters the upload listing
type UploadListFilter struct {
	Status   string
	Page     int
	PageSize int
}

// ToUploadResponse converts an upload aggregate to its API shape
func ToUploadResponse(u *ingestion.InvoiceUpload) UploadResponse {
	resp := UploadResponse{
		ID:               u.ID,
		Filename:         u.Filename,
		Status:           u.Status.String(),
		Terminal:         u.Status.IsTerminal(),
		Provider:         u.Provider,
		LinkedPurchaseID: u.LinkedPurchaseID,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if u.Status == ingestion.UploadStatusParsed {
		resp.ParsedPayload = u.ParsedPayload
	}
	if u.Status == ingestion.UploadStatusFailed {
		resp.Diagnostic = u.ProviderMeta
	}
	return resp
}

// ToUploadResponses converts a slice of upload aggregates
func ToUploadResponses(uploads []*ingestion.InvoiceUpload) []UploadResponse {
	out := make([]UploadResponse, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, ToUploadResponse(u))
	}
	return out
}
