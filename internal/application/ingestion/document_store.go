package ingestion

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentStore persists uploaded invoice files. Intake writes to a
// temp area; the parse worker promotes the file to a durable key once
// extraction succeeds. A failed promotion keeps the temp key so the
// file is never lost.
type DocumentStore interface {
	// SaveTemp writes the raw upload and returns its temp storage key
	SaveTemp(ctx context.Context, tenantID uuid.UUID, filename string, data []byte) (string, error)

	// Read returns the stored bytes for a key (temp or durable)
	Read(ctx context.Context, key string) ([]byte, error)

	// Promote copies the object from a temp key to a durable key and
	// removes the temp copy. The durable object must exist before the
	// temp copy is deleted.
	Promote(ctx context.Context, tempKey, durableKey string) error

	// Delete removes an object; missing keys are not an error
	Delete(ctx context.Context, key string) error
}

// DurableDocumentKey builds the long-term storage key for a parsed
// invoice: tenant, supplier, invoice date and number identify the file.
// Blank components fall back to neutral tokens so the key stays valid.
func DurableDocumentKey(tenantID uuid.UUID, supplierName, invoiceDate, invoiceNo, filename string) string {
	supplier := sanitizeKeyComponent(supplierName)
	if supplier == "" {
		supplier = "unknown-supplier"
	}
	datePart := sanitizeKeyComponent(invoiceDate)
	if datePart == "" {
		datePart = time.Now().UTC().Format("2006-01-02")
	}
	invoice := sanitizeKeyComponent(invoiceNo)
	if invoice == "" {
		invoice = uuid.New().String()[:8]
	}
	return path.Join("invoices", tenantID.String(), supplier, datePart,
		fmt.Sprintf("%s-%s", invoice, path.Base(filename)))
}

func sanitizeKeyComponent(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '/':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}
