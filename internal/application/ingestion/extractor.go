package ingestion

import (
	"context"
	"fmt"

	"github.com/clinicware/backend/internal/domain/ingestion"
	"github.com/clinicware/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Document is the raw invoice file handed to an extraction provider
type Document struct {
	Filename string
	MIMEType string
	Data     []byte
}

// InvoiceExtractor turns an invoice image or PDF into a structured
// document. Implementations wrap external vision providers and are
// expected to fail often; callers handle fallback.
type InvoiceExtractor interface {
	// Name identifies the provider in upload records and diagnostics
	Name() string
	// Extract parses the document. Any error means this provider is
	// unusable for this document; there are no partial results.
	Extract(ctx context.Context, doc Document) (*ingestion.StructuredInvoice, error)
}

// FallbackExtractor tries the primary provider and, on any error, the
// secondary provider exactly once. Both failing is terminal for the
// upload; the joined diagnostics end up in provider meta.
type FallbackExtractor struct {
	primary   InvoiceExtractor
	secondary InvoiceExtractor
	logger    *zap.Logger
}

// NewFallbackExtractor creates a FallbackExtractor. The secondary
// provider may be nil when only one is configured.
func NewFallbackExtractor(primary, secondary InvoiceExtractor, logger *zap.Logger) *FallbackExtractor {
	return &FallbackExtractor{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Extract runs the provider chain and returns the structured document
// together with the name of the provider that produced it
func (f *FallbackExtractor) Extract(ctx context.Context, doc Document) (*ingestion.StructuredInvoice, string, error) {
	inv, err := f.primary.Extract(ctx, doc)
	if err == nil {
		return inv, f.primary.Name(), nil
	}

	f.logger.Warn("primary extraction provider failed",
		zap.String("provider", f.primary.Name()),
		zap.String("filename", doc.Filename),
		zap.Error(err),
	)

	if f.secondary == nil {
		return nil, "", shared.NewDomainErrorWithDetails(
			shared.ErrExtractionFailed.Code,
			shared.ErrExtractionFailed.Message,
			fmt.Sprintf("%s: %v", f.primary.Name(), err),
		)
	}

	inv, secondaryErr := f.secondary.Extract(ctx, doc)
	if secondaryErr == nil {
		return inv, f.secondary.Name(), nil
	}

	f.logger.Error("all extraction providers failed",
		zap.String("filename", doc.Filename),
		zap.NamedError("primary", err),
		zap.NamedError("secondary", secondaryErr),
	)

	return nil, "", shared.NewDomainErrorWithDetails(
		shared.ErrExtractionFailed.Code,
		shared.ErrExtractionFailed.Message,
		fmt.Sprintf("%s: %v; %s: %v", f.primary.Name(), err, f.secondary.Name(), secondaryErr),
	)
}
