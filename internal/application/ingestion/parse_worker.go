package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/clinicware/backend/internal/domain/ingestion"
	"github.com/clinicware/backend/internal/domain/procurement"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DraftCreator builds a draft purchase from a parsed invoice. It is
// implemented by the procurement service; the worker only needs the
// resulting purchase id for linking.
type DraftCreator interface {
	CreateDraftFromInvoice(ctx context.Context, tenantID, uploadID uuid.UUID, supplierID *uuid.UUID, inv *ingestion.StructuredInvoice) (uuid.UUID, error)
}

type parseJob struct {
	TenantID uuid.UUID
	UploadID uuid.UUID
	MIMEType string
}

// ParseWorker runs invoice extraction in the background, one job per
// upload. Cancellation is cooperative: the worker re-reads the upload
// record at fixed checkpoints and aborts when it left UPLOADED, and its
// final write is optimistic so a racing cancel always wins.
type ParseWorker struct {
	uploads   ingestion.UploadRepository
	documents DocumentStore
	extractor *FallbackExtractor
	suppliers procurement.SupplierRepository
	drafts    DraftCreator
	publisher shared.EventPublisher
	logger    *zap.Logger

	concurrency int
	jobs        chan parseJob

	mu      sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// ParseWorkerOption configures a ParseWorker
type ParseWorkerOption func(*ParseWorker)

// WithConcurrency sets the number of parallel parse goroutines
func WithConcurrency(n int) ParseWorkerOption {
	return func(w *ParseWorker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithQueueSize sets the pending-job buffer size
func WithQueueSize(n int) ParseWorkerOption {
	return func(w *ParseWorker) {
		if n > 0 {
			w.jobs = make(chan parseJob, n)
		}
	}
}

// NewParseWorker creates a ParseWorker. Call Start before enqueueing.
func NewParseWorker(
	uploads ingestion.UploadRepository,
	documents DocumentStore,
	extractor *FallbackExtractor,
	suppliers procurement.SupplierRepository,
	drafts DraftCreator,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...ParseWorkerOption,
) *ParseWorker {
	w := &ParseWorker{
		uploads:     uploads,
		documents:   documents,
		extractor:   extractor,
		suppliers:   suppliers,
		drafts:      drafts,
		publisher:   publisher,
		logger:      logger,
		concurrency: 2,
		jobs:        make(chan parseJob, 64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker goroutines. The passed context bounds the
// lifetime of all parse jobs.
func (w *ParseWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for job := range w.jobs {
				w.process(ctx, job)
			}
		}()
	}
	w.logger.Info("parse worker started", zap.Int("concurrency", w.concurrency))
}

// Stop drains queued jobs and waits for in-flight parses to finish or
// the context to expire
func (w *ParseWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.jobs)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("parse worker stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("parse worker shutdown timed out: %w", ctx.Err())
	}
}

// Enqueue schedules a parse job for an upload
func (w *ParseWorker) Enqueue(tenantID, uploadID uuid.UUID, mimeType string) error {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return shared.NewDomainError("WORKER_UNAVAILABLE", "Parse worker is not running")
	}
	w.mu.Unlock()

	select {
	case w.jobs <- parseJob{TenantID: tenantID, UploadID: uploadID, MIMEType: mimeType}:
		return nil
	default:
		return shared.NewDomainError("QUEUE_FULL", "Parse queue is full, retry later")
	}
}

// process runs one parse job end to end
func (w *ParseWorker) process(ctx context.Context, job parseJob) {
	log := w.logger.With(
		zap.String("upload_id", job.UploadID.String()),
		zap.String("tenant_id", job.TenantID.String()),
	)

	upload, err := w.uploads.FindByID(ctx, job.TenantID, job.UploadID)
	if err != nil {
		log.Error("failed to load upload record", zap.Error(err))
		return
	}
	if upload.Status != ingestion.UploadStatusUploaded {
		log.Info("upload no longer pending, skipping", zap.String("status", upload.Status.String()))
		return
	}

	data, err := w.documents.Read(ctx, upload.StoredPath)
	if err != nil {
		w.markFailed(ctx, upload, "failed to read stored file: "+err.Error(), log)
		return
	}

	inv, provider, err := w.extractor.Extract(ctx, Document{
		Filename: upload.Filename,
		MIMEType: job.MIMEType,
		Data:     data,
	})
	if err != nil {
		var domainErr *shared.DomainError
		diagnostic := err.Error()
		if errors.As(err, &domainErr) && domainErr.Details != "" {
			diagnostic = domainErr.Details
		}
		w.markFailed(ctx, upload, diagnostic, log)
		return
	}
	inv.Normalize()

	// A cancel that arrived during the provider call discards the result.
	upload, err = w.uploads.FindByID(ctx, job.TenantID, job.UploadID)
	if err != nil {
		log.Error("failed to re-read upload record", zap.Error(err))
		return
	}
	if upload.Status != ingestion.UploadStatusUploaded {
		log.Info("upload cancelled during extraction, discarding result",
			zap.String("status", upload.Status.String()))
		return
	}

	supplierID, supplierName := w.resolveSupplier(ctx, job.TenantID, inv, log)

	if upload.LinkedPurchaseID == nil && inv.HasItems() {
		purchaseID, err := w.drafts.CreateDraftFromInvoice(ctx, job.TenantID, job.UploadID, supplierID, inv)
		if err != nil {
			w.markFailed(ctx, upload, "failed to create draft purchase: "+err.Error(), log)
			return
		}
		upload.LinkPurchase(purchaseID)
	}

	durableKey := DurableDocumentKey(job.TenantID, supplierName, inv.InvoiceDate, inv.InvoiceNo, upload.Filename)
	if err := w.documents.Promote(ctx, upload.StoredPath, durableKey); err != nil {
		log.Warn("durable storage unavailable, keeping temp file",
			zap.String("durable_key", durableKey),
			zap.Error(err),
		)
		upload.SetProviderMeta("storage degraded: file retained at temp path")
		durableKey = ""
	}

	if err := upload.MarkParsed(inv, provider, durableKey); err != nil {
		log.Error("failed to mark upload parsed", zap.Error(err))
		return
	}

	if err := w.uploads.SaveWithLock(ctx, upload); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == shared.ErrConcurrencyConflict.Code {
			log.Info("upload record changed under worker, discarding parse result")
			return
		}
		log.Error("failed to persist parse result", zap.Error(err))
		return
	}

	w.publishEvents(ctx, upload, log)
	log.Info("invoice parsed",
		zap.String("provider", provider),
		zap.Int("items", len(inv.Items)),
	)
}

// resolveSupplier finds or creates a supplier from the extracted seller
// block. Lookup is by normalized tax ID only; a seller without a tax ID
// is never auto-created.
func (w *ParseWorker) resolveSupplier(ctx context.Context, tenantID uuid.UUID, inv *ingestion.StructuredInvoice, log *zap.Logger) (*uuid.UUID, string) {
	taxID := procurement.NormalizeTaxID(inv.Seller.TaxID)
	if taxID == "" {
		return nil, inv.Seller.Name
	}

	existing, err := w.suppliers.FindByTaxID(ctx, tenantID, taxID)
	if err == nil {
		return &existing.ID, existing.Name
	}
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != shared.ErrNotFound.Code {
		log.Warn("supplier lookup failed, leaving draft unlinked", zap.Error(err))
		return nil, inv.Seller.Name
	}

	name := inv.Seller.Name
	if name == "" {
		name = "Supplier " + taxID
	}
	supplier, err := procurement.NewSupplier(tenantID, name, inv.Seller.Phone, "", inv.Seller.Address, taxID)
	if err != nil {
		log.Warn("invalid extracted supplier, leaving draft unlinked", zap.Error(err))
		return nil, inv.Seller.Name
	}
	if err := w.suppliers.Save(ctx, supplier); err != nil {
		log.Warn("failed to save auto-created supplier", zap.Error(err))
		return nil, inv.Seller.Name
	}

	log.Info("supplier auto-created from invoice",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("supplier_name", supplier.Name),
	)
	return &supplier.ID, supplier.Name
}

// markFailed writes a terminal FAILED state. A concurrency conflict
// means a cancel won the race, which is fine.
func (w *ParseWorker) markFailed(ctx context.Context, upload *ingestion.InvoiceUpload, diagnostic string, log *zap.Logger) {
	if err := upload.MarkFailed(diagnostic); err != nil {
		log.Info("upload already terminal, not marking failed", zap.Error(err))
		return
	}
	if err := w.uploads.SaveWithLock(ctx, upload); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == shared.ErrConcurrencyConflict.Code {
			log.Info("upload record changed under worker, not marking failed")
			return
		}
		log.Error("failed to persist failure state", zap.Error(err))
		return
	}
	w.publishEvents(ctx, upload, log)
	log.Warn("invoice parse failed", zap.String("diagnostic", diagnostic))
}

func (w *ParseWorker) publishEvents(ctx context.Context, upload *ingestion.InvoiceUpload, log *zap.Logger) {
	if w.publisher == nil {
		return
	}
	events := upload.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := w.publisher.Publish(ctx, events...); err != nil {
		log.Warn("failed to publish upload events", zap.Error(err))
	}
	upload.ClearDomainEvents()
}

var _ ParseQueue = (*ParseWorker)(nil)
