// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks the invoice pipeline: uploads and parse
// outcomes, extraction provider activity, purchase receipts and
// payments, plus stock and payable health gauges.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	uploadTotal            *Counter
	parseOutcomeTotal      *Counter
	extractionAttemptTotal *Counter
	purchaseReceivedTotal  *Counter
	purchaseAmountTotal    *Counter
	paymentTotal           *Counter

	// Histogram metrics
	parseDuration *Histogram

	// Gauge metrics (point-in-time values)
	lowStockCount      *Gauge
	outstandingPayable *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	healthProvider StockHealthProvider
}

// StockHealthProvider provides stock and payable data for periodic
// metrics collection. The interface keeps the telemetry layer free of a
// direct dependency on the inventory and ledger domains.
type StockHealthProvider interface {
	// GetLowStockCount returns count of products below their minimum threshold for a tenant
	GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetOutstandingPayableCents returns the summed outstanding payable amount for a tenant in cents
	GetOutstandingPayableCents(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	HealthProvider  StockHealthProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		healthProvider: cfg.HealthProvider,
	}

	var err error

	// Ingestion metrics
	bm.uploadTotal, err = NewCounter(
		cfg.Meter,
		"clinic_invoice_upload_total",
		"Total number of invoice documents uploaded",
		"{uploads}",
	)
	if err != nil {
		return nil, err
	}

	bm.parseOutcomeTotal, err = NewCounter(
		cfg.Meter,
		"clinic_invoice_parse_outcome_total",
		"Parse worker outcomes by terminal upload status",
		"{uploads}",
	)
	if err != nil {
		return nil, err
	}

	bm.extractionAttemptTotal, err = NewCounter(
		cfg.Meter,
		"clinic_extraction_attempt_total",
		"Extraction provider calls by provider and outcome",
		"{calls}",
	)
	if err != nil {
		return nil, err
	}

	bm.parseDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "clinic_invoice_parse_duration_seconds",
		Description: "Wall time from parse start to terminal status",
		Unit:        "s",
	})
	if err != nil {
		return nil, err
	}

	// Procurement metrics
	bm.purchaseReceivedTotal, err = NewCounter(
		cfg.Meter,
		"clinic_purchase_received_total",
		"Total number of purchases received into stock",
		"{purchases}",
	)
	if err != nil {
		return nil, err
	}

	bm.purchaseAmountTotal, err = NewCounter(
		cfg.Meter,
		"clinic_purchase_amount_total",
		"Total received purchase amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Ledger metrics
	bm.paymentTotal, err = NewCounter(
		cfg.Meter,
		"clinic_payment_total",
		"Total number of supplier payment transactions",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	// Health gauges
	bm.lowStockCount, err = NewGauge(
		cfg.Meter,
		"clinic_low_stock_count",
		"Number of products below minimum stock threshold",
		"{products}",
	)
	if err != nil {
		return nil, err
	}

	bm.outstandingPayable, err = NewGauge(
		cfg.Meter,
		"clinic_outstanding_payable_cents",
		"Outstanding supplier payable amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Ingestion Metrics
// =============================================================================

// RecordUpload records an accepted invoice upload.
func (bm *BusinessMetrics) RecordUpload(ctx context.Context, tenantID uuid.UUID) {
	bm.uploadTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordParseOutcome records the terminal status of one parse job along
// with its wall time. Status is the upload's terminal state (PARSED,
// FAILED or CANCELLED); provider is the one that produced the payload,
// empty when none did.
func (bm *BusinessMetrics) RecordParseOutcome(ctx context.Context, tenantID uuid.UUID, status, provider string, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrUploadStatus.String(status),
	}
	if provider != "" {
		attrs = append(attrs, AttrProvider.String(provider))
	}
	bm.parseOutcomeTotal.Inc(ctx, attrs...)
	bm.parseDuration.RecordDuration(ctx, elapsed,
		AttrTenantID.String(tenantID.String()),
		AttrUploadStatus.String(status),
	)
}

// RecordExtractionAttempt records one provider call, succeeded or not.
// The fallback chain calls this per provider so the rate of primary
// failures is visible.
func (bm *BusinessMetrics) RecordExtractionAttempt(ctx context.Context, provider string, succeeded bool) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	bm.extractionAttemptTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrUploadStatus.String(outcome),
	)
}

// =============================================================================
// Procurement Metrics
// =============================================================================

// RecordPurchaseReceived records a purchase receive with its total
// amount. Amount is converted to cents for the counter.
func (bm *BusinessMetrics) RecordPurchaseReceived(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal) {
	bm.purchaseReceivedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.purchaseAmountTotal.Add(ctx, amountCents,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Ledger Metrics
// =============================================================================

// PaymentStatus represents the outcome of a payment for metrics labeling.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// RecordPayment records a supplier payment transaction.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, paymentMethod string, status PaymentStatus) {
	bm.paymentTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(paymentMethod),
		AttrPaymentStatus.String(string(status)),
	)
}

// =============================================================================
// Health Gauges
// =============================================================================

// RecordLowStockCount records the number of products below minimum threshold.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordLowStockCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.lowStockCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordOutstandingPayable records the summed outstanding payable amount.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOutstandingPayable(ctx context.Context, tenantID uuid.UUID, cents int64) {
	bm.outstandingPayable.Record(ctx, cents,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects stock and payable health every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectHealthMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectHealthMetrics(ctx, tenantProvider)
		}
	}
}

// collectHealthMetrics collects health gauge metrics for all tenants.
func (bm *BusinessMetrics) collectHealthMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.healthProvider == nil {
		bm.logger.Debug("No health provider configured, skipping health metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantHealthMetrics(ctx, tenantID)
	}
}

// collectTenantHealthMetrics collects health metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantHealthMetrics(ctx context.Context, tenantID uuid.UUID) {
	lowStockCount, err := bm.healthProvider.GetLowStockCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get low stock count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordLowStockCount(ctx, tenantID, lowStockCount)
	}

	outstanding, err := bm.healthProvider.GetOutstandingPayableCents(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get outstanding payable for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordOutstandingPayable(ctx, tenantID, outstanding)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
