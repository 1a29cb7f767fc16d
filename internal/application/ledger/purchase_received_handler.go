package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/procurement"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseReceivedHandler creates a SupplierPayable when a purchase is
// received. The ledger entries themselves are posted synchronously in
// the receive transaction; the payable is settlement bookkeeping and is
// safe to create asynchronously.
type PurchaseReceivedHandler struct {
	payables ledger.PayableRepository
	logger   *zap.Logger
}

// NewPurchaseReceivedHandler creates a handler for purchase received events
func NewPurchaseReceivedHandler(payables ledger.PayableRepository, logger *zap.Logger) *PurchaseReceivedHandler {
	return &PurchaseReceivedHandler{payables: payables, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *PurchaseReceivedHandler) EventTypes() []string {
	return []string{procurement.EventTypePurchaseReceived}
}

// Handle creates the payable for a received purchase, idempotently
func (h *PurchaseReceivedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	received, ok := event.(*procurement.PurchaseReceivedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			procurement.EventTypePurchaseReceived, event.EventType())
	}

	purchaseID := received.AggregateID()

	existing, err := h.payables.FindByPurchaseID(ctx, received.TenantID(), purchaseID)
	if err != nil {
		var domainErr *shared.DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != shared.ErrNotFound.Code {
			return fmt.Errorf("failed to check existing payable: %w", err)
		}
	}
	if existing != nil {
		h.logger.Info("payable already exists for purchase, skipping",
			zap.String("purchase_id", purchaseID.String()),
			zap.String("payable_number", existing.PayableNumber),
		)
		return nil
	}

	payableNumber, err := h.payables.NextPayableNumber(ctx, received.TenantID())
	if err != nil {
		return fmt.Errorf("failed to generate payable number: %w", err)
	}

	supplierID := uuid.Nil
	if received.SupplierID != nil {
		supplierID = *received.SupplierID
	}
	supplierName := received.SupplierName
	if supplierName == "" {
		supplierName = "Unknown Supplier"
	}

	payable, err := ledger.NewSupplierPayable(
		received.TenantID(),
		payableNumber,
		supplierID,
		supplierName,
		purchaseID,
		received.InvoiceNo,
		received.TotalAmount,
	)
	if err != nil {
		return fmt.Errorf("failed to create payable: %w", err)
	}

	if err := h.payables.Save(ctx, payable); err != nil {
		return fmt.Errorf("failed to save payable: %w", err)
	}

	h.logger.Info("supplier payable created",
		zap.String("payable_id", payable.ID.String()),
		zap.String("payable_number", payableNumber),
		zap.String("purchase_id", purchaseID.String()),
		zap.String("supplier_name", supplierName),
		zap.String("amount", received.TotalAmount.String()),
	)
	return nil
}

var _ shared.EventHandler = (*PurchaseReceivedHandler)(nil)
