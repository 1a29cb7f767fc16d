package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementResult reports the quantity change applied to one product
type MovementResult struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	PreviousQty decimal.Decimal `json:"previous_qty"`
	NewQty      decimal.Decimal `json:"new_qty"`
	BatchID     *uuid.UUID      `json:"batch_id,omitempty"`
}

// ReconciliationService applies stock effects of received and returned
// purchases: batch creation, product quantity update, history and
// transaction rows. All writes for one item happen in the caller's
// transaction; the product row lock serializes concurrent movements.
type ReconciliationService struct {
	products     ProductRepository
	batches      StockBatchRepository
	histories    StockHistoryRepository
	transactions StockTransactionRepository
}

// NewReconciliationService creates a reconciliation service over
// transaction-scoped repositories
func NewReconciliationService(
	products ProductRepository,
	batches StockBatchRepository,
	histories StockHistoryRepository,
	transactions StockTransactionRepository,
) *ReconciliationService {
	return &ReconciliationService{
		products:     products,
		batches:      batches,
		histories:    histories,
		transactions: transactions,
	}
}

// ReceiveItem records one received purchase line: creates the batch,
// advances the product quantity, and appends history and transaction rows.
func (s *ReconciliationService) ReceiveItem(
	ctx context.Context,
	tenantID, productID uuid.UUID,
	quantity, costPrice decimal.Decimal,
	batchNumber string,
	expiryDate *time.Time,
	refType string,
	refID uuid.UUID,
	reference string,
) (*MovementResult, error) {
	product, err := s.products.FindByIDForUpdate(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	batch, err := NewStockBatch(tenantID, productID, quantity, costPrice, batchNumber, expiryDate)
	if err != nil {
		return nil, err
	}
	if err := s.batches.Save(ctx, batch); err != nil {
		return nil, err
	}

	previousQty := product.Quantity
	newQty := previousQty.Add(quantity)

	history, err := NewStockHistory(tenantID, productID, &batch.ID, MovementTypePurchase,
		quantity, previousQty, newQty, reference, "")
	if err != nil {
		return nil, err
	}
	if err := s.histories.Save(ctx, history); err != nil {
		return nil, err
	}

	product.applyQuantity(newQty)
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	txn, err := NewStockTransaction(tenantID, productID, quantity, MovementTypePurchase, refType, refID)
	if err != nil {
		return nil, err
	}
	if err := s.transactions.Save(ctx, txn); err != nil {
		return nil, err
	}

	return &MovementResult{
		ProductID:   productID,
		ProductName: product.Name,
		PreviousQty: previousQty,
		NewQty:      newQty,
		BatchID:     &batch.ID,
	}, nil
}

// ReturnItem records one returned purchase line. The new quantity is
// clamped at zero; the recorded delta is the quantity actually removed so
// the history chain stays consistent.
func (s *ReconciliationService) ReturnItem(
	ctx context.Context,
	tenantID, productID uuid.UUID,
	quantity decimal.Decimal,
	refType string,
	refID uuid.UUID,
	reference string,
) (*MovementResult, error) {
	product, err := s.products.FindByIDForUpdate(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	previousQty := product.Quantity
	newQty := previousQty.Sub(quantity)
	if newQty.IsNegative() {
		newQty = decimal.Zero
	}
	effectiveDelta := newQty.Sub(previousQty)

	result := &MovementResult{
		ProductID:   productID,
		ProductName: product.Name,
		PreviousQty: previousQty,
		NewQty:      newQty,
	}

	// Nothing on hand to remove: no movement rows, quantity unchanged
	if effectiveDelta.IsZero() {
		return result, nil
	}

	history, err := NewStockHistory(tenantID, productID, nil, MovementTypeReturn,
		effectiveDelta, previousQty, newQty, reference, "")
	if err != nil {
		return nil, err
	}
	if err := s.histories.Save(ctx, history); err != nil {
		return nil, err
	}

	product.applyQuantity(newQty)
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	txn, err := NewStockTransaction(tenantID, productID, effectiveDelta, MovementTypeReturn, refType, refID)
	if err != nil {
		return nil, err
	}
	if err := s.transactions.Save(ctx, txn); err != nil {
		return nil, err
	}

	return result, nil
}
