package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerapp "github.com/clinicware/backend/internal/application/ledger"
	domainingestion "github.com/clinicware/backend/internal/domain/ingestion"
	"github.com/clinicware/backend/internal/domain/inventory"
	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/procurement"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/clinicware/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnlinkedItemPolicy decides what happens when a purchase is received
// with items that have no catalog product match
type UnlinkedItemPolicy string

const (
	// UnlinkedItemsLedgerOnly posts the ledger entries for the full
	// invoice but skips stock movements for unmatched lines
	UnlinkedItemsLedgerOnly UnlinkedItemPolicy = "ledger-only"
	// UnlinkedItemsBlock rejects the receive until every line is matched
	UnlinkedItemsBlock UnlinkedItemPolicy = "block"
)

// IsValid checks the policy value
func (p UnlinkedItemPolicy) IsValid() bool {
	return p == UnlinkedItemsLedgerOnly || p == UnlinkedItemsBlock
}

// PurchaseService handles the purchase lifecycle: draft creation from
// parsed invoices or manual input, draft editing, the atomic receive
// with stock and ledger effects, and returns.
type PurchaseService struct {
	scope          TransactionScope
	purchases      procurement.PurchaseRepository
	suppliers      procurement.SupplierRepository
	products       inventory.ProductRepository
	idempotency    shared.IdempotencyStore
	publisher      shared.EventPublisher
	unlinkedPolicy UnlinkedItemPolicy
	logger         *zap.Logger
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(
	scope TransactionScope,
	purchases procurement.PurchaseRepository,
	suppliers procurement.SupplierRepository,
	products inventory.ProductRepository,
	logger *zap.Logger,
) *PurchaseService {
	return &PurchaseService{
		scope:          scope,
		purchases:      purchases,
		suppliers:      suppliers,
		products:       products,
		unlinkedPolicy: UnlinkedItemsLedgerOnly,
		logger:         logger,
	}
}

// SetEventPublisher sets the publisher for domain events
func (s *PurchaseService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetIdempotencyStore sets the duplicate-submission guard
func (s *PurchaseService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetUnlinkedItemPolicy overrides the default ledger-only policy
func (s *PurchaseService) SetUnlinkedItemPolicy(policy UnlinkedItemPolicy) {
	if policy.IsValid() {
		s.unlinkedPolicy = policy
	}
}

// CreateDraft creates a purchase draft from manual input
func (s *PurchaseService) CreateDraft(ctx context.Context, tenantID uuid.UUID, req CreateDraftRequest) (*PurchaseResponse, error) {
	supplierName, err := s.supplierName(ctx, tenantID, req.SupplierID)
	if err != nil {
		return nil, err
	}

	purchase, err := procurement.NewDraftPurchase(tenantID, req.SupplierID, supplierName,
		req.InvoiceNo, req.InvoiceDate, req.RoundOff, req.Notes)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		purchase.SetCreatedBy(*req.CreatedBy)
	}

	inputs, err := s.toItemInputs(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}
	if err := purchase.ReplaceItems(inputs); err != nil {
		return nil, err
	}

	if err := s.purchases.Save(ctx, purchase); err != nil {
		return nil, err
	}

	s.logger.Info("purchase draft created",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("invoice_no", purchase.InvoiceNo),
		zap.String("total", purchase.TotalAmount.String()),
	)
	resp := ToPurchaseResponse(purchase)
	return &resp, nil
}

// CreateDraftFromInvoice builds a draft from a parsed invoice on behalf
// of the background parse worker. Lines without an extracted batch
// number get a synthetic one; item names are matched to catalog products
// where possible.
func (s *PurchaseService) CreateDraftFromInvoice(ctx context.Context, tenantID, uploadID uuid.UUID, supplierID *uuid.UUID, inv *domainingestion.StructuredInvoice) (uuid.UUID, error) {
	supplierName, err := s.supplierName(ctx, tenantID, supplierID)
	if err != nil {
		return uuid.Nil, err
	}
	if supplierName == "" {
		supplierName = inv.Seller.Name
	}

	invoiceNo := inv.InvoiceNo
	if invoiceNo == "" {
		invoiceNo = "UPLOAD-" + uploadID.String()[:8]
	}
	invoiceDate := parseInvoiceDate(inv.InvoiceDate)

	purchase, err := procurement.NewDraftPurchase(tenantID, supplierID, supplierName,
		invoiceNo, invoiceDate, inv.RoundOff.Or(decimal.Zero), inv.Narration)
	if err != nil {
		return uuid.Nil, err
	}

	inputs := make([]procurement.ItemInput, 0, len(inv.Items))
	for _, line := range inv.Items {
		batchNumber := line.BatchNumber
		if batchNumber == "" {
			batchNumber = inventory.GenerateBatchNumber()
		}
		input := procurement.ItemInput{
			Name:        line.Description,
			Quantity:    line.Quantity.Or(decimal.Zero),
			UnitPrice:   line.UnitPrice.Or(decimal.Zero),
			TaxAmount:   line.TaxAmount.Or(decimal.Zero),
			BatchNumber: batchNumber,
			ExpiryDate:  parseInvoiceDate(line.ExpiryDate),
		}
		if product, err := s.products.FindByName(ctx, tenantID, line.Description); err == nil {
			input.ProductID = &product.ID
		}
		inputs = append(inputs, input)
	}
	if err := purchase.ReplaceItems(inputs); err != nil {
		return uuid.Nil, err
	}

	if err := s.purchases.Save(ctx, purchase); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("purchase draft auto-created from upload",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("upload_id", uploadID.String()),
		zap.String("invoice_no", invoiceNo),
		zap.Int("items", len(purchase.Items)),
	)
	return purchase.ID, nil
}

// Get returns one purchase with its items
func (s *PurchaseService) Get(ctx context.Context, tenantID, purchaseID uuid.UUID) (*PurchaseResponse, error) {
	purchase, err := s.purchases.FindByID(ctx, tenantID, purchaseID)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseResponse(purchase)
	return &resp, nil
}

// List returns purchases matching the filter
func (s *PurchaseService) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]PurchaseResponse, int64, error) {
	domainFilter := procurement.PurchaseFilter{
		SupplierID: filter.SupplierID,
		IsReturn:   filter.IsReturn,
		Search:     filter.Search,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}
	if domainFilter.Page <= 0 {
		domainFilter.Page = 1
	}
	if domainFilter.PageSize <= 0 {
		domainFilter.PageSize = 20
	}
	if filter.Status != "" {
		status := procurement.PurchaseStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown purchase status "+filter.Status)
		}
		domainFilter.Status = &status
	}

	purchases, total, err := s.purchases.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToPurchaseResponses(purchases), total, nil
}

// ConfirmDraft applies edits to a draft and optionally receives it in
// the same call. Item edits replace the previous set wholesale.
func (s *PurchaseService) ConfirmDraft(ctx context.Context, tenantID, purchaseID uuid.UUID, req ConfirmDraftRequest) (*PurchaseResponse, *ReceiveResult, error) {
	purchase, err := s.purchases.FindByID(ctx, tenantID, purchaseID)
	if err != nil {
		return nil, nil, err
	}
	if purchase.Status != procurement.PurchaseStatusDraft {
		return nil, nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot edit a %s purchase", purchase.Status))
	}

	if req.SupplierID != nil {
		supplierName, err := s.supplierName(ctx, tenantID, req.SupplierID)
		if err != nil {
			return nil, nil, err
		}
		purchase.SupplierID = req.SupplierID
		purchase.SupplierName = supplierName
	}
	if req.InvoiceNo != nil && *req.InvoiceNo != "" {
		purchase.InvoiceNo = *req.InvoiceNo
	}
	if req.InvoiceDate != nil {
		purchase.InvoiceDate = req.InvoiceDate
	}
	if req.Notes != nil {
		purchase.Notes = *req.Notes
	}
	if req.RoundOff != nil {
		if err := purchase.SetRoundOff(*req.RoundOff); err != nil {
			return nil, nil, err
		}
	}
	if len(req.Items) > 0 {
		inputs, err := s.toItemInputs(ctx, tenantID, req.Items)
		if err != nil {
			return nil, nil, err
		}
		if err := purchase.ReplaceItems(inputs); err != nil {
			return nil, nil, err
		}
	}

	if err := s.purchases.Save(ctx, purchase); err != nil {
		return nil, nil, err
	}

	resp := ToPurchaseResponse(purchase)
	if !req.CreateAndReceive {
		return &resp, nil, nil
	}

	result, err := s.Receive(ctx, tenantID, purchaseID)
	if err != nil {
		return nil, nil, err
	}
	return &result.Purchase, result, nil
}

// DeleteDraft removes a draft purchase. Received purchases are part of
// the audit trail and cannot be deleted.
func (s *PurchaseService) DeleteDraft(ctx context.Context, tenantID, purchaseID uuid.UUID) error {
	purchase, err := s.purchases.FindByID(ctx, tenantID, purchaseID)
	if err != nil {
		return err
	}
	if !purchase.CanDelete() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot delete a %s purchase", purchase.Status))
	}
	return s.purchases.Delete(ctx, tenantID, purchaseID)
}

// Receive transitions a draft to RECEIVED and applies its stock and
// ledger effects in one transaction. Receiving twice is rejected; the
// idempotency store additionally swallows rapid duplicate submissions
// before they reach the database.
func (s *PurchaseService) Receive(ctx context.Context, tenantID, purchaseID uuid.UUID) (*ReceiveResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase", "receive")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPurchaseID, purchaseID.String())

	var guardKey string
	if s.idempotency != nil {
		key := "procurement:receive:" + purchaseID.String()
		fresh, err := s.idempotency.MarkProcessed(ctx, key, time.Minute)
		if err != nil {
			s.logger.Warn("idempotency store unavailable, proceeding without guard", zap.Error(err))
		} else if !fresh {
			telemetry.RecordError(span, shared.ErrAlreadyReceived)
			return nil, shared.ErrAlreadyReceived
		} else {
			guardKey = key
		}
	}

	var result *ReceiveResult
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		purchase, err := repos.Purchases().FindByIDForUpdate(ctx, tenantID, purchaseID)
		if err != nil {
			return err
		}

		if s.unlinkedPolicy == UnlinkedItemsBlock {
			for _, item := range purchase.Items {
				if !item.IsLinked() {
					return shared.NewDomainError("UNLINKED_ITEM",
						fmt.Sprintf("Item %q has no catalog product; link it before receiving", item.Name))
				}
			}
		}

		if err := purchase.MarkReceived(); err != nil {
			return err
		}

		recon := inventory.NewReconciliationService(
			repos.Products(), repos.StockBatches(), repos.StockHistories(), repos.StockTransactions())

		movements := make([]inventory.MovementResult, 0, len(purchase.Items))
		for _, item := range purchase.Items {
			if !item.IsLinked() {
				continue
			}
			movement, err := recon.ReceiveItem(ctx, tenantID, *item.ProductID,
				item.Quantity, item.UnitPrice, item.BatchNumber, item.ExpiryDate,
				string(ledger.RefTypePurchase), purchase.ID, purchase.InvoiceNo)
			if err != nil {
				return err
			}
			movements = append(movements, *movement)
		}

		posting, err := ledger.PurchasePosting(tenantID, purchase.ID, purchase.SupplierName,
			purchase.InvoiceNo, purchase.Subtotal, purchase.TaxAmount, purchase.RoundOff)
		if err != nil {
			return err
		}
		entries, err := ledgerapp.PostEntries(ctx, repos.Accounts(), repos.Entries(), posting)
		if err != nil {
			return err
		}

		if err := repos.Purchases().Save(ctx, purchase); err != nil {
			return err
		}

		events = purchase.GetDomainEvents()
		purchase.ClearDomainEvents()
		result = &ReceiveResult{
			Purchase:  ToPurchaseResponse(purchase),
			Movements: movements,
			Entries:   ledgerapp.ToEntryResponses(entries),
		}
		return nil
	})
	if err != nil {
		s.releaseGuard(ctx, guardKey)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, result.Purchase.InvoiceNo,
		"stock_movements", len(result.Movements),
		"ledger_entries", len(result.Entries),
	)

	s.publish(ctx, events)
	s.logger.Info("purchase received",
		zap.String("purchase_id", purchaseID.String()),
		zap.String("invoice_no", result.Purchase.InvoiceNo),
		zap.String("total", result.Purchase.TotalAmount.String()),
		zap.Int("stock_movements", len(result.Movements)),
		zap.Int("ledger_entries", len(result.Entries)),
	)
	return result, nil
}

// Return processes a purchase return: validates the requested lines
// against the received purchase, creates the RETURNED-flagged record,
// reverses stock for linked items and posts the mirrored ledger entries,
// all in one transaction. Return tax is prorated from the original
// purchase's effective rate.
func (s *PurchaseService) Return(ctx context.Context, tenantID, purchaseID uuid.UUID, req ReturnRequest) (*ReturnResult, error) {
	var result *ReturnResult
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.Purchases().FindByIDForUpdate(ctx, tenantID, purchaseID)
		if err != nil {
			return err
		}

		ret, err := original.BuildReturn(req.Lines, req.Notes)
		if err != nil {
			return err
		}

		recon := inventory.NewReconciliationService(
			repos.Products(), repos.StockBatches(), repos.StockHistories(), repos.StockTransactions())

		movements := make([]inventory.MovementResult, 0, len(ret.Items))
		for _, item := range ret.Items {
			if item.ProductID == nil {
				continue
			}
			movement, err := recon.ReturnItem(ctx, tenantID, *item.ProductID,
				item.Quantity, string(ledger.RefTypePurchaseReturn), ret.ID, ret.InvoiceNo)
			if err != nil {
				return err
			}
			movements = append(movements, *movement)
		}

		posting, err := ledger.ReturnPosting(tenantID, ret.ID, ret.SupplierName,
			ret.InvoiceNo, ret.Subtotal, original.EffectiveTaxRate())
		if err != nil {
			return err
		}
		entries, err := ledgerapp.PostEntries(ctx, repos.Accounts(), repos.Entries(), posting)
		if err != nil {
			return err
		}

		if err := s.creditPayable(ctx, repos, tenantID, original.ID, ret); err != nil {
			return err
		}

		if err := repos.Purchases().Save(ctx, original); err != nil {
			return err
		}
		if err := repos.Purchases().Save(ctx, ret); err != nil {
			return err
		}

		events = ret.GetDomainEvents()
		ret.ClearDomainEvents()
		result = &ReturnResult{
			Return:    ToPurchaseResponse(ret),
			Movements: movements,
			Entries:   ledgerapp.ToEntryResponses(entries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.logger.Info("purchase return processed",
		zap.String("original_purchase_id", purchaseID.String()),
		zap.String("return_id", result.Return.ID.String()),
		zap.String("amount", result.Return.TotalAmount.String()),
	)
	return result, nil
}

// releaseGuard frees a duplicate-submission key after a rolled-back
// transaction so a retry is not mistaken for a duplicate
func (s *PurchaseService) releaseGuard(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key",
			zap.String("key", key), zap.Error(err))
	}
}

// creditPayable applies the return amount against the original
// purchase's payable, capped at the outstanding balance. A purchase
// without a payable (handler lag, legacy data) is not an error.
func (s *PurchaseService) creditPayable(ctx context.Context, repos TransactionalRepositories, tenantID, originalID uuid.UUID, ret *procurement.Purchase) error {
	payable, err := repos.Payables().FindByPurchaseID(ctx, tenantID, originalID)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == shared.ErrNotFound.Code {
			s.logger.Warn("no payable found for returned purchase, skipping credit",
				zap.String("purchase_id", originalID.String()))
			return nil
		}
		return err
	}

	credit := ret.TotalAmount
	if credit.GreaterThan(payable.OutstandingAmount) {
		credit = payable.OutstandingAmount
	}
	if !credit.IsPositive() {
		return nil
	}

	if err := payable.ApplyReturnCredit(ret.ID, credit, "Return against "+ret.InvoiceNo); err != nil {
		return err
	}
	return repos.Payables().Save(ctx, payable)
}

// supplierName resolves the display name for a supplier reference
func (s *PurchaseService) supplierName(ctx context.Context, tenantID uuid.UUID, supplierID *uuid.UUID) (string, error) {
	if supplierID == nil {
		return "", nil
	}
	supplier, err := s.suppliers.FindByIDForTenant(ctx, tenantID, *supplierID)
	if err != nil {
		return "", err
	}
	return supplier.Name, nil
}

// toItemInputs converts request lines, matching unlinked lines to
// catalog products by exact name
func (s *PurchaseService) toItemInputs(ctx context.Context, tenantID uuid.UUID, items []ItemRequest) ([]procurement.ItemInput, error) {
	inputs := make([]procurement.ItemInput, 0, len(items))
	for _, item := range items {
		input := procurement.ItemInput{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxAmount:   item.TaxAmount,
			BatchNumber: item.BatchNumber,
			ExpiryDate:  item.ExpiryDate,
		}
		if input.BatchNumber == "" {
			input.BatchNumber = inventory.GenerateBatchNumber()
		}
		if input.ProductID == nil {
			if product, err := s.products.FindByName(ctx, tenantID, item.Name); err == nil {
				input.ProductID = &product.ID
			}
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func (s *PurchaseService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish purchase events", zap.Error(err))
	}
}

// parseInvoiceDate parses the date formats extraction providers emit
func parseInvoiceDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02-01-2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
