package ledger

import (
	"context"
	"time"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/clinicware/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService settles supplier payables. Each payment debits the
// supplier's payable account and credits the paying cash/bank account in
// the same transaction that updates the payable balance.
type PaymentService struct {
	scope       TransactionScope
	payables    ledger.PayableRepository
	idempotency shared.IdempotencyStore
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	scope TransactionScope,
	payables ledger.PayableRepository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		scope:       scope,
		payables:    payables,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Pay applies a payment against a payable and posts the balanced ledger
// entries
func (s *PaymentService) Pay(ctx context.Context, tenantID uuid.UUID, req PaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "pay")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPayableID, req.PayableID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	paymentID := uuid.New()

	var guardKey string
	if s.idempotency != nil {
		key := "ledger:payment:" + req.PayableID.String() + ":" + req.Amount.String()
		fresh, err := s.idempotency.MarkProcessed(ctx, key, time.Minute)
		if err != nil {
			s.logger.Warn("idempotency store unavailable, proceeding without guard", zap.Error(err))
		} else if !fresh {
			err := shared.NewDomainError("DUPLICATE_REQUEST",
				"An identical payment was just submitted, retry shortly if intentional")
			telemetry.RecordError(span, err)
			return nil, err
		} else {
			guardKey = key
		}
	}

	var resp *PaymentResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payable, err := repos.Payables().FindByID(ctx, tenantID, req.PayableID)
		if err != nil {
			return err
		}

		if err := payable.ApplyPayment(paymentID, req.Amount, req.Note); err != nil {
			return err
		}

		posting, err := ledger.PaymentPosting(tenantID, paymentID, payable.SupplierName, req.PaidFrom, req.Amount, paymentNote(payable, req.Note))
		if err != nil {
			return err
		}
		entries, err := PostEntries(ctx, repos.Accounts(), repos.Entries(), posting)
		if err != nil {
			return err
		}

		if err := repos.Payables().Save(ctx, payable); err != nil {
			return err
		}

		resp = &PaymentResponse{
			PaymentID: paymentID,
			Payable:   ToPayableResponse(payable),
			Entries:   ToEntryResponses(entries),
		}
		return nil
	})
	if err != nil {
		s.releaseGuard(ctx, guardKey)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, paymentID.String(),
		"payable_status", resp.Payable.Status,
	)

	s.logger.Info("payment applied",
		zap.String("payment_id", paymentID.String()),
		zap.String("payable_id", req.PayableID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("status", resp.Payable.Status),
	)
	return resp, nil
}

// releaseGuard frees a duplicate-submission key after a rolled-back
// transaction so a retry is not mistaken for a duplicate
func (s *PaymentService) releaseGuard(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key",
			zap.String("key", key), zap.Error(err))
	}
}

// ListOutstanding returns unsettled payables for a tenant, optionally
// narrowed to a supplier
func (s *PaymentService) ListOutstanding(ctx context.Context, tenantID uuid.UUID, supplierID *uuid.UUID, page, pageSize int) ([]PayableResponse, int64, error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	payables, total, err := s.payables.FindOutstanding(ctx, tenantID, supplierID, filter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]PayableResponse, 0, len(payables))
	for _, p := range payables {
		out = append(out, ToPayableResponse(p))
	}
	return out, total, nil
}

func paymentNote(payable *ledger.SupplierPayable, note string) string {
	if note != "" {
		return note
	}
	return "Payment against " + payable.PayableNumber
}
