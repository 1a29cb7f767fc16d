package integration

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appledger "github.com/clinicware/backend/internal/application/ledger"
	appprocurement "github.com/clinicware/backend/internal/application/procurement"
	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/clinicware/backend/internal/infrastructure/cache"
	"github.com/clinicware/backend/internal/infrastructure/persistence"
)

// ledgerStack wires the payment, journal and query services against a
// real database on top of the procurement stack
type ledgerStack struct {
	*procurementStack
	payments *appledger.PaymentService
	journals *appledger.JournalService
	queries  *appledger.QueryService
}

func newLedgerStack(t *testing.T, tdb *TestDB) *ledgerStack {
	t.Helper()

	log := zap.NewNop()
	entryRepo := persistence.NewGormEntryRepository(tdb.DB)
	payableRepo := persistence.NewGormPayableRepository(tdb.DB)
	scope := persistence.NewGormLedgerTransactionScope(tdb.DB)
	idempotency := cache.NewInMemoryIdempotencyStore()

	return &ledgerStack{
		procurementStack: newProcurementStack(t, tdb),
		payments:         appledger.NewPaymentService(scope, payableRepo, idempotency, log),
		journals:         appledger.NewJournalService(scope, log),
		queries:          appledger.NewQueryService(entryRepo),
	}
}

// receivePurchase drives a draft through receive so a payable exists
func (s *ledgerStack) receivePurchase(t *testing.T, ctx context.Context, tenantID, supplierID uuid.UUID, invoiceNo string, amount decimal.Decimal) *appledger.PayableResponse {
	t.Helper()

	draft, err := s.purchases.CreateDraft(ctx, tenantID, appprocurement.CreateDraftRequest{
		SupplierID: &supplierID,
		InvoiceNo:  invoiceNo,
		Items: []appprocurement.ItemRequest{
			{Name: "Consumables", Quantity: decimal.NewFromInt(1), UnitPrice: amount},
		},
	})
	require.NoError(t, err)

	_, err = s.purchases.Receive(ctx, tenantID, draft.ID)
	require.NoError(t, err)

	payable, err := s.payables.FindByPurchaseID(ctx, tenantID, draft.ID)
	require.NoError(t, err)
	resp := appledger.ToPayableResponse(payable)
	return &resp
}

func TestPaymentSettlesPayable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()

	supplierID := tdb.CreateTestSupplier(tenantID, "Beta Distributors")
	stack := newLedgerStack(t, tdb)

	payable := stack.receivePurchase(t, ctx, tenantID, supplierID, "INV-4001", decimal.NewFromInt(500))
	assert.Equal(t, "PENDING", payable.Status)

	// Partial payment leaves the payable open
	paid, err := stack.payments.Pay(ctx, tenantID, appledger.PaymentRequest{
		PayableID: payable.ID,
		Amount:    decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.Equal(t, "PARTIAL", paid.Payable.Status)
	assert.True(t, paid.Payable.OutstandingAmount.Equal(decimal.NewFromInt(300)),
		"outstanding %s", paid.Payable.OutstandingAmount)

	// Payment entries debit the payable account and credit Cash, balanced
	entries, err := stack.entries.FindByRef(ctx, tenantID, ledger.RefTypePayment, paid.PaymentID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	debits, credits := decimal.Zero, decimal.Zero
	accountNames := make([]string, 0, len(entries))
	for _, e := range entries {
		accountNames = append(accountNames, e.AccountName)
		if e.Type == ledger.EntryTypeDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	assert.True(t, debits.Equal(credits))
	assert.Contains(t, accountNames, ledger.AccountNameCash)

	// The identical request right after is caught by the idempotency guard
	_, err = stack.payments.Pay(ctx, tenantID, appledger.PaymentRequest{
		PayableID: payable.ID,
		Amount:    decimal.NewFromInt(200),
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DUPLICATE_REQUEST", domainErr.Code)

	// Overpaying the remainder is rejected
	_, err = stack.payments.Pay(ctx, tenantID, appledger.PaymentRequest{
		PayableID: payable.ID,
		Amount:    decimal.NewFromInt(400),
	})
	require.Error(t, err)

	// Settling exactly closes it
	settled, err := stack.payments.Pay(ctx, tenantID, appledger.PaymentRequest{
		PayableID: payable.ID,
		Amount:    decimal.NewFromInt(300),
		PaidFrom:  "Bank",
	})
	require.NoError(t, err)
	assert.Equal(t, "SETTLED", settled.Payable.Status)
	assert.True(t, settled.Payable.OutstandingAmount.IsZero())
	require.NotNil(t, settled.Payable.SettledAt)

	outstanding, total, err := stack.payments.ListOutstanding(ctx, tenantID, nil, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, outstanding)
	assert.Zero(t, total)
}

func TestJournalAndSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()

	supplierID := tdb.CreateTestSupplier(tenantID, "Gamma Traders")
	stack := newLedgerStack(t, tdb)

	stack.receivePurchase(t, ctx, tenantID, supplierID, "INV-5001", decimal.NewFromInt(120))

	journal, err := stack.journals.Post(ctx, tenantID, appledger.JournalRequest{
		DebitAccount:  ledger.AccountNameCash,
		CreditAccount: "Owner Equity",
		Amount:        decimal.NewFromInt(1000),
		Note:          "opening float",
	})
	require.NoError(t, err)
	require.Len(t, journal.Entries, 2)

	// Zero and negative amounts never reach the ledger
	_, err = stack.journals.Post(ctx, tenantID, appledger.JournalRequest{
		DebitAccount:  ledger.AccountNameCash,
		CreditAccount: "Owner Equity",
		Amount:        decimal.Zero,
	})
	require.Error(t, err)

	// Same account on both sides is rejected
	_, err = stack.journals.Post(ctx, tenantID, appledger.JournalRequest{
		DebitAccount:  ledger.AccountNameCash,
		CreditAccount: "cash",
		Amount:        decimal.NewFromInt(10),
	})
	require.Error(t, err)

	summary, err := stack.queries.Summary(ctx, tenantID, appledger.EntryListFilter{})
	require.NoError(t, err)
	assert.True(t, summary.TotalDebit.Equal(summary.TotalCredit),
		"debit %s != credit %s", summary.TotalDebit, summary.TotalCredit)
	require.NotEmpty(t, summary.Accounts)

	names := make([]string, 0, len(summary.Accounts))
	for _, a := range summary.Accounts {
		names = append(names, a.AccountName)
	}
	assert.Contains(t, names, ledger.AccountNameInventory)
	assert.Contains(t, names, ledger.AccountNameCash)
}

func TestLedgerExportCSV(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()

	supplierID := tdb.CreateTestSupplier(tenantID, "Delta Supplies")
	stack := newLedgerStack(t, tdb)

	stack.receivePurchase(t, ctx, tenantID, supplierID, "INV-6001", decimal.NewFromInt(75))

	var buf bytes.Buffer
	require.NoError(t, stack.queries.ExportCSV(ctx, tenantID, appledger.EntryListFilter{}, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Greater(t, len(lines), 1, "expected header plus at least one row")
	assert.Contains(t, lines[0], "EntryID")
	assert.Contains(t, lines[0], "Account")

	// Another tenant exports an empty ledger
	buf.Reset()
	require.NoError(t, stack.queries.ExportCSV(ctx, uuid.New(), appledger.EntryListFilter{}, &buf))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
}
