package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEntry(t *testing.T, repo *fakeEntryRepo, tenantID uuid.UUID, accountName string, entryType ledger.EntryType, amount string, refType ledger.RefType, refID uuid.UUID) *ledger.Entry {
	t.Helper()
	account, err := ledger.NewAccount(tenantID, accountName, ledger.AccountTypeAsset)
	require.NoError(t, err)
	entry, err := ledger.NewEntry(tenantID, account, entryType, dec(t, amount), refType, refID, "note")
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(context.Background(), []*ledger.Entry{entry}))
	return entry
}

func TestQueryServiceSummary(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := &fakeEntryRepo{}
	refID := uuid.New()

	// Scenario A figures plus a case variant that must merge
	seedEntry(t, repo, tenantID, "Inventory", ledger.EntryTypeDebit, "50", ledger.RefTypePurchase, refID)
	seedEntry(t, repo, tenantID, "GST Input", ledger.EntryTypeDebit, "6", ledger.RefTypePurchase, refID)
	seedEntry(t, repo, tenantID, "Payable - MedSupply Co", ledger.EntryTypeCredit, "56", ledger.RefTypePurchase, refID)
	seedEntry(t, repo, tenantID, "inventory", ledger.EntryTypeCredit, "20", ledger.RefTypePurchaseReturn, uuid.New())

	// Another tenant's rows must not leak in
	seedEntry(t, repo, uuid.New(), "Inventory", ledger.EntryTypeDebit, "999", ledger.RefTypePurchase, uuid.New())

	svc := NewQueryService(repo)
	summary, err := svc.Summary(ctx, tenantID, EntryListFilter{})
	require.NoError(t, err)

	// Case variants of Inventory merged into one bucket
	require.Len(t, summary.Accounts, 3)

	byName := map[string]ledger.AccountBalance{}
	for _, b := range summary.Accounts {
		byName[ledger.NormalizeAccountName(b.AccountName)] = b
	}

	inv := byName["inventory"]
	assert.True(t, inv.Debit.Equal(dec(t, "50")))
	assert.True(t, inv.Credit.Equal(dec(t, "20")))
	assert.True(t, inv.Balance.Equal(dec(t, "30")))

	payable := byName["payable - medsupply co"]
	assert.True(t, payable.Balance.Equal(dec(t, "-56")))

	assert.True(t, summary.TotalDebit.Equal(dec(t, "56")))
	assert.True(t, summary.TotalCredit.Equal(dec(t, "76")))
}

func TestQueryServiceSummaryToleratesNilAccountID(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := &fakeEntryRepo{}

	legacy := seedEntry(t, repo, tenantID, "Inventory", ledger.EntryTypeDebit, "10", ledger.RefTypeJournal, uuid.New())
	legacy.AccountID = nil
	linked := seedEntry(t, repo, tenantID, "Inventory", ledger.EntryTypeDebit, "5", ledger.RefTypeJournal, uuid.New())

	svc := NewQueryService(repo)
	summary, err := svc.Summary(ctx, tenantID, EntryListFilter{})
	require.NoError(t, err)

	require.Len(t, summary.Accounts, 1)
	assert.True(t, summary.Accounts[0].Debit.Equal(dec(t, "15")))
	// The non-nil account ID wins for the merged row
	require.NotNil(t, summary.Accounts[0].AccountID)
	assert.Equal(t, *linked.AccountID, *summary.Accounts[0].AccountID)
}

func TestQueryServiceExportCSV(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := &fakeEntryRepo{}
	refID := uuid.New()

	entry := seedEntry(t, repo, tenantID, "Inventory", ledger.EntryTypeDebit, "50.005", ledger.RefTypePurchase, refID)

	svc := NewQueryService(repo)
	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, tenantID, EntryListFilter{}, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, csvHeader, records[0])

	row := records[1]
	assert.Equal(t, entry.ID.String(), row[0])
	assert.Equal(t, "Inventory", row[2])
	assert.Equal(t, "DEBIT", row[4])
	// Amounts export at two decimals, half rounded away from zero
	assert.Equal(t, "50.01", row[5])
	assert.Equal(t, "PURCHASE", row[6])
	assert.Equal(t, refID.String(), row[7])
	assert.Equal(t, tenantID.String(), row[9])

	// Round-trip: the exported amount parses back to the same 2dp value
	parsed, err := decimal.NewFromString(row[5])
	require.NoError(t, err)
	assert.True(t, parsed.Equal(entry.Amount.Round(2)))
}
