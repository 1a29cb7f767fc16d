package ledger

import (
	"context"
	"encoding/csv"
	"io"
	"sort"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QueryService answers read-only ledger questions: entry listings, the
// per-account summary and CSV export
type QueryService struct {
	entries ledger.EntryRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(entries ledger.EntryRepository) *QueryService {
	return &QueryService{entries: entries}
}

func toDomainFilter(filter EntryListFilter) ledger.EntryFilter {
	df := ledger.EntryFilter{
		AccountName: filter.AccountName,
		RefID:       filter.RefID,
		From:        filter.From,
		To:          filter.To,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	}
	if df.Page <= 0 {
		df.Page = 1
	}
	if df.PageSize <= 0 {
		df.PageSize = 50
	}
	if filter.RefType != "" {
		rt := ledger.RefType(filter.RefType)
		df.RefType = &rt
	}
	return df
}

// List returns a page of ledger entries
func (s *QueryService) List(ctx context.Context, tenantID uuid.UUID, filter EntryListFilter) ([]EntryResponse, int64, error) {
	entries, total, err := s.entries.Query(ctx, tenantID, toDomainFilter(filter))
	if err != nil {
		return nil, 0, err
	}
	return ToEntryResponses(entries), total, nil
}

// FindByRef returns the balanced entry set for one business event
func (s *QueryService) FindByRef(ctx context.Context, tenantID uuid.UUID, refType ledger.RefType, refID uuid.UUID) ([]EntryResponse, error) {
	entries, err := s.entries.FindByRef(ctx, tenantID, refType, refID)
	if err != nil {
		return nil, err
	}
	return ToEntryResponses(entries), nil
}

// Summary aggregates entries per account over an optional date window.
// Grouping is by normalized account name so legacy rows without an
// account ID still merge with their account; balance is debit minus
// credit and the grand totals of a complete ledger always match.
func (s *QueryService) Summary(ctx context.Context, tenantID uuid.UUID, filter EntryListFilter) (*SummaryResponse, error) {
	entries, err := s.entries.QueryAll(ctx, tenantID, ledger.EntryFilter{
		From: filter.From,
		To:   filter.To,
	})
	if err != nil {
		return nil, err
	}

	type bucket struct {
		balance ledger.AccountBalance
	}
	buckets := make(map[string]*bucket)
	order := make([]string, 0)

	for _, e := range entries {
		key := e.GroupingKey()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{balance: ledger.AccountBalance{
				AccountName: e.AccountName,
				AccountID:   e.AccountID,
				Debit:       decimal.Zero,
				Credit:      decimal.Zero,
			}}
			buckets[key] = b
			order = append(order, key)
		}
		if b.balance.AccountID == nil && e.AccountID != nil {
			b.balance.AccountID = e.AccountID
		}
		switch e.Type {
		case ledger.EntryTypeDebit:
			b.balance.Debit = b.balance.Debit.Add(e.Amount)
		case ledger.EntryTypeCredit:
			b.balance.Credit = b.balance.Credit.Add(e.Amount)
		}
	}

	sort.Strings(order)

	resp := &SummaryResponse{
		Accounts:    make([]ledger.AccountBalance, 0, len(order)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		From:        filter.From,
		To:          filter.To,
	}
	for _, key := range order {
		b := buckets[key]
		b.balance.Balance = b.balance.Debit.Sub(b.balance.Credit)
		resp.Accounts = append(resp.Accounts, b.balance)
		resp.TotalDebit = resp.TotalDebit.Add(b.balance.Debit)
		resp.TotalCredit = resp.TotalCredit.Add(b.balance.Credit)
	}
	return resp, nil
}

// csvHeader is the fixed export column set. Reimporting a row preserves
// the amount to two decimals and every reference field.
var csvHeader = []string{"EntryID", "Date", "Account", "AccountID", "Type", "Amount", "RefType", "RefID", "Note", "TenantID"}

// ExportCSV streams all entries matching the filter as CSV
func (s *QueryService) ExportCSV(ctx context.Context, tenantID uuid.UUID, filter EntryListFilter, w io.Writer) error {
	entries, err := s.entries.QueryAll(ctx, tenantID, toDomainFilter(filter))
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		accountID := ""
		if e.AccountID != nil {
			accountID = e.AccountID.String()
		}
		record := []string{
			e.ID.String(),
			e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			e.AccountName,
			accountID,
			e.Type.String(),
			e.Amount.StringFixed(2),
			string(e.RefType),
			e.RefID.String(),
			e.Note,
			e.TenantID.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
