package ledger

import (
	"context"
	"errors"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ResolveAccount finds or creates a per-tenant account by name. Lookup
// goes through the normalized name, so names differing only in case or
// whitespace resolve to the same account.
func ResolveAccount(ctx context.Context, accounts ledger.AccountRepository, tenantID uuid.UUID, name string, accountType ledger.AccountType) (*ledger.Account, error) {
	normalized := ledger.NormalizeAccountName(name)
	if normalized == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}

	existing, err := accounts.FindByNormalizedName(ctx, tenantID, normalized)
	if err == nil {
		return existing, nil
	}
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != shared.ErrNotFound.Code {
		return nil, err
	}

	account, err := ledger.NewAccount(tenantID, name, accountType)
	if err != nil {
		return nil, err
	}
	if err := accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// PostEntries validates a posting, resolves each line's account and
// persists the balanced entry set. It runs against whatever repositories
// the caller hands in, so a purchase receive can include it in the same
// transaction as its stock writes.
func PostEntries(ctx context.Context, accounts ledger.AccountRepository, entries ledger.EntryRepository, posting *ledger.Posting) ([]*ledger.Entry, error) {
	if err := posting.Validate(); err != nil {
		return nil, err
	}

	rows := make([]*ledger.Entry, 0, len(posting.Lines))
	for _, line := range posting.Lines {
		account, err := ResolveAccount(ctx, accounts, posting.TenantID, line.AccountName, line.AccountType)
		if err != nil {
			return nil, err
		}
		entry, err := ledger.NewEntry(posting.TenantID, account, line.Type, line.Amount, posting.RefType, posting.RefID, line.Note)
		if err != nil {
			return nil, err
		}
		rows = append(rows, entry)
	}

	if err := entries.SaveAll(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
