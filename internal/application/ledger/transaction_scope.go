package ledger

import (
	"context"

	"github.com/clinicware/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to the ledger
// repositories. Payments and journal postings write the payable and its
// balanced entries in one database transaction.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the ledger repositories bound to the
// current transaction
type TransactionalRepositories interface {
	Accounts() ledger.AccountRepository
	Entries() ledger.EntryRepository
	Payables() ledger.PayableRepository
}

// NoOpTransactionScope runs the function without a real transaction,
// for tests
type NoOpTransactionScope struct {
	accounts ledger.AccountRepository
	entries  ledger.EntryRepository
	payables ledger.PayableRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories
func NewNoOpTransactionScope(
	accounts ledger.AccountRepository,
	entries ledger.EntryRepository,
	payables ledger.PayableRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{accounts: accounts, entries: entries, payables: payables}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Accounts returns the account repository
func (s *NoOpTransactionScope) Accounts() ledger.AccountRepository { return s.accounts }

// Entries returns the entry repository
func (s *NoOpTransactionScope) Entries() ledger.EntryRepository { return s.entries }

// Payables returns the payable repository
func (s *NoOpTransactionScope) Payables() ledger.PayableRepository { return s.payables }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
