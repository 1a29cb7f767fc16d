package procurement

import (
	"context"

	"github.com/clinicware/backend/internal/domain/inventory"
	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/procurement"
)

// TransactionScope runs a function against repositories bound to one
// database transaction. Receiving a purchase writes the purchase row,
// the stock movements and the ledger entries atomically; any error rolls
// the whole set back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes every repository a receive or return
// touches, all sharing the current transaction
type TransactionalRepositories interface {
	Purchases() procurement.PurchaseRepository
	Products() inventory.ProductRepository
	StockBatches() inventory.StockBatchRepository
	StockHistories() inventory.StockHistoryRepository
	StockTransactions() inventory.StockTransactionRepository
	Accounts() ledger.AccountRepository
	Entries() ledger.EntryRepository
	Payables() ledger.PayableRepository
}

// NoOpTransactionScope runs the function without a real transaction,
// for tests
type NoOpTransactionScope struct {
	purchases         procurement.PurchaseRepository
	products          inventory.ProductRepository
	stockBatches      inventory.StockBatchRepository
	stockHistories    inventory.StockHistoryRepository
	stockTransactions inventory.StockTransactionRepository
	accounts          ledger.AccountRepository
	entries           ledger.EntryRepository
	payables          ledger.PayableRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories
func NewNoOpTransactionScope(
	purchases procurement.PurchaseRepository,
	products inventory.ProductRepository,
	stockBatches inventory.StockBatchRepository,
	stockHistories inventory.StockHistoryRepository,
	stockTransactions inventory.StockTransactionRepository,
	accounts ledger.AccountRepository,
	entries ledger.EntryRepository,
	payables ledger.PayableRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		purchases:         purchases,
		products:          products,
		stockBatches:      stockBatches,
		stockHistories:    stockHistories,
		stockTransactions: stockTransactions,
		accounts:          accounts,
		entries:           entries,
		payables:          payables,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Purchases returns the purchase repository
func (s *NoOpTransactionScope) Purchases() procurement.PurchaseRepository { return s.purchases }

// Products returns the product repository
func (s *NoOpTransactionScope) Products() inventory.ProductRepository { return s.products }

// StockBatches returns the stock batch repository
func (s *NoOpTransactionScope) StockBatches() inventory.StockBatchRepository { return s.stockBatches }

// StockHistories returns the stock history repository
func (s *NoOpTransactionScope) StockHistories() inventory.StockHistoryRepository {
	return s.stockHistories
}

// StockTransactions returns the stock transaction repository
func (s *NoOpTransactionScope) StockTransactions() inventory.StockTransactionRepository {
	return s.stockTransactions
}

// Accounts returns the ledger account repository
func (s *NoOpTransactionScope) Accounts() ledger.AccountRepository { return s.accounts }

// Entries returns the ledger entry repository
func (s *NoOpTransactionScope) Entries() ledger.EntryRepository { return s.entries }

// Payables returns the supplier payable repository
func (s *NoOpTransactionScope) Payables() ledger.PayableRepository { return s.payables }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
