package persistence

import (
	"context"

	"gorm.io/gorm"

	appledger "github.com/clinicware/backend/internal/application/ledger"
	appproc "github.com/clinicware/backend/internal/application/procurement"
	"github.com/clinicware/backend/internal/domain/inventory"
	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/clinicware/backend/internal/domain/procurement"
)

// GormProcurementTransactionScope implements the procurement
// TransactionScope using GORM transactions. A receive or return runs
// every repository write against one transaction and rolls the whole
// set back on error.
type GormProcurementTransactionScope struct {
	db *gorm.DB
}

// NewGormProcurementTransactionScope creates a new GormProcurementTransactionScope
func NewGormProcurementTransactionScope(db *gorm.DB) *GormProcurementTransactionScope {
	return &GormProcurementTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormProcurementTransactionScope) Execute(ctx context.Context, fn func(repos appproc.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormProcurementRepositories{tx: tx})
	})
}

// gormProcurementRepositories binds every repository a receive touches
// to the current transaction.
type gormProcurementRepositories struct {
	tx *gorm.DB
}

func (r *gormProcurementRepositories) Purchases() procurement.PurchaseRepository {
	return NewGormPurchaseRepository(r.tx)
}

func (r *gormProcurementRepositories) Products() inventory.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormProcurementRepositories) StockBatches() inventory.StockBatchRepository {
	return NewGormStockBatchRepository(r.tx)
}

func (r *gormProcurementRepositories) StockHistories() inventory.StockHistoryRepository {
	return NewGormStockHistoryRepository(r.tx)
}

func (r *gormProcurementRepositories) StockTransactions() inventory.StockTransactionRepository {
	return NewGormStockTransactionRepository(r.tx)
}

func (r *gormProcurementRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormProcurementRepositories) Entries() ledger.EntryRepository {
	return NewGormEntryRepository(r.tx)
}

func (r *gormProcurementRepositories) Payables() ledger.PayableRepository {
	return NewGormPayableRepository(r.tx)
}

// GormLedgerTransactionScope implements the ledger TransactionScope
// using GORM transactions. Payments and manual journal postings use it
// to write the payable and its balanced entries atomically.
type GormLedgerTransactionScope struct {
	db *gorm.DB
}

// NewGormLedgerTransactionScope creates a new GormLedgerTransactionScope
func NewGormLedgerTransactionScope(db *gorm.DB) *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerRepositories{tx: tx})
	})
}

// gormLedgerRepositories binds the ledger repositories to the current
// transaction.
type gormLedgerRepositories struct {
	tx *gorm.DB
}

func (r *gormLedgerRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormLedgerRepositories) Entries() ledger.EntryRepository {
	return NewGormEntryRepository(r.tx)
}

func (r *gormLedgerRepositories) Payables() ledger.PayableRepository {
	return NewGormPayableRepository(r.tx)
}

// Ensure the scopes implement their application interfaces
var _ appproc.TransactionScope = (*GormProcurementTransactionScope)(nil)
var _ appproc.TransactionalRepositories = (*gormProcurementRepositories)(nil)
var _ appledger.TransactionScope = (*GormLedgerTransactionScope)(nil)
var _ appledger.TransactionalRepositories = (*gormLedgerRepositories)(nil)
