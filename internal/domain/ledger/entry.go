package ledger

import (
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType encodes the accounting direction of a ledger entry
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// IsValid checks if the entry type is valid
func (t EntryType) IsValid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// RefType identifies the business event a ledger entry belongs to
type RefType string

const (
	RefTypePurchase       RefType = "PURCHASE"
	RefTypePurchaseReturn RefType = "PURCHASE_RETURN"
	RefTypePayment        RefType = "PAYMENT"
	RefTypeJournal        RefType = "JOURNAL"
)

// IsValid checks if the reference type is valid
func (t RefType) IsValid() bool {
	switch t {
	case RefTypePurchase, RefTypePurchaseReturn, RefTypePayment, RefTypeJournal:
		return true
	}
	return false
}

// Entry represents a single side of a double-entry posting.
// Entries are append-only; they are never updated or deleted.
// AccountID may be nil on rows imported from legacy data, in which case
// the denormalized account name is the only grouping key.
type Entry struct {
	shared.TenantAggregateRoot
	AccountID   *uuid.UUID      `gorm:"type:uuid;index" json:"account_id"`
	AccountName string          `gorm:"type:varchar(120);not null" json:"account_name"`
	Type        EntryType       `gorm:"type:varchar(10);not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	RefType     RefType         `gorm:"type:varchar(30);not null;index:idx_entry_ref" json:"ref_type"`
	RefID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_entry_ref" json:"ref_id"`
	Note        string          `gorm:"type:varchar(500)" json:"note"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "ledger_entries"
}

// NewEntry creates a new ledger entry
func NewEntry(
	tenantID uuid.UUID,
	account *Account,
	entryType EntryType,
	amount decimal.Decimal,
	refType RefType,
	refID uuid.UUID,
	note string,
) (*Entry, error) {
	if account == nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Ledger entry requires an account")
	}
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Entry type must be DEBIT or CREDIT")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Entry amount must be positive")
	}
	if !refType.IsValid() {
		return nil, shared.NewDomainError("INVALID_REF_TYPE", "Reference type is not valid")
	}
	if refID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REF_ID", "Reference ID cannot be empty")
	}

	accountID := account.ID
	return &Entry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           &accountID,
		AccountName:         account.Name,
		Type:                entryType,
		Amount:              amount,
		RefType:             refType,
		RefID:               refID,
		Note:                note,
	}, nil
}

// GroupingKey returns the key used to merge entries that belong to the same
// logical account, tolerating legacy rows without an account ID.
func (e *Entry) GroupingKey() string {
	return NormalizeAccountName(e.AccountName)
}
