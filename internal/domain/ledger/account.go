package ledger

import (
	"strings"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// AccountType classifies an account for reporting purposes
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// Well-known account names used by the posting engine
const (
	AccountNameInventory       = "Inventory"
	AccountNameGSTInput        = "GST Input"
	AccountNameCash            = "Cash"
	AccountNameAccountsPayable = "Accounts Payable"
)

// PayableAccountName derives the supplier-specific payable account name.
// Falls back to the generic payable account when no supplier is known.
func PayableAccountName(supplierName string) string {
	name := strings.TrimSpace(supplierName)
	if name == "" {
		return AccountNameAccountsPayable
	}
	return "Payable - " + name
}

var accountFolder = cases.Fold()

// NormalizeAccountName produces the canonical per-tenant uniqueness key for
// an account name. Names differing only in case or surrounding/internal
// whitespace resolve to the same account.
func NormalizeAccountName(name string) string {
	folded := accountFolder.String(strings.TrimSpace(name))
	return strings.Join(strings.Fields(folded), " ")
}

// Account represents a named ledger account scoped to a tenant.
// Accounts are created on demand by the resolver; the normalized name
// is unique per tenant.
type Account struct {
	shared.TenantAggregateRoot
	Name           string      `gorm:"type:varchar(120);not null" json:"name"`
	NormalizedName string      `gorm:"type:varchar(120);not null;index:idx_account_tenant_normalized" json:"normalized_name"`
	Type           AccountType `gorm:"type:varchar(20);not null" json:"type"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "ledger_accounts"
}

// NewAccount creates a new account
func NewAccount(tenantID uuid.UUID, name string, accountType AccountType) (*Account, error) {
	normalized := NormalizeAccountName(name)
	if normalized == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if len(name) > 120 {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot exceed 120 characters")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", "Account type is not valid")
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                strings.TrimSpace(name),
		NormalizedName:      normalized,
		Type:                accountType,
	}, nil
}
