package ledger

import (
	"fmt"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountNameRoundOff absorbs invoice round-off so postings stay balanced
const AccountNameRoundOff = "Round Off"

// PostingLine is one side of a posting before account resolution.
// The account is referenced by name; the resolver turns it into a
// concrete per-tenant account when the posting is persisted.
type PostingLine struct {
	AccountName string
	AccountType AccountType
	Type        EntryType
	Amount      decimal.Decimal
	Note        string
}

// Posting is a balanced set of debit/credit lines describing one business
// event. All lines share a single refType/refID and are persisted atomically.
type Posting struct {
	TenantID uuid.UUID
	RefType  RefType
	RefID    uuid.UUID
	Lines    []PostingLine
}

// NewPosting creates an empty posting for a business event
func NewPosting(tenantID uuid.UUID, refType RefType, refID uuid.UUID) *Posting {
	return &Posting{
		TenantID: tenantID,
		RefType:  refType,
		RefID:    refID,
		Lines:    make([]PostingLine, 0, 3),
	}
}

// Debit appends a debit line
func (p *Posting) Debit(accountName string, accountType AccountType, amount decimal.Decimal, note string) *Posting {
	p.Lines = append(p.Lines, PostingLine{
		AccountName: accountName,
		AccountType: accountType,
		Type:        EntryTypeDebit,
		Amount:      amount,
		Note:        note,
	})
	return p
}

// Credit appends a credit line
func (p *Posting) Credit(accountName string, accountType AccountType, amount decimal.Decimal, note string) *Posting {
	p.Lines = append(p.Lines, PostingLine{
		AccountName: accountName,
		AccountType: accountType,
		Type:        EntryTypeCredit,
		Amount:      amount,
		Note:        note,
	})
	return p
}

// Validate checks structural validity and the double-entry invariant:
// every line amount is positive and debit and credit totals match exactly.
func (p *Posting) Validate() error {
	if p.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Posting requires a tenant")
	}
	if !p.RefType.IsValid() {
		return shared.NewDomainError("INVALID_REF_TYPE", "Reference type is not valid")
	}
	if p.RefID == uuid.Nil {
		return shared.NewDomainError("INVALID_REF_ID", "Reference ID cannot be empty")
	}
	if len(p.Lines) < 2 {
		return shared.NewDomainError("INVALID_POSTING", "Posting requires at least one debit and one credit line")
	}

	debit := decimal.Zero
	credit := decimal.Zero
	for _, line := range p.Lines {
		if NormalizeAccountName(line.AccountName) == "" {
			return shared.NewDomainError("INVALID_ACCOUNT_NAME", "Posting line account name cannot be empty")
		}
		if line.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_AMOUNT",
				fmt.Sprintf("Posting line amount must be positive, got %s for %s", line.Amount, line.AccountName))
		}
		switch line.Type {
		case EntryTypeDebit:
			debit = debit.Add(line.Amount)
		case EntryTypeCredit:
			credit = credit.Add(line.Amount)
		default:
			return shared.NewDomainError("INVALID_ENTRY_TYPE", "Entry type must be DEBIT or CREDIT")
		}
	}

	if !debit.Equal(credit) {
		return shared.NewDomainError("UNBALANCED_POSTING",
			fmt.Sprintf("Debit total %s does not equal credit total %s", debit, credit))
	}
	return nil
}

// EffectiveTaxRate derives the tax rate actually charged on a purchase.
// Used to prorate tax on returns instead of trusting client-supplied figures.
func EffectiveTaxRate(taxAmount, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() {
		return decimal.Zero
	}
	return taxAmount.Div(subtotal)
}

// PurchasePosting builds the balanced posting for a received purchase:
// Inventory is debited with the subtotal, GST Input with the tax when
// present, and the supplier payable account is credited with the total.
// A non-zero round-off is absorbed by the Round Off account.
func PurchasePosting(tenantID, purchaseID uuid.UUID, supplierName, invoiceNo string, subtotal, taxAmount, roundOff decimal.Decimal) (*Posting, error) {
	if subtotal.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Purchase subtotal must be positive")
	}
	if taxAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Purchase tax cannot be negative")
	}

	note := "Purchase " + invoiceNo
	total := subtotal.Add(taxAmount).Add(roundOff)

	p := NewPosting(tenantID, RefTypePurchase, purchaseID).
		Debit(AccountNameInventory, AccountTypeAsset, subtotal, note)
	if taxAmount.IsPositive() {
		p.Debit(AccountNameGSTInput, AccountTypeAsset, taxAmount, note)
	}
	if roundOff.IsPositive() {
		p.Debit(AccountNameRoundOff, AccountTypeExpense, roundOff, note)
	} else if roundOff.IsNegative() {
		p.Credit(AccountNameRoundOff, AccountTypeExpense, roundOff.Abs(), note)
	}
	p.Credit(PayableAccountName(supplierName), AccountTypeLiability, total, note)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ReturnPosting builds the mirrored posting for a purchase return. Tax is
// recomputed from the effective tax rate of the original purchase applied
// to the returned base amount.
func ReturnPosting(tenantID, returnID uuid.UUID, supplierName, invoiceNo string, baseAmount, effectiveTaxRate decimal.Decimal) (*Posting, error) {
	if baseAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Return base amount must be positive")
	}
	if effectiveTaxRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Effective tax rate cannot be negative")
	}

	note := "Purchase return " + invoiceNo
	tax := baseAmount.Mul(effectiveTaxRate)

	p := NewPosting(tenantID, RefTypePurchaseReturn, returnID).
		Debit(PayableAccountName(supplierName), AccountTypeLiability, baseAmount.Add(tax), note).
		Credit(AccountNameInventory, AccountTypeAsset, baseAmount, note)
	if tax.IsPositive() {
		p.Credit(AccountNameGSTInput, AccountTypeAsset, tax, note)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// PaymentPosting builds the posting for a payment against a supplier
// payable from a cash/bank account chosen by the caller.
func PaymentPosting(tenantID, paymentID uuid.UUID, supplierName, paidFromAccount string, amount decimal.Decimal, note string) (*Posting, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if NormalizeAccountName(paidFromAccount) == "" {
		paidFromAccount = AccountNameCash
	}

	p := NewPosting(tenantID, RefTypePayment, paymentID).
		Debit(PayableAccountName(supplierName), AccountTypeLiability, amount, note).
		Credit(paidFromAccount, AccountTypeAsset, amount, note)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// JournalPosting builds a manual journal posting between two accounts
func JournalPosting(tenantID, journalID uuid.UUID, debitAccount, creditAccount string, amount decimal.Decimal, note string) (*Posting, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Journal amount must be positive")
	}
	if NormalizeAccountName(debitAccount) == NormalizeAccountName(creditAccount) {
		return nil, shared.NewDomainError("ACCOUNT_MISMATCH", "Debit and credit accounts must differ")
	}

	p := NewPosting(tenantID, RefTypeJournal, journalID).
		Debit(debitAccount, AccountTypeAsset, amount, note).
		Credit(creditAccount, AccountTypeAsset, amount, note)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
