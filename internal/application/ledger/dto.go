package ledger

import (
	"time"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest settles part of a supplier payable from a cash or bank
// account
type PaymentRequest struct {
	PayableID   uuid.UUID       `json:"payable_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PaidFrom    string          `json:"paid_from"` // account name, defaults to Cash
	Note        string          `json:"note"`
	RequestedBy *uuid.UUID      `json:"-"`
}

// PaymentResponse describes the applied payment
type PaymentResponse struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	Payable   PayableResponse `json:"payable"`
	Entries   []EntryResponse `json:"entries"`
}

// JournalRequest posts a manual transfer between two accounts
type JournalRequest struct {
	DebitAccount  string          `json:"debit_account" binding:"required"`
	CreditAccount string          `json:"credit_account" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Note          string          `json:"note"`
}

// JournalResponse describes the posted journal
type JournalResponse struct {
	JournalID uuid.UUID       `json:"journal_id"`
	Entries   []EntryResponse `json:"entries"`
}

// EntryResponse is the API shape of a ledger entry
type EntryResponse struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   *uuid.UUID      `json:"account_id"`
	AccountName string          `json:"account_name"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	RefType     string          `json:"ref_type"`
	RefID       uuid.UUID       `json:"ref_id"`
	Note        string          `json:"note"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToEntryResponse converts a ledger entry to its API shape
func ToEntryResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		AccountID:   e.AccountID,
		AccountName: e.AccountName,
		Type:        e.Type.String(),
		Amount:      e.Amount,
		RefType:     string(e.RefType),
		RefID:       e.RefID,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}

// ToEntryResponses converts a slice of ledger entries
func ToEntryResponses(entries []*ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToEntryResponse(e))
	}
	return out
}

// PayableResponse is the API shape of a supplier payable
type PayableResponse struct {
	ID                uuid.UUID       `json:"id"`
	PayableNumber     string          `json:"payable_number"`
	SupplierID        uuid.UUID       `json:"supplier_id"`
	SupplierName      string          `json:"supplier_name"`
	PurchaseID        uuid.UUID       `json:"purchase_id"`
	InvoiceNo         string          `json:"invoice_no"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	SettledAmount     decimal.Decimal `json:"settled_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Status            string          `json:"status"`
	SettledAt         *time.Time      `json:"settled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToPayableResponse converts a payable to its API shape
func ToPayableResponse(p *ledger.SupplierPayable) PayableResponse {
	return PayableResponse{
		ID:                p.ID,
		PayableNumber:     p.PayableNumber,
		SupplierID:        p.SupplierID,
		SupplierName:      p.SupplierName,
		PurchaseID:        p.PurchaseID,
		InvoiceNo:         p.InvoiceNo,
		TotalAmount:       p.TotalAmount,
		SettledAmount:     p.SettledAmount,
		OutstandingAmount: p.OutstandingAmount,
		Status:            p.Status.String(),
		SettledAt:         p.SettledAt,
		CreatedAt:         p.CreatedAt,
	}
}

// EntryListFilter filters the ledger entry listing
type EntryListFilter struct {
	AccountName string
	RefType     string
	RefID       *uuid.UUID
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// SummaryResponse is the per-account aggregation of the ledger
type SummaryResponse struct {
	Accounts    []ledger.AccountBalance `json:"accounts"`
	TotalDebit  decimal.Decimal         `json:"total_debit"`
	TotalCredit decimal.Decimal         `json:"total_credit"`
	From        *time.Time              `json:"from,omitempty"`
	To          *time.Time              `json:"to,omitempty"`
}
