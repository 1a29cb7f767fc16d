package procurement

import (
	"time"

	ledgerapp "github.com/clinicware/backend/internal/application/ledger"
	"github.com/clinicware/backend/internal/domain/inventory"
	"github.com/clinicware/backend/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemRequest is one caller-supplied invoice line. The line amount is
// always computed server-side from quantity and unit price.
type ItemRequest struct {
	ProductID   *uuid.UUID      `json:"product_id"`
	Name        string          `json:"name" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	BatchNumber string          `json:"batch_number"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
}

// CreateDraftRequest creates a purchase draft from manual input
type CreateDraftRequest struct {
	SupplierID  *uuid.UUID      `json:"supplier_id"`
	InvoiceNo   string          `json:"invoice_no" binding:"required"`
	InvoiceDate *time.Time      `json:"invoice_date"`
	RoundOff    decimal.Decimal `json:"round_off"`
	Notes       string          `json:"notes"`
	Items       []ItemRequest   `json:"items" binding:"required"`
	CreatedBy   *uuid.UUID      `json:"-"`
}

// ConfirmDraftRequest edits a draft before receiving. Items, when
// present, replace the existing set wholesale. CreateAndReceive runs the
// receive in the same call after the edits apply.
type ConfirmDraftRequest struct {
	SupplierID       *uuid.UUID       `json:"supplier_id"`
	InvoiceNo        *string          `json:"invoice_no"`
	InvoiceDate      *time.Time       `json:"invoice_date"`
	RoundOff         *decimal.Decimal `json:"round_off"`
	Notes            *string          `json:"notes"`
	Items            []ItemRequest    `json:"items"`
	CreateAndReceive bool             `json:"create_and_receive"`
}

// ReturnRequest returns quantities against a received purchase
type ReturnRequest struct {
	Lines []procurement.ReturnLine `json:"lines" binding:"required"`
	Notes string                   `json:"notes"`
}

// ListFilter narrows the purchase listing
type ListFilter struct {
	Status     string
	SupplierID *uuid.UUID
	IsReturn   *bool
	Search     string
	Page       int
	PageSize   int
}

// ItemResponse is the API shape of a purchase line
type ItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        *uuid.UUID      `json:"product_id"`
	Name             string          `json:"name"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	Amount           decimal.Decimal `json:"amount"`
	BatchNumber      string          `json:"batch_number"`
	ExpiryDate       *time.Time      `json:"expiry_date"`
	ReturnedQuantity decimal.Decimal `json:"returned_quantity"`
}

// PurchaseResponse is the API shape of a purchase
type PurchaseResponse struct {
	ID                 uuid.UUID       `json:"id"`
	SupplierID         *uuid.UUID      `json:"supplier_id"`
	SupplierName       string          `json:"supplier_name"`
	InvoiceNo          string          `json:"invoice_no"`
	InvoiceDate        *time.Time      `json:"invoice_date"`
	Status             string          `json:"status"`
	Items              []ItemResponse  `json:"items"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	RoundOff           decimal.Decimal `json:"round_off"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Notes              string          `json:"notes,omitempty"`
	IsReturn           bool            `json:"is_return"`
	OriginalPurchaseID *uuid.UUID      `json:"original_purchase_id,omitempty"`
	ReceivedAt         *time.Time      `json:"received_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ReceiveResult reports the atomic outcome of receiving a purchase
type ReceiveResult struct {
	Purchase  PurchaseResponse           `json:"purchase"`
	Movements []inventory.MovementResult `json:"movements"`
	Entries   []ledgerapp.EntryResponse  `json:"entries"`
}

// ReturnResult reports the atomic outcome of a purchase return
type ReturnResult struct {
	Return    PurchaseResponse           `json:"return"`
	Movements []inventory.MovementResult `json:"movements"`
	Entries   []ledgerapp.EntryResponse  `json:"entries"`
}

// ToPurchaseResponse converts a purchase aggregate to its API shape
func ToPurchaseResponse(p *procurement.Purchase) PurchaseResponse {
	items := make([]ItemResponse, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, ItemResponse{
			ID:               item.ID,
			ProductID:        item.ProductID,
			Name:             item.Name,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TaxAmount:        item.TaxAmount,
			Amount:           item.Amount,
			BatchNumber:      item.BatchNumber,
			ExpiryDate:       item.ExpiryDate,
			ReturnedQuantity: item.ReturnedQuantity,
		})
	}
	return PurchaseResponse{
		ID:                 p.ID,
		SupplierID:         p.SupplierID,
		SupplierName:       p.SupplierName,
		InvoiceNo:          p.InvoiceNo,
		InvoiceDate:        p.InvoiceDate,
		Status:             p.Status.String(),
		Items:              items,
		Subtotal:           p.Subtotal,
		TaxAmount:          p.TaxAmount,
		RoundOff:           p.RoundOff,
		TotalAmount:        p.TotalAmount,
		Notes:              p.Notes,
		IsReturn:           p.IsReturn,
		OriginalPurchaseID: p.OriginalPurchaseID,
		ReceivedAt:         p.ReceivedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// ToPurchaseResponses converts a slice of purchases
func ToPurchaseResponses(purchases []*procurement.Purchase) []PurchaseResponse {
	out := make([]PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, ToPurchaseResponse(p))
	}
	return out
}

// SupplierRequest creates or updates a supplier
type SupplierRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
}

// SupplierResponse is the API shape of a supplier
type SupplierResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxID     string    `json:"tax_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSupplierResponse converts a supplier to its API shape
func ToSupplierResponse(s *procurement.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Phone:     s.Phone,
		Email:     s.Email,
		Address:   s.Address,
		TaxID:     s.TaxID,
		CreatedAt: s.CreatedAt,
	}
}
