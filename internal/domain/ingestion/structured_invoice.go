package ingestion

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LooseDecimal decodes numeric fields from extraction providers
// defensively. Providers return numbers, quoted numbers, amounts with
// currency symbols and thousand separators, or blanks; anything that does
// not parse is treated as absent rather than zero.
type LooseDecimal struct {
	Decimal decimal.Decimal
	Valid   bool
}

// NewLooseDecimal wraps a known-good decimal
func NewLooseDecimal(d decimal.Decimal) LooseDecimal {
	return LooseDecimal{Decimal: d, Valid: true}
}

// ParseLooseNumber extracts a decimal from free-form provider text.
// Currency symbols, separators and surrounding whitespace are stripped.
func ParseLooseNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	for _, prefix := range []string{"₹", "Rs.", "Rs", "INR", "$"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// UnmarshalJSON never fails on malformed numbers; it marks them absent
func (d *LooseDecimal) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*d = LooseDecimal{}
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, ok := ParseLooseNumber(s)
	*d = LooseDecimal{Decimal: parsed, Valid: ok}
	return nil
}

// MarshalJSON renders absent values as null
func (d LooseDecimal) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(d.Decimal.String()), nil
}

// Or returns the decimal or a fallback when absent
func (d LooseDecimal) Or(fallback decimal.Decimal) decimal.Decimal {
	if !d.Valid {
		return fallback
	}
	return d.Decimal
}

// Party is the seller or buyer block of an extracted invoice
type Party struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// InvoiceLine is one extracted item row
type InvoiceLine struct {
	Description string       `json:"description"`
	Quantity    LooseDecimal `json:"quantity"`
	UnitPrice   LooseDecimal `json:"unit_price"`
	TaxAmount   LooseDecimal `json:"tax_amount"`
	Amount      LooseDecimal `json:"amount"`
	BatchNumber string       `json:"batch_number"`
	ExpiryDate  string       `json:"expiry_date"`
}

// TaxLine is one row of the invoice tax summary
type TaxLine struct {
	Label  string       `json:"label"`
	Amount LooseDecimal `json:"amount"`
}

// StructuredInvoice is the strict internal shape every extraction provider
// response is normalized into. Raw provider text is never trusted as JSON;
// it passes through the sanitizer first.
type StructuredInvoice struct {
	InvoiceNo   string        `json:"invoice_no"`
	InvoiceDate string        `json:"invoice_date"`
	Seller      Party         `json:"seller"`
	Buyer       Party         `json:"buyer"`
	Items       []InvoiceLine `json:"items"`
	TaxSummary  []TaxLine     `json:"tax_summary"`
	Subtotal    LooseDecimal  `json:"subtotal"`
	TaxAmount   LooseDecimal  `json:"tax_amount"`
	RoundOff    LooseDecimal  `json:"round_off"`
	TotalAmount LooseDecimal  `json:"total_amount"`
	Narration   string        `json:"narration"`
}

// Normalize cleans the extracted document in place: blank lines are
// dropped, line amounts are recomputed from quantity and unit price, and
// missing document totals are derived from the lines.
func (inv *StructuredInvoice) Normalize() {
	inv.InvoiceNo = strings.TrimSpace(inv.InvoiceNo)
	inv.InvoiceDate = strings.TrimSpace(inv.InvoiceDate)
	inv.Seller.TaxID = strings.TrimSpace(inv.Seller.TaxID)

	lines := make([]InvoiceLine, 0, len(inv.Items))
	for _, line := range inv.Items {
		line.Description = strings.TrimSpace(line.Description)
		if line.Description == "" {
			continue
		}
		if !line.Quantity.Valid || !line.Quantity.Decimal.IsPositive() {
			continue
		}
		if line.UnitPrice.Valid {
			line.Amount = NewLooseDecimal(line.Quantity.Decimal.Mul(line.UnitPrice.Decimal))
		}
		line.BatchNumber = strings.TrimSpace(line.BatchNumber)
		line.ExpiryDate = strings.TrimSpace(line.ExpiryDate)
		lines = append(lines, line)
	}
	inv.Items = lines

	if !inv.Subtotal.Valid {
		sum := decimal.Zero
		valid := false
		for _, line := range inv.Items {
			if line.Amount.Valid {
				sum = sum.Add(line.Amount.Decimal)
				valid = true
			}
		}
		inv.Subtotal = LooseDecimal{Decimal: sum, Valid: valid}
	}
	if !inv.TaxAmount.Valid {
		sum := decimal.Zero
		valid := false
		for _, line := range inv.Items {
			if line.TaxAmount.Valid {
				sum = sum.Add(line.TaxAmount.Decimal)
				valid = true
			}
		}
		inv.TaxAmount = LooseDecimal{Decimal: sum, Valid: valid}
	}
	if !inv.TotalAmount.Valid && inv.Subtotal.Valid {
		total := inv.Subtotal.Decimal.
			Add(inv.TaxAmount.Or(decimal.Zero)).
			Add(inv.RoundOff.Or(decimal.Zero))
		inv.TotalAmount = NewLooseDecimal(total)
	}
}

// HasItems reports whether any usable line survived normalization
func (inv *StructuredInvoice) HasItems() bool {
	return len(inv.Items) > 0
}

// Value implements driver.Valuer for JSONB storage
func (inv StructuredInvoice) Value() (driver.Value, error) {
	return json.Marshal(inv)
}

// Scan implements sql.Scanner
func (inv *StructuredInvoice) Scan(value any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StructuredInvoice", value)
	}
	return json.Unmarshal(data, inv)
}
