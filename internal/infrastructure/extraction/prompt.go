package extraction

import (
	"encoding/json"
	"fmt"

	"github.com/clinicware/backend/internal/domain/ingestion"
)

// extractionPrompt asks for the full structured shape
const extractionPrompt = `You are an invoice data extraction engine for a pharmacy purchase system.
Read the attached supplier invoice and respond with a single JSON object, no prose, using exactly these fields:
{
  "invoice_no": string,
  "invoice_date": string (YYYY-MM-DD if visible),
  "seller": {"name": string, "tax_id": string, "address": string, "phone": string},
  "buyer": {"name": string, "tax_id": string, "address": string, "phone": string},
  "items": [{"description": string, "quantity": number, "unit_price": number, "tax_amount": number, "amount": number, "batch_number": string, "expiry_date": string}],
  "tax_summary": [{"label": string, "amount": number}],
  "subtotal": number,
  "tax_amount": number,
  "round_off": number,
  "total_amount": number,
  "narration": string
}
Use null for anything not visible on the invoice. Do not invent values.`

// compactPrompt is the retry variant: minimal whitespace output to
// survive token truncation on dense invoices
const compactPrompt = `Extract the attached supplier invoice as minified JSON on a single line with fields: invoice_no, invoice_date, seller{name,tax_id}, items[{description,quantity,unit_price,tax_amount}], subtotal, tax_amount, round_off, total_amount. JSON only, no markdown, no explanations, null for unknowns.`

// decodeInvoice sanitizes provider text and parses it into the strict
// internal shape
func decodeInvoice(raw string) (*ingestion.StructuredInvoice, error) {
	payload, err := ExtractFirstJSON(raw)
	if err != nil {
		return nil, err
	}
	var inv ingestion.StructuredInvoice
	if err := json.Unmarshal([]byte(payload), &inv); err != nil {
		return nil, fmt.Errorf("provider JSON does not match invoice shape: %w", err)
	}
	return &inv, nil
}
