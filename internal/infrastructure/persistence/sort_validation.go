package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// UploadSortFields contains allowed sort fields for invoice uploads
var UploadSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"filename":   true,
	"status":     true,
}

// SupplierSortFields contains allowed sort fields for suppliers
var SupplierSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"tax_id":     true,
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"quantity":   true,
	"min_stock":  true,
}

// PurchaseSortFields contains allowed sort fields for purchases
var PurchaseSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"invoice_no":    true,
	"invoice_date":  true,
	"supplier_name": true,
	"status":        true,
	"total_amount":  true,
	"received_at":   true,
}

// EntrySortFields contains allowed sort fields for ledger entries
var EntrySortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"account_name": true,
	"type":         true,
	"amount":       true,
	"ref_type":     true,
}

// PayableSortFields contains allowed sort fields for supplier payables
var PayableSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"payable_number":     true,
	"supplier_name":      true,
	"status":             true,
	"total_amount":       true,
	"outstanding_amount": true,
	"settled_at":         true,
}
