package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	cases := map[string]string{
		"":                          "DESC",
		"ASC":                       "ASC",
		"asc":                       "ASC",
		"  asc  ":                   "ASC",
		"DESC":                      "DESC",
		"desc":                      "DESC",
		"sideways":                  "DESC",
		"   ":                       "DESC",
		"ASC; DROP TABLE ledgers;--": "DESC",
	}

	for input, want := range cases {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField(t *testing.T) {
	t.Run("known field passes through", func(t *testing.T) {
		assert.Equal(t, "invoice_no", ValidateSortField("invoice_no", PurchaseSortFields, "created_at"))
		assert.Equal(t, "invoice_no", ValidateSortField("  invoice_no  ", PurchaseSortFields, "created_at"))
	})

	t.Run("unknown field falls back to default", func(t *testing.T) {
		assert.Equal(t, "created_at", ValidateSortField("", PurchaseSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("   ", PurchaseSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("secret_column", PurchaseSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("INVOICE_NO", PurchaseSortFields, "created_at"),
			"matching is case sensitive to keep the whitelist exact")
	})

	t.Run("hostile input never reaches the query", func(t *testing.T) {
		payloads := []string{
			"invoice_no; DROP TABLE purchases;--",
			"invoice_no' OR '1'='1",
			"invoice_no UNION SELECT * FROM users",
			"invoice_no, (SELECT secret FROM credentials)",
			"invoice_no/**/;DELETE FROM journal_entries",
			"invoice_no\n; TRUNCATE stock_movements",
		}
		for _, payload := range payloads {
			assert.Equal(t, "created_at", ValidateSortField(payload, PurchaseSortFields, "created_at"),
				"payload %q", payload)
			assert.Equal(t, "DESC", ValidateSortOrder(payload), "payload %q", payload)
		}
	})
}

func TestSortFieldWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"UploadSortFields":   UploadSortFields,
		"SupplierSortFields": SupplierSortFields,
		"ProductSortFields":  ProductSortFields,
		"PurchaseSortFields": PurchaseSortFields,
		"EntrySortFields":    EntrySortFields,
		"PayableSortFields":  PayableSortFields,
	}

	for name, whitelist := range whitelists {
		t.Run(name, func(t *testing.T) {
			for _, field := range []string{"id", "created_at", "updated_at"} {
				assert.True(t, whitelist[field], "%s is missing %q", name, field)
			}
			assert.Greater(t, len(whitelist), 3, "%s carries no entity-specific fields", name)
		})
	}
}
