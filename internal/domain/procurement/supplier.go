package procurement

import (
	"strings"
	"time"

	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Supplier is a vendor the clinic purchases from. Suppliers are created
// lazily: either explicitly or by the parse worker when an extracted
// invoice carries a seller tax ID. The normalized tax ID is the dedup key
// within a tenant; matching by name alone is never done.
type Supplier struct {
	shared.TenantAggregateRoot
	Name    string `gorm:"type:varchar(200);not null" json:"name"`
	Phone   string `gorm:"type:varchar(30)" json:"phone"`
	Email   string `gorm:"type:varchar(200)" json:"email"`
	Address string `gorm:"type:varchar(500)" json:"address"`
	TaxID   string `gorm:"type:varchar(40);index:idx_supplier_tenant_taxid" json:"tax_id"`
}

// TableName returns the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

// NormalizeTaxID canonicalizes a tax identifier for dedup lookups:
// uppercased with all whitespace removed. Empty means no tax ID.
func NormalizeTaxID(taxID string) string {
	return strings.ToUpper(strings.Join(strings.Fields(taxID), ""))
}

// NewSupplier creates a new supplier
func NewSupplier(tenantID uuid.UUID, name, phone, email, address, taxID string) (*Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot exceed 200 characters")
	}

	return &Supplier{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Phone:               strings.TrimSpace(phone),
		Email:               strings.TrimSpace(email),
		Address:             strings.TrimSpace(address),
		TaxID:               NormalizeTaxID(taxID),
	}, nil
}

// UpdateContact updates contact details
func (s *Supplier) UpdateContact(phone, email, address string) {
	s.Phone = strings.TrimSpace(phone)
	s.Email = strings.TrimSpace(email)
	s.Address = strings.TrimSpace(address)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// HasTaxID reports whether the supplier carries a tax identifier
func (s *Supplier) HasTaxID() bool {
	return s.TaxID != ""
}
