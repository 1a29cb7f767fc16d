package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/clinicware/backend/internal/domain/procurement"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SupplierService manages the supplier directory
type SupplierService struct {
	suppliers procurement.SupplierRepository
	logger    *zap.Logger
}

// NewSupplierService creates a new SupplierService
func NewSupplierService(suppliers procurement.SupplierRepository, logger *zap.Logger) *SupplierService {
	return &SupplierService{suppliers: suppliers, logger: logger}
}

// Create registers a supplier. A tax ID already registered for the tenant
// resolves to the existing supplier instead of creating a duplicate.
func (s *SupplierService) Create(ctx context.Context, tenantID uuid.UUID, req SupplierRequest) (*SupplierResponse, error) {
	if normalized := procurement.NormalizeTaxID(req.TaxID); normalized != "" {
		existing, err := s.suppliers.FindByTaxID(ctx, tenantID, normalized)
		if err == nil {
			resp := ToSupplierResponse(existing)
			return &resp, nil
		}
		var domainErr *shared.DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != shared.ErrNotFound.Code {
			return nil, err
		}
	}

	supplier, err := procurement.NewSupplier(tenantID, req.Name, req.Phone, req.Email, req.Address, req.TaxID)
	if err != nil {
		return nil, err
	}
	if err := s.suppliers.Save(ctx, supplier); err != nil {
		return nil, err
	}

	s.logger.Info("supplier created",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("name", supplier.Name),
	)
	resp := ToSupplierResponse(supplier)
	return &resp, nil
}

// Update modifies a supplier's name and contact details
func (s *SupplierService) Update(ctx context.Context, tenantID, supplierID uuid.UUID, req SupplierRequest) (*SupplierResponse, error) {
	supplier, err := s.suppliers.FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		supplier.Name = req.Name
	}
	supplier.UpdateContact(req.Phone, req.Email, req.Address)
	if req.TaxID != "" {
		supplier.TaxID = procurement.NormalizeTaxID(req.TaxID)
	}
	supplier.UpdatedAt = time.Now()

	if err := s.suppliers.Save(ctx, supplier); err != nil {
		return nil, err
	}
	resp := ToSupplierResponse(supplier)
	return &resp, nil
}

// Get returns one supplier
func (s *SupplierService) Get(ctx context.Context, tenantID, supplierID uuid.UUID) (*SupplierResponse, error) {
	supplier, err := s.suppliers.FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}
	resp := ToSupplierResponse(supplier)
	return &resp, nil
}

// List returns suppliers matching the filter
func (s *SupplierService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]SupplierResponse, error) {
	suppliers, err := s.suppliers.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	out := make([]SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		out = append(out, ToSupplierResponse(&suppliers[i]))
	}
	return out, nil
}
