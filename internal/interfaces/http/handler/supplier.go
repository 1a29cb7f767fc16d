package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appprocurement "github.com/clinicware/backend/internal/application/procurement"
	"github.com/clinicware/backend/internal/domain/shared"
	"github.com/clinicware/backend/internal/interfaces/http/dto"
)

// SupplierHandler handles supplier management endpoints
type SupplierHandler struct {
	BaseHandler
	suppliers *appprocurement.SupplierService
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(suppliers *appprocurement.SupplierService) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers}
}

// Create godoc
// @ID           createSupplier
// @Summary      Create a supplier
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        request body appprocurement.SupplierRequest true "Supplier"
// @Success      201 {object} APIResponse[appprocurement.SupplierResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /procurement/suppliers [post]
func (h *SupplierHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	var req appprocurement.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.suppliers.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Update godoc
// @ID           updateSupplier
// @Summary      Update a supplier
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Param        request body appprocurement.SupplierRequest true "Supplier"
// @Success      200 {object} APIResponse[appprocurement.SupplierResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /procurement/suppliers/{id} [put]
func (h *SupplierHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	supplierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid supplier ID")
		return
	}

	var req appprocurement.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.suppliers.Update(c.Request.Context(), tenantID, supplierID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Get godoc
// @ID           getSupplier
// @Summary      Get a supplier
// @Tags         procurement
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Success      200 {object} APIResponse[appprocurement.SupplierResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /procurement/suppliers/{id} [get]
func (h *SupplierHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	supplierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid supplier ID")
		return
	}

	resp, err := h.suppliers.Get(c.Request.Context(), tenantID, supplierID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List godoc
// @ID           listSuppliers
// @Summary      List suppliers
// @Tags         procurement
// @Produce      json
// @Param        search query string false "Search by name or tax ID"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]appprocurement.SupplierResponse]
// @Router       /procurement/suppliers [get]
func (h *SupplierHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}

	suppliers, err := h.suppliers.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, suppliers)
}
