package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appprocurement "github.com/clinicware/backend/internal/application/procurement"
	"github.com/clinicware/backend/internal/interfaces/http/dto"
)

// PurchaseHandler handles purchase draft and receiving endpoints
type PurchaseHandler struct {
	BaseHandler
	purchases *appprocurement.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(purchases *appprocurement.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

// ReplaceItemsRequest replaces a draft's items wholesale
// @name HandlerReplaceItemsRequest
type ReplaceItemsRequest struct {
	Items []appprocurement.ItemRequest `json:"items" binding:"required"`
}

// Create godoc
// @ID           createPurchaseDraft
// @Summary      Create a purchase draft
// @Description  Creates a DRAFT purchase from manual input; line amounts are computed server-side
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        request body appprocurement.CreateDraftRequest true "Draft purchase"
// @Success      201 {object} APIResponse[appprocurement.PurchaseResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /procurement/purchases [post]
func (h *PurchaseHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	var req appprocurement.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	if userID, err := getUserID(c); err == nil {
		req.CreatedBy = &userID
	}

	resp, err := h.purchases.CreateDraft(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Get godoc
// @ID           getPurchase
// @Summary      Get a purchase
// @Tags         procurement
// @Produce      json
// @Param        id path string true "Purchase ID"
// @Success      200 {object} APIResponse[appprocurement.PurchaseResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /procurement/purchases/{id} [get]
func (h *PurchaseHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID")
		return
	}

	resp, err := h.purchases.Get(c.Request.Context(), tenantID, purchaseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List godoc
// @ID           listPurchases
// @Summary      List purchases
// @Tags         procurement
// @Produce      json
// @Param        status query string false "Filter by status (DRAFT, RECEIVED)"
// @Param        supplier_id query string false "Filter by supplier"
// @Param        is_return query bool false "Filter return records"
// @Param        search query string false "Search by invoice number or supplier name"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]appprocurement.PurchaseResponse]
// @Router       /procurement/purchases [get]
func (h *PurchaseHandler) List(c *gin.Context) {
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

	filter := appprocurement.ListFilter{
		Status:   c.Query("status"),
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if raw := c.Query("supplier_id"); raw != "" {
		supplierID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid supplier ID")
			return
		}
		filter.SupplierID = &supplierID
	}
	if raw := c.Query("is_return"); raw != "" {
		isReturn, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "Invalid is_return value")
			return
		}
		filter.IsReturn = &isReturn
	}

	purchases, total, err := h.purchases.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, purchases, total, filter.Page, filter.PageSize)
}

// ReplaceItems godoc
// @ID           replacePurchaseItems
// @Summary      Replace draft items
// @Description  Replaces a draft's item set wholesale; amounts are recomputed server-side
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID"
// @Param        request body ReplaceItemsRequest true "New item set"
// @Success      200 {object} APIResponse[appprocurement.PurchaseResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /procurement/purchases/{id}/items [put]
func (h *PurchaseHandler) ReplaceItems(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID")
		return
	}

	var req ReplaceItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, _, err := h.purchases.ConfirmDraft(c.Request.Context(), tenantID, purchaseID, appprocurement.ConfirmDraftRequest{
		Items: req.Items,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Confirm godoc
// @ID           confirmPurchaseDraft
// @Summary      Confirm a purchase draft
// @Description  Applies edits to a draft and optionally receives it in the same transaction
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID"
// @Param        request body appprocurement.ConfirmDraftRequest true "Draft edits"
// @Success      200 {object} APIResponse[any]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /procurement/purchases/{id}/confirm [post]
func (h *PurchaseHandler) Confirm(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID")
		return
	}

	var req appprocurement.ConfirmDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	purchase, received, err := h.purchases.ConfirmDraft(c.Request.Context(), tenantID, purchaseID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if received != nil {
		h.Success(c, received)
		return
	}
	h.Success(c, purchase)
}

// Delete godoc
// @ID           deletePurchaseDraft
// @Summary      Delete a purchase draft
// @Description  Deletes a DRAFT purchase; received purchases cannot be deleted
// @Tags         procurement
// @Produce      json
// @Param        id path string true "Purchase ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /procurement/purchases/{id} [delete]
func (h *PurchaseHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID")
		return
	}

	if err := h.purchases.DeleteDraft(c.Request.Context(), tenantID, purchaseID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Receive godoc
// @ID           receivePurchase
// @Summary      Receive a purchase
// @Description  Atomically moves stock in, updates product quantities and posts balanced ledger entries
// @Tags         procurement
// @Produce      json
// @Param        id path string true "Purchase ID"
// @Success      200 {object} APIResponse[appprocurement.ReceiveResult]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /procurement/purchases/{id}/receive [post]
func (h *PurchaseHandler) Receive(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID")
		return
	}

	result, err := h.purchases.Receive(c.Request.Context(), tenantID, purchaseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Return godoc
// @ID           returnPurchase
// @Summary      Return quantities against a received purchase
// @Description  Creates a return-flagged purchase record with mirrored stock movements and ledger postings
// @Tags         procurement
// @Accept       json
// @Produce      json
// @Param        id path string true "Original purchase ID"
// @Param        request body appprocurement.ReturnRequest true "Return lines"
// @Success      200 {object} APIResponse[appprocurement.ReturnResult]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /procurement/purchases/{id}/return [post]
func (h *PurchaseHandler) Return(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID")
		return
	}

	var req appprocurement.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.purchases.Return(c.Request.Context(), tenantID, purchaseID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
