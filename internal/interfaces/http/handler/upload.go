package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appingestion "github.com/clinicware/backend/internal/application/ingestion"
	appprocurement "github.com/clinicware/backend/internal/application/procurement"
	"github.com/clinicware/backend/internal/interfaces/http/dto"
)

// UploadHandler handles supplier invoice upload endpoints
type UploadHandler struct {
	BaseHandler
	uploads        *appingestion.UploadService
	purchases      *appprocurement.PurchaseService
	maxUploadBytes int64
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploads *appingestion.UploadService, purchases *appprocurement.PurchaseService, maxUploadBytes int64) *UploadHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &UploadHandler{
		uploads:        uploads,
		purchases:      purchases,
		maxUploadBytes: maxUploadBytes,
	}
}

// ConfirmUploadRequest confirms a parsed upload into a draft purchase
// @name HandlerConfirmUploadRequest
type ConfirmUploadRequest struct {
	SupplierID       *uuid.UUID `json:"supplier_id"`
	CreateAndReceive bool       `json:"create_and_receive"`
}

// Intake godoc
// @ID           intakeInvoiceUpload
// @Summary      Upload a supplier invoice
// @Description  Accepts a multipart invoice document and schedules background parsing
// @Tags         ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Invoice document (PDF or image)"
// @Success      201 {object} APIResponse[appingestion.UploadResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Router       /ingestion/uploads [post]
func (h *UploadHandler) Intake(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user context")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file field in multipart form")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "Uploaded file exceeds the size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "Uploaded file exceeds the size limit")
		return
	}

	resp, err := h.uploads.Intake(c.Request.Context(), tenantID, appingestion.IntakeRequest{
		Filename:   fileHeader.Filename,
		MIMEType:   fileHeader.Header.Get("Content-Type"),
		Data:       data,
		UploadedBy: userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Get godoc
// @ID           getInvoiceUpload
// @Summary      Get an invoice upload
// @Description  Returns the upload status, parsed payload once available, and the linked purchase
// @Tags         ingestion
// @Produce      json
// @Param        id path string true "Upload ID"
// @Success      200 {object} APIResponse[appingestion.UploadResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /ingestion/uploads/{id} [get]
func (h *UploadHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}

	resp, err := h.uploads.Get(c.Request.Context(), tenantID, uploadID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List godoc
// @ID           listInvoiceUploads
// @Summary      List invoice uploads
// @Tags         ingestion
// @Produce      json
// @Param        status query string false "Filter by status"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]appingestion.UploadResponse]
// @Router       /ingestion/uploads [get]
func (h *UploadHandler) List(c *gin.Context) {
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

	filter := appingestion.UploadListFilter{
		Status:   c.Query("status"),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	uploads, total, err := h.uploads.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, uploads, total, filter.Page, filter.PageSize)
}

// Cancel godoc
// @ID           cancelInvoiceUpload
// @Summary      Cancel an invoice upload
// @Description  Cancels a pending parse; a parse already finished wins the race
// @Tags         ingestion
// @Produce      json
// @Param        id path string true "Upload ID"
// @Success      200 {object} APIResponse[appingestion.UploadResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /ingestion/uploads/{id}/cancel [post]
func (h *UploadHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}

	resp, err := h.uploads.Cancel(c.Request.Context(), tenantID, uploadID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Confirm godoc
// @ID           confirmInvoiceUpload
// @Summary      Confirm a parsed upload into a draft purchase
// @Description  Ensures a draft purchase exists for the parsed payload; optionally receives it in the same call
// @Tags         ingestion
// @Accept       json
// @Produce      json
// @Param        id path string true "Upload ID"
// @Param        request body ConfirmUploadRequest false "Confirmation options"
// @Success      200 {object} APIResponse[any]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /ingestion/uploads/{id}/confirm [post]
func (h *UploadHandler) Confirm(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid upload ID")
		return
	}

	var req ConfirmUploadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindingError(c, err)
			return
		}
	}

	upload, err := h.uploads.Confirm(c.Request.Context(), tenantID, uploadID, req.SupplierID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result := gin.H{"upload": upload}
	if upload.LinkedPurchaseID != nil {
		purchase, err := h.purchases.Get(c.Request.Context(), tenantID, *upload.LinkedPurchaseID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		result["purchase"] = purchase

		if req.CreateAndReceive {
			received, err := h.purchases.Receive(c.Request.Context(), tenantID, *upload.LinkedPurchaseID)
			if err != nil {
				h.HandleError(c, err)
				return
			}
			result["purchase"] = received.Purchase
			result["receive"] = received
		}
	}

	h.Success(c, result)
}
