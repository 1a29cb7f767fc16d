package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appledger "github.com/clinicware/backend/internal/application/ledger"
	"github.com/clinicware/backend/internal/interfaces/http/dto"
)

// LedgerHandler handles payments, manual journals and ledger queries
type LedgerHandler struct {
	BaseHandler
	payments *appledger.PaymentService
	journals *appledger.JournalService
	queries  *appledger.QueryService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(
	payments *appledger.PaymentService,
	journals *appledger.JournalService,
	queries *appledger.QueryService,
) *LedgerHandler {
	return &LedgerHandler{
		payments: payments,
		journals: journals,
		queries:  queries,
	}
}

// Pay godoc
// @ID           payPayable
// @Summary      Pay a supplier payable
// @Description  Settles part of an outstanding payable and posts balanced ledger entries
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body appledger.PaymentRequest true "Payment"
// @Success      200 {object} APIResponse[appledger.PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /ledger/payments [post]
func (h *LedgerHandler) Pay(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	var req appledger.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	if userID, err := getUserID(c); err == nil {
		req.RequestedBy = &userID
	}

	resp, err := h.payments.Pay(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListPayables godoc
// @ID           listOutstandingPayables
// @Summary      List outstanding supplier payables
// @Tags         ledger
// @Produce      json
// @Param        supplier_id query string false "Filter by supplier"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]appledger.PayableResponse]
// @Router       /ledger/payables [get]
func (h *LedgerHandler) ListPayables(c *gin.Context) {
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

	var supplierID *uuid.UUID
	if raw := c.Query("supplier_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid supplier ID")
			return
		}
		supplierID = &parsed
	}

	payables, total, err := h.payments.ListOutstanding(c.Request.Context(), tenantID, supplierID, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, payables, total, req.Page, req.PageSize)
}

// PostJournal godoc
// @ID           postManualJournal
// @Summary      Post a manual journal
// @Description  Transfers an amount between two accounts as a balanced debit/credit pair
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body appledger.JournalRequest true "Journal"
// @Success      201 {object} APIResponse[appledger.JournalResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /ledger/journal-entries [post]
func (h *LedgerHandler) PostJournal(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	var req appledger.JournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.journals.Post(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// ListEntries godoc
// @ID           listLedgerEntries
// @Summary      List ledger entries
// @Tags         ledger
// @Produce      json
// @Param        account query string false "Filter by account name"
// @Param        ref_type query string false "Filter by reference type"
// @Param        ref_id query string false "Filter by reference ID"
// @Param        from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param        to query string false "End date (YYYY-MM-DD or RFC3339)"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]appledger.EntryResponse]
// @Router       /ledger/entries [get]
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	filter, err := h.entryFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	entries, total, err := h.queries.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}

// Summary godoc
// @ID           getLedgerSummary
// @Summary      Get the per-account ledger summary
// @Description  Aggregates debits and credits per account with a grand total
// @Tags         ledger
// @Produce      json
// @Param        from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param        to query string false "End date (YYYY-MM-DD or RFC3339)"
// @Success      200 {object} APIResponse[appledger.SummaryResponse]
// @Router       /ledger/summary [get]
func (h *LedgerHandler) Summary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	filter, err := h.entryFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	summary, err := h.queries.Summary(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// Export godoc
// @ID           exportLedgerCSV
// @Summary      Export ledger entries as CSV
// @Tags         ledger
// @Produce      text/csv
// @Param        account query string false "Filter by account name"
// @Param        from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param        to query string false "End date (YYYY-MM-DD or RFC3339)"
// @Success      200 {string} string "CSV content"
// @Router       /ledger/export [get]
func (h *LedgerHandler) Export(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	filter, err := h.entryFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filename := fmt.Sprintf("ledger-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.queries.ExportCSV(c.Request.Context(), tenantID, filter, c.Writer); err != nil {
		// Headers are already written; log through the error handler only
		// when nothing has been streamed yet.
		if c.Writer.Size() <= 0 {
			h.HandleError(c, err)
		}
		return
	}
}

// entryFilter parses the common ledger query parameters
func (h *LedgerHandler) entryFilter(c *gin.Context) (appledger.EntryListFilter, error) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		return appledger.EntryListFilter{}, fmt.Errorf("invalid pagination parameters")
	}

	filter := appledger.EntryListFilter{
		AccountName: c.Query("account"),
		RefType:     c.Query("ref_type"),
		Page:        req.Page,
		PageSize:    req.PageSize,
	}

	if raw := c.Query("ref_id"); raw != "" {
		refID, err := uuid.Parse(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid ref_id")
		}
		filter.RefID = &refID
	}
	if raw := c.Query("from"); raw != "" {
		from, err := parseQueryTime(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid from date")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := parseQueryTime(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid to date")
		}
		// A date-only upper bound is inclusive of the whole day
		if len(raw) == len("2006-01-02") {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &to
	}

	return filter, nil
}

// parseQueryTime accepts RFC3339 timestamps and plain dates
func parseQueryTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
