package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/sms-api/internal/models"
	"github.com/westgate-schools/sms-api/internal/service"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
	"github.com/westgate-schools/sms-api/pkg/response"
)

// InvoiceHandler wires the invoice lifecycle to HTTP routes.
type InvoiceHandler struct {
	invoices      *service.InvoiceService
	pdfStatements bool
}

// NewInvoiceHandler constructs a new InvoiceHandler.
func NewInvoiceHandler(invoices *service.InvoiceService, pdfStatements bool) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, pdfStatements: pdfStatements}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param session_id query string false "Filter by session"
// @Param term_id query string false "Filter by term"
// @Param status query string false "Filter by status (active/closed)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := models.InvoiceFilter{
		StudentID: c.Query("student_id"),
		SessionID: c.Query("session_id"),
		TermID:    c.Query("term_id"),
		Status:    c.Query("status"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	invoices, pagination, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get one invoice with items, receipts and balances
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Create godoc
// @Summary Issue an invoice for one student
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.CreateInvoiceRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	sc := schoolContextFrom(c)
	if sc == nil {
		response.Error(c, appErrors.ErrNoCurrentSession)
		return
	}

	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invoice payload"))
		return
	}
	invoice, err := h.invoices.Create(c.Request.Context(), sc, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// BulkIssue godoc
// @Summary Issue the same charges to every active student
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.BulkIssueRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/bulk [post]
func (h *InvoiceHandler) BulkIssue(c *gin.Context) {
	sc := schoolContextFrom(c)
	if sc == nil {
		response.Error(c, appErrors.ErrNoCurrentSession)
		return
	}

	var req service.BulkIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk invoice payload"))
		return
	}
	summary, err := h.invoices.BulkIssue(c.Request.Context(), sc, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// AddItem godoc
// @Summary Append a charge to an active invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body service.InvoiceItemRequest true "Item payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id}/items [post]
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	var req service.InvoiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invoice item payload"))
		return
	}
	invoice, err := h.invoices.AddItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Delete godoc
// @Summary Delete an invoice with its items and receipts
// @Tags Invoices
// @Param id path string true "Invoice ID"
// @Success 204
// @Security BearerAuth
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.invoices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Statement godoc
// @Summary Download a PDF statement for one invoice
// @Tags Invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /invoices/{id}/statement [get]
func (h *InvoiceHandler) Statement(c *gin.Context) {
	if !h.pdfStatements {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "pdf statements are disabled"))
		return
	}

	data, err := h.invoices.RenderStatementPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", c.Param("id")))
	c.Data(http.StatusOK, "application/pdf", data)
}
