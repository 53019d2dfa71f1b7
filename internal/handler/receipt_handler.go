package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/sms-api/internal/service"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
	"github.com/westgate-schools/sms-api/pkg/response"
)

// ReceiptHandler wires payment recording to HTTP routes.
type ReceiptHandler struct {
	receipts *service.ReceiptService
}

// NewReceiptHandler constructs a new ReceiptHandler.
func NewReceiptHandler(receipts *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Create godoc
// @Summary Record a payment against an invoice
// @Tags Receipts
// @Accept json
// @Produce json
// @Param payload body service.CreateReceiptRequest true "Receipt payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /receipts [post]
func (h *ReceiptHandler) Create(c *gin.Context) {
	var req service.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid receipt payload"))
		return
	}
	receipt, err := h.receipts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// ListByInvoice godoc
// @Summary List payments for one invoice
// @Tags Receipts
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id}/receipts [get]
func (h *ReceiptHandler) ListByInvoice(c *gin.Context) {
	receipts, err := h.receipts.ListByInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipts, nil)
}

// Delete godoc
// @Summary Delete a receipt
// @Tags Receipts
// @Param id path string true "Receipt ID"
// @Success 204
// @Security BearerAuth
// @Router /receipts/{id} [delete]
func (h *ReceiptHandler) Delete(c *gin.Context) {
	if err := h.receipts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
