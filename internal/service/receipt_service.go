package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
)

type receiptRepository interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByID(ctx context.Context, id string) (*models.Receipt, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error)
	Delete(ctx context.Context, id string) error
}

// CreateReceiptRequest records a payment against an invoice.
type CreateReceiptRequest struct {
	InvoiceID  string  `json:"invoice_id" validate:"required"`
	AmountPaid float64 `json:"amount_paid" validate:"required,gt=0"`
	DatePaid   string  `json:"date_paid"`
	Comment    string  `json:"comment"`
}

// ReceiptService records payments. Receipts only attach to active invoices;
// overpayment is allowed and surfaces as a negative balance.
type ReceiptService struct {
	receipts  receiptRepository
	invoices  invoiceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReceiptService creates a new receipt service instance.
func NewReceiptService(receipts receiptRepository, invoices invoiceRepository, validate *validator.Validate, logger *zap.Logger) *ReceiptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{receipts: receipts, invoices: invoices, validator: validate, logger: logger}
}

// Create records a payment against an active invoice.
func (s *ReceiptService) Create(ctx context.Context, req CreateReceiptRequest) (*models.Receipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt payload")
	}

	invoice, err := s.invoices.FindByID(ctx, req.InvoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	if invoice.Status != models.InvoiceStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot record payment on a closed invoice")
	}

	receipt := &models.Receipt{
		InvoiceID:  req.InvoiceID,
		AmountPaid: req.AmountPaid,
		Comment:    req.Comment,
	}
	if req.DatePaid != "" {
		parsed, err := time.Parse("2006-01-02", req.DatePaid)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date_paid must be formatted YYYY-MM-DD")
		}
		receipt.DatePaid = parsed
	} else {
		receipt.DatePaid = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if err := s.receipts.Create(ctx, receipt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record receipt")
	}

	s.logger.Info("payment recorded",
		zap.String("receipt_id", receipt.ID),
		zap.String("invoice_id", req.InvoiceID),
		zap.Float64("amount_paid", req.AmountPaid))
	return receipt, nil
}

// ListByInvoice returns payments for an invoice in date order.
func (s *ReceiptService) ListByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error) {
	receipts, err := s.receipts.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list receipts")
	}
	return receipts, nil
}

// Delete removes a receipt, restoring the amount to the invoice balance.
func (s *ReceiptService) Delete(ctx context.Context, id string) error {
	if _, err := s.receipts.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt")
	}
	if err := s.receipts.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete receipt")
	}
	return nil
}
