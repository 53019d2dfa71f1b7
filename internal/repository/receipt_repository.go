package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/westgate-schools/sms-api/internal/models"
)

// ReceiptRepository handles persistence for payment receipts.
type ReceiptRepository struct {
	db *sqlx.DB
}

// NewReceiptRepository instantiates a receipt repository.
func NewReceiptRepository(db *sqlx.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create inserts a new receipt against an invoice.
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if receipt.DatePaid.IsZero() {
		receipt.DatePaid = now
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = now
	}

	const query = `INSERT INTO receipts (id, invoice_id, amount_paid, date_paid, comment, created_at)
        VALUES (:id, :invoice_id, :amount_paid, :date_paid, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, receipt); err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

// FindByID loads a receipt by identifier.
func (r *ReceiptRepository) FindByID(ctx context.Context, id string) (*models.Receipt, error) {
	const query = `SELECT id, invoice_id, amount_paid, date_paid, comment, created_at FROM receipts WHERE id = $1`
	var receipt models.Receipt
	if err := r.db.GetContext(ctx, &receipt, query, id); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListByInvoice returns the invoice's receipts in payment order.
func (r *ReceiptRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error) {
	const query = `SELECT id, invoice_id, amount_paid, date_paid, comment, created_at FROM receipts WHERE invoice_id = $1 ORDER BY date_paid`
	var receipts []models.Receipt
	if err := r.db.SelectContext(ctx, &receipts, query, invoiceID); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return receipts, nil
}

// Delete removes a receipt permanently.
func (r *ReceiptRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	return nil
}
