package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
)

type receiptRepoStub struct {
	receipts []*models.Receipt
}

func (r *receiptRepoStub) Create(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	r.receipts = append(r.receipts, receipt)
	return nil
}

func (r *receiptRepoStub) FindByID(ctx context.Context, id string) (*models.Receipt, error) {
	for _, receipt := range r.receipts {
		if receipt.ID == id {
			return receipt, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *receiptRepoStub) ListByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error) {
	var out []models.Receipt
	for _, receipt := range r.receipts {
		if receipt.InvoiceID == invoiceID {
			out = append(out, *receipt)
		}
	}
	return out, nil
}

func (r *receiptRepoStub) Delete(ctx context.Context, id string) error {
	for i, receipt := range r.receipts {
		if receipt.ID == id {
			r.receipts = append(r.receipts[:i], r.receipts[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func seedActiveInvoice(t *testing.T, invoices *invoiceRepoStub) string {
	t.Helper()
	invoice := &models.Invoice{StudentID: "st-1", SessionID: "s1", TermID: "t1", ClassForID: "c1"}
	require.NoError(t, invoices.CreateWithCarryForward(context.Background(), invoice, nil))
	return invoice.ID
}

func TestReceiptServiceCreateWithExplicitDate(t *testing.T) {
	invoices := newInvoiceRepoStub()
	receipts := &receiptRepoStub{}
	svc := NewReceiptService(receipts, invoices, nil, nil)
	invoiceID := seedActiveInvoice(t, invoices)

	receipt, err := svc.Create(context.Background(), CreateReceiptRequest{
		InvoiceID: invoiceID, AmountPaid: 500, DatePaid: "2026-02-14",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-14", receipt.DatePaid.Format("2006-01-02"))
}

func TestReceiptServiceCreateDefaultsDateToToday(t *testing.T) {
	invoices := newInvoiceRepoStub()
	receipts := &receiptRepoStub{}
	svc := NewReceiptService(receipts, invoices, nil, nil)
	invoiceID := seedActiveInvoice(t, invoices)

	receipt, err := svc.Create(context.Background(), CreateReceiptRequest{
		InvoiceID: invoiceID, AmountPaid: 500,
	})
	require.NoError(t, err)
	assert.False(t, receipt.DatePaid.IsZero())
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), receipt.DatePaid.Format("2006-01-02"))
}

func TestReceiptServiceCreateRejectsBadDate(t *testing.T) {
	invoices := newInvoiceRepoStub()
	svc := NewReceiptService(&receiptRepoStub{}, invoices, nil, nil)
	invoiceID := seedActiveInvoice(t, invoices)

	_, err := svc.Create(context.Background(), CreateReceiptRequest{
		InvoiceID: invoiceID, AmountPaid: 500, DatePaid: "14/02/2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReceiptServiceCreateRejectsClosedInvoice(t *testing.T) {
	invoices := newInvoiceRepoStub()
	svc := NewReceiptService(&receiptRepoStub{}, invoices, nil, nil)
	first := seedActiveInvoice(t, invoices)
	// Issuing the next invoice closes the first one.
	seedActiveInvoice(t, invoices)

	_, err := svc.Create(context.Background(), CreateReceiptRequest{
		InvoiceID: first, AmountPaid: 500,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
