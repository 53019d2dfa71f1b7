package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/westgate-schools/sms-api/internal/models"
)

const invoiceSummaryColumns = `i.id, i.student_id, i.session_id, i.term_id, i.class_for_id, i.status,
        i.balance_from_previous_term, i.created_at, i.updated_at,
        st.surname || ' ' || st.firstname AS student_name,
        se.name AS session_name, t.name AS term_name, c.name AS class_name,
        COALESCE((SELECT SUM(amount) FROM invoice_items WHERE invoice_id = i.id), 0) AS items_total,
        COALESCE((SELECT SUM(amount_paid) FROM receipts WHERE invoice_id = i.id), 0) AS paid_total`

const invoiceSummaryJoins = `FROM invoices i
        JOIN students st ON st.id = i.student_id
        JOIN academic_sessions se ON se.id = i.session_id
        JOIN academic_terms t ON t.id = i.term_id
        JOIN student_classes c ON c.id = i.class_for_id`

// InvoiceRepository handles persistence for invoices and their line items.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository instantiates an invoice repository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// List returns invoice summaries matching provided filters.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceSummary, int, error) {
	base := invoiceSummaryJoins + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("i.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("i.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("i.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY i.created_at DESC LIMIT %d OFFSET %d", invoiceSummaryColumns, base, size, offset)

	var invoices []models.InvoiceSummary
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	return invoices, total, nil
}

// FindByID loads an invoice summary with aggregate sums.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.InvoiceSummary, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE i.id = $1", invoiceSummaryColumns, invoiceSummaryJoins)
	var invoice models.InvoiceSummary
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CreateWithCarryForward inserts a new active invoice inside one transaction:
// any prior active invoice for the same student is closed and its outstanding
// balance becomes the new invoice's balance_from_previous_term. Invoices for
// other students are untouched.
func (r *InvoiceRepository) CreateWithCarryForward(ctx context.Context, invoice *models.Invoice, items []models.InvoiceItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin invoice tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	var prior struct {
		ID          string  `db:"id"`
		ItemsTotal  float64 `db:"items_total"`
		PaidTotal   float64 `db:"paid_total"`
		CarriedOver float64 `db:"balance_from_previous_term"`
	}
	const priorQuery = `SELECT i.id,
        COALESCE((SELECT SUM(amount) FROM invoice_items WHERE invoice_id = i.id), 0) AS items_total,
        COALESCE((SELECT SUM(amount_paid) FROM receipts WHERE invoice_id = i.id), 0) AS paid_total,
        i.balance_from_previous_term
        FROM invoices i WHERE i.student_id = $1 AND i.status = $2 ORDER BY i.created_at DESC LIMIT 1`

	err = tx.GetContext(ctx, &prior, priorQuery, invoice.StudentID, models.InvoiceStatusActive)
	switch {
	case err == nil:
		invoice.BalanceFromPreviousTerm = prior.ItemsTotal + prior.CarriedOver - prior.PaidTotal
		if _, err = tx.ExecContext(ctx, `UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1`, prior.ID, models.InvoiceStatusClosed, now); err != nil {
			return fmt.Errorf("close prior invoice: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		invoice.BalanceFromPreviousTerm = 0
		err = nil
	default:
		return fmt.Errorf("find prior active invoice: %w", err)
	}

	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	invoice.Status = models.InvoiceStatusActive
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	const insertQuery = `INSERT INTO invoices (id, student_id, session_id, term_id, class_for_id, status,
        balance_from_previous_term, created_at, updated_at)
        VALUES (:id, :student_id, :session_id, :term_id, :class_for_id, :status,
        :balance_from_previous_term, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, invoice); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	for idx := range items {
		items[idx].ID = uuid.NewString()
		items[idx].InvoiceID = invoice.ID
		items[idx].CreatedAt = now
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO invoice_items (id, invoice_id, description, amount, created_at) VALUES (:id, :invoice_id, :description, :amount, :created_at)`, items[idx]); err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit invoice tx: %w", err)
	}
	return nil
}

// AddItem appends a line item to an existing invoice.
func (r *InvoiceRepository) AddItem(ctx context.Context, item *models.InvoiceItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO invoice_items (id, invoice_id, description, amount, created_at) VALUES (:id, :invoice_id, :description, :amount, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("add invoice item: %w", err)
	}
	return nil
}

// ListItems returns the invoice's line items in insertion order.
func (r *InvoiceRepository) ListItems(ctx context.Context, invoiceID string) ([]models.InvoiceItem, error) {
	const query = `SELECT id, invoice_id, description, amount, created_at FROM invoice_items WHERE invoice_id = $1 ORDER BY created_at`
	var items []models.InvoiceItem
	if err := r.db.SelectContext(ctx, &items, query, invoiceID); err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	return items, nil
}

// Delete removes an invoice and its dependants.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete invoice tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM receipts WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice receipts: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete invoice tx: %w", err)
	}
	return nil
}
