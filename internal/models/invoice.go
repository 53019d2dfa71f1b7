package models

import "time"

// Invoice statuses. Exactly one invoice per student is expected to be active;
// closing an invoice carries its outstanding balance onto the next one.
const (
	InvoiceStatusActive = "active"
	InvoiceStatusClosed = "closed"
)

// Invoice bills a student for one session/term.
type Invoice struct {
	ID                      string    `db:"id" json:"id"`
	StudentID               string    `db:"student_id" json:"student_id"`
	SessionID               string    `db:"session_id" json:"session_id"`
	TermID                  string    `db:"term_id" json:"term_id"`
	ClassForID              string    `db:"class_for_id" json:"class_for_id"`
	Status                  string    `db:"status" json:"status"`
	BalanceFromPreviousTerm float64   `db:"balance_from_previous_term" json:"balance_from_previous_term"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// InvoiceItem is a single charge on an invoice.
type InvoiceItem struct {
	ID          string    `db:"id" json:"id"`
	InvoiceID   string    `db:"invoice_id" json:"invoice_id"`
	Description string    `db:"description" json:"description"`
	Amount      float64   `db:"amount" json:"amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Receipt records a payment against an invoice.
type Receipt struct {
	ID         string    `db:"id" json:"id"`
	InvoiceID  string    `db:"invoice_id" json:"invoice_id"`
	AmountPaid float64   `db:"amount_paid" json:"amount_paid"`
	DatePaid   time.Time `db:"date_paid" json:"date_paid"`
	Comment    string    `db:"comment" json:"comment"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// InvoiceBalances is the derived money view of an invoice. Sums over zero
// related rows are zero.
type InvoiceBalances struct {
	AmountPayable      float64 `json:"amount_payable"`
	TotalAmountPayable float64 `json:"total_amount_payable"`
	TotalAmountPaid    float64 `json:"total_amount_paid"`
	Balance            float64 `json:"balance"`
}

// InvoiceSummary joins an invoice with display names and aggregate sums as
// loaded by the list query.
type InvoiceSummary struct {
	Invoice
	StudentName string  `db:"student_name" json:"student_name"`
	SessionName string  `db:"session_name" json:"session_name"`
	TermName    string  `db:"term_name" json:"term_name"`
	ClassName   string  `db:"class_name" json:"class_name"`
	ItemsTotal  float64 `db:"items_total" json:"items_total"`
	PaidTotal   float64 `db:"paid_total" json:"paid_total"`
}

// Balances derives the money view from the loaded sums.
func (s InvoiceSummary) Balances() InvoiceBalances {
	payable := s.ItemsTotal
	totalPayable := payable + s.BalanceFromPreviousTerm
	return InvoiceBalances{
		AmountPayable:      payable,
		TotalAmountPayable: totalPayable,
		TotalAmountPaid:    s.PaidTotal,
		Balance:            totalPayable - s.PaidTotal,
	}
}

// InvoiceDetail carries the full invoice with line items and receipts.
type InvoiceDetail struct {
	InvoiceSummary
	Items    []InvoiceItem   `json:"items"`
	Receipts []Receipt       `json:"receipts"`
	Money    InvoiceBalances `json:"money"`
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	StudentID string
	SessionID string
	TermID    string
	Status    string
	Page      int
	PageSize  int
}
