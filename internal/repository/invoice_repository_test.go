package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/sms-api/internal/models"
)

func newInvoiceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestInvoiceRepositoryCreateClosesPriorAndCarriesBalance(t *testing.T) {
	db, mock, cleanup := newInvoiceRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	// Prior active invoice: 1200 charged, 500 paid, nothing carried over.
	mock.ExpectQuery("SELECT i.id,").
		WithArgs("student-1", models.InvoiceStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "items_total", "paid_total", "balance_from_previous_term"}).
			AddRow("prior-1", 1200.0, 500.0, 0.0))
	mock.ExpectExec("UPDATE invoices SET status").
		WithArgs("prior-1", models.InvoiceStatusClosed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO invoices").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO invoice_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	invoice := &models.Invoice{StudentID: "student-1", SessionID: "s1", TermID: "t2", ClassForID: "c1"}
	items := []models.InvoiceItem{{Description: "Tuition", Amount: 900}}

	require.NoError(t, repo.CreateWithCarryForward(context.Background(), invoice, items))
	assert.Equal(t, 700.0, invoice.BalanceFromPreviousTerm)
	assert.Equal(t, models.InvoiceStatusActive, invoice.Status)
	assert.NotEmpty(t, invoice.ID)
	assert.Equal(t, invoice.ID, items[0].InvoiceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryCreateFirstInvoiceCarriesNothing(t *testing.T) {
	db, mock, cleanup := newInvoiceRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT i.id,").
		WithArgs("student-1", models.InvoiceStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "items_total", "paid_total", "balance_from_previous_term"}))
	mock.ExpectExec("INSERT INTO invoices").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	invoice := &models.Invoice{StudentID: "student-1", SessionID: "s1", TermID: "t1", ClassForID: "c1"}
	require.NoError(t, repo.CreateWithCarryForward(context.Background(), invoice, nil))
	assert.Zero(t, invoice.BalanceFromPreviousTerm)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryCreateCompoundsCarriedBalance(t *testing.T) {
	db, mock, cleanup := newInvoiceRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	// Prior invoice itself carried 300 and has 1000 charged, 800 paid.
	mock.ExpectQuery("SELECT i.id,").
		WithArgs("student-1", models.InvoiceStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "items_total", "paid_total", "balance_from_previous_term"}).
			AddRow("prior-1", 1000.0, 800.0, 300.0))
	mock.ExpectExec("UPDATE invoices SET status").
		WithArgs("prior-1", models.InvoiceStatusClosed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO invoices").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	invoice := &models.Invoice{StudentID: "student-1", SessionID: "s1", TermID: "t3", ClassForID: "c1"}
	require.NoError(t, repo.CreateWithCarryForward(context.Background(), invoice, nil))
	assert.Equal(t, 500.0, invoice.BalanceFromPreviousTerm)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryList(t *testing.T) {
	db, mock, cleanup := newInvoiceRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "session_id", "term_id", "class_for_id", "status",
		"balance_from_previous_term", "created_at", "updated_at",
		"student_name", "session_name", "term_name", "class_name", "items_total", "paid_total",
	}).AddRow("inv-1", "st-1", "s1", "t1", "c1", "active", 0.0, now, now,
		"Okafor Chinedu", "2024/2025", "First Term", "Grade 1", 1200.0, 500.0)

	mock.ExpectQuery("SELECT i.id, i.student_id").
		WithArgs("st-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("st-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.InvoiceFilter{StudentID: "st-1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)

	money := list[0].Balances()
	assert.Equal(t, 1200.0, money.AmountPayable)
	assert.Equal(t, 700.0, money.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryDeleteRemovesDependants(t *testing.T) {
	db, mock, cleanup := newInvoiceRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM receipts WHERE invoice_id").
		WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM invoice_items WHERE invoice_id").
		WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM invoices WHERE id").
		WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "inv-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
