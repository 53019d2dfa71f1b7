package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
	"github.com/westgate-schools/sms-api/pkg/export"
)

// invoiceRepoStub mirrors the carry-forward transaction in memory.
type invoiceRepoStub struct {
	invoices []*models.Invoice
	items    map[string][]models.InvoiceItem
	receipts map[string][]models.Receipt
}

func newInvoiceRepoStub() *invoiceRepoStub {
	return &invoiceRepoStub{
		items:    map[string][]models.InvoiceItem{},
		receipts: map[string][]models.Receipt{},
	}
}

func (r *invoiceRepoStub) itemsTotal(invoiceID string) float64 {
	var total float64
	for _, item := range r.items[invoiceID] {
		total += item.Amount
	}
	return total
}

func (r *invoiceRepoStub) paidTotal(invoiceID string) float64 {
	var total float64
	for _, receipt := range r.receipts[invoiceID] {
		total += receipt.AmountPaid
	}
	return total
}

func (r *invoiceRepoStub) summarize(inv *models.Invoice) models.InvoiceSummary {
	return models.InvoiceSummary{
		Invoice:     *inv,
		StudentName: "Okafor Chinedu",
		SessionName: "2024/2025",
		TermName:    "First Term",
		ClassName:   "Grade 1",
		ItemsTotal:  r.itemsTotal(inv.ID),
		PaidTotal:   r.paidTotal(inv.ID),
	}
}

func (r *invoiceRepoStub) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceSummary, int, error) {
	var out []models.InvoiceSummary
	for _, inv := range r.invoices {
		if filter.StudentID != "" && inv.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, r.summarize(inv))
	}
	return out, len(out), nil
}

func (r *invoiceRepoStub) FindByID(ctx context.Context, id string) (*models.InvoiceSummary, error) {
	for _, inv := range r.invoices {
		if inv.ID == id {
			summary := r.summarize(inv)
			return &summary, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *invoiceRepoStub) CreateWithCarryForward(ctx context.Context, invoice *models.Invoice, items []models.InvoiceItem) error {
	for _, prior := range r.invoices {
		if prior.StudentID == invoice.StudentID && prior.Status == models.InvoiceStatusActive {
			invoice.BalanceFromPreviousTerm = r.itemsTotal(prior.ID) + prior.BalanceFromPreviousTerm - r.paidTotal(prior.ID)
			prior.Status = models.InvoiceStatusClosed
			break
		}
	}
	invoice.ID = uuid.NewString()
	invoice.Status = models.InvoiceStatusActive
	r.invoices = append(r.invoices, invoice)
	for i := range items {
		items[i].InvoiceID = invoice.ID
		r.items[invoice.ID] = append(r.items[invoice.ID], items[i])
	}
	return nil
}

func (r *invoiceRepoStub) AddItem(ctx context.Context, item *models.InvoiceItem) error {
	r.items[item.InvoiceID] = append(r.items[item.InvoiceID], *item)
	return nil
}

func (r *invoiceRepoStub) ListItems(ctx context.Context, invoiceID string) ([]models.InvoiceItem, error) {
	return r.items[invoiceID], nil
}

func (r *invoiceRepoStub) Delete(ctx context.Context, id string) error {
	for i, inv := range r.invoices {
		if inv.ID == id {
			r.invoices = append(r.invoices[:i], r.invoices[i+1:]...)
			delete(r.items, id)
			delete(r.receipts, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *invoiceRepoStub) ListByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error) {
	return r.receipts[invoiceID], nil
}

func newInvoiceServiceForTest(repo *invoiceRepoStub, students *studentRepoStub) *InvoiceService {
	return NewInvoiceService(repo, repo, students, export.NewPDFExporter(), "Westgate Schools", "NGN", nil, nil)
}

func TestInvoiceServiceCreateCarriesOutstandingBalance(t *testing.T) {
	repo := newInvoiceRepoStub()
	students := newStudentRepoStub()
	classID := "c1"
	studentID := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", &classID)
	svc := newInvoiceServiceForTest(repo, students)
	sc := testSchoolContext()

	first, err := svc.Create(context.Background(), sc, CreateInvoiceRequest{
		StudentID: studentID,
		Items:     []InvoiceItemRequest{{Description: "Tuition", Amount: 1200}},
	})
	require.NoError(t, err)
	assert.Zero(t, first.BalanceFromPreviousTerm)
	assert.Equal(t, 1200.0, first.Money.AmountPayable)
	assert.Equal(t, 1200.0, first.Money.Balance)

	// Half a term's fees paid, then the next term is invoiced.
	repo.receipts[first.ID] = append(repo.receipts[first.ID], models.Receipt{InvoiceID: first.ID, AmountPaid: 500})

	second, err := svc.Create(context.Background(), sc, CreateInvoiceRequest{
		StudentID: studentID,
		Items:     []InvoiceItemRequest{{Description: "Tuition", Amount: 1000}},
	})
	require.NoError(t, err)
	assert.Equal(t, 700.0, second.BalanceFromPreviousTerm)
	assert.Equal(t, 1000.0, second.Money.AmountPayable)
	assert.Equal(t, 1700.0, second.Money.TotalAmountPayable)
	assert.Equal(t, 1700.0, second.Money.Balance)

	closed, err := repo.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusClosed, closed.Status)
}

func TestInvoiceServiceCreateRequiresClass(t *testing.T) {
	repo := newInvoiceRepoStub()
	students := newStudentRepoStub()
	studentID := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", nil)
	svc := newInvoiceServiceForTest(repo, students)

	_, err := svc.Create(context.Background(), testSchoolContext(), CreateInvoiceRequest{StudentID: studentID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestInvoiceServiceZeroSumsForEmptyInvoice(t *testing.T) {
	repo := newInvoiceRepoStub()
	students := newStudentRepoStub()
	classID := "c1"
	studentID := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", &classID)
	svc := newInvoiceServiceForTest(repo, students)

	invoice, err := svc.Create(context.Background(), testSchoolContext(), CreateInvoiceRequest{StudentID: studentID})
	require.NoError(t, err)
	assert.Zero(t, invoice.Money.AmountPayable)
	assert.Zero(t, invoice.Money.TotalAmountPaid)
	assert.Zero(t, invoice.Money.Balance)
}

func TestInvoiceServiceAddItemRejectsClosedInvoice(t *testing.T) {
	repo := newInvoiceRepoStub()
	students := newStudentRepoStub()
	classID := "c1"
	studentID := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", &classID)
	svc := newInvoiceServiceForTest(repo, students)
	sc := testSchoolContext()

	first, err := svc.Create(context.Background(), sc, CreateInvoiceRequest{StudentID: studentID})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), sc, CreateInvoiceRequest{StudentID: studentID})
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), first.ID, InvoiceItemRequest{Description: "Late fee", Amount: 50})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestInvoiceServiceBulkIssueSkipsUnplacedStudents(t *testing.T) {
	repo := newInvoiceRepoStub()
	students := newStudentRepoStub()
	classID := "c1"
	seedStudent(t, students, "WG/001", "Okafor", "Chinedu", &classID)
	seedStudent(t, students, "WG/002", "Bello", "Amina", &classID)
	seedStudent(t, students, "WG/003", "Eze", "Ifeoma", nil)
	svc := newInvoiceServiceForTest(repo, students)

	summary, err := svc.BulkIssue(context.Background(), testSchoolContext(), BulkIssueRequest{
		Items: []InvoiceItemRequest{{Description: "Tuition", Amount: 800}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Issued)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, repo.invoices, 2)
}

// pagedStudentRepoStub serves List with the same page-size clamp and offset
// arithmetic as the SQL repository.
type pagedStudentRepoStub struct {
	*studentRepoStub
	ordered []models.StudentDetail
	pages   int
}

func (s *pagedStudentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	s.pages++
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	var matched []models.StudentDetail
	for _, st := range s.ordered {
		if filter.Status != "" && st.CurrentStatus != filter.Status {
			continue
		}
		if filter.ClassID != "" && (st.CurrentClassID == nil || *st.CurrentClassID != filter.ClassID) {
			continue
		}
		matched = append(matched, st)
	}

	start := (page - 1) * size
	if start >= len(matched) {
		return nil, len(matched), nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func TestInvoiceServiceBulkIssueCoversEveryPage(t *testing.T) {
	repo := newInvoiceRepoStub()
	base := newStudentRepoStub()
	classID := "c1"
	students := &pagedStudentRepoStub{studentRepoStub: base}
	for i := 0; i < 150; i++ {
		id := seedStudent(t, base, fmt.Sprintf("WG/%03d", i+1), "Okafor", "Chinedu", &classID)
		st, err := base.FindByID(context.Background(), id)
		require.NoError(t, err)
		students.ordered = append(students.ordered, *st)
	}
	svc := NewInvoiceService(repo, repo, students, export.NewPDFExporter(), "Westgate Schools", "NGN", nil, nil)

	summary, err := svc.BulkIssue(context.Background(), testSchoolContext(), BulkIssueRequest{
		Items: []InvoiceItemRequest{{Description: "Tuition", Amount: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, 150, summary.Issued)
	assert.Len(t, summary.Invoices, 150)
	assert.Len(t, repo.invoices, 150)
	assert.GreaterOrEqual(t, students.pages, 2)
}

func TestInvoiceServiceRenderStatementPDF(t *testing.T) {
	repo := newInvoiceRepoStub()
	students := newStudentRepoStub()
	classID := "c1"
	studentID := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", &classID)
	svc := newInvoiceServiceForTest(repo, students)

	invoice, err := svc.Create(context.Background(), testSchoolContext(), CreateInvoiceRequest{
		StudentID: studentID,
		Items:     []InvoiceItemRequest{{Description: "Tuition", Amount: 1200}},
	})
	require.NoError(t, err)

	data, err := svc.RenderStatementPDF(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}
