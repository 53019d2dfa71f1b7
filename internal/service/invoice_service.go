package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
	"github.com/westgate-schools/sms-api/pkg/export"
)

type invoiceRepository interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.InvoiceSummary, error)
	CreateWithCarryForward(ctx context.Context, invoice *models.Invoice, items []models.InvoiceItem) error
	AddItem(ctx context.Context, item *models.InvoiceItem) error
	ListItems(ctx context.Context, invoiceID string) ([]models.InvoiceItem, error)
	Delete(ctx context.Context, id string) error
}

type receiptReader interface {
	ListByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error)
}

// InvoiceItemRequest is one charge on a new invoice.
type InvoiceItemRequest struct {
	Description string  `json:"description" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
}

// CreateInvoiceRequest issues an invoice for one student in the current
// session and term.
type CreateInvoiceRequest struct {
	StudentID string               `json:"student_id" validate:"required"`
	Items     []InvoiceItemRequest `json:"items" validate:"omitempty,dive"`
}

// BulkIssueRequest issues the same set of charges to every active student,
// optionally narrowed to one class.
type BulkIssueRequest struct {
	ClassID string               `json:"class_id"`
	Items   []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// BulkIssueSummary reports the outcome of a bulk invoice run.
type BulkIssueSummary struct {
	Issued   int      `json:"issued"`
	Skipped  int      `json:"skipped"`
	Invoices []string `json:"invoice_ids"`
}

// InvoiceService drives the invoice lifecycle. Issuing a student's next
// invoice closes the previous active one and carries its outstanding balance
// forward.
type InvoiceService struct {
	invoices  invoiceRepository
	receipts  receiptReader
	students  studentRepository
	pdf       *export.PDFExporter
	school    string
	currency  string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInvoiceService creates a new invoice service instance.
func NewInvoiceService(invoices invoiceRepository, receipts receiptReader, students studentRepository, pdf *export.PDFExporter, school, currency string, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "NGN"
	}
	return &InvoiceService{
		invoices:  invoices,
		receipts:  receipts,
		students:  students,
		pdf:       pdf,
		school:    school,
		currency:  currency,
		validator: validate,
		logger:    logger,
	}
}

// List returns invoice summaries matching the filter, each with derived
// balances.
func (s *InvoiceService) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	summaries, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}

	details := make([]models.InvoiceDetail, 0, len(summaries))
	for _, summary := range summaries {
		details = append(details, models.InvoiceDetail{InvoiceSummary: summary, Money: summary.Balances()})
	}
	return details, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get loads one invoice with its items, receipts and money view.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.InvoiceDetail, error) {
	summary, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}

	items, err := s.invoices.ListItems(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice items")
	}
	receipts, err := s.receipts.ListByInvoice(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice receipts")
	}

	return &models.InvoiceDetail{
		InvoiceSummary: *summary,
		Items:          items,
		Receipts:       receipts,
		Money:          summary.Balances(),
	}, nil
}

// Create issues an invoice for a student in the given school context. The
// student's previous active invoice, if any, is closed in the same
// transaction and its outstanding balance lands on the new invoice.
func (s *InvoiceService) Create(ctx context.Context, sc *models.SchoolContext, req CreateInvoiceRequest) (*models.InvoiceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.CurrentClassID == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student has no current class to invoice against")
	}

	invoice := &models.Invoice{
		StudentID:  student.ID,
		SessionID:  sc.Session.ID,
		TermID:     sc.Term.ID,
		ClassForID: *student.CurrentClassID,
	}
	items := make([]models.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.InvoiceItem{Description: item.Description, Amount: item.Amount})
	}

	if err := s.invoices.CreateWithCarryForward(ctx, invoice, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue invoice")
	}

	s.logger.Info("invoice issued",
		zap.String("invoice_id", invoice.ID),
		zap.String("student_id", student.ID),
		zap.Float64("carried_forward", invoice.BalanceFromPreviousTerm))
	return s.Get(ctx, invoice.ID)
}

// BulkIssue creates one invoice per active student, optionally scoped to one
// class. Students without a current class are skipped.
func (s *InvoiceService) BulkIssue(ctx context.Context, sc *models.SchoolContext, req BulkIssueRequest) (*BulkIssueSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk invoice payload")
	}

	// 100 is the largest page the student repository serves; asking for more
	// gets silently clamped and would end the loop early.
	filter := models.StudentFilter{
		ClassID:  req.ClassID,
		Status:   models.StudentStatusActive,
		Page:     1,
		PageSize: 100,
	}

	summary := &BulkIssueSummary{Invoices: []string{}}
	for {
		students, total, err := s.students.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		if len(students) == 0 {
			break
		}

		for _, student := range students {
			if student.CurrentClassID == nil {
				summary.Skipped++
				continue
			}
			invoice := &models.Invoice{
				StudentID:  student.ID,
				SessionID:  sc.Session.ID,
				TermID:     sc.Term.ID,
				ClassForID: *student.CurrentClassID,
			}
			items := make([]models.InvoiceItem, 0, len(req.Items))
			for _, item := range req.Items {
				items = append(items, models.InvoiceItem{Description: item.Description, Amount: item.Amount})
			}
			if err := s.invoices.CreateWithCarryForward(ctx, invoice, items); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue invoice for student "+student.ID)
			}
			summary.Issued++
			summary.Invoices = append(summary.Invoices, invoice.ID)
		}

		if filter.Page*filter.PageSize >= total {
			break
		}
		filter.Page++
	}

	s.logger.Info("bulk invoices issued",
		zap.String("class_id", req.ClassID),
		zap.Int("issued", summary.Issued),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// AddItem appends a charge to an existing active invoice.
func (s *InvoiceService) AddItem(ctx context.Context, invoiceID string, req InvoiceItemRequest) (*models.InvoiceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice item payload")
	}

	invoice, err := s.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot add charges to a closed invoice")
	}

	item := &models.InvoiceItem{InvoiceID: invoiceID, Description: req.Description, Amount: req.Amount}
	if err := s.invoices.AddItem(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add invoice item")
	}
	return s.Get(ctx, invoiceID)
}

// Delete removes an invoice along with its items and receipts.
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.invoices.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete invoice")
	}
	return nil
}

// RenderStatementPDF produces a printable statement for one invoice.
func (s *InvoiceService) RenderStatementPDF(ctx context.Context, id string) ([]byte, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	st := export.Statement{
		SchoolName: s.school,
		Title:      fmt.Sprintf("Invoice Statement - %s %s", detail.SessionName, detail.TermName),
		Student:    detail.StudentName,
		Session:    detail.SessionName,
		Term:       detail.TermName,
		Class:      detail.ClassName,
		Status:     detail.Status,
	}

	for _, item := range detail.Items {
		st.Items = append(st.Items, export.StatementLine{Description: item.Description, Amount: s.money(item.Amount)})
	}
	for _, receipt := range detail.Receipts {
		desc := receipt.DatePaid.Format("2006-01-02")
		if receipt.Comment != "" {
			desc += " " + receipt.Comment
		}
		st.Receipts = append(st.Receipts, export.StatementLine{Description: desc, Amount: s.money(receipt.AmountPaid)})
	}
	st.Summary = []export.StatementLine{
		{Description: "Amount payable this term", Amount: s.money(detail.Money.AmountPayable)},
		{Description: "Balance from previous term", Amount: s.money(detail.BalanceFromPreviousTerm)},
		{Description: "Total amount payable", Amount: s.money(detail.Money.TotalAmountPayable)},
		{Description: "Total amount paid", Amount: s.money(detail.Money.TotalAmountPaid)},
		{Description: "Balance", Amount: s.money(detail.Money.Balance)},
	}

	data, err := s.pdf.RenderStatement(st)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}
	return data, nil
}

func (s *InvoiceService) money(amount float64) string {
	return fmt.Sprintf("%s %.2f", s.currency, amount)
}
