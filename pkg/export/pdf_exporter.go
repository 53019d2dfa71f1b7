package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// StatementLine is a labelled amount on an invoice statement.
type StatementLine struct {
	Description string
	Amount      string
}

// Statement carries everything needed to render an invoice PDF.
type Statement struct {
	SchoolName string
	Title      string
	Student    string
	Session    string
	Term       string
	Class      string
	Status     string
	Items      []StatementLine
	Receipts   []StatementLine
	Summary    []StatementLine
}

// PDFExporter renders invoice statements into PDF bytes.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderStatement creates a single-page invoice statement document.
func (e *PDFExporter) RenderStatement(st Statement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(st.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, st.Title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	for _, pair := range [][2]string{
		{"Student", st.Student},
		{"Session", st.Session},
		{"Term", st.Term},
		{"Class", st.Class},
		{"Status", st.Status},
	} {
		pdf.CellFormat(30, 6, pair[0], "", 0, "", false, 0, "")
		pdf.CellFormat(0, 6, pair[1], "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	e.renderTable(pdf, "Charges", st.Items)
	e.renderTable(pdf, "Payments", st.Receipts)
	e.renderTable(pdf, "Summary", st.Summary)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render statement pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) renderTable(pdf *gofpdf.Fpdf, title string, lines []StatementLine) {
	if len(lines) == 0 {
		return
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 8, title, "", 1, "", false, 0, "")
	pdf.CellFormat(140, 7, "Description", "1", 0, "", false, 0, "")
	pdf.CellFormat(50, 7, "Amount", "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, line := range lines {
		pdf.CellFormat(140, 7, line.Description, "1", 0, "", false, 0, "")
		pdf.CellFormat(50, 7, line.Amount, "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
}
