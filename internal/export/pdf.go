package export

import (
	"bytes"
	"time"

	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/phpdave11/gofpdf"
)

// ErrEmptySelection is returned when there is nothing to render.
var ErrEmptySelection = apperr.NotFound("no invoices match the selection")

const (
	pageMargin   = 15.0
	contentWidth = 210.0 - 2*pageMargin
	lineHeight   = 6.0
)

// Column widths of the line table; they add up to contentWidth.
var lineColumns = []float64{75, 20, 30, 20, 35}

// PDFRenderer draws documents on A4 pages.
type PDFRenderer struct {
	Compress bool
	now      func() time.Time
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Compress: true, now: time.Now}
}

func (r *PDFRenderer) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

// Render returns one PDF holding every document, each starting on a new page.
func (r *PDFRenderer) Render(docs ...Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrEmptySelection
	}
	pdf, _ := r.draw(docs)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// draw lays out docs and returns the first page of each one.
func (r *PDFRenderer) draw(docs []Document) (*gofpdf.Fpdf, []int) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetCreationDate(r.clock())
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	if len(docs) == 1 {
		pdf.SetTitle(docs[0].Number, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	starts := make([]int, 0, len(docs))
	for _, doc := range docs {
		pdf.AddPage()
		starts = append(starts, pdf.PageNo())
		for _, b := range doc.Blocks {
			drawBlock(pdf, tr, b)
		}
	}
	return pdf, starts
}

func drawBlock(pdf *gofpdf.Fpdf, tr func(string) string, b Block) {
	switch b.Kind {
	case KindTitle:
		pdf.SetFont("Helvetica", "B", 22)
		pdf.SetTextColor(41, 128, 185)
		pdf.CellFormat(0, 12, tr(b.Title), "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	case KindIssuer:
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, lineHeight, tr(b.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		text(pdf, tr, b.Text)
		pdf.Ln(4)
	case KindMetadata:
		fields(pdf, tr, b.Fields, 40)
		pdf.Ln(4)
	case KindClient:
		heading(pdf, tr, b.Title)
		pdf.SetFont("Helvetica", "", 10)
		text(pdf, tr, b.Text)
		pdf.Ln(4)
	case KindOrder:
		heading(pdf, tr, b.Title)
		fields(pdf, tr, b.Fields, 40)
		pdf.Ln(4)
	case KindLines:
		table(pdf, tr, b.Table)
		pdf.Ln(4)
	case KindTotals:
		for i, f := range b.Fields {
			style := ""
			if i == len(b.Fields)-1 {
				style = "B"
			}
			pdf.SetFont("Helvetica", style, 10)
			pdf.CellFormat(contentWidth-75, 7, "", "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 7, tr(f.Label), "", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, tr(f.Value), "", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	case KindPayment:
		pdf.SetFont("Helvetica", "I", 10)
		for _, f := range b.Fields {
			pdf.CellFormat(0, lineHeight, tr(f.Label+" : "+f.Value), "", 1, "L", false, 0, "")
		}
	case KindFooter:
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(120, 120, 120)
		for _, s := range b.Text {
			pdf.CellFormat(0, lineHeight, tr(s), "", 1, "C", false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
	}
}

func heading(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, tr(title), "", 1, "L", false, 0, "")
}

func text(pdf *gofpdf.Fpdf, tr func(string) string, lines []string) {
	for _, s := range lines {
		pdf.CellFormat(0, 5, tr(s), "", 1, "L", false, 0, "")
	}
}

func fields(pdf *gofpdf.Fpdf, tr func(string) string, fs []Field, labelWidth float64) {
	for _, f := range fs {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, lineHeight, tr(f.Label)+" :", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, lineHeight, tr(f.Value), "", 1, "L", false, 0, "")
	}
}

func table(pdf *gofpdf.Fpdf, tr func(string) string, t *Table) {
	if t == nil {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(200, 200, 200)
	for i, c := range t.Columns {
		pdf.CellFormat(lineColumns[i], 8, tr(c), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range t.Rows {
		for i, cell := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(lineColumns[i], 7, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}
