package render

import (
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/rezonia/invoice-mailer/internal/model"
)

// ContentType is the media type of rendered invoices
const ContentType = "application/pdf"

const (
	margin     = 50.0
	lineHeight = 16.0
	fontFamily = "Helvetica"
)

type column struct {
	x     float64
	width float64
	align string
}

// Item table columns, in points from the left page edge
var (
	colDescription = column{x: 50, width: 275, align: "L"}
	colQuantity    = column{x: 330, width: 50, align: "R"}
	colRate        = column{x: 380, width: 70, align: "R"}
	colAmount      = column{x: 460, width: 85, align: "R"}
)

// PDF renders invoices as A4 PDF documents
type PDF struct {
	creator string
}

// NewPDF creates a PDF renderer
func NewPDF() *PDF {
	return &PDF{creator: "invoice-mailer"}
}

func (p *PDF) ContentType() string {
	return ContentType
}

// Render writes the invoice document to w. The invoice is not modified.
// Output is byte-identical for the same invoice record.
func (p *PDF) Render(w io.Writer, inv *model.Invoice) error {
	l := BuildLayout(inv)

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(inv.CreatedAt.UTC())
	pdf.SetCreator(p.creator, true)
	pdf.SetTitle("Invoice "+inv.ID, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - margin

	pdf.AddPage()

	// Title
	pdf.SetFont(fontFamily, "B", 20)
	pdf.CellFormat(0, 28, tr(l.Title), "", 1, "C", false, 0, "")
	pdf.Ln(lineHeight / 2)

	// Identity and date
	pdf.SetFont(fontFamily, "", 12)
	for _, line := range l.Meta {
		pdf.CellFormat(0, lineHeight, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(lineHeight / 2)

	// Client
	pdf.SetFont(fontFamily, "B", 14)
	pdf.CellFormat(0, lineHeight+2, tr("Bill To:"), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 12)
	for _, line := range l.BillTo {
		pdf.CellFormat(0, lineHeight, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(lineHeight / 2)

	// Items
	drawHeader(pdf, tr, l.Header)
	for _, row := range l.Rows {
		desc := wrap(pdf, tr(row.Description), colDescription.width-6)
		height := float64(len(desc)) * lineHeight

		if pdf.GetY()+height > bottom {
			pdf.AddPage()
			drawHeader(pdf, tr, l.Header)
		}

		y := pdf.GetY()
		for i, line := range desc {
			cell(pdf, colDescription, y+float64(i)*lineHeight, line)
		}
		cell(pdf, colQuantity, y, tr(row.Quantity))
		cell(pdf, colRate, y, tr(row.Rate))
		cell(pdf, colAmount, y, tr(row.Amount))
		pdf.SetXY(margin, y+height)
	}

	// Summary
	summaryHeight := float64(len(l.Summary)+3) * lineHeight
	if pdf.GetY()+summaryHeight > bottom {
		pdf.AddPage()
	}
	pdf.Ln(lineHeight)
	for _, line := range l.Summary {
		pdf.CellFormat(0, lineHeight, tr(line), "", 1, "R", false, 0, "")
	}
	pdf.Ln(lineHeight)
	pdf.CellFormat(0, lineHeight, tr(l.Status), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return model.NewRenderError(inv.ID, "write document", err)
	}
	return nil
}

func drawHeader(pdf *gofpdf.Fpdf, tr func(string) string, h Row) {
	pdf.SetFont(fontFamily, "B", 12)
	y := pdf.GetY()
	cell(pdf, colDescription, y, tr(h.Description))
	cell(pdf, colQuantity, y, tr(h.Quantity))
	cell(pdf, colRate, y, tr(h.Rate))
	cell(pdf, colAmount, y, tr(h.Amount))

	right := colAmount.x + colAmount.width
	pdf.Line(margin, y+lineHeight+2, right, y+lineHeight+2)
	pdf.SetXY(margin, y+lineHeight+6)
	pdf.SetFont(fontFamily, "", 12)
}

func cell(pdf *gofpdf.Fpdf, col column, y float64, text string) {
	pdf.SetXY(col.x, y)
	pdf.CellFormat(col.width, lineHeight, text, "", 0, col.align, false, 0, "")
}

// wrap breaks already-translated text into lines no wider than width
// using the current font. Words longer than a line are split.
func wrap(pdf *gofpdf.Fpdf, text string, width float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := ""
	for _, word := range words {
		for pdf.GetStringWidth(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			n := fit(pdf, word, width)
			lines = append(lines, word[:n])
			word = word[n:]
		}
		if word == "" {
			continue
		}

		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if pdf.GetStringWidth(candidate) <= width {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// fit returns the longest prefix length of s that fits in width, at least 1
func fit(pdf *gofpdf.Fpdf, s string, width float64) int {
	n := 1
	for n < len(s) && pdf.GetStringWidth(s[:n+1]) <= width {
		n++
	}
	return n
}
