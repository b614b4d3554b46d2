// Package export renders class rosters as PDF documents.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"school_admin/internal/app"
)

var (
	columns = []struct {
		title string
		width float64
	}{
		{"ID", 14},
		{"Last name", 36},
		{"First name", 36},
		{"Birthdate", 28},
		{"Parents", 76},
	}
	headerRGB = [3]int{0, 63, 127}
	stripeRGB = [3]int{235, 235, 235}
)

// PDFExporter lays out one class per A4 page set: title, table, generation date.
type PDFExporter struct {
	Now func() time.Time
}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Now: time.Now}
}

func (e *PDFExporter) Export(title string, rows []app.ExportRow) ([]byte, error) {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreationDate(now)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(headerRGB[0], headerRGB[1], headerRGB[2])
	pdf.CellFormat(0, 12, tr("Student list - "+title), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(headerRGB[0], headerRGB[1], headerRGB[2])
		pdf.SetTextColor(255, 255, 255)
		for _, c := range columns {
			pdf.CellFormat(c.width, 8, c.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFillColor(stripeRGB[0], stripeRGB[1], stripeRGB[2])
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, r := range rows {
		if pdf.GetY()+7 > pageHeight-bottom-10 {
			pdf.AddPage()
			header()
		}
		fill := i%2 == 1
		cells := []string{fmt.Sprint(r.ID), r.LastName, r.FirstName, r.Birthdate, r.Parents}
		for j, c := range columns {
			pdf.CellFormat(c.width, 7, tr(fit(pdf, tr, cells[j], c.width-2)), "1", 0, "C", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 6, "Generated on "+now.Format("02/01/2006 at 15:04"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// fit shortens s with an ellipsis until it fits in width.
func fit(pdf *fpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if pdf.GetStringWidth(tr(s)) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(tr(string(r)+"...")) > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

var _ app.RowExporter = (*PDFExporter)(nil)
