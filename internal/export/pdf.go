package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 190.0
	lineHeight = 5.0
	fontFamily = "Arial"
)

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func writePDF(w io.Writer, r *Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetTitle(r.title(), true)
	pdf.AddPage()

	p := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	p.heading(r.title(), 14)

	p.heading("Summary", 12)
	p.table([]string{"Metric", "Value"}, pairs(summaryRows(r)))

	if len(r.Profile.Warnings) > 0 {
		p.heading("Data Quality Warnings", 12)
		for _, warning := range r.Profile.Warnings {
			p.paragraph("- " + warning)
		}
	}

	p.heading("Column Quality", 12)
	quality := make([][]string, len(r.Profile.Quality))
	for i, q := range r.Profile.Quality {
		quality[i] = qualityRow(q)
	}
	p.table(qualityHeaders, quality)

	if len(r.Profile.Numeric) > 0 {
		p.heading("Descriptive Statistics", 12)
		rows := make([][]string, len(r.Profile.Numeric))
		for i, s := range r.Profile.Numeric {
			rows[i] = statisticsRow(s)
		}
		p.table(statisticsHeaders, rows)
	}

	if m := r.Correlations; m != nil && len(m.Columns) > 1 {
		p.heading("Correlations", 12)
		p.table(append([]string{""}, m.Columns...), correlationRows(m))
	}

	if in := r.Insights; in != nil && strings.TrimSpace(in.Text) != "" {
		p.heading("Insights", 12)
		p.paragraph(strings.TrimSpace(in.Text))
		for _, h := range in.Highlights {
			p.paragraph("- " + h)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return nil
}

func (p *pdfWriter) heading(text string, size float64) {
	p.pdf.Ln(4)
	p.pdf.SetFont(fontFamily, "B", size)
	p.pdf.MultiCell(0, lineHeight+1, p.tr(text), "", "L", false)
	p.pdf.Ln(1)
}

func (p *pdfWriter) paragraph(text string) {
	p.pdf.SetFont(fontFamily, "", 9)
	p.pdf.MultiCell(0, lineHeight, p.tr(text), "", "L", false)
}

// table draws a bordered grid with equal column widths. Cell text is
// truncated to fit.
func (p *pdfWriter) table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	width := pageWidth / float64(len(headers))
	fontSize := 8.0
	if len(headers) > 8 {
		fontSize = 6.5
	}

	p.pdf.SetFont(fontFamily, "B", fontSize)
	p.pdf.SetFillColor(230, 230, 230)
	for _, h := range headers {
		p.pdf.CellFormat(width, lineHeight+1, p.fit(h, width), "1", 0, "L", true, 0, "")
	}
	p.pdf.Ln(-1)

	p.pdf.SetFont(fontFamily, "", fontSize)
	for _, row := range rows {
		for j := range headers {
			text := ""
			if j < len(row) {
				text = row[j]
			}
			p.pdf.CellFormat(width, lineHeight, p.fit(text, width), "1", 0, "L", false, 0, "")
		}
		p.pdf.Ln(-1)
	}
	p.pdf.Ln(2)
}

func (p *pdfWriter) fit(text string, width float64) string {
	text = p.tr(text)
	limit := width - 2
	if p.pdf.GetStringWidth(text) <= limit {
		return text
	}
	for len(text) > 1 && p.pdf.GetStringWidth(text+"..") > limit {
		text = text[:len(text)-1]
	}
	return text + ".."
}
