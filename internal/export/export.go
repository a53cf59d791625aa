// Package export renders an analysis report as a workbook, markdown, html or
// pdf document.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/domain/insight"
	"excelinsights/internal/preprocess"
)

// Format is an export file format.
type Format string

const (
	XLSX     Format = "xlsx"
	Markdown Format = "md"
	HTML     Format = "html"
	PDF      Format = "pdf"
)

// ParseFormat validates a format name. "markdown" is accepted for md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx", "excel":
		return XLSX, nil
	case "md", "markdown":
		return Markdown, nil
	case "html":
		return HTML, nil
	case "pdf":
		return PDF, nil
	}
	return "", fmt.Errorf("%w: export format %q", core.ErrUnsupportedFormat, s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Filename derives the download name from the uploaded file name.
func (f Format) Filename(source string) string {
	base := source
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "report"
	}
	return base + "_analysis." + string(f)
}

// Report is everything an export contains.
type Report struct {
	Title        string
	Filename     string
	GeneratedAt  time.Time
	Dataset      *dataset.Dataset
	Profile      *preprocess.Profile
	Correlations *preprocess.CorrelationMatrix // nil without numeric columns
	Insights     *insight.Report               // optional
}

func (r *Report) title() string {
	if r.Title != "" {
		return r.Title
	}
	if r.Filename != "" {
		return "Analysis of " + r.Filename
	}
	return "Data Analysis Report"
}

// Write renders r in the given format.
func Write(w io.Writer, format Format, r *Report) error {
	if r == nil || r.Profile == nil {
		return fmt.Errorf("%w: report has no profile", core.ErrInvalidRequest)
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}

	switch format {
	case XLSX:
		return writeXLSX(w, r)
	case Markdown:
		_, err := io.WriteString(w, RenderMarkdown(r))
		return err
	case HTML:
		_, err := w.Write(RenderHTML(r))
		return err
	case PDF:
		return writePDF(w, r)
	}
	return fmt.Errorf("%w: export format %q", core.ErrUnsupportedFormat, format)
}

func num(n preprocess.Number, digits int) string {
	if !n.Valid() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(n), 'f', digits, 64)
}

func optional(n *preprocess.Number) string {
	if n == nil {
		return ""
	}
	return num(*n, 2)
}

func cell(n preprocess.Number) interface{} {
	if !n.Valid() {
		return nil
	}
	return float64(n)
}

func summaryRows(r *Report) [][2]string {
	b := r.Profile.Basic
	rows := [][2]string{
		{"File", r.Filename},
		{"Rows", strconv.Itoa(b.TotalRows)},
		{"Columns", strconv.Itoa(b.TotalColumns)},
		{"Missing values", strconv.Itoa(b.MissingValues)},
		{"Duplicate rows", strconv.Itoa(b.DuplicateRows)},
		{"Memory usage", b.MemoryUsage},
	}
	for _, t := range []dataset.ColumnType{dataset.ColumnNumeric, dataset.ColumnCategorical, dataset.ColumnTimestamp, dataset.ColumnBoolean, dataset.ColumnString} {
		if n := b.ColumnTypes[string(t)]; n > 0 {
			rows = append(rows, [2]string{string(t) + " columns", strconv.Itoa(n)})
		}
	}
	rows = append(rows, [2]string{"Generated", r.GeneratedAt.Format(time.RFC3339)})
	return rows
}

var (
	qualityHeaders    = []string{"Column", "Type", "Missing", "Missing %", "Unique", "Mean", "Std", "Min", "Max"}
	statisticsHeaders = []string{"Column", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max", "Skew", "Kurtosis"}
)

func qualityRow(q preprocess.ColumnQuality) []string {
	return []string{
		q.Column,
		q.DataType,
		strconv.Itoa(q.MissingValues),
		strconv.FormatFloat(q.MissingPercentage, 'f', 2, 64),
		strconv.Itoa(q.UniqueValues),
		optional(q.Mean),
		optional(q.Std),
		optional(q.Min),
		optional(q.Max),
	}
}

func statisticsRow(s preprocess.NumericSummary) []string {
	return []string{
		s.Column,
		strconv.Itoa(s.Count),
		num(s.Mean, 2),
		num(s.Std, 2),
		num(s.Min, 2),
		num(s.Q25, 2),
		num(s.Median, 2),
		num(s.Q75, 2),
		num(s.Max, 2),
		num(s.Skew, 3),
		num(s.Kurtosis, 3),
	}
}

func correlationRows(m *preprocess.CorrelationMatrix) [][]string {
	rows := make([][]string, len(m.Columns))
	for i, name := range m.Columns {
		row := make([]string, 0, len(m.Columns)+1)
		row = append(row, name)
		for _, v := range m.Values[i] {
			row = append(row, num(v, 3))
		}
		rows[i] = row
	}
	return rows
}
