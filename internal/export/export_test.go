package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/domain/insight"
	"excelinsights/internal/preprocess"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testReport(t *testing.T) *Report {
	t.Helper()
	ds := &dataset.Dataset{
		Filename: "sales.xlsx",
		Columns: []*dataset.Column{
			{Name: "Region", Type: dataset.ColumnCategorical, Values: []dataset.Value{
				dataset.NewStringValue("East"), dataset.NewStringValue("West"), dataset.NewStringValue("East"), dataset.NewMissingValue(),
			}},
			{Name: "Units", Type: dataset.ColumnNumeric, Values: []dataset.Value{
				dataset.NewNumericValue(10), dataset.NewNumericValue(2), dataset.NewNumericValue(5), dataset.NewNumericValue(4),
			}},
			{Name: "Amount", Type: dataset.ColumnNumeric, Values: []dataset.Value{
				dataset.NewNumericValue(100), dataset.NewNumericValue(25), dataset.NewNumericValue(50), dataset.NewNumericValue(41),
			}},
		},
	}
	profile, err := preprocess.BuildProfile(context.Background(), ds)
	require.NoError(t, err)
	corr, err := preprocess.GetCorrelations(ds)
	require.NoError(t, err)

	return &Report{
		Filename:     ds.Filename,
		GeneratedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Dataset:      ds,
		Profile:      profile,
		Correlations: corr,
		Insights:     &insight.Report{Text: "Units drive revenue.", Highlights: []string{"East leads"}, Source: insight.SourceHeuristic},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"xlsx": XLSX, "MD": Markdown, "markdown": Markdown, "html": HTML, " pdf ": PDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("docx")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "sales_analysis.pdf", PDF.Filename("sales.xlsx"))
	assert.Equal(t, "report_analysis.md", Markdown.Filename(""))
}

func TestMarkdownReport(t *testing.T) {
	md := RenderMarkdown(testReport(t))

	assert.True(t, strings.HasPrefix(md, "# Analysis of sales.xlsx\n"))
	assert.Contains(t, md, "| Rows | 4 |")
	assert.Contains(t, md, "## Column Quality")
	assert.Contains(t, md, "## Descriptive Statistics")
	assert.Contains(t, md, "| Units | 4 |")
	assert.Contains(t, md, "## Correlations")
	assert.Contains(t, md, "Units drive revenue.")
	assert.Contains(t, md, "- East leads")
}

func TestHTMLReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, HTML, testReport(t)))

	page := buf.String()
	assert.Contains(t, page, "<title>Analysis of sales.xlsx</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "Column Quality</h2>")
}

func TestXLSXReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XLSX, testReport(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Quality", "Statistics", "Correlations", "Data"}, f.GetSheetList())

	rows, err := f.GetRows("Data")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Region", "Units", "Amount"}, rows[0])
	assert.Equal(t, "West", rows[2][0])

	corr, err := f.GetRows("Correlations")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "Units", "Amount"}, corr[0])
	assert.Equal(t, "1", corr[1][1])
}

func TestPDFReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, PDF, testReport(t)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("docx"), testReport(t))
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	err = Write(&bytes.Buffer{}, Markdown, &Report{})
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}
