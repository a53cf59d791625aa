package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"excelinsights/adapters/coercer"
	"excelinsights/domain/core"
	"excelinsights/domain/dataset"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// DataReader reads uploaded Excel and CSV content
type DataReader struct {
	filename string
	fileType string // "xlsx" or "csv"
	content  []byte
	config   ReaderConfig
	coercer  *coercer.TypeCoercer
	logger   *zap.Logger
}

// NewDataReader creates a reader for an uploaded file. The file type is
// taken from the filename extension.
func NewDataReader(filename string, content []byte, config ReaderConfig, logger *zap.Logger) *DataReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataReader{
		filename: filename,
		fileType: FileType(filename),
		content:  content,
		config:   config,
		coercer:  coercer.NewTypeCoercer(config.CoercionConfig),
		logger:   logger.With(zap.String("component", "data_reader"), zap.String("file", filename)),
	}
}

// FileType maps a filename to "xlsx", "csv", "xls" or "" when unknown.
func FileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return "xlsx"
	case ".csv", ".txt", ".tsv":
		return "csv"
	case ".xls":
		return "xls"
	}
	return ""
}

// Load reads the content, infers column types and returns a typed dataset.
func (r *DataReader) Load() (*dataset.Dataset, error) {
	raw, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	ds := BuildDataset(raw, r.coercer)
	ds.ID = core.NewDatasetID()
	ds.Filename = r.filename
	r.logger.Info("dataset loaded",
		zap.Int("rows", ds.RowCount()),
		zap.Int("columns", ds.ColumnCount()),
		zap.String("encoding", raw.Encoding))
	return ds, nil
}

// ReadData reads the content into a rectangular table of strings
func (r *DataReader) ReadData() (*RawTable, error) {
	if len(r.content) == 0 {
		return nil, fmt.Errorf("%s: %w", r.filename, core.ErrEmptyDataset)
	}

	var (
		table *RawTable
		err   error
	)
	start := time.Now()
	switch r.fileType {
	case "csv":
		table, err = r.readCSVData()
	case "xlsx":
		table, err = r.readExcelData()
	case "xls":
		return nil, fmt.Errorf("%w: legacy .xls workbooks are not supported, save the file as .xlsx", core.ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(r.filename))
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug("file read",
		zap.String("type", r.fileType),
		zap.Int("rows", len(table.Rows)),
		zap.Duration("elapsed", time.Since(start)))
	return table, nil
}

// readExcelData reads the first worksheet of a workbook
func (r *DataReader) readExcelData() (*RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(r.content))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", r.filename, core.ErrNoColumns)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	// leading blank rows are skipped; offset keeps cell references aligned
	offset := 0
	for offset < len(rows) && isBlankRow(rows[offset]) {
		offset++
	}

	table, kept, err := r.processRows(rows[offset:])
	if err != nil {
		return nil, err
	}
	table.FileType = "xlsx"
	table.Sheet = sheet
	table.Hints = r.collectCellHints(f, sheet, offset, kept, len(table.Headers))
	return table, nil
}

// collectCellHints counts native cell types over a stratified sample of data rows.
func (r *DataReader) collectCellHints(f *excelize.File, sheet string, offset int, kept []int, columns int) map[int]coercer.CellHints {
	hints := make(map[int]coercer.CellHints, columns)
	sample := coercer.StratifiedSample(len(kept), r.config.CoercionConfig.SampleSize)

	for col := 0; col < columns; col++ {
		var h coercer.CellHints
		for _, i := range sample {
			// kept holds the 0-based index of each data row below the header
			cell, err := excelize.CoordinatesToCellName(col+1, offset+kept[i]+2)
			if err != nil {
				continue
			}
			text, err := f.GetCellValue(sheet, cell)
			if err != nil || strings.TrimSpace(text) == "" {
				continue
			}
			cellType, err := f.GetCellType(sheet, cell)
			if err != nil {
				continue
			}
			h.Total++
			switch cellType {
			case excelize.CellTypeBool:
				h.Boolean++
			case excelize.CellTypeDate:
				h.Date++
			case excelize.CellTypeNumber, excelize.CellTypeUnset:
				// numbers carry no type attribute; a date style shows up
				// only in the formatted text
				v := r.coercer.CoerceValue(text)
				switch {
				case v.IsNumeric():
					h.Numeric++
				case v.IsTimestamp():
					h.Date++
				}
			}
		}
		hints[col] = h
	}
	return hints
}

// readCSVData reads CSV content, decoding legacy encodings and detecting the delimiter
func (r *DataReader) readCSVData() (*RawTable, error) {
	text, encoding := decodeText(r.content)
	delimiter := detectDelimiter(text)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV file: %w", err)
		}
		rows = append(rows, record)
	}

	table, _, err := r.processRows(rows)
	if err != nil {
		return nil, err
	}
	table.FileType = "csv"
	table.Encoding = encoding
	table.Delimiter = string(delimiter)
	return table, nil
}

// processRows turns raw rows into a rectangular table. It returns the
// original data-row index of each kept row.
func (r *DataReader) processRows(rows [][]string) (*RawTable, []int, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", r.filename, core.ErrEmptyDataset)
	}

	headers := UniqueHeaders(rows[0])
	if len(headers) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", r.filename, core.ErrNoColumns)
	}

	data := make([][]string, 0, len(rows)-1)
	kept := make([]int, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make([]string, len(headers))
		for j := range cells {
			if j < len(row) {
				cells[j] = strings.TrimSpace(row[j])
			}
		}
		data = append(data, cells)
		kept = append(kept, i)
		if r.config.MaxRows > 0 && len(data) >= r.config.MaxRows {
			r.logger.Warn("row limit reached, remaining rows ignored", zap.Int("max_rows", r.config.MaxRows))
			break
		}
	}

	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%s must have at least a header row and one data row: %w", r.filename, core.ErrEmptyDataset)
	}

	return &RawTable{Headers: headers, Rows: data}, kept, nil
}

// UniqueHeaders trims header cells, drops trailing blank headers, names
// remaining blanks column_<n> and suffixes duplicates with _2, _3, ...
func UniqueHeaders(row []string) []string {
	last := len(row) - 1
	for last >= 0 && strings.TrimSpace(row[last]) == "" {
		last--
	}

	headers := make([]string, 0, last+1)
	seen := make(map[string]bool, last+1)
	for i := 0; i <= last; i++ {
		base := strings.TrimSpace(row[i])
		if base == "" {
			base = "column_" + strconv.Itoa(i+1)
		}
		name := base
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		headers = append(headers, name)
	}
	return headers
}

// BuildDataset infers column types and coerces every cell.
func BuildDataset(raw *RawTable, c *coercer.TypeCoercer) *dataset.Dataset {
	ds := &dataset.Dataset{Sheet: raw.Sheet, Columns: make([]*dataset.Column, len(raw.Headers))}
	sampleSize := c.Config().SampleSize

	for j, name := range raw.Headers {
		values := raw.Column(j)
		sample := make([]string, 0, sampleSize)
		for _, idx := range coercer.StratifiedSample(len(values), sampleSize) {
			sample = append(sample, values[idx])
		}
		analysis := c.AnalyzeTypeDistribution(sample)
		colType := c.InferWithHints(analysis, raw.Hints[j])

		col := &dataset.Column{Name: name, Type: colType, Values: make([]dataset.Value, len(values))}
		for i, text := range values {
			col.Values[i] = coerceCell(c, text, colType)
		}
		ds.Columns[j] = col
	}
	return ds
}

func coerceCell(c *coercer.TypeCoercer, text string, t dataset.ColumnType) dataset.Value {
	v := c.CoerceAs(text, t)
	if t == dataset.ColumnTimestamp && v.IsMissing && text != "" {
		// date cells exported without a number format arrive as serials
		if serial, err := strconv.ParseFloat(text, 64); err == nil && serial > 0 && serial < 2958466 {
			if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return dataset.NewTimestampValue(ts)
			}
		}
	}
	return v
}

// decodeText returns UTF-8 text and the name of the encoding it was decoded
// from: utf-8, then cp1252 when C1 code points carry text, else latin1.
func decodeText(content []byte) (string, string) {
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(content) {
		return string(content), "utf-8"
	}
	for _, b := range content {
		if b >= 0x80 && b <= 0x9F {
			if out, err := charmap.Windows1252.NewDecoder().Bytes(content); err == nil {
				return string(out), "cp1252"
			}
			break
		}
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return string(content), "unknown"
	}
	return string(out), "latin1"
}

// detectDelimiter picks the most frequent of , ; and tab in the first line.
func detectDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
