package excel

import "excelinsights/adapters/coercer"

// RawTable is a spreadsheet as read, before type inference. Every row has
// exactly len(Headers) cells.
type RawTable struct {
	Headers   []string
	Rows      [][]string
	FileType  string
	Sheet     string
	Encoding  string
	Delimiter string
	// Hints holds native cell type counts per column index (xlsx only).
	Hints map[int]coercer.CellHints
}

// Column returns the raw text of column j.
func (t *RawTable) Column(j int) []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out
}
