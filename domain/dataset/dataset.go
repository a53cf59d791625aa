package dataset

import (
	"sort"

	"excelinsights/domain/core"
)

// ColumnType is the inferred semantic type of a column.
type ColumnType string

const (
	ColumnNumeric     ColumnType = "numeric"
	ColumnCategorical ColumnType = "categorical"
	ColumnBoolean     ColumnType = "boolean"
	ColumnTimestamp   ColumnType = "timestamp"
	ColumnString      ColumnType = "string"
)

// Column is one named, typed column of a Dataset.
type Column struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Values []Value    `json:"values"`
}

// Dataset is a normalized table. Every column holds exactly RowCount values.
type Dataset struct {
	ID       core.DatasetID `json:"id"`
	Filename string         `json:"filename"`
	Sheet    string         `json:"sheet,omitempty"`
	Columns  []*Column      `json:"columns"`
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

func (d *Dataset) ColumnCount() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnsOfType returns the columns with the given type, in order.
func (d *Dataset) ColumnsOfType(t ColumnType) []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

func (d *Dataset) NumericColumns() []*Column {
	return d.ColumnsOfType(ColumnNumeric)
}

// CategoricalColumns returns categorical and free-text columns, which are
// both usable as grouping keys.
func (d *Dataset) CategoricalColumns() []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.Type == ColumnCategorical || c.Type == ColumnString || c.Type == ColumnBoolean {
			out = append(out, c)
		}
	}
	return out
}

// Row returns the values of row i across all columns.
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, len(d.Columns))
	for j, c := range d.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy of the column structure. Values are immutable,
// so the slices are copied but their elements are shared.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{ID: d.ID, Filename: d.Filename, Sheet: d.Sheet, Columns: make([]*Column, len(d.Columns))}
	for i, c := range d.Columns {
		values := make([]Value, len(c.Values))
		copy(values, c.Values)
		out.Columns[i] = &Column{Name: c.Name, Type: c.Type, Values: values}
	}
	return out
}

// KeepRows drops every row whose keep flag is false.
func (d *Dataset) KeepRows(keep []bool) {
	for _, c := range d.Columns {
		kept := c.Values[:0]
		for i, v := range c.Values {
			if keep[i] {
				kept = append(kept, v)
			}
		}
		c.Values = kept
	}
}

// Fingerprint hashes names, types and cell text; it changes whenever the
// dataset is mutated and keys the answer cache and vector collections.
func (d *Dataset) Fingerprint() core.Hash {
	parts := make([]string, 0, len(d.Columns)*(d.RowCount()+2))
	for _, c := range d.Columns {
		parts = append(parts, c.Name, string(c.Type))
		for _, v := range c.Values {
			parts = append(parts, v.Key())
		}
	}
	return core.HashStrings(parts...)
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing {
			n++
		}
	}
	return n
}

// Floats returns the non-missing numeric values in row order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.IsNumeric() {
			out = append(out, v.AsFloat64())
		}
	}
	return out
}

// UniqueCount returns the number of distinct non-missing values.
func (c *Column) UniqueCount() int {
	seen := make(map[string]struct{}, len(c.Values))
	for _, v := range c.Values {
		if !v.IsMissing {
			seen[v.Key()] = struct{}{}
		}
	}
	return len(seen)
}

// ValueCount is a distinct value with its frequency.
type ValueCount struct {
	Value Value `json:"value"`
	Count int   `json:"count"`
}

// ValueCounts returns distinct non-missing values by descending frequency,
// ties broken by first appearance.
func (c *Column) ValueCounts() []ValueCount {
	index := make(map[string]int)
	var counts []ValueCount
	for _, v := range c.Values {
		if v.IsMissing {
			continue
		}
		k := v.Key()
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, ValueCount{Value: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// Mode returns the most frequent non-missing value. Among equally frequent
// values the smallest one (see Value.Less) wins. ok is false when every
// value is missing.
func (c *Column) Mode() (Value, bool) {
	counts := c.ValueCounts()
	if len(counts) == 0 {
		return Value{}, false
	}
	best := counts[0]
	for _, vc := range counts[1:] {
		if vc.Count < best.Count {
			break
		}
		if vc.Value.Less(best.Value) {
			best = vc
		}
	}
	return best.Value, true
}
