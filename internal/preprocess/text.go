package preprocess

import (
	"fmt"
	"strings"

	"excelinsights/domain/dataset"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DatasetText renders the table as newline separated records, one per row,
// each as "column: value" pairs. Missing cells are omitted. This is the
// text that gets chunked and embedded.
func DatasetText(ds *dataset.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset %s with columns: %s\n", ds.Filename, strings.Join(ds.ColumnNames(), ", "))
	for i := 0; i < ds.RowCount(); i++ {
		fmt.Fprintf(&b, "Row %d:", i+1)
		first := true
		for _, c := range ds.Columns {
			v := c.Values[i]
			if v.IsMissing {
				continue
			}
			if first {
				b.WriteByte(' ')
				first = false
			} else {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			b.WriteString(": ")
			b.WriteString(v.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// SchemaSummary describes the columns and headline statistics of the
// dataset in a few lines, for use as model context.
func SchemaSummary(ds *dataset.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The dataset has %d rows and %d columns.\n", ds.RowCount(), ds.ColumnCount())
	for _, c := range ds.Columns {
		fmt.Fprintf(&b, "- %s (%s", c.Name, c.Type)
		if m := c.MissingCount(); m > 0 {
			fmt.Fprintf(&b, ", %d missing", m)
		}
		switch c.Type {
		case dataset.ColumnNumeric:
			s := Describe(c.Name, c.Floats())
			if s.Count > 0 {
				fmt.Fprintf(&b, ", min %s, mean %s, max %s, sum %s",
					FormatNumber(float64(s.Min)), FormatNumber(float64(s.Mean)), FormatNumber(float64(s.Max)), FormatNumber(Sum(c)))
			}
		case dataset.ColumnCategorical, dataset.ColumnString, dataset.ColumnBoolean:
			counts := c.ValueCounts()
			top := make([]string, 0, 5)
			for i := 0; i < len(counts) && i < 5; i++ {
				top = append(top, fmt.Sprintf("%s (%d)", counts[i].Value.String(), counts[i].Count))
			}
			if len(top) > 0 {
				fmt.Fprintf(&b, ", %d distinct, top: %s", len(counts), strings.Join(top, ", "))
			}
		case dataset.ColumnTimestamp:
			if lo, hi, ok := timeRange(c); ok {
				fmt.Fprintf(&b, ", from %s to %s", lo, hi)
			}
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func timeRange(c *dataset.Column) (string, string, bool) {
	var lo, hi dataset.Value
	found := false
	for _, v := range c.Values {
		t, ok := v.AsTime()
		if !ok {
			continue
		}
		if !found {
			lo, hi, found = v, v, true
			continue
		}
		if l, _ := lo.AsTime(); t.Before(l) {
			lo = v
		}
		if h, _ := hi.AsTime(); t.After(h) {
			hi = v
		}
	}
	return lo.String(), hi.String(), found
}

// FormatNumber renders n with thousands separators and two decimals.
func FormatNumber(n float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", n)
}
