package preprocess

import (
	"fmt"
	"strings"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"

	"github.com/montanaflynn/stats"
)

// Strategy is a missing-value handling strategy
type Strategy string

const (
	StrategyMean   Strategy = "mean"
	StrategyMedian Strategy = "median"
	StrategyMode   Strategy = "mode"
	StrategyDrop   Strategy = "drop"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyMean, StrategyMedian, StrategyMode, StrategyDrop:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q (expected mean, median, mode or drop)", core.ErrInvalidStrategy, s)
}

// MissingReport describes what HandleMissing changed.
type MissingReport struct {
	Strategy    Strategy       `json:"strategy"`
	Filled      map[string]int `json:"filled,omitempty"`
	RowsDropped int            `json:"rows_dropped"`
	RowsBefore  int            `json:"rows_before"`
	RowsAfter   int            `json:"rows_after"`
	Remaining   int            `json:"remaining_missing"`
}

// CleanColumnNames trims, lower-cases and replaces spaces with underscores
// in every column name, keeping names unique. It returns old name -> new
// name for the columns that changed.
func CleanColumnNames(ds *dataset.Dataset) map[string]string {
	renamed := make(map[string]string)
	seen := make(map[string]bool, len(ds.Columns))
	for _, c := range ds.Columns {
		base := CleanName(c.Name)
		if base == "" {
			base = "column"
		}
		name := base
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		if name != c.Name {
			renamed[c.Name] = name
			c.Name = name
		}
	}
	return renamed
}

// CleanName normalizes a single column name.
func CleanName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// HandleMissing fills or drops missing values in place. mean and median
// fill numeric columns only; mode fills every column with its most frequent
// value (ties go to the value seen first); drop removes rows with any
// missing cell.
func HandleMissing(ds *dataset.Dataset, strategy Strategy) (*MissingReport, error) {
	report := &MissingReport{Strategy: strategy, RowsBefore: ds.RowCount(), Filled: make(map[string]int)}

	switch strategy {
	case StrategyMean, StrategyMedian:
		for _, c := range ds.NumericColumns() {
			values := c.Floats()
			if len(values) == 0 {
				continue
			}
			var fill float64
			var err error
			if strategy == StrategyMean {
				fill, err = stats.Mean(values)
			} else {
				fill, err = stats.Median(values)
			}
			if err != nil {
				return nil, fmt.Errorf("computing %s of %s: %w", strategy, c.Name, err)
			}
			report.Filled[c.Name] = fillColumn(c, dataset.NewNumericValue(fill))
		}
	case StrategyMode:
		for _, c := range ds.Columns {
			mode, ok := c.Mode()
			if !ok {
				continue
			}
			report.Filled[c.Name] = fillColumn(c, mode)
		}
	case StrategyDrop:
		keep := make([]bool, ds.RowCount())
		for i := range keep {
			keep[i] = true
			for _, c := range ds.Columns {
				if c.Values[i].IsMissing {
					keep[i] = false
					break
				}
			}
		}
		ds.KeepRows(keep)
		report.RowsDropped = report.RowsBefore - ds.RowCount()
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidStrategy, strategy)
	}

	for name, n := range report.Filled {
		if n == 0 {
			delete(report.Filled, name)
		}
	}
	report.RowsAfter = ds.RowCount()
	for _, c := range ds.Columns {
		report.Remaining += c.MissingCount()
	}
	return report, nil
}

func fillColumn(c *dataset.Column, fill dataset.Value) int {
	n := 0
	for i, v := range c.Values {
		if v.IsMissing {
			c.Values[i] = fill
			n++
		}
	}
	return n
}
