package rag

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"excelinsights/domain/dataset"
	"excelinsights/internal/preprocess"
)

// HelpMessage is returned when a question matches no known keyword.
const HelpMessage = "I can help you analyze your data. Try asking about totals, averages, counts, or columns."

// HeuristicAnswer answers simple questions from the table alone. Keywords
// are checked in order: total, average/mean, count, columns. A numeric
// column named in the question is used in place of the first numeric column.
func HeuristicAnswer(ds *dataset.Dataset, question string) string {
	q := strings.ToLower(question)
	target := targetColumn(ds, q)

	switch {
	case strings.Contains(q, "total"):
		if target != nil {
			return fmt.Sprintf("The total for %s is %s", target.Name, preprocess.FormatNumber(preprocess.Sum(target)))
		}
	case strings.Contains(q, "average"), strings.Contains(q, "mean"):
		if target != nil {
			return fmt.Sprintf("The average for %s is %s", target.Name, preprocess.FormatNumber(preprocess.Mean(target)))
		}
	case strings.Contains(q, "count"):
		return fmt.Sprintf("The total number of records is %d", ds.RowCount())
	case strings.Contains(q, "columns"):
		return fmt.Sprintf("The columns in the dataset are: %s", strings.Join(ds.ColumnNames(), ", "))
	}
	return HelpMessage
}

// targetColumn picks the numeric column with the longest name mentioned in
// q, falling back to the first numeric column.
func targetColumn(ds *dataset.Dataset, q string) *dataset.Column {
	numeric := ds.NumericColumns()
	if len(numeric) == 0 {
		return nil
	}
	var best *dataset.Column
	for _, c := range numeric {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || !strings.Contains(q, name) {
			continue
		}
		if best == nil || len(name) > len(strings.TrimSpace(best.Name)) {
			best = c
		}
	}
	if best != nil {
		return best
	}
	return numeric[0]
}

// heuristicInsights composes a report from the statistics of ds.
func heuristicInsights(ds *dataset.Dataset) []string {
	var lines []string
	lines = append(lines, fmt.Sprintf("The dataset has %d rows and %d columns.", ds.RowCount(), ds.ColumnCount()))

	if m, err := preprocess.GetCorrelations(ds); err == nil {
		pairs := m.StrongestPairs(0.7)
		if len(pairs) > 3 {
			pairs = pairs[:3]
		}
		for _, p := range pairs {
			direction := "positive"
			if p.Coefficient < 0 {
				direction = "negative"
			}
			lines = append(lines, fmt.Sprintf("Strong %s correlation between %s and %s (r = %.2f).", direction, p.A, p.B, p.Coefficient))
		}
	}

	for _, c := range ds.NumericColumns() {
		values := c.Floats()
		if len(values) < 4 {
			continue
		}
		lower, upper, outliers := preprocess.OutlierBounds(values)
		if len(outliers) > 0 {
			lines = append(lines, fmt.Sprintf("%s has %d outlier(s) outside [%s, %s].",
				c.Name, len(outliers), preprocess.FormatNumber(lower), preprocess.FormatNumber(upper)))
		}
		s := preprocess.Describe(c.Name, values)
		if s.Skew.Valid() && math.Abs(float64(s.Skew)) > 1 {
			shape := "right-skewed"
			if s.Skew < 0 {
				shape = "left-skewed"
			}
			lines = append(lines, fmt.Sprintf("%s is %s (skew %.2f); the median (%s) is more representative than the mean (%s).",
				c.Name, shape, float64(s.Skew), preprocess.FormatNumber(float64(s.Median)), preprocess.FormatNumber(float64(s.Mean))))
		}
	}

	type gap struct {
		name string
		pct  float64
	}
	var gaps []gap
	for _, q := range preprocess.GetQualityMetrics(ds) {
		if q.MissingValues > 0 {
			gaps = append(gaps, gap{q.Column, q.MissingPercentage})
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].pct > gaps[j].pct })
	for _, g := range gaps {
		lines = append(lines, fmt.Sprintf("%s is %.2f%% missing; consider filling or dropping those rows.", g.name, g.pct))
	}

	if dups := preprocess.DuplicateRows(ds); dups > 0 {
		lines = append(lines, fmt.Sprintf("%d duplicate rows found.", dups))
	}
	return lines
}

// columnSummary returns describe() figures for a column and the text used
// in prompts.
func columnSummary(c *dataset.Column, rows int) (map[string]float64, string) {
	summary := map[string]float64{
		"count":   float64(rows - c.MissingCount()),
		"missing": float64(c.MissingCount()),
		"unique":  float64(c.UniqueCount()),
	}
	var b strings.Builder
	fmt.Fprintf(&b, "count    %d\n", rows-c.MissingCount())

	if c.Type == dataset.ColumnNumeric {
		s := preprocess.Describe(c.Name, c.Floats())
		for _, f := range []struct {
			key string
			n   preprocess.Number
		}{
			{"mean", s.Mean}, {"std", s.Std}, {"min", s.Min}, {"25%", s.Q25},
			{"50%", s.Median}, {"75%", s.Q75}, {"max", s.Max}, {"skew", s.Skew},
		} {
			if !f.n.Valid() {
				continue
			}
			summary[f.key] = float64(f.n)
			fmt.Fprintf(&b, "%-8s %g\n", f.key, float64(f.n))
		}
		return summary, b.String()
	}

	counts := c.ValueCounts()
	fmt.Fprintf(&b, "unique   %d\n", len(counts))
	if len(counts) > 0 {
		fmt.Fprintf(&b, "top      %s\nfreq     %d\n", counts[0].Value.String(), counts[0].Count)
		summary["freq"] = float64(counts[0].Count)
	}
	return summary, b.String()
}

// heuristicColumnAnalysis describes a column without a model.
func heuristicColumnAnalysis(c *dataset.Column, rows int) string {
	var parts []string
	missing := c.MissingCount()
	if c.Type == dataset.ColumnNumeric {
		s := preprocess.Describe(c.Name, c.Floats())
		if s.Count == 0 {
			return fmt.Sprintf("%s has no numeric values.", c.Name)
		}
		parts = append(parts, fmt.Sprintf("%s ranges from %s to %s with a mean of %s and a median of %s.",
			c.Name, preprocess.FormatNumber(float64(s.Min)), preprocess.FormatNumber(float64(s.Max)),
			preprocess.FormatNumber(float64(s.Mean)), preprocess.FormatNumber(float64(s.Median))))
		if _, _, outliers := preprocess.OutlierBounds(c.Floats()); len(outliers) > 0 {
			parts = append(parts, fmt.Sprintf("%d value(s) fall outside the 1.5 IQR fences.", len(outliers)))
		}
	} else {
		counts := c.ValueCounts()
		if len(counts) == 0 {
			return fmt.Sprintf("%s has no values.", c.Name)
		}
		parts = append(parts, fmt.Sprintf("%s has %d distinct values; the most frequent is %s (%d rows).",
			c.Name, len(counts), counts[0].Value.String(), counts[0].Count))
	}
	if missing > 0 {
		parts = append(parts, fmt.Sprintf("%d of %d values are missing; fill them or drop the affected rows before analysis.", missing, rows))
	} else {
		parts = append(parts, "There are no missing values.")
	}
	return strings.Join(parts, " ")
}
