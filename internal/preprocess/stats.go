package preprocess

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// BasicStats is the dataset overview
type BasicStats struct {
	TotalRows     int            `json:"total_rows"`
	TotalColumns  int            `json:"total_columns"`
	MissingValues int            `json:"missing_values"`
	DuplicateRows int            `json:"duplicate_rows"`
	MemoryBytes   int64          `json:"memory_bytes"`
	MemoryUsage   string         `json:"memory_usage"`
	ColumnTypes   map[string]int `json:"column_types"`
}

// ColumnQuality holds per-column quality metrics
type ColumnQuality struct {
	Column            string        `json:"column"`
	MissingValues     int           `json:"missing_values"`
	MissingPercentage float64       `json:"missing_percentage"`
	UniqueValues      int           `json:"unique_values"`
	DataType          string        `json:"data_type"`
	SampleValues      []interface{} `json:"sample_values"`
	Mean              *Number       `json:"mean,omitempty"`
	Std               *Number       `json:"std,omitempty"`
	Min               *Number       `json:"min,omitempty"`
	Max               *Number       `json:"max,omitempty"`
}

// Profile bundles every per-dataset statistic
type Profile struct {
	Basic    BasicStats       `json:"basic"`
	Quality  []ColumnQuality  `json:"quality"`
	Numeric  []NumericSummary `json:"numeric"`
	Warnings []string         `json:"warnings,omitempty"`
}

// GetBasicStats computes the dataset overview
func GetBasicStats(ds *dataset.Dataset) BasicStats {
	basic := BasicStats{
		TotalRows:     ds.RowCount(),
		TotalColumns:  ds.ColumnCount(),
		DuplicateRows: DuplicateRows(ds),
		ColumnTypes:   make(map[string]int),
	}
	for _, c := range ds.Columns {
		basic.MissingValues += c.MissingCount()
		basic.ColumnTypes[string(c.Type)]++
	}
	basic.MemoryBytes = EstimateMemory(ds)
	basic.MemoryUsage = fmt.Sprintf("%.2f MB", float64(basic.MemoryBytes)/(1024*1024))
	return basic
}

// GetQualityMetrics computes quality metrics for every column
func GetQualityMetrics(ds *dataset.Dataset) []ColumnQuality {
	out := make([]ColumnQuality, len(ds.Columns))
	for i, c := range ds.Columns {
		out[i] = columnQuality(c, ds.RowCount())
	}
	return out
}

func columnQuality(c *dataset.Column, rows int) ColumnQuality {
	missing := c.MissingCount()
	q := ColumnQuality{
		Column:        c.Name,
		MissingValues: missing,
		UniqueValues:  c.UniqueCount(),
		DataType:      string(c.Type),
		SampleValues:  make([]interface{}, 0, 3),
	}
	if rows > 0 {
		q.MissingPercentage = math.Round(float64(missing)/float64(rows)*10000) / 100
	}
	for _, v := range c.Values {
		if len(q.SampleValues) == 3 {
			break
		}
		if !v.IsMissing {
			q.SampleValues = append(q.SampleValues, v.Interface())
		}
	}

	if c.Type == dataset.ColumnNumeric {
		s := Describe(c.Name, c.Floats())
		q.Mean, q.Std, q.Min, q.Max = &s.Mean, &s.Std, &s.Min, &s.Max
	}
	return q
}

// GetDetailedStats returns describe() statistics for every numeric column
func GetDetailedStats(ds *dataset.Dataset) ([]NumericSummary, error) {
	numeric := ds.NumericColumns()
	if len(numeric) == 0 {
		return nil, fmt.Errorf("%w, consider converting relevant columns to numeric types", core.ErrNoNumericColumns)
	}
	out := make([]NumericSummary, len(numeric))
	for i, c := range numeric {
		out[i] = Describe(c.Name, c.Floats())
	}
	return out, nil
}

// BuildProfile computes basic stats, quality metrics and numeric summaries,
// profiling columns concurrently.
func BuildProfile(ctx context.Context, ds *dataset.Dataset) (*Profile, error) {
	profile := &Profile{
		Basic:   GetBasicStats(ds),
		Quality: make([]ColumnQuality, len(ds.Columns)),
	}
	numericIdx := make(map[int]int)
	for i, c := range ds.Columns {
		if c.Type == dataset.ColumnNumeric {
			numericIdx[i] = len(numericIdx)
		}
	}
	profile.Numeric = make([]NumericSummary, len(numericIdx))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, c := range ds.Columns {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			profile.Quality[i] = columnQuality(c, ds.RowCount())
			if j, ok := numericIdx[i]; ok {
				profile.Numeric[j] = Describe(c.Name, c.Floats())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile.Warnings = qualityWarnings(profile)
	return profile, nil
}

func qualityWarnings(p *Profile) []string {
	var warnings []string
	if p.Basic.DuplicateRows > 0 {
		warnings = append(warnings, fmt.Sprintf("%d duplicate rows found", p.Basic.DuplicateRows))
	}
	for _, q := range p.Quality {
		if q.MissingPercentage >= 50 {
			warnings = append(warnings, fmt.Sprintf("column %s is %.2f%% missing", q.Column, q.MissingPercentage))
		}
		if q.UniqueValues == 1 {
			warnings = append(warnings, fmt.Sprintf("column %s has a single distinct value", q.Column))
		}
	}
	if len(p.Numeric) == 0 {
		warnings = append(warnings, "No numeric columns found in the dataset. Consider converting relevant columns to numeric types.")
	}
	return warnings
}

// DuplicateRows counts rows identical to an earlier row.
func DuplicateRows(ds *dataset.Dataset) int {
	seen := make(map[string]struct{}, ds.RowCount())
	dups := 0
	var key strings.Builder
	for i := 0; i < ds.RowCount(); i++ {
		key.Reset()
		for _, c := range ds.Columns {
			key.WriteString(c.Values[i].Key())
			key.WriteByte(0x1f)
		}
		k := key.String()
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// EstimateMemory approximates the in-memory size of the table as a
// dataframe would hold it: 8 bytes per numeric or timestamp cell, 1 per
// boolean, and object overhead plus text for strings.
func EstimateMemory(ds *dataset.Dataset) int64 {
	const indexBytes = 128
	total := int64(indexBytes)
	for _, c := range ds.Columns {
		switch c.Type {
		case dataset.ColumnNumeric, dataset.ColumnTimestamp:
			total += int64(8 * len(c.Values))
		case dataset.ColumnBoolean:
			total += int64(len(c.Values))
		default:
			for _, v := range c.Values {
				total += 8
				if !v.IsMissing {
					total += 49 + int64(len(v.String()))
				}
			}
		}
	}
	return total
}

// Sum returns the sum of a numeric column.
func Sum(c *dataset.Column) float64 {
	total, _ := stats.Sum(c.Floats())
	return total
}

// Mean returns the mean of a numeric column, NaN when it has no values.
func Mean(c *dataset.Column) float64 {
	m, err := stats.Mean(c.Floats())
	if err != nil {
		return math.NaN()
	}
	return m
}
