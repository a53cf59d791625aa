package preprocess

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(vals ...float64) []dataset.Value {
	out := make([]dataset.Value, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			out[i] = dataset.NewMissingValue()
			continue
		}
		out[i] = dataset.NewNumericValue(v)
	}
	return out
}

func str(vals ...string) []dataset.Value {
	out := make([]dataset.Value, len(vals))
	for i, v := range vals {
		out[i] = dataset.NewStringValue(v)
	}
	return out
}

func salesDataset() *dataset.Dataset {
	nan := math.NaN()
	return &dataset.Dataset{
		Filename: "sales.xlsx",
		Columns: []*dataset.Column{
			{Name: " Sales Region", Type: dataset.ColumnCategorical, Values: str("East", "West", "East", "", "East", "West")},
			{Name: "Units Sold", Type: dataset.ColumnNumeric, Values: num(1, 2, 3, 4, 10, nan)},
			{Name: "Revenue", Type: dataset.ColumnNumeric, Values: num(2, 4, 6, 8, 11, 3)},
		},
	}
}

func TestDescribeMatchesDataframeSemantics(t *testing.T) {
	s := Describe("x", []float64{1, 2, 3, 4, 10})

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 4.0, float64(s.Mean), 1e-9)
	assert.InDelta(t, 3.5355339059, float64(s.Std), 1e-9)
	assert.InDelta(t, 2.0, float64(s.Q25), 1e-9)
	assert.InDelta(t, 3.0, float64(s.Median), 1e-9)
	assert.InDelta(t, 4.0, float64(s.Q75), 1e-9)
	assert.InDelta(t, 1.6970562748, float64(s.Skew), 1e-9)
	assert.InDelta(t, 3.152, float64(s.Kurtosis), 1e-9)
	assert.InDelta(t, 2.0, s.IQR(), 1e-9)
}

func TestDescribeSmallSamplesAreUndefined(t *testing.T) {
	s := Describe("x", []float64{7})
	assert.InDelta(t, 7.0, float64(s.Mean), 1e-9)
	assert.False(t, s.Std.Valid())
	assert.False(t, s.Skew.Valid())

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"std":null`)
}

func TestLinearPercentile(t *testing.T) {
	p, err := LinearPercentile([]float64{4, 1, 3, 2}, 25)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, p, 1e-9)

	_, err = LinearPercentile(nil, 50)
	assert.Error(t, err)
}

func TestBasicStatsAndDuplicates(t *testing.T) {
	ds := salesDataset()
	ds.Columns[0].Values = append(ds.Columns[0].Values, dataset.NewStringValue("East"))
	ds.Columns[1].Values = append(ds.Columns[1].Values, dataset.NewNumericValue(1))
	ds.Columns[2].Values = append(ds.Columns[2].Values, dataset.NewNumericValue(2))

	basic := GetBasicStats(ds)
	assert.Equal(t, 7, basic.TotalRows)
	assert.Equal(t, 3, basic.TotalColumns)
	assert.Equal(t, 2, basic.MissingValues)
	assert.Equal(t, 1, basic.DuplicateRows)
	assert.Equal(t, 2, basic.ColumnTypes["numeric"])
	assert.True(t, strings.HasSuffix(basic.MemoryUsage, " MB"))
}

func TestQualityMetrics(t *testing.T) {
	quality := GetQualityMetrics(salesDataset())
	require.Len(t, quality, 3)

	units := quality[1]
	assert.Equal(t, 1, units.MissingValues)
	assert.InDelta(t, 16.67, units.MissingPercentage, 1e-9)
	assert.Equal(t, 5, units.UniqueValues)
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, units.SampleValues)
	require.NotNil(t, units.Mean)
	assert.InDelta(t, 4.0, float64(*units.Mean), 1e-9)

	assert.Nil(t, quality[0].Mean)
	assert.Equal(t, []interface{}{"East", "West", "East"}, quality[0].SampleValues)
}

func TestDetailedStatsRequiresNumericColumns(t *testing.T) {
	ds := &dataset.Dataset{Columns: []*dataset.Column{{Name: "a", Type: dataset.ColumnString, Values: str("x")}}}
	_, err := GetDetailedStats(ds)
	assert.True(t, errors.Is(err, core.ErrNoNumericColumns))

	stats, err := GetDetailedStats(salesDataset())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Units Sold", stats[0].Column)
	assert.Equal(t, 5, stats[0].Count)
}

func TestBuildProfile(t *testing.T) {
	profile, err := BuildProfile(context.Background(), salesDataset())
	require.NoError(t, err)

	assert.Len(t, profile.Quality, 3)
	assert.Len(t, profile.Numeric, 2)
	assert.Equal(t, "Revenue", profile.Numeric[1].Column)
	assert.Equal(t, "Units Sold", profile.Quality[1].Column)
}

func TestCorrelations(t *testing.T) {
	ds := &dataset.Dataset{Columns: []*dataset.Column{
		{Name: "a", Type: dataset.ColumnNumeric, Values: num(1, 2, 3, 4, 5)},
		{Name: "b", Type: dataset.ColumnNumeric, Values: num(2, 4, 6, 8, 11)},
		{Name: "c", Type: dataset.ColumnNumeric, Values: num(5, 4, 3, 2, 1)},
		{Name: "flat", Type: dataset.ColumnNumeric, Values: num(1, 1, 1, 1, 1)},
	}}

	m, err := GetCorrelations(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "flat"}, m.Columns)
	assert.InDelta(t, 1.0, float64(m.Values[0][0]), 1e-12)
	assert.InDelta(t, 0.9958932065, float64(m.Values[0][1]), 1e-9)
	assert.InDelta(t, -1.0, float64(m.Values[0][2]), 1e-9)
	assert.Equal(t, m.Values[0][1], m.Values[1][0])
	assert.False(t, m.Values[0][3].Valid())

	pairs := m.StrongestPairs(0.9)
	require.Len(t, pairs, 3)
	assert.Equal(t, "a", pairs[0].A)
	assert.Equal(t, "c", pairs[0].B)

	_, err = GetCorrelations(&dataset.Dataset{})
	assert.ErrorIs(t, err, core.ErrNoNumericColumns)
}

func TestCleanColumnNames(t *testing.T) {
	ds := salesDataset()
	ds.Columns = append(ds.Columns, &dataset.Column{Name: "sales region", Type: dataset.ColumnString, Values: str("a", "b", "c", "d", "e", "f")})

	renamed := CleanColumnNames(ds)

	assert.Equal(t, []string{"sales_region", "units_sold", "revenue", "sales_region_2"}, ds.ColumnNames())
	assert.Equal(t, "sales_region", renamed[" Sales Region"])
	assert.Len(t, renamed, 4)
}

func TestHandleMissingStrategies(t *testing.T) {
	t.Run("mean", func(t *testing.T) {
		ds := salesDataset()
		report, err := HandleMissing(ds, StrategyMean)
		require.NoError(t, err)
		units, _ := ds.Column("Units Sold")
		assert.InDelta(t, 4.0, units.Values[5].AsFloat64(), 1e-9)
		assert.Equal(t, map[string]int{"Units Sold": 1}, report.Filled)
		assert.Equal(t, 1, report.Remaining, "categorical gaps are left alone")
	})

	t.Run("median", func(t *testing.T) {
		ds := salesDataset()
		_, err := HandleMissing(ds, StrategyMedian)
		require.NoError(t, err)
		units, _ := ds.Column("Units Sold")
		assert.InDelta(t, 3.0, units.Values[5].AsFloat64(), 1e-9)
	})

	t.Run("mode", func(t *testing.T) {
		ds := salesDataset()
		report, err := HandleMissing(ds, StrategyMode)
		require.NoError(t, err)
		region := ds.Columns[0]
		assert.Equal(t, "East", region.Values[3].String())
		units, _ := ds.Column("Units Sold")
		assert.InDelta(t, 1.0, units.Values[5].AsFloat64(), 1e-9, "all-unique column fills with its smallest value")
		assert.Equal(t, 0, report.Remaining)
	})

	t.Run("mode ties pick the smallest value", func(t *testing.T) {
		ds := &dataset.Dataset{Columns: []*dataset.Column{
			{Name: "grade", Type: dataset.ColumnCategorical, Values: str("b", "a", "b", "a", "")},
			{Name: "score", Type: dataset.ColumnNumeric, Values: num(7, 3, 7, 3, math.NaN())},
		}}
		_, err := HandleMissing(ds, StrategyMode)
		require.NoError(t, err)
		assert.Equal(t, "a", ds.Columns[0].Values[4].String())
		assert.InDelta(t, 3.0, ds.Columns[1].Values[4].AsFloat64(), 1e-9)
	})

	t.Run("drop", func(t *testing.T) {
		ds := salesDataset()
		report, err := HandleMissing(ds, StrategyDrop)
		require.NoError(t, err)
		assert.Equal(t, 4, ds.RowCount())
		assert.Equal(t, 2, report.RowsDropped)
		assert.Equal(t, 0, report.Remaining)
	})

	_, err := ParseStrategy("interpolate")
	assert.ErrorIs(t, err, core.ErrInvalidStrategy)
	st, err := ParseStrategy(" Median ")
	require.NoError(t, err)
	assert.Equal(t, StrategyMedian, st)
}

func TestDatasetTextAndSummary(t *testing.T) {
	ds := salesDataset()
	text := DatasetText(ds)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Row 1:  Sales Region: East, Units Sold: 1, Revenue: 2", lines[1])
	assert.Equal(t, "Row 4: Units Sold: 4, Revenue: 8", lines[4])

	summary := SchemaSummary(ds)
	assert.Contains(t, summary, "The dataset has 6 rows and 3 columns.")
	assert.Contains(t, summary, "- Revenue (numeric, min 2.00, mean 5.67, max 11.00, sum 34.00)")
	assert.Contains(t, summary, "top: East (3), West (2)")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatNumber(1234567.891))
	assert.Equal(t, "-1,000.00", FormatNumber(-1000))
	assert.Equal(t, "12.50", FormatNumber(12.5))
	assert.Equal(t, "0.00", FormatNumber(0))
	assert.Equal(t, "999.99", FormatNumber(999.994))
}
