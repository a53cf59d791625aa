package coercer

import (
	"testing"
	"time"

	"excelinsights/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceValueNumericFormats(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	tests := []struct {
		input    string
		expected float64
	}{
		{"42", 42},
		{" 3.5 ", 3.5},
		{"$1,234.50", 1234.5},
		{"1.234,56", 1234.56},
		{"1 234,56", 1234.56},
		{"(250)", -250},
		{"3,5", 3.5},
		{"12,345,678", 12345678},
		{"15%", 0.15},
		{"€ 99", 99},
		{"1e3", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v := c.CoerceValue(tt.input)
			require.True(t, v.IsNumeric(), "expected %q to be numeric, got %s", tt.input, v.Type)
			assert.InDelta(t, tt.expected, v.AsFloat64(), 1e-9)
		})
	}
}

func TestCoerceValueOtherTypes(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	assert.True(t, c.CoerceValue("yes").IsBoolean())
	assert.True(t, c.CoerceValue("FALSE").IsBoolean())

	ts := c.CoerceValue("2024-02-29")
	require.True(t, ts.IsTimestamp())
	got, _ := ts.AsTime()
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	assert.True(t, c.CoerceValue("03/15/2023").IsTimestamp())
	assert.True(t, c.CoerceValue("   ").IsMissing)

	s := c.CoerceValue("  North   East ")
	require.True(t, s.IsString())
	assert.Equal(t, "North East", s.String())
}

func TestCoerceAsMarksUnparseableMissing(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	assert.True(t, c.CoerceAs("N/A", dataset.ColumnNumeric).IsMissing)
	assert.True(t, c.CoerceAs("maybe", dataset.ColumnBoolean).IsMissing)
	assert.True(t, c.CoerceAs("soon", dataset.ColumnTimestamp).IsMissing)
	assert.Equal(t, "42", c.CoerceAs("42", dataset.ColumnCategorical).String())
}

func TestInferColumnType(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	repeat := func(values []string, n int) []string {
		out := make([]string, 0, len(values)*n)
		for i := 0; i < n; i++ {
			out = append(out, values...)
		}
		return out
	}

	numeric := []string{"1", "2", "3", "4", "x", "6", "7", "8", "9", "10"}
	assert.Equal(t, dataset.ColumnNumeric, c.InferColumnType(numeric))

	booleans := []string{"yes", "no", "yes", "", "no"}
	assert.Equal(t, dataset.ColumnBoolean, c.InferColumnType(booleans))

	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	assert.Equal(t, dataset.ColumnTimestamp, c.InferColumnType(dates))

	regions := repeat([]string{"East", "West", "North", "South"}, 25)
	assert.Equal(t, dataset.ColumnCategorical, c.InferColumnType(regions))

	names := []string{"alice", "bob", "carol", "dave"}
	assert.Equal(t, dataset.ColumnString, c.InferColumnType(names))

	assert.Equal(t, dataset.ColumnString, c.InferColumnType([]string{"", ""}))
}

func TestInferWithHintsPrefersNativeDates(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	analysis := c.AnalyzeTypeDistribution([]string{"45292", "45293", "45294"})
	require.Equal(t, dataset.ColumnNumeric, analysis.RecommendedType)

	got := c.InferWithHints(analysis, CellHints{Total: 3, Date: 3})
	assert.Equal(t, dataset.ColumnTimestamp, got)

	assert.Equal(t, dataset.ColumnNumeric, c.InferWithHints(analysis, CellHints{}))
}

func TestStratifiedSample(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, StratifiedSample(3, 10))

	idx := StratifiedSample(1000, 100)
	assert.Len(t, idx, 100)
	assert.Equal(t, 0, idx[0])
	assert.Equal(t, 990, idx[99])
}
