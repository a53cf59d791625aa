package preprocess

import (
	"math"
	"sort"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"

	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix holds pairwise Pearson correlations between numeric
// columns. Undefined correlations (constant column, fewer than two
// complete pairs) are NaN and encode as null.
type CorrelationMatrix struct {
	Columns []string   `json:"columns"`
	Values  [][]Number `json:"values"`
}

// CorrelationPair is one off-diagonal entry of the matrix.
type CorrelationPair struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Coefficient float64 `json:"coefficient"`
}

// GetCorrelations computes the correlation matrix over pairwise-complete
// observations of every numeric column.
func GetCorrelations(ds *dataset.Dataset) (*CorrelationMatrix, error) {
	numeric := ds.NumericColumns()
	if len(numeric) == 0 {
		return nil, core.ErrNoNumericColumns
	}

	m := &CorrelationMatrix{
		Columns: make([]string, len(numeric)),
		Values:  make([][]Number, len(numeric)),
	}
	for i, c := range numeric {
		m.Columns[i] = c.Name
		m.Values[i] = make([]Number, len(numeric))
	}

	for i := range numeric {
		for j := i; j < len(numeric); j++ {
			r := pairwiseCorrelation(numeric[i], numeric[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			m.Values[i][j] = Number(r)
			m.Values[j][i] = Number(r)
		}
	}
	return m, nil
}

func pairwiseCorrelation(a, b *dataset.Column) float64 {
	x := make([]float64, 0, len(a.Values))
	y := make([]float64, 0, len(a.Values))
	for i := range a.Values {
		if a.Values[i].IsNumeric() && b.Values[i].IsNumeric() {
			x = append(x, a.Values[i].AsFloat64())
			y = append(y, b.Values[i].AsFloat64())
		}
	}
	if len(x) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

// StrongestPairs returns the off-diagonal pairs with |r| >= threshold,
// strongest first.
func (m *CorrelationMatrix) StrongestPairs(threshold float64) []CorrelationPair {
	var pairs []CorrelationPair
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			r := float64(m.Values[i][j])
			if math.IsNaN(r) || math.Abs(r) < threshold {
				continue
			}
			pairs = append(pairs, CorrelationPair{A: m.Columns[i], B: m.Columns[j], Coefficient: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Coefficient) > math.Abs(pairs[j].Coefficient)
	})
	return pairs
}
