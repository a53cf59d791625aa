package preprocess

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Number is a float64 that encodes NaN and infinities as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Valid reports whether n is a finite number.
func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// NumericSummary holds describe() statistics of one numeric column
type NumericSummary struct {
	Column   string `json:"column"`
	Count    int    `json:"count"`
	Mean     Number `json:"mean"`
	Std      Number `json:"std"`
	Min      Number `json:"min"`
	Q25      Number `json:"25%"`
	Median   Number `json:"50%"`
	Q75      Number `json:"75%"`
	Max      Number `json:"max"`
	Skew     Number `json:"skew"`
	Kurtosis Number `json:"kurtosis"`
}

// IQR returns the interquartile range.
func (s NumericSummary) IQR() float64 {
	return float64(s.Q75 - s.Q25)
}

var quartiles = []float64{25, 50, 75}

// Describe summarizes values the way a dataframe describe() does: sample
// standard deviation, linearly interpolated quartiles, bias-corrected
// skew and excess kurtosis. Statistics undefined for the sample size are NaN.
func Describe(column string, values []float64) NumericSummary {
	nan := Number(math.NaN())
	summary := NumericSummary{Column: column, Count: len(values), Mean: nan, Std: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan, Skew: nan, Kurtosis: nan}
	if len(values) == 0 {
		return summary
	}

	desc, err := stats.DescribePercentileFunc(values, false, &quartiles, LinearPercentile)
	if err != nil {
		return summary
	}
	summary.Mean = Number(desc.Mean)
	summary.Min = Number(desc.Min)
	summary.Max = Number(desc.Max)
	for _, p := range desc.DescriptionPercentiles {
		switch p.Percentile {
		case 25:
			summary.Q25 = Number(p.Value)
		case 50:
			summary.Median = Number(p.Value)
		case 75:
			summary.Q75 = Number(p.Value)
		}
	}

	if len(values) > 1 {
		std, _ := stats.StandardDeviationSample(values)
		summary.Std = Number(std)
	}
	if len(values) > 2 && summary.Std > 0 {
		summary.Skew = Number(stat.Skew(values, nil))
	}
	if len(values) > 3 && summary.Std > 0 {
		summary.Kurtosis = Number(stat.ExKurtosis(values, nil))
	}
	return summary
}

// LinearPercentile computes the percentile (0-100) by linear interpolation
// between closest ranks, h = (n-1)p.
func LinearPercentile(input stats.Float64Data, percent float64) (float64, error) {
	if input.Len() == 0 {
		return math.NaN(), stats.ErrEmptyInput
	}
	if percent < 0 || percent > 100 {
		return math.NaN(), stats.ErrBounds
	}
	sorted := make([]float64, input.Len())
	copy(sorted, input)
	sort.Float64s(sorted)

	h := (float64(len(sorted)) - 1) * percent / 100
	lo := math.Floor(h)
	hi := math.Ceil(h)
	if lo == hi {
		return sorted[int(lo)], nil
	}
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)]), nil
}

// OutlierBounds returns the 1.5*IQR fences and the values outside them.
func OutlierBounds(values []float64) (lower, upper float64, outliers []float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN(), nil
	}
	q1, _ := LinearPercentile(values, 25)
	q3, _ := LinearPercentile(values, 75)
	iqr := q3 - q1
	lower, upper = q1-1.5*iqr, q3+1.5*iqr
	for _, v := range values {
		if v < lower || v > upper {
			outliers = append(outliers, v)
		}
	}
	return lower, upper, outliers
}
