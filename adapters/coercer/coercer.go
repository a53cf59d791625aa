package coercer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"excelinsights/domain/dataset"
)

// TypeCoercer handles deterministic type coercion of raw cell text
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold   float64 `json:"numeric_threshold"`   // share of values that must parse as numbers
	BooleanThreshold   float64 `json:"boolean_threshold"`   // share of values that must parse as booleans
	TimestampThreshold float64 `json:"timestamp_threshold"` // share of values that must parse as timestamps
	CategoricalRatio   float64 `json:"categorical_ratio"`   // unique/valid ratio below which text is categorical
	MaxCategories      int     `json:"max_categories"`      // max distinct values of a categorical column
	SampleSize         int     `json:"sample_size"`
	NormalizeStrings   bool    `json:"normalize_strings"` // lower-case strings in addition to trimming
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.8,
		BooleanThreshold:   0.9,
		TimestampThreshold: 0.8,
		CategoricalRatio:   0.1,
		MaxCategories:      20,
		SampleSize:         500,
		NormalizeStrings:   false,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// Config returns the coercer's configuration.
func (c *TypeCoercer) Config() CoercionConfig {
	return c.config
}

var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01-02-06",
	"1/2/06",
	"1/2/06 15:04",
	"Jan-06",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CoerceValue converts raw text to the most specific Value it parses as.
func (c *TypeCoercer) CoerceValue(raw string) dataset.Value {
	if v, ok := c.tryParseNumeric(raw); ok {
		return v
	}
	if v, ok := c.tryParseBoolean(raw); ok {
		return v
	}
	if v, ok := c.tryParseTimestamp(raw); ok {
		return v
	}
	return c.coerceToString(raw)
}

// CoerceAs converts raw text to a Value of the column's type. Text that does
// not parse as the column type becomes missing, except for string and
// categorical columns which keep the text.
func (c *TypeCoercer) CoerceAs(raw string, t dataset.ColumnType) dataset.Value {
	if strings.TrimSpace(raw) == "" {
		return dataset.NewMissingValue()
	}
	switch t {
	case dataset.ColumnNumeric:
		if v, ok := c.tryParseNumeric(raw); ok {
			return v
		}
		return dataset.NewMissingValue()
	case dataset.ColumnBoolean:
		if v, ok := c.tryParseBoolean(raw); ok {
			return v
		}
		return dataset.NewMissingValue()
	case dataset.ColumnTimestamp:
		if v, ok := c.tryParseTimestamp(raw); ok {
			return v
		}
		return dataset.NewMissingValue()
	}
	return c.coerceToString(raw)
}

// AnalyzeTypeDistribution counts how many non-blank values parse as each type
func (c *TypeCoercer) AnalyzeTypeDistribution(values []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}
	unique := make(map[string]struct{})

	for _, val := range values {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		analysis.ValidCount++
		unique[val] = struct{}{}

		if _, ok := c.tryParseNumeric(val); ok {
			analysis.NumericCount++
		}
		if _, ok := c.tryParseBoolean(val); ok {
			analysis.BooleanCount++
		}
		if _, ok := c.tryParseTimestamp(val); ok {
			analysis.TimestampCount++
		}
	}

	analysis.UniqueCount = len(unique)
	if analysis.ValidCount > 0 {
		valid := float64(analysis.ValidCount)
		analysis.NumericRatio = float64(analysis.NumericCount) / valid
		analysis.BooleanRatio = float64(analysis.BooleanCount) / valid
		analysis.TimestampRatio = float64(analysis.TimestampCount) / valid
	}
	analysis.RecommendedType = c.determineRecommendedType(analysis)
	return analysis
}

// InferColumnType infers the type of a column from a stratified sample of its values.
func (c *TypeCoercer) InferColumnType(values []string) dataset.ColumnType {
	sample := make([]string, 0, c.config.SampleSize)
	for _, idx := range StratifiedSample(len(values), c.config.SampleSize) {
		sample = append(sample, values[idx])
	}
	return c.AnalyzeTypeDistribution(sample).RecommendedType
}

// CellHints counts native spreadsheet cell types in a column sample.
type CellHints struct {
	Total   int
	Numeric int
	Boolean int
	Date    int
}

// InferWithHints combines a text analysis with native cell types. A native
// type that alone clears its threshold wins; otherwise native types are
// weighted at 70% against the text analysis.
func (c *TypeCoercer) InferWithHints(analysis TypeAnalysis, hints CellHints) dataset.ColumnType {
	if hints.Total == 0 {
		return analysis.RecommendedType
	}
	total := float64(hints.Total)
	nativeDate := float64(hints.Date) / total
	nativeNumeric := float64(hints.Numeric) / total
	nativeBoolean := float64(hints.Boolean) / total
	numeric := 0.7*nativeNumeric + 0.3*analysis.NumericRatio
	boolean := 0.7*nativeBoolean + 0.3*analysis.BooleanRatio
	date := 0.7*nativeDate + 0.3*analysis.TimestampRatio

	switch {
	case nativeDate >= c.config.TimestampThreshold:
		return dataset.ColumnTimestamp
	case nativeBoolean >= c.config.BooleanThreshold:
		return dataset.ColumnBoolean
	case nativeNumeric >= c.config.NumericThreshold:
		return dataset.ColumnNumeric
	}

	switch {
	case date >= c.config.TimestampThreshold:
		return dataset.ColumnTimestamp
	case numeric >= c.config.NumericThreshold:
		return dataset.ColumnNumeric
	case boolean >= c.config.BooleanThreshold:
		return dataset.ColumnBoolean
	}
	return analysis.RecommendedType
}

// coerceToString converts to a trimmed string value
func (c *TypeCoercer) coerceToString(strVal string) dataset.Value {
	strVal = c.normalizeString(strVal)
	if strVal == "" {
		return dataset.NewMissingValue()
	}
	return dataset.NewStringValue(strVal)
}

// tryParseNumeric attempts to parse as numeric with strict rules
// Handles international formats: parentheses for negatives, European decimals, currency symbols
func (c *TypeCoercer) tryParseNumeric(strVal string) (dataset.Value, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return dataset.Value{}, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)

	isPercent := strings.HasSuffix(cleanVal, "%")
	cleanVal = strings.TrimSuffix(cleanVal, "%")

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,56 or 1 234,56 when the comma comes last; 1,234.56 otherwise
		commaIdx := strings.LastIndex(cleanVal, ",")
		if commaIdx > strings.LastIndex(cleanVal, ".") {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma:
		// 1,234 and 12,345,678 are thousands groups; 3,5 is a decimal comma
		if isThousandsGrouped(cleanVal) {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		}
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return dataset.Value{}, false
	}
	if isPercent {
		val /= 100
	}
	return dataset.NewNumericValue(val), true
}

func isThousandsGrouped(s string) bool {
	s = strings.TrimPrefix(s, "-")
	groups := strings.Split(s, ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// tryParseBoolean attempts to parse as boolean with strict rules
func (c *TypeCoercer) tryParseBoolean(strVal string) (dataset.Value, bool) {
	switch strings.ToLower(strings.TrimSpace(strVal)) {
	case "true", "yes", "y", "on":
		return dataset.NewBooleanValue(true), true
	case "false", "no", "n", "off":
		return dataset.NewBooleanValue(false), true
	}
	return dataset.Value{}, false
}

// tryParseTimestamp attempts to parse as timestamp with multiple formats
func (c *TypeCoercer) tryParseTimestamp(strVal string) (dataset.Value, bool) {
	strVal = strings.TrimSpace(strVal)
	if strVal == "" {
		return dataset.Value{}, false
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, strVal); err == nil {
			return dataset.NewTimestampValue(t), true
		}
	}
	return dataset.Value{}, false
}

// ParseTimestamp exposes timestamp parsing for callers that coerce date
// columns on demand.
func (c *TypeCoercer) ParseTimestamp(strVal string) (time.Time, bool) {
	v, ok := c.tryParseTimestamp(strVal)
	if !ok {
		return time.Time{}, false
	}
	t, _ := v.AsTime()
	return t, true
}

// normalizeString trims, collapses whitespace and strips control characters
func (c *TypeCoercer) normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if c.config.NormalizeStrings {
		s = strings.ToLower(s)
	}
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// determineRecommendedType chooses the best type based on analysis
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) dataset.ColumnType {
	if analysis.ValidCount == 0 {
		return dataset.ColumnString
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		return dataset.ColumnNumeric
	}
	if analysis.BooleanRatio >= c.config.BooleanThreshold {
		return dataset.ColumnBoolean
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return dataset.ColumnTimestamp
	}
	uniqueRatio := float64(analysis.UniqueCount) / float64(analysis.ValidCount)
	if uniqueRatio < c.config.CategoricalRatio && analysis.UniqueCount <= c.config.MaxCategories {
		return dataset.ColumnCategorical
	}
	return dataset.ColumnString
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int                `json:"total_count"`
	ValidCount      int                `json:"valid_count"`
	UniqueCount     int                `json:"unique_count"`
	NumericCount    int                `json:"numeric_count"`
	BooleanCount    int                `json:"boolean_count"`
	TimestampCount  int                `json:"timestamp_count"`
	NumericRatio    float64            `json:"numeric_ratio"`
	BooleanRatio    float64            `json:"boolean_ratio"`
	TimestampRatio  float64            `json:"timestamp_ratio"`
	RecommendedType dataset.ColumnType `json:"recommended_type"`
}

// StratifiedSample returns up to sampleSize evenly spaced row indices.
func StratifiedSample(totalRows, sampleSize int) []int {
	if sampleSize <= 0 || sampleSize >= totalRows {
		indices := make([]int, totalRows)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	indices := make([]int, 0, sampleSize)
	step := float64(totalRows) / float64(sampleSize)
	last := -1
	for i := 0; i < sampleSize; i++ {
		idx := int(math.Floor(float64(i) * step))
		if idx > last && idx < totalRows {
			indices = append(indices, idx)
			last = idx
		}
	}
	return indices
}
