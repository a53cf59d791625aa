// Package visualization turns dataset selections into render-ready chart
// specifications. It computes every number a chart needs; drawing is left
// to the client.
package visualization

import (
	"fmt"
	"strings"

	"excelinsights/adapters/coercer"
	"excelinsights/domain/chart"
	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
)

var (
	salesTerms = []string{"sale", "amount", "revenue", "total"}
	dateTerms  = []string{"date", "time", "day", "month", "year"}
)

// DefaultBins is the histogram bin count used when a request does not set one.
const DefaultBins = 30

// ChartRequest selects columns and a chart type.
type ChartRequest struct {
	Type        string `json:"type" validate:"required"`
	X           string `json:"x,omitempty"`
	Y           string `json:"y,omitempty"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	Aggregation string `json:"aggregation,omitempty"`
	Limit       int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	Sort        string `json:"sort,omitempty" validate:"omitempty,oneof=value_desc value_asc label_asc label_desc chronological none"`
	Title       string `json:"title,omitempty"`
	Bins        int    `json:"bins,omitempty" validate:"gte=0,lte=200"`
}

// Builder builds charts over one dataset. It is not safe for concurrent use
// with mutations of the dataset.
type Builder struct {
	ds          *dataset.Dataset
	salesColumn string
	dateColumns []string
	dates       *coercer.TypeCoercer
}

// NewBuilder detects the sales and date columns of ds.
func NewBuilder(ds *dataset.Dataset) *Builder {
	b := &Builder{ds: ds, dates: coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())}
	for _, name := range ds.ColumnNames() {
		lower := strings.ToLower(name)
		if b.salesColumn == "" && containsAny(lower, salesTerms) {
			b.salesColumn = name
		}
		if containsAny(lower, dateTerms) {
			b.dateColumns = append(b.dateColumns, name)
		}
	}
	return b
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// SalesColumn returns the detected sales amount column, if any.
func (b *Builder) SalesColumn() (string, bool) {
	return b.salesColumn, b.salesColumn != ""
}

// DateColumns returns the columns whose names look like dates.
func (b *Builder) DateColumns() []string {
	return b.dateColumns
}

// Build compiles a chart request into a spec.
func (b *Builder) Build(req ChartRequest) (*chart.Spec, error) {
	t, ok := chart.ParseType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedChart, req.Type)
	}
	agg, ok := ParseAggregation(req.Aggregation)
	if !ok {
		return nil, fmt.Errorf("%w: unknown aggregation %q", core.ErrUnsupportedChart, req.Aggregation)
	}

	var (
		spec *chart.Spec
		err  error
	)
	switch t {
	case chart.Bar, chart.HBar, chart.Line, chart.Area, chart.Pie:
		spec, err = b.categorical(t, req, agg)
	case chart.Scatter:
		spec, err = b.Scatter(req.X, req.Y)
	case chart.Bubble:
		spec, err = b.Bubble(req.X, req.Y, req.Size, req.Color)
	case chart.Histogram:
		spec, err = b.Histogram(req.X, req.Bins)
	case chart.Box:
		spec, err = b.BoxPlot(splitColumns(req.X)...)
	case chart.Heatmap:
		spec, err = b.CorrelationHeatmap()
	}
	if err != nil {
		return nil, err
	}
	if req.Title != "" {
		spec.Title = req.Title
	}
	return spec, nil
}

func splitColumns(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// categorical builds bar-like charts. Without a Y column the chart counts
// rows per X value. With agg none every row becomes a point.
func (b *Builder) categorical(t chart.Type, req ChartRequest, agg Aggregation) (*chart.Spec, error) {
	x, err := b.column(req.X)
	if err != nil {
		return nil, err
	}
	var y *dataset.Column
	if req.Y != "" {
		if y, err = b.numericColumn(req.Y); err != nil {
			return nil, err
		}
	}
	if agg == "" {
		agg = AggSum
		if y == nil {
			agg = AggCount
		}
	}

	sortBy := req.Sort
	if sortBy == "" {
		sortBy = "value_desc"
		if x.Type == dataset.ColumnTimestamp || t == chart.Line || t == chart.Area {
			sortBy = "chronological"
		}
	}

	var groups []Group
	if agg == AggNone {
		if y == nil {
			return nil, fmt.Errorf("%w: aggregation none needs a y column", core.ErrInsufficientData)
		}
		groups = rowGroups(x, y)
		SortGroups(groups, sortBy)
		if req.Limit > 0 && len(groups) > req.Limit {
			groups = groups[:req.Limit]
		}
	} else {
		groups = GroupAndAggregate(x, y, agg, sortBy, req.Limit)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: column %s has no values", core.ErrInsufficientData, x.Name)
	}

	yLabel := "Count"
	seriesName := "Count"
	if y != nil {
		yLabel = y.Name
		seriesName = y.Name
		if agg != AggNone && agg != AggCount {
			yLabel = fmt.Sprintf("%s of %s", aggregationLabel(agg), y.Name)
		}
	}

	spec := &chart.Spec{
		Type:       t,
		Title:      defaultTitle(yLabel, x.Name),
		XAxis:      x.Name,
		YAxis:      yLabel,
		Series:     buildSingleSeries(groups, seriesName),
		ShowLegend: true,
		ShowGrid:   t != chart.Pie,
	}
	if t == chart.Pie {
		spec.Colors = assignColors(len(groups))
	} else {
		spec.Colors = assignColors(len(spec.Series))
	}
	return spec, nil
}

func rowGroups(x, y *dataset.Column) []Group {
	var groups []Group
	for i, v := range x.Values {
		if v.IsMissing || !y.Values[i].IsNumeric() {
			continue
		}
		g := Group{Key: v.String(), Label: v.String(), Value: y.Values[i].AsFloat64(), Count: 1, Order: float64(i)}
		if t, ok := v.AsTime(); ok {
			g.Order = float64(t.Unix())
		}
		groups = append(groups, g)
	}
	return groups
}

func aggregationLabel(agg Aggregation) string {
	switch agg {
	case AggAvg:
		return "Average"
	case AggMin:
		return "Minimum"
	case AggMax:
		return "Maximum"
	default:
		return "Total"
	}
}

func defaultTitle(measure, dimension string) string {
	return fmt.Sprintf("%s by %s", measure, dimension)
}

func (b *Builder) column(name string) (*dataset.Column, error) {
	if strings.TrimSpace(name) == "" {
		return nil, core.NewValidationError("column", "a column name is required")
	}
	c, ok := b.ds.Column(name)
	if !ok {
		return nil, core.NewColumnNotFoundError(name)
	}
	return c, nil
}

func (b *Builder) numericColumn(name string) (*dataset.Column, error) {
	c, err := b.column(name)
	if err != nil {
		return nil, err
	}
	if c.Type != dataset.ColumnNumeric {
		return nil, fmt.Errorf("%w: %s is %s", core.ErrNotNumeric, c.Name, c.Type)
	}
	return c, nil
}

// columnFold finds a column by case-insensitive name.
func (b *Builder) columnFold(name string) (*dataset.Column, bool) {
	if c, ok := b.ds.Column(name); ok {
		return c, true
	}
	for _, c := range b.ds.Columns {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return c, true
		}
	}
	return nil, false
}
