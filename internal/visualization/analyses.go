package visualization

import (
	"fmt"
	"math"
	"sort"
	"time"

	"excelinsights/domain/chart"
	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/internal/preprocess"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// maxBoxColumns caps the overview box plot.
const maxBoxColumns = 5

// Histogram bins a numeric column into equal-width bins over [min, max].
// The bin counts always sum to the number of non-missing values.
func (b *Builder) Histogram(column string, bins int) (*chart.Spec, error) {
	c, err := b.numericColumn(column)
	if err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	values := c.Floats()
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: column %s has no numeric values", core.ErrInsufficientData, c.Name)
	}
	sort.Float64s(values)

	lo, hi := values[0], values[len(values)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	// the top edge is inclusive
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, values, nil)

	points := make([]chart.Point, bins)
	for i := range counts {
		points[i] = chart.Point{
			Label: fmt.Sprintf("[%s, %s)", trimFloat(dividers[i]), trimFloat(dividers[i+1])),
			X:     RoundTo2((dividers[i] + dividers[i+1]) / 2),
			Y:     counts[i],
		}
	}

	return &chart.Spec{
		Type:     chart.Histogram,
		Title:    fmt.Sprintf("Distribution of %s", c.Name),
		XAxis:    c.Name,
		YAxis:    "Count",
		Series:   []chart.Series{{Name: c.Name, Data: points, Color: chart.ColorPrimary}},
		Colors:   []string{chart.ColorPrimary},
		ShowGrid: true,
	}, nil
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", RoundTo2(v))
}

// BoxPlot summarizes numeric columns as boxes. With no columns named it
// uses the first five numeric columns.
func (b *Builder) BoxPlot(columns ...string) (*chart.Spec, error) {
	var cols []*dataset.Column
	if len(columns) == 0 {
		cols = b.ds.NumericColumns()
		if len(cols) == 0 {
			return nil, core.ErrNoNumericColumns
		}
		if len(cols) > maxBoxColumns {
			cols = cols[:maxBoxColumns]
		}
	} else {
		for _, name := range columns {
			c, err := b.numericColumn(name)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
	}

	spec := &chart.Spec{
		Type:       chart.Box,
		Title:      "Distribution Overview",
		YAxis:      "Value",
		ShowLegend: true,
		ShowGrid:   true,
	}
	for _, c := range cols {
		box, ok := boxStats(c.Name, c.Floats())
		if !ok {
			continue
		}
		spec.Boxes = append(spec.Boxes, box)
	}
	if len(spec.Boxes) == 0 {
		return nil, fmt.Errorf("%w: selected columns have no numeric values", core.ErrInsufficientData)
	}
	spec.Colors = assignColors(len(spec.Boxes))
	return spec, nil
}

// boxStats computes quartiles with whiskers at the most extreme values
// inside the 1.5*IQR fences.
func boxStats(name string, values []float64) (chart.BoxStats, bool) {
	if len(values) == 0 {
		return chart.BoxStats{}, false
	}
	s := preprocess.Describe(name, values)
	lower, upper, outliers := preprocess.OutlierBounds(values)

	box := chart.BoxStats{
		Name:   name,
		Q1:     RoundTo2(float64(s.Q25)),
		Median: RoundTo2(float64(s.Median)),
		Q3:     RoundTo2(float64(s.Q75)),
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
	}
	for _, v := range values {
		if v < lower || v > upper {
			continue
		}
		box.Min = math.Min(box.Min, v)
		box.Max = math.Max(box.Max, v)
	}
	box.Min, box.Max = RoundTo2(box.Min), RoundTo2(box.Max)
	sort.Float64s(outliers)
	for _, o := range outliers {
		box.Outliers = append(box.Outliers, RoundTo2(o))
	}
	return box, true
}

// CorrelationHeatmap renders the correlation matrix of numeric columns.
// Undefined coefficients are drawn as 0 and labelled n/a.
func (b *Builder) CorrelationHeatmap() (*chart.Spec, error) {
	m, err := preprocess.GetCorrelations(b.ds)
	if err != nil {
		return nil, err
	}
	matrix := &chart.Matrix{
		Rows:   m.Columns,
		Cols:   m.Columns,
		Values: make([][]float64, len(m.Columns)),
		Text:   make([][]string, len(m.Columns)),
		Min:    -1,
		Max:    1,
		Scale:  "RdBu",
	}
	for i, row := range m.Values {
		matrix.Values[i] = make([]float64, len(row))
		matrix.Text[i] = make([]string, len(row))
		for j, r := range row {
			if !r.Valid() {
				matrix.Text[i][j] = "n/a"
				continue
			}
			matrix.Values[i][j] = RoundTo2(float64(r))
			matrix.Text[i][j] = fmt.Sprintf("%.2f", float64(r))
		}
	}
	return &chart.Spec{
		Type:   chart.Heatmap,
		Title:  "Correlation Matrix",
		Matrix: matrix,
		Height: 600,
	}, nil
}

// Scatter plots two numeric columns against each other.
func (b *Builder) Scatter(xName, yName string) (*chart.Spec, error) {
	x, err := b.numericColumn(xName)
	if err != nil {
		return nil, err
	}
	y, err := b.numericColumn(yName)
	if err != nil {
		return nil, err
	}
	points := make([]chart.Point, 0, len(x.Values))
	for i := range x.Values {
		if x.Values[i].IsNumeric() && y.Values[i].IsNumeric() {
			points = append(points, chart.Point{X: x.Values[i].AsFloat64(), Y: y.Values[i].AsFloat64()})
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no rows with both %s and %s", core.ErrInsufficientData, x.Name, y.Name)
	}
	return &chart.Spec{
		Type:     chart.Scatter,
		Title:    fmt.Sprintf("%s vs %s", y.Name, x.Name),
		XAxis:    x.Name,
		YAxis:    y.Name,
		Series:   []chart.Series{{Name: y.Name, Data: points, Color: chart.ColorPrimary}},
		Colors:   []string{chart.ColorPrimary},
		ShowGrid: true,
	}, nil
}

// Bubble plots x against y with marker size from a third numeric column,
// optionally split into one series per value of a colour column.
func (b *Builder) Bubble(xName, yName, sizeName, colorName string) (*chart.Spec, error) {
	x, err := b.numericColumn(xName)
	if err != nil {
		return nil, err
	}
	y, err := b.numericColumn(yName)
	if err != nil {
		return nil, err
	}
	size, err := b.numericColumn(sizeName)
	if err != nil {
		return nil, err
	}
	var color *dataset.Column
	if colorName != "" {
		if color, err = b.column(colorName); err != nil {
			return nil, err
		}
	}

	index := make(map[string]int)
	var series []chart.Series
	for i := range x.Values {
		if !x.Values[i].IsNumeric() || !y.Values[i].IsNumeric() || !size.Values[i].IsNumeric() {
			continue
		}
		group := size.Name
		if color != nil {
			if color.Values[i].IsMissing {
				continue
			}
			group = color.Values[i].String()
		}
		j, ok := index[group]
		if !ok {
			j = len(series)
			index[group] = j
			series = append(series, chart.Series{Name: group, Color: chart.Gradient[j%len(chart.Gradient)]})
		}
		series[j].Data = append(series[j].Data, chart.Point{
			X:     x.Values[i].AsFloat64(),
			Y:     y.Values[i].AsFloat64(),
			Size:  math.Abs(size.Values[i].AsFloat64()),
			Group: group,
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no complete rows for bubble chart", core.ErrInsufficientData)
	}
	return &chart.Spec{
		Type:       chart.Bubble,
		Title:      fmt.Sprintf("%s vs %s sized by %s", y.Name, x.Name, size.Name),
		XAxis:      x.Name,
		YAxis:      y.Name,
		Series:     series,
		Colors:     assignColors(len(series)),
		ShowLegend: color != nil,
		ShowGrid:   true,
	}, nil
}

// Trend plots a numeric column over a date column. Dates that cannot be
// parsed are dropped and points are sorted by time.
func (b *Builder) Trend(dateName, valueName string) (*chart.Spec, error) {
	d, err := b.column(dateName)
	if err != nil {
		return nil, err
	}
	v, err := b.numericColumn(valueName)
	if err != nil {
		return nil, err
	}

	type tp struct {
		t time.Time
		v float64
	}
	var pts []tp
	for i := range d.Values {
		if !v.Values[i].IsNumeric() {
			continue
		}
		t, ok := b.asTime(d.Values[i])
		if !ok {
			continue
		}
		pts = append(pts, tp{t: t, v: v.Values[i].AsFloat64()})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no parseable dates in %s", core.ErrInsufficientData, d.Name)
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].t.Before(pts[j].t) })

	points := make([]chart.Point, len(pts))
	for i, p := range pts {
		points[i] = chart.Point{
			Label: dataset.NewTimestampValue(p.t).String(),
			X:     float64(p.t.Unix()),
			Y:     RoundTo2(p.v),
		}
	}
	return &chart.Spec{
		Type:       chart.Line,
		Title:      fmt.Sprintf("%s over time", v.Name),
		XAxis:      d.Name,
		YAxis:      v.Name,
		Series:     []chart.Series{{Name: v.Name, Data: points, Color: chart.ColorPrimary}},
		Colors:     []string{chart.ColorPrimary},
		ShowLegend: true,
		ShowGrid:   true,
	}, nil
}

func (b *Builder) asTime(v dataset.Value) (time.Time, bool) {
	if t, ok := v.AsTime(); ok {
		return t, true
	}
	if v.IsString() {
		return b.dates.ParseTimestamp(v.String())
	}
	return time.Time{}, false
}

// Distribution is a histogram of the column annotated with its mean,
// median, standard deviation and IQR.
func (b *Builder) Distribution(column string) (*chart.Spec, error) {
	spec, err := b.Histogram(column, DefaultBins)
	if err != nil {
		return nil, err
	}
	c, _ := b.ds.Column(column)
	s := preprocess.Describe(c.Name, c.Floats())

	spec.Height = 400
	spec.Stats = map[string]float64{"count": float64(s.Count)}
	add := func(key string, n preprocess.Number) {
		if n.Valid() {
			spec.Stats[key] = RoundTo2(float64(n))
		}
	}
	add("mean", s.Mean)
	add("median", s.Median)
	add("std", s.Std)
	if iqr := preprocess.Number(s.IQR()); iqr.Valid() {
		spec.Stats["iqr"] = RoundTo2(float64(iqr))
	}
	return spec, nil
}

// MissingValuesBar shows the missing count of every column.
func (b *Builder) MissingValuesBar() (*chart.Spec, error) {
	if b.ds.ColumnCount() == 0 {
		return nil, core.ErrNoColumns
	}
	points := make([]chart.Point, len(b.ds.Columns))
	for i, c := range b.ds.Columns {
		points[i] = chart.Point{Label: c.Name, Y: float64(c.MissingCount())}
	}
	return &chart.Spec{
		Type:     chart.Bar,
		Title:    "Missing Values",
		XAxis:    "Column",
		YAxis:    "Missing",
		Series:   []chart.Series{{Name: "Missing Values", Data: points, Color: chart.ColorPrimary}},
		Colors:   []string{chart.ColorPrimary},
		ShowGrid: true,
	}, nil
}

// TypeDistributionPie counts columns by inferred type.
func (b *Builder) TypeDistributionPie() (*chart.Spec, error) {
	if b.ds.ColumnCount() == 0 {
		return nil, core.ErrNoColumns
	}
	index := make(map[dataset.ColumnType]int)
	var points []chart.Point
	for _, c := range b.ds.Columns {
		j, ok := index[c.Type]
		if !ok {
			j = len(points)
			index[c.Type] = j
			points = append(points, chart.Point{Label: string(c.Type)})
		}
		points[j].Y++
	}
	return &chart.Spec{
		Type:       chart.Pie,
		Title:      "Data Types",
		Series:     []chart.Series{{Name: "Columns", Data: points}},
		Colors:     assignColors(len(points)),
		ShowLegend: true,
	}, nil
}

// ValueRangesHeatmap lays out min, max and mean of every numeric column.
func (b *Builder) ValueRangesHeatmap() (*chart.Spec, error) {
	numeric := b.ds.NumericColumns()
	if len(numeric) == 0 {
		return nil, core.ErrNoNumericColumns
	}
	rows := []string{"min", "max", "mean"}
	matrix := &chart.Matrix{
		Rows:   rows,
		Cols:   make([]string, len(numeric)),
		Values: make([][]float64, len(rows)),
		Text:   make([][]string, len(rows)),
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
		Scale:  "Viridis",
	}
	for i := range rows {
		matrix.Values[i] = make([]float64, len(numeric))
		matrix.Text[i] = make([]string, len(numeric))
	}
	for j, c := range numeric {
		matrix.Cols[j] = c.Name
		s := preprocess.Describe(c.Name, c.Floats())
		for i, n := range []preprocess.Number{s.Min, s.Max, s.Mean} {
			if !n.Valid() {
				matrix.Text[i][j] = "n/a"
				continue
			}
			v := RoundTo2(float64(n))
			matrix.Values[i][j] = v
			matrix.Text[i][j] = preprocess.FormatNumber(v)
			matrix.Min = math.Min(matrix.Min, v)
			matrix.Max = math.Max(matrix.Max, v)
		}
	}
	if math.IsInf(matrix.Min, 0) {
		matrix.Min, matrix.Max = 0, 0
	}
	return &chart.Spec{
		Type:   chart.Heatmap,
		Title:  "Value Ranges",
		Matrix: matrix,
	}, nil
}
