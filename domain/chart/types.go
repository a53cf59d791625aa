// Package chart holds render-ready chart specifications. A spec carries
// everything a client needs to draw a chart; nothing here draws.
package chart

// Type is a chart kind understood by clients.
type Type string

const (
	Bar       Type = "bar"
	HBar      Type = "hbar"
	Line      Type = "line"
	Area      Type = "area"
	Pie       Type = "pie"
	Scatter   Type = "scatter"
	Bubble    Type = "bubble"
	Histogram Type = "histogram"
	Box       Type = "box"
	Heatmap   Type = "heatmap"
)

// ParseType validates a chart type string.
func ParseType(s string) (Type, bool) {
	switch t := Type(s); t {
	case Bar, HBar, Line, Area, Pie, Scatter, Bubble, Histogram, Box, Heatmap:
		return t, true
	case "horizontal_bar":
		return HBar, true
	}
	return "", false
}

// Spec is a complete chart specification.
type Spec struct {
	Type       Type       `json:"chartType"`
	Title      string     `json:"title"`
	XAxis      string     `json:"xAxis,omitempty"`
	YAxis      string     `json:"yAxis,omitempty"`
	Series     []Series   `json:"series,omitempty"`
	Boxes      []BoxStats `json:"boxes,omitempty"`
	Matrix     *Matrix    `json:"matrix,omitempty"`
	Colors     []string   `json:"colors,omitempty"`
	ShowLegend bool       `json:"showLegend"`
	ShowGrid   bool       `json:"showGrid"`
	Height     int        `json:"height,omitempty"`
	// Stats carries summary figures shown next to the chart (distribution view).
	Stats map[string]float64 `json:"stats,omitempty"`
}

// Series is one named data series.
type Series struct {
	Name  string  `json:"name"`
	Data  []Point `json:"data"`
	Color string  `json:"color,omitempty"`
}

// Point is a single data point. Categorical charts use Label/Y, scatter
// charts use X/Y, bubble charts add Size and Group.
type Point struct {
	Label string  `json:"label,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size,omitempty"`
	Group string  `json:"group,omitempty"`
}

// BoxStats is the five-number summary of one box in a box plot.
type BoxStats struct {
	Name     string    `json:"name"`
	Min      float64   `json:"min"`
	Q1       float64   `json:"q1"`
	Median   float64   `json:"median"`
	Q3       float64   `json:"q3"`
	Max      float64   `json:"max"`
	Outliers []float64 `json:"outliers,omitempty"`
}

// Matrix is a labelled grid of values for heatmaps.
type Matrix struct {
	Rows   []string    `json:"rows"`
	Cols   []string    `json:"cols"`
	Values [][]float64 `json:"values"`
	Text   [][]string  `json:"text,omitempty"`
	Min    float64     `json:"min"`
	Max    float64     `json:"max"`
	Scale  string      `json:"colorScale,omitempty"`
}

// Dashboard groups related charts under a title.
type Dashboard struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Charts []*Spec `json:"charts"`
	// Skipped lists panels that could not be built, with the reason.
	Skipped map[string]string `json:"skipped,omitempty"`
}

// Palette
const (
	ColorPrimary   = "#4A90E2"
	ColorSecondary = "#50E3C2"
	ColorAccent    = "#F5A623"
)

// Gradient is the default series palette.
var Gradient = []string{"#4A90E2", "#50E3C2", "#F5A623", "#FF6B6B", "#A463F2"}

// PointCount returns the number of points across all series.
func (s *Spec) PointCount() int {
	n := 0
	for _, series := range s.Series {
		n += len(series.Data)
	}
	return n
}
