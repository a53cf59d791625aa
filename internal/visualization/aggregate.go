package visualization

import (
	"math"
	"sort"
	"strings"

	"excelinsights/domain/chart"
	"excelinsights/domain/dataset"
)

// ============================================================================
// Group rows by a label column and reduce a measure column.
// ============================================================================
// Pipeline: group → aggregate → sort → limit. Rows whose label is missing
// are skipped; rows whose measure is missing count toward the group size
// but not toward sum/avg/min/max.
// ============================================================================

// Aggregation names a reduction over a group.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
	AggNone  Aggregation = "none"
)

// ParseAggregation normalizes an aggregation name. "mean" is accepted as avg.
func ParseAggregation(s string) (Aggregation, bool) {
	switch a := Aggregation(strings.ToLower(strings.TrimSpace(s))); a {
	case AggSum, AggAvg, AggCount, AggMin, AggMax, AggNone:
		return a, true
	case "mean", "average":
		return AggAvg, true
	case "":
		return "", true
	}
	return "", false
}

// Group is one aggregated bucket.
type Group struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
	// Order preserves a natural ordering (e.g. time) independent of Label.
	Order float64 `json:"-"`
	rows  []int
}

// GroupAndAggregate groups the rows of labels and reduces measure per group.
// measure may be nil for count.
func GroupAndAggregate(labels, measure *dataset.Column, agg Aggregation, sortBy string, limit int) []Group {
	groups := groupByColumn(labels)
	for i := range groups {
		aggregateGroup(&groups[i], measure, agg)
	}
	SortGroups(groups, sortBy)
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

func groupByColumn(labels *dataset.Column) []Group {
	index := make(map[string]int)
	var groups []Group
	for i, v := range labels.Values {
		if v.IsMissing {
			continue
		}
		key := v.String()
		j, ok := index[key]
		if !ok {
			j = len(groups)
			index[key] = j
			g := Group{Key: key, Label: key}
			if t, ok := v.AsTime(); ok {
				g.Order = float64(t.Unix())
			} else if v.IsNumeric() {
				g.Order = v.AsFloat64()
			}
			groups = append(groups, g)
		}
		groups[j].rows = append(groups[j].rows, i)
	}
	return groups
}

func aggregateGroup(g *Group, measure *dataset.Column, agg Aggregation) {
	g.Count = len(g.rows)
	if agg == AggCount || measure == nil {
		g.Value = float64(g.Count)
		return
	}

	values := make([]float64, 0, len(g.rows))
	for _, r := range g.rows {
		if v := measure.Values[r]; v.IsNumeric() {
			values = append(values, v.AsFloat64())
		}
	}
	if len(values) == 0 {
		return
	}

	switch agg {
	case AggAvg:
		g.Value = sum(values) / float64(len(values))
	case AggMin:
		g.Value = values[0]
		for _, v := range values[1:] {
			g.Value = math.Min(g.Value, v)
		}
	case AggMax:
		g.Value = values[0]
		for _, v := range values[1:] {
			g.Value = math.Max(g.Value, v)
		}
	default:
		g.Value = sum(values)
	}
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// SortGroups sorts groups in place. Unknown modes keep first-seen order.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case "value_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "value_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case "label_asc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Label) < strings.ToLower(groups[j].Label) })
	case "label_desc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Label) > strings.ToLower(groups[j].Label) })
	case "chronological":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Order < groups[j].Order })
	}
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, name string) []chart.Series {
	if name == "" {
		name = "Value"
	}
	points := make([]chart.Point, 0, len(groups))
	for _, g := range groups {
		points = append(points, chart.Point{Label: g.Label, Y: RoundTo2(g.Value)})
	}
	return []chart.Series{{Name: name, Data: points, Color: chart.ColorPrimary}}
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = chart.Gradient[i%len(chart.Gradient)]
	}
	return colors
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
