package visualization

import (
	"errors"

	"excelinsights/domain/chart"
	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
)

// Dashboard names accepted by Dashboard.
const (
	DashboardOverview    = "overview"
	DashboardSales       = "sales"
	DashboardRecommended = "recommended"
)

// Dashboard builds a named dashboard.
func (b *Builder) Dashboard(name string) (*chart.Dashboard, error) {
	switch name {
	case DashboardOverview:
		return b.OverviewDashboard()
	case DashboardSales:
		return b.SalesDashboard()
	case DashboardRecommended:
		return b.RecommendedCharts()
	}
	return nil, core.NewNotFoundError("dashboard", name)
}

// Analysis builds one of the named single-chart analyses. column is used by
// the per-column analyses.
func (b *Builder) Analysis(name, column string) (*chart.Spec, error) {
	switch name {
	case "correlation":
		return b.CorrelationHeatmap()
	case "distribution":
		return b.Distribution(column)
	case "histogram":
		return b.Histogram(column, DefaultBins)
	case "box":
		if column == "" {
			return b.BoxPlot()
		}
		return b.BoxPlot(splitColumns(column)...)
	case "missing":
		return b.MissingValuesBar()
	case "types":
		return b.TypeDistributionPie()
	case "ranges":
		return b.ValueRangesHeatmap()
	}
	return nil, core.NewNotFoundError("analysis", name)
}

type panel struct {
	name  string
	build func() (*chart.Spec, error)
}

// assemble builds every panel, recording the ones that could not be built
// instead of failing the dashboard. Only column errors abort.
func assemble(d *chart.Dashboard, panels []panel) error {
	for _, p := range panels {
		spec, err := p.build()
		if err != nil {
			if errors.Is(err, core.ErrColumnNotFound) {
				return err
			}
			if d.Skipped == nil {
				d.Skipped = make(map[string]string)
			}
			d.Skipped[p.name] = err.Error()
			continue
		}
		d.Charts = append(d.Charts, spec)
	}
	return nil
}

// OverviewDashboard shows box plots of the first numeric columns, missing
// values, column types and value ranges.
func (b *Builder) OverviewDashboard() (*chart.Dashboard, error) {
	if len(b.ds.NumericColumns()) == 0 {
		return nil, core.ErrNoNumericColumns
	}
	d := &chart.Dashboard{Name: DashboardOverview, Title: "Data Overview Dashboard"}
	err := assemble(d, []panel{
		{"distribution", func() (*chart.Spec, error) { return b.BoxPlot() }},
		{"missing", b.MissingValuesBar},
		{"types", b.TypeDistributionPie},
		{"ranges", b.ValueRangesHeatmap},
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SalesDashboard summarizes the detected sales column over time and by the
// Region, Manager, Item and Units columns when they exist.
func (b *Builder) SalesDashboard() (*chart.Dashboard, error) {
	sales, ok := b.SalesColumn()
	if !ok {
		return nil, core.ErrNoSalesColumn
	}
	salesCol, _ := b.ds.Column(sales)
	if salesCol.Type != dataset.ColumnNumeric {
		return nil, core.ErrNoSalesColumn
	}

	d := &chart.Dashboard{Name: DashboardSales, Title: "Sales Dashboard"}
	panels := []panel{{"trend", func() (*chart.Spec, error) {
		if len(b.dateColumns) == 0 {
			return nil, core.ErrNoDateColumn
		}
		spec, err := b.Trend(b.dateColumns[0], sales)
		if err != nil {
			return nil, err
		}
		spec.Title = "Sales Trend Over Time"
		return spec, nil
	}}}

	if region, ok := b.columnFold("Region"); ok {
		panels = append(panels, panel{"region", func() (*chart.Spec, error) {
			return b.Build(ChartRequest{Type: string(chart.Pie), X: region.Name, Y: sales, Aggregation: string(AggSum), Title: "Sales by Region"})
		}})
	}
	if manager, ok := b.columnFold("Manager"); ok {
		panels = append(panels, panel{"manager", func() (*chart.Spec, error) {
			return b.Build(ChartRequest{Type: string(chart.Bar), X: manager.Name, Y: sales, Aggregation: string(AggSum), Sort: "none", Title: "Sales by Manager"})
		}})
	}
	item, hasItem := b.columnFold("Item")
	if hasItem {
		panels = append(panels, panel{"product", func() (*chart.Spec, error) {
			return b.Build(ChartRequest{Type: string(chart.HBar), X: item.Name, Y: sales, Aggregation: string(AggSum), Sort: "value_asc", Title: "Sales by Product"})
		}})
		panels = append(panels, panel{"units", func() (*chart.Spec, error) {
			units, ok := b.columnFold("Units")
			if !ok {
				return nil, errors.New("missing Units column for product analysis")
			}
			return b.Build(ChartRequest{Type: string(chart.HBar), X: item.Name, Y: units.Name, Aggregation: string(AggSum), Sort: "value_asc", Title: "Units Sold by Item"})
		}})
	}

	if err := assemble(d, panels); err != nil {
		return nil, err
	}
	if !hasItem {
		if d.Skipped == nil {
			d.Skipped = make(map[string]string)
		}
		d.Skipped["product"] = "no Item column found in the dataset"
	}
	return d, nil
}

// RecommendedCharts proposes a scatter of the first two numeric columns and,
// with three or more, a bubble chart coloured by the first categorical column.
func (b *Builder) RecommendedCharts() (*chart.Dashboard, error) {
	numeric := b.ds.NumericColumns()
	if len(numeric) < 2 {
		return nil, core.ErrInsufficientData
	}
	d := &chart.Dashboard{Name: DashboardRecommended, Title: "Recommended Charts"}
	panels := []panel{{"relationship", func() (*chart.Spec, error) {
		spec, err := b.Scatter(numeric[0].Name, numeric[1].Name)
		if err != nil {
			return nil, err
		}
		spec.Title = "Relationship Analysis"
		return spec, nil
	}}}
	if len(numeric) >= 3 {
		panels = append(panels, panel{"multidimensional", func() (*chart.Spec, error) {
			color := ""
			if cats := b.ds.ColumnsOfType(dataset.ColumnCategorical); len(cats) > 0 {
				color = cats[0].Name
			} else if cats := b.ds.ColumnsOfType(dataset.ColumnString); len(cats) > 0 {
				color = cats[0].Name
			}
			spec, err := b.Bubble(numeric[0].Name, numeric[1].Name, numeric[2].Name, color)
			if err != nil {
				return nil, err
			}
			spec.Title = "Multi-dimensional Analysis"
			return spec, nil
		}})
	}
	if err := assemble(d, panels); err != nil {
		return nil, err
	}
	return d, nil
}
