package export

import (
	"io"

	"excelinsights/adapters/excel"
	"excelinsights/internal/preprocess"
)

func writeXLSX(w io.Writer, r *Report) error {
	summary := excel.Sheet{Name: "Summary", Headers: []string{"Metric", "Value"}}
	for _, row := range summaryRows(r) {
		summary.Rows = append(summary.Rows, []interface{}{row[0], row[1]})
	}

	quality := excel.Sheet{Name: "Quality", Headers: qualityHeaders}
	for _, q := range r.Profile.Quality {
		row := []interface{}{q.Column, q.DataType, q.MissingValues, q.MissingPercentage, q.UniqueValues, nil, nil, nil, nil}
		for i, n := range []*preprocess.Number{q.Mean, q.Std, q.Min, q.Max} {
			if n != nil {
				row[5+i] = cell(*n)
			}
		}
		quality.Rows = append(quality.Rows, row)
	}

	statistics := excel.Sheet{Name: "Statistics", Headers: statisticsHeaders}
	for _, s := range r.Profile.Numeric {
		statistics.Rows = append(statistics.Rows, []interface{}{
			s.Column, s.Count, cell(s.Mean), cell(s.Std), cell(s.Min), cell(s.Q25),
			cell(s.Median), cell(s.Q75), cell(s.Max), cell(s.Skew), cell(s.Kurtosis),
		})
	}

	corr := excel.Sheet{Name: "Correlations", Headers: []string{""}}
	if m := r.Correlations; m != nil {
		corr.Headers = append(corr.Headers, m.Columns...)
		for i, name := range m.Columns {
			row := make([]interface{}, 0, len(m.Columns)+1)
			row = append(row, name)
			for _, v := range m.Values[i] {
				row = append(row, cell(v))
			}
			corr.Rows = append(corr.Rows, row)
		}
	}

	sheets := []excel.Sheet{summary, quality, statistics, corr}
	if ds := r.Dataset; ds != nil {
		data := excel.Sheet{Name: "Data", Headers: ds.ColumnNames()}
		for i := 0; i < ds.RowCount(); i++ {
			values := ds.Row(i)
			row := make([]interface{}, len(values))
			for j, v := range values {
				row[j] = v.Interface()
			}
			data.Rows = append(data.Rows, row)
		}
		sheets = append(sheets, data)
	}

	return excel.WriteWorkbook(w, sheets)
}
