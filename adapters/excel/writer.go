package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of an exported workbook.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// WriteWorkbook writes the sheets, in order, as an xlsx workbook with a
// bold, frozen header row.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheet.Name, err)
		}

		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	header := make([]interface{}, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet.Name, err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet.Name, err)
		}
	}

	if len(sheet.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet.Name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header of %s: %w", sheet.Name, err)
		}
		if err := f.SetPanes(sheet.Name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("failed to freeze header of %s: %w", sheet.Name, err)
		}
	}
	return nil
}
