package tickets

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the name of the worksheet written by ExportXLSX.
const ExportSheet = "Tickets"

// ExportXLSX writes the collection as a single-sheet workbook with a bold
// header row. Hidden columns are included only when includeHidden is set.
func ExportXLSX(c *Collection, w io.Writer, includeHidden bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	var cols []int
	for i, col := range columns {
		if col.Hidden && !includeHidden {
			continue
		}
		cols = append(cols, i)
	}

	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = columns[col].Title
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(ExportSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for row := 0; row < c.Len(); row++ {
		values := make([]any, len(cols))
		for i, col := range cols {
			values[i] = c.Cell(row, col)
		}
		cell, _ := excelize.CoordinatesToCellName(1, row+2)
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
