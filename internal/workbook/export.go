package workbook

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/skycargo/targetplanner/internal/planner"
)

var exportHeader = []string{"Week", "Agent", "Tonnage", "Yield", "Revenue"}

// Export renders a table to xlsx bytes on a single named sheet, with a
// header row and columns sized to their longest value.
func Export(table planner.Table, sheetName string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("name export sheet: %w", err)
	}

	widths := make([]int, len(exportHeader))
	setRow := func(rowNum int, values []string) error {
		for i, v := range values {
			cellName, err := excelize.CoordinatesToCellName(i+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cellName, v); err != nil {
				return err
			}
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
		return nil
	}

	if err := setRow(1, exportHeader); err != nil {
		return nil, fmt.Errorf("write export header: %w", err)
	}
	for i, r := range table.Rows {
		values := []string{
			strconv.Itoa(table.Week),
			r.Agent,
			strconv.FormatFloat(r.Tonnage, 'f', 0, 64),
			strconv.FormatFloat(r.Yield, 'f', 2, 64),
			strconv.FormatFloat(r.Revenue, 'f', 2, 64),
		}
		if err := setRow(i+2, values); err != nil {
			return nil, fmt.Errorf("write export row %d: %w", i, err)
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		width := float64(w + 2)
		if width > 50 {
			width = 50
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("size export column %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write export workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename builds the timestamped download name, e.g.
// "recommendations_BAH_week32_20260826_153000.xlsx".
func ExportFilename(prefix, station string, week int, now time.Time) string {
	return fmt.Sprintf("%s_%s_week%d_%s.xlsx", prefix, station, week, now.Format("20060102_150405"))
}
