package sheet

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX decodes the first worksheet of a workbook. Numeric cells become
// float64, text cells stay strings so codes like "0012" survive.
func ReadXLSX(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no worksheets")
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", name, err)
	}

	grid := make(Grid, len(rows))
	for r, row := range rows {
		grid[r] = make([]any, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(name, axis)
			if err != nil {
				return nil, fmt.Errorf("failed to read cell type %s: %w", axis, err)
			}
			grid[r][c] = typedCell(cellType, raw)
		}
	}
	return grid, nil
}

func typedCell(t excelize.CellType, raw string) any {
	switch t {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeBool, excelize.CellTypeError:
		return raw
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	return raw
}
