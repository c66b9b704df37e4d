package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"knapevo/internal/model"
)

// ReadXLSX reads items from sheet, or from the first sheet when sheet is
// empty.
func ReadXLSX(path, sheet string) (model.Dataset, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return model.Dataset{}, fmt.Errorf("no sheets found in %s", path)
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if idx, err := file.GetSheetIndex(sheet); err != nil || idx < 0 {
		return model.Dataset{}, fmt.Errorf("sheet not found: %s", sheet)
	}

	rows, err := file.GetRows(sheet)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return model.Dataset{}, fmt.Errorf("sheet %s has no items", sheet)
	}
	// GetRows keeps empty rows inside the used range, so positions match.
	items, err := parseRows(rows[1:], func(i int) int { return i + 2 })
	if err != nil {
		return model.Dataset{}, fmt.Errorf("sheet %s: %w", sheet, err)
	}
	if len(items) == 0 {
		return model.Dataset{}, fmt.Errorf("sheet %s has no items", sheet)
	}
	return model.Dataset{Name: nameFromPath(path), Items: items}, nil
}

func WriteXLSX(path string, ds model.Dataset) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := file.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	for i, item := range ds.Items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{item.ID, item.Value, item.Cost, item.Flag}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return file.SaveAs(path)
}
