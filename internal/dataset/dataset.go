// Package dataset loads knapsack instances from tabular files. Rows are
// read by position as id, value, cost, flag after a single header row.
package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"knapevo/internal/model"
)

const minColumns = 3

// Load reads a dataset from a .csv or .xlsx file.
func Load(path string) (model.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVFile(path)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, "")
	default:
		return model.Dataset{}, fmt.Errorf("unsupported dataset format: %s", path)
	}
}

// Save writes ds in the format implied by the extension of path.
func Save(path string, ds model.Dataset) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return WriteCSV(path, ds)
	case ".xlsx":
		return WriteXLSX(path, ds)
	default:
		return fmt.Errorf("unsupported dataset format: %s", path)
	}
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseRows converts raw records (header excluded) into items. lineOf maps a
// record index to its 1-based source row for error messages.
func parseRows(records [][]string, lineOf func(i int) int) ([]model.Item, error) {
	items := make([]model.Item, 0, len(records))
	seen := make(map[int]int, len(records))
	for i, record := range records {
		row := lineOf(i)
		if isBlank(record) {
			continue
		}
		if len(record) < minColumns {
			return nil, fmt.Errorf("row %d: expected at least %d columns, got %d", row, minColumns, len(record))
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parse id: %w", row, err)
		}
		value, err := parseNonNegative(record[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse value: %w", row, err)
		}
		cost, err := parseNonNegative(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse cost: %w", row, err)
		}
		flag := 0
		if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
			flag, err = strconv.Atoi(strings.TrimSpace(record[3]))
			if err != nil {
				return nil, fmt.Errorf("row %d: parse flag: %w", row, err)
			}
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("row %d: duplicate id %d (first seen on row %d)", row, id, prev)
		}
		seen[id] = row
		items = append(items, model.Item{ID: id, Value: value, Cost: cost, Flag: flag})
	}
	return items, nil
}

func parseNonNegative(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %v", v)
	}
	return v, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
