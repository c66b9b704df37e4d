package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"knapevo/internal/model"
)

var header = []string{"id", "value", "cost", "flag"}

func ReadCSVFile(path string) (model.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.Dataset{}, err
	}
	defer file.Close()
	return ReadCSV(file, nameFromPath(path))
}

func ReadCSV(in io.Reader, name string) (model.Dataset, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return model.Dataset{}, fmt.Errorf("dataset %s is empty", name)
		}
		return model.Dataset{}, fmt.Errorf("read dataset header: %w", err)
	}
	// encoding/csv skips blank lines, so row numbers come from the reader.
	var records [][]string
	var lines []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Dataset{}, fmt.Errorf("read dataset rows: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	items, err := parseRows(records, func(i int) int { return lines[i] })
	if err != nil {
		return model.Dataset{}, err
	}
	if len(items) == 0 {
		return model.Dataset{}, fmt.Errorf("dataset %s has no items", name)
	}
	return model.Dataset{Name: name, Items: items}, nil
}

func WriteCSV(path string, ds model.Dataset) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, item := range ds.Items {
		if err := writer.Write([]string{
			strconv.Itoa(item.ID),
			formatFloat(item.Value),
			formatFloat(item.Cost),
			strconv.Itoa(item.Flag),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
