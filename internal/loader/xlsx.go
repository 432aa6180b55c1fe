package loader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// readXLSX reads the first sheet. Leading empty rows are skipped and the
// first non-empty row is the header.
func readXLSX(data []byte) ([]string, [][]bins.Value, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("no sheets found in XLSX file")
	}
	sheet := sheets[0]

	iter, err := f.Rows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open rows iterator for sheet %s: %w", sheet, err)
	}
	defer iter.Close()

	var (
		header []string
		rows   [][]bins.Value
	)
	for iter.Next() {
		rec, err := iter.Columns()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row in sheet %s: %w", sheet, err)
		}
		if header == nil {
			if len(rec) == 0 {
				continue
			}
			header = rec
			continue
		}
		if len(rec) > len(header) {
			// excelize trims trailing blanks, so any extra cell holds data.
			return nil, nil, fmt.Errorf("row in sheet %s has %d cells, expected %d", sheet, len(rec), len(header))
		}
		row := make([]bins.Value, len(rec))
		for i, v := range rec {
			row[i] = cell(v)
		}
		rows = append(rows, row)
	}
	if err := iter.Error(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate sheet %s: %w", sheet, err)
	}
	if header == nil {
		return nil, nil, ErrEmptyFile
	}
	return header, rows, nil
}
