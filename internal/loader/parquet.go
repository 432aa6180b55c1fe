package loader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// readParquet reads every row group into memory. Values are rendered with
// their Arrow string form; nulls stay null.
func readParquet(ctx context.Context, data []byte) ([]string, [][]bins.Value, error) {
	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer table.Release()

	schema := table.Schema()
	header := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		header[i] = field.Name
	}
	if len(header) == 0 {
		return nil, nil, ErrEmptyFile
	}

	tr := array.NewTableReader(table, 0)
	defer tr.Release()

	rows := make([][]bins.Value, 0, table.NumRows())
	for tr.Next() {
		batch := tr.Record()
		cols := batch.Columns()
		for i := 0; i < int(batch.NumRows()); i++ {
			row := make([]bins.Value, len(cols))
			for j, col := range cols {
				if col.IsNull(i) {
					row[j] = bins.Null()
					continue
				}
				row[j] = cell(col.ValueStr(i))
			}
			rows = append(rows, row)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading table records: %w", err)
	}
	return header, rows, nil
}
