package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/spektr-org/tableqa/dataset"
)

const parquetBatchSize = 2048

// loadParquet reads every row group of a flat Parquet file.
func (l *Loader) loadParquet(src Source) (*dataset.Dataset, error) {
	rdr, err := openParquet(src)
	if err != nil {
		return nil, fmt.Errorf("error opening parquet file: %w", err)
	}
	defer rdr.Close()

	reader, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{
		BatchSize: parquetBatchSize,
	}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("error creating Arrow file reader: %w", err)
	}

	var columns []int
	for i := 0; i < rdr.MetaData().Schema.NumColumns(); i++ {
		columns = append(columns, i)
	}
	var rgrs []int
	for r := 0; r < rdr.NumRowGroups(); r++ {
		rgrs = append(rgrs, r)
	}

	rr, err := reader.GetRecordReader(context.Background(), columns, rgrs)
	if err != nil {
		return nil, fmt.Errorf("error creating record reader: %w", err)
	}
	defer rr.Release()

	var header []string
	for _, f := range rr.Schema().Fields() {
		header = append(header, f.Name)
	}

	var rows [][]dataset.Value
	for rr.Next() {
		rec := rr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make([]dataset.Value, 0, len(header))
			for _, col := range rec.Columns() {
				row = append(row, arrowValue(col, i))
			}
			rows = append(rows, row)
		}
	}
	if err := rr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error reading records: %w", err)
	}

	return dataset.FromValues(src.Name, header, rows)
}

func openParquet(src Source) (*file.Reader, error) {
	if src.r == nil {
		return file.OpenParquetFile(src.Path, false)
	}

	r, _, err := src.open()
	if err != nil {
		return nil, err
	}
	if ra, ok := r.(parquet.ReaderAtSeeker); ok {
		return file.NewParquetReader(ra)
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return file.NewParquetReader(bytes.NewReader(buf))
}

// arrowValue converts one cell. Types without a numeric mapping keep their
// Arrow text rendering.
func arrowValue(col arrow.Array, i int) dataset.Value {
	if col.IsNull(i) {
		return dataset.Null()
	}
	switch a := col.(type) {
	case *array.Int8:
		return dataset.Int(int64(a.Value(i)))
	case *array.Int16:
		return dataset.Int(int64(a.Value(i)))
	case *array.Int32:
		return dataset.Int(int64(a.Value(i)))
	case *array.Int64:
		return dataset.Int(a.Value(i))
	case *array.Uint8:
		return dataset.Int(int64(a.Value(i)))
	case *array.Uint16:
		return dataset.Int(int64(a.Value(i)))
	case *array.Uint32:
		return dataset.Int(int64(a.Value(i)))
	case *array.Float32:
		return dataset.Float(float64(a.Value(i)))
	case *array.Float64:
		return dataset.Float(a.Value(i))
	case *array.String:
		return dataset.String(a.Value(i))
	case *array.LargeString:
		return dataset.String(a.Value(i))
	case *array.Binary:
		return dataset.String(string(a.Value(i)))
	default:
		return dataset.String(col.ValueStr(i))
	}
}
