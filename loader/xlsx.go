package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/tableqa/dataset"
)

// loadXLSX reads the first sheet of a workbook. Cells come back formatted as
// text and go through the same inference as CSV.
func (l *Loader) loadXLSX(src Source) (*dataset.Dataset, error) {
	r, closeFn, err := src.open()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("sheet %q has no columns to parse", sheets[0])
	}

	header, body := rows[0], rows[1:]

	// GetRows trims trailing empty cells, so a data row may be wider than
	// the header. The extra columns get blank names ("Unnamed: <i>").
	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}

	return dataset.FromStrings(src.Name, header, body)
}
