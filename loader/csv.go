package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/spektr-org/tableqa/dataset"
)

// ============================================================================
// CSV — Delimited text with a header row
// ============================================================================
// Unlike a lenient record parser, a malformed row is a load failure here:
// the caller decides what "no dataset" means, not the parser.
// ============================================================================

func (l *Loader) loadCSV(src Source) (*dataset.Dataset, error) {
	r, closeFn, err := src.open()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return parseCSV(src.Name, r)
}

func parseCSV(name string, r io.Reader) (*dataset.Dataset, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1 // short rows are padded, long ones rejected below
	reader.ReuseRecord = false

	// Read header
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Read rows
	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		if len(row) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(header), line, len(row))
		}
		rows = append(rows, row)
	}

	return dataset.FromStrings(name, header, rows)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM drops a leading UTF-8 byte order mark, which spreadsheet exports
// often write. Left in place it would become part of the first column name.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
