package loader

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/spektr-org/tableqa/dataset"
)

// ============================================================================
// SQLITE — One table of a self-contained relational file
// ============================================================================
// The file is opened read-only and scanned with an unconditional
// SELECT * FROM "<table>". The driver needs a filesystem path, so a stream
// source is spooled to a private temp file that is removed before returning.
// ============================================================================

func (l *Loader) loadSQLite(src Source, table string) (*dataset.Dataset, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("table name is required")
	}

	path := src.Path
	if src.r != nil {
		spooled, cleanup, err := spool(src)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		path = spooled
	}

	// mode=ro also stops the driver from creating a missing file.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	dsn, err := readOnlyDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Queryx("SELECT * FROM " + quoteIdent(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var values [][]dataset.Value
	for rows.Next() {
		cells, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(values)+1, err)
		}
		row := make([]dataset.Value, len(cells))
		for i, c := range cells {
			row[i] = sqlValue(c)
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dataset.FromValues(src.Name, header, values)
}

// readOnlyDSN builds a read-only URI filename. The path is escaped so that
// '#', '?' and '%' in directory names stay part of the path.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String(), nil
}

// quoteIdent quotes a table name so it is always read as an identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlValue maps a driver value onto a dataset scalar.
func sqlValue(v interface{}) dataset.Value {
	switch x := v.(type) {
	case nil:
		return dataset.Null()
	case int64:
		return dataset.Int(x)
	case float64:
		return dataset.Float(x)
	case bool:
		if x {
			return dataset.Int(1)
		}
		return dataset.Int(0)
	case []byte:
		return dataset.String(string(x))
	case string:
		return dataset.String(x)
	case time.Time:
		return dataset.String(x.Format(time.RFC3339Nano))
	default:
		return dataset.String(fmt.Sprint(x))
	}
}

func spool(src Source) (string, func(), error) {
	r, _, err := src.open()
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp("", "tableqa-*.db")
	if err != nil {
		return "", nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
