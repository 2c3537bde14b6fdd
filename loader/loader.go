package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/spektr-org/tableqa/dataset"
	"github.com/spektr-org/tableqa/logging"
	"github.com/spektr-org/tableqa/metrics"
)

// ============================================================================
// DATASET LOADER — One source artifact → one Dataset or a LoadError
// ============================================================================
// Supported formats:
//   DelimitedText       .csv      header row + comma separated rows
//   Spreadsheet         .xlsx     first sheet, header row
//   EmbeddedRelational  .db       SQLite file, SELECT * FROM <table>
//   Columnar            .parquet  Apache Parquet, all row groups
//
// Every failure comes back as *LoadError. Loading never panics and never
// writes to the source artifact.
// ============================================================================

// Format identifies how a source is parsed.
type Format int

const (
	FormatUnknown Format = iota
	DelimitedText
	Spreadsheet
	EmbeddedRelational
	Columnar
)

var extensions = map[string]Format{
	".csv":     DelimitedText,
	".xlsx":    Spreadsheet,
	".db":      EmbeddedRelational,
	".parquet": Columnar,
}

// FormatFromName infers the format from a file name extension.
func FormatFromName(name string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return f, ok
}

// String returns the metric/log label of the format.
func (f Format) String() string {
	switch f {
	case DelimitedText:
		return "csv"
	case Spreadsheet:
		return "xlsx"
	case EmbeddedRelational:
		return "sqlite"
	case Columnar:
		return "parquet"
	default:
		return "unknown"
	}
}

// Label is the human name used in user-facing messages.
func (f Format) Label() string {
	switch f {
	case DelimitedText:
		return "CSV"
	case Spreadsheet:
		return "Excel"
	case EmbeddedRelational:
		return "SQL"
	case Columnar:
		return "Parquet"
	default:
		return "unknown"
	}
}

// ============================================================================
// SOURCE
// ============================================================================

// Source is a filesystem path or a named readable stream.
type Source struct {
	Name string // display name; becomes the Dataset name
	Path string // set for filesystem sources
	r    io.ReadSeeker
}

// FromPath returns a source reading the file at path.
func FromPath(path string) Source {
	return Source{Name: filepath.Base(path), Path: path}
}

// FromReader returns a source reading r. name carries the file name, which
// is also what FormatFromName looks at.
func FromReader(name string, r io.ReadSeeker) Source {
	return Source{Name: name, r: r}
}

// open returns a reader positioned at the start of the source.
func (s Source) open() (io.ReadSeeker, func(), error) {
	if s.r != nil {
		if _, err := s.r.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		return s.r, func() {}, nil
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// ============================================================================
// LOAD ERROR
// ============================================================================

// LoadError reports why a source yielded no Dataset.
type LoadError struct {
	Source string
	Format Format
	Table  string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("error loading %s dataset %s (table %q): %v", e.Format.Label(), e.Source, e.Table, e.Err)
	}
	return fmt.Sprintf("error loading %s dataset %s: %v", e.Format.Label(), e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ============================================================================
// LOADER
// ============================================================================

// Loader turns sources into Datasets.
type Loader struct {
	log *logrus.Logger
}

// New returns a Loader. A nil logger discards log output.
func New(log *logrus.Logger) *Loader {
	if log == nil {
		log = logging.Discard()
	}
	return &Loader{log: log}
}

// Load reads src as format. table is used by EmbeddedRelational only.
func (l *Loader) Load(src Source, format Format, table string) (ds *dataset.Dataset, err error) {
	defer func() {
		// Readers of corrupt files can panic; a load never does.
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("malformed %s input: %v", format.Label(), r)
		}
		if err != nil {
			err = &LoadError{Source: src.Name, Format: format, Table: table, Err: err}
			l.log.WithFields(logrus.Fields{
				"source": src.Name,
				"format": format.String(),
			}).Warnf("⚠️ load failed: %v", err)
		} else {
			l.log.WithFields(logrus.Fields{
				"source":  src.Name,
				"format":  format.String(),
				"rows":    ds.Len(),
				"columns": ds.Width(),
			}).Info("✅ dataset loaded")
		}
		metrics.ObserveLoad(format.String(), err)
	}()

	switch format {
	case DelimitedText:
		return l.loadCSV(src)
	case Spreadsheet:
		return l.loadXLSX(src)
	case EmbeddedRelational:
		return l.loadSQLite(src, table)
	case Columnar:
		return l.loadParquet(src)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", src.Name)
	}
}
