package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/spektr-org/tableqa/dataset"
)

// ============================================================================
// DIRECTORY MODE — Load every recognised file in one directory
// ============================================================================

// TablePrompter supplies the table name for an embedded-relational file.
type TablePrompter interface {
	TableName(fileName string) (string, error)
}

// Named pairs a loaded Dataset with the file name it came from.
type Named struct {
	Name    string
	Dataset *dataset.Dataset
}

// DirResult is the outcome of a directory load. A skipped or failed entry
// never stops the remaining ones.
type DirResult struct {
	Loaded  []Named
	Skipped []string
	Failed  []*LoadError
}

// LoadDir loads the entries of dir in name order. It returns an error only
// when the directory cannot be listed or the prompter fails.
func (l *Loader) LoadDir(dir string, prompt TablePrompter) (*DirResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	res := &DirResult{}
	for _, e := range entries {
		name := e.Name()
		format, ok := FormatFromName(name)
		if e.IsDir() || !ok {
			l.log.WithField("entry", name).Debug("⏭️ skipping unsupported entry")
			res.Skipped = append(res.Skipped, name)
			continue
		}

		var table string
		if format == EmbeddedRelational {
			if prompt == nil {
				return nil, fmt.Errorf("no table prompter for %s", name)
			}
			if table, err = prompt.TableName(name); err != nil {
				return nil, err
			}
		}

		ds, err := l.Load(FromPath(filepath.Join(dir, name)), format, table)
		if err != nil {
			var le *LoadError
			if !errors.As(err, &le) {
				le = &LoadError{Source: name, Format: format, Table: table, Err: err}
			}
			res.Failed = append(res.Failed, le)
			continue
		}
		res.Loaded = append(res.Loaded, Named{Name: name, Dataset: ds})
	}

	l.log.WithFields(logrus.Fields{
		"dir":     dir,
		"loaded":  len(res.Loaded),
		"skipped": len(res.Skipped),
		"failed":  len(res.Failed),
	}).Info("📂 directory loaded")
	return res, nil
}
