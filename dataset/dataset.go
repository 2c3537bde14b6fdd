package dataset

import (
	"fmt"
)

// ============================================================================
// DATASET — Source-agnostic in-memory table
// ============================================================================
// A Dataset has the same shape whether it was loaded from delimited text, a
// spreadsheet, a relational table or a columnar file.
//
// Invariants (checked by New):
//   - every column has exactly Len() values
//   - column names are unique
//
// A Dataset is immutable once built. Accessors hand out copies, so callers
// cannot reach back into the stored columns.
// ============================================================================

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Dataset is an ordered set of equal-length columns.
type Dataset struct {
	name    string
	columns []Column
	index   map[string]int
	rows    int
}

// New validates columns and builds a Dataset. The column slices are copied.
func New(name string, columns []Column) (*Dataset, error) {
	ds := &Dataset{
		name:    name,
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if _, dup := ds.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		if i == 0 {
			ds.rows = len(col.Values)
		} else if len(col.Values) != ds.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", col.Name, len(col.Values), ds.rows)
		}
		ds.index[col.Name] = i
		ds.columns[i] = Column{
			Name:   col.Name,
			Kind:   col.Kind,
			Values: append([]Value(nil), col.Values...),
		}
	}

	return ds, nil
}

// Name is the display name, usually the source file name.
func (d *Dataset) Name() string { return d.name }

// Len returns the row count.
func (d *Dataset) Len() int { return d.rows }

// Width returns the column count.
func (d *Dataset) Width() int { return len(d.columns) }

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	c := d.columns[i]
	c.Values = append([]Value(nil), c.Values...)
	return c, true
}

// Value returns the cell at (row, column name). Out-of-range lookups return Null.
func (d *Dataset) Value(row int, column string) Value {
	i, ok := d.index[column]
	if !ok || row < 0 || row >= d.rows {
		return Null()
	}
	return d.columns[i].Values[row]
}

// Row returns the values of row i in column order.
func (d *Dataset) Row(i int) []Value {
	if i < 0 || i >= d.rows {
		return nil
	}
	row := make([]Value, len(d.columns))
	for c := range d.columns {
		row[c] = d.columns[c].Values[i]
	}
	return row
}

// Head returns a Dataset with at most the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > d.rows {
		n = d.rows
	}
	return d.slice(n)
}

// Project returns a Dataset holding only the named columns, in the given order.
func (d *Dataset) Project(names []string) (*Dataset, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		i, ok := d.index[name]
		if !ok {
			return nil, fmt.Errorf("dataset %q has no column %q", d.name, name)
		}
		cols = append(cols, d.columns[i])
	}
	return New(d.name, cols)
}

func (d *Dataset) slice(n int) *Dataset {
	cols := make([]Column, len(d.columns))
	for i, c := range d.columns {
		cols[i] = Column{Name: c.Name, Kind: c.Kind, Values: c.Values[:n]}
	}
	// Names and lengths were already validated.
	out, _ := New(d.name, cols)
	return out
}
