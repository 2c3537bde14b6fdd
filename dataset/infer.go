package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================================================
// TYPE INFERENCE — Text cells → typed columns
// ============================================================================
// Delimited text and spreadsheets hand us strings. Each column is classified
// as a whole, the way common dataframe readers do it by default:
//
//   1. Null markers ("", "NA", "null", ...) become Null
//   2. All remaining cells parse as base-10 integers → Int
//   3. All remaining cells parse as floats            → Float
//   4. Anything else                                  → String (verbatim)
//
// An Int column with nulls is widened to Float. An all-null column is Float.
//
// Typed sources (relational, columnar) go through FromValues, which unifies
// per-cell kinds instead: Int+Float → Float, anything+String → String.
// ============================================================================

// nullMarkers are the cell texts read as missing values.
var nullMarkers = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// IsNullMarker reports whether a text cell is read as a missing value.
func IsNullMarker(s string) bool {
	return nullMarkers[s]
}

// FromStrings builds a Dataset from a header and text rows.
// Rows shorter than the header are padded with nulls; longer rows are an error.
func FromStrings(name string, header []string, rows [][]string) (*Dataset, error) {
	names := NormalizeHeader(header)

	for i, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(names))
		}
	}

	cols := make([]Column, len(names))
	for c, colName := range names {
		cells := make([]string, len(rows))
		present := make([]bool, len(rows))
		for r, row := range rows {
			if c < len(row) {
				cells[r] = row[c]
				present[r] = true
			}
		}
		cols[c] = inferColumn(colName, cells, present)
	}

	return New(name, cols)
}

// inferColumn classifies one column of text cells.
func inferColumn(name string, cells []string, present []bool) Column {
	col := Column{Name: name, Values: make([]Value, len(cells))}

	nulls := 0
	allInt, allFloat := true, true
	for i, cell := range cells {
		if !present[i] || IsNullMarker(cell) {
			nulls++
			continue
		}
		if allInt && !isInteger(cell) {
			allInt = false
		}
		if allFloat && !isFloat(cell) {
			allFloat = false
		}
	}

	switch {
	case nulls == len(cells):
		col.Kind = KindFloat
	case allInt && nulls == 0:
		col.Kind = KindInt
	case allInt || allFloat:
		col.Kind = KindFloat
	default:
		col.Kind = KindString
	}

	for i, cell := range cells {
		if !present[i] || IsNullMarker(cell) {
			col.Values[i] = Null()
			continue
		}
		col.Values[i] = parseCell(cell, col.Kind)
	}
	return col
}

func parseCell(cell string, kind Kind) Value {
	s := strings.TrimSpace(cell)
	switch kind {
	case KindInt:
		n, _ := strconv.ParseInt(s, 10, 64)
		return Int(n)
	case KindFloat:
		f, _ := strconv.ParseFloat(s, 64)
		return Float(f)
	default:
		return String(cell)
	}
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// isFloat accepts decimal notation only. ParseFloat also takes hex
// mantissas ("0x1p-2"), which dataframe readers keep as text.
func isFloat(s string) bool {
	s = strings.TrimSpace(s)
	unsigned := strings.TrimLeft(s, "+-")
	if len(unsigned) > 1 && unsigned[0] == '0' && (unsigned[1] == 'x' || unsigned[1] == 'X') {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// FromValues builds a Dataset from typed cells, unifying kinds per column.
func FromValues(name string, header []string, rows [][]Value) (*Dataset, error) {
	names := NormalizeHeader(header)

	cols := make([]Column, len(names))
	for c := range names {
		cols[c] = Column{Name: names[c], Values: make([]Value, len(rows))}
	}

	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, header has %d", r+1, len(row), len(names))
		}
		for c, v := range row {
			cols[c].Values[r] = v
			cols[c].Kind = unify(cols[c].Kind, v.Kind())
		}
	}

	for c := range cols {
		if cols[c].Kind == KindNull {
			cols[c].Kind = KindFloat
			continue
		}
		hasNull := false
		for r, v := range cols[c].Values {
			if v.IsNull() {
				hasNull = true
				continue
			}
			cols[c].Values[r] = v.convert(cols[c].Kind)
		}
		if hasNull && cols[c].Kind == KindInt {
			cols[c].Kind = KindFloat
			for r, v := range cols[c].Values {
				cols[c].Values[r] = v.convert(KindFloat)
			}
		}
	}

	return New(name, cols)
}

// unify returns the narrowest kind able to hold both a and b.
func unify(a, b Kind) Kind {
	switch {
	case a == KindNull:
		return b
	case b == KindNull || a == b:
		return a
	case a == KindString || b == KindString:
		return KindString
	default:
		return KindFloat
	}
}

// ============================================================================
// HEADER NORMALISATION
// ============================================================================

// NormalizeHeader makes column names usable as unique keys.
// Blank names become "Unnamed: <i>"; repeats become "name.1", "name.2", ...
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))

	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
