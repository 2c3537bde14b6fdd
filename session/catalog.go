package session

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spektr-org/tableqa/dataset"
)

// ErrInvalidChoice is returned for a dataset choice that is not a number
// in 1..Len. It never ends a session.
var ErrInvalidChoice = errors.New("invalid dataset choice")

// Entry is one loaded dataset and the name it is listed under.
type Entry struct {
	Name    string
	Dataset *dataset.Dataset
}

// Catalog is the ordered set of datasets a session can query.
type Catalog struct {
	entries []Entry
}

// Add appends a dataset. Listing order is insertion order.
func (c *Catalog) Add(name string, ds *dataset.Dataset) {
	c.entries = append(c.entries, Entry{Name: name, Dataset: ds})
}

// Entries returns a copy of the entries.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of datasets.
func (c *Catalog) Len() int { return len(c.entries) }

// Implicit returns the only dataset when there is exactly one.
func (c *Catalog) Implicit() (Entry, bool) {
	if len(c.entries) != 1 {
		return Entry{}, false
	}
	return c.entries[0], true
}

// Select resolves a 1-based choice typed by the user.
func (c *Catalog) Select(input string) (Entry, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > len(c.entries) {
		return Entry{}, ErrInvalidChoice
	}
	return c.entries[n-1], nil
}
