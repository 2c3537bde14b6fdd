package session

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spektr-org/tableqa/dataset"
)

// ============================================================================
// COMMAND LOOP — read request → select dataset → dispatch → render
// ============================================================================
// Both front-ends drive the same loop. An adapter supplies the input side
// (Requests) and the output side (Renderer); the loop owns the policy:
//   - "exit" in any letter case ends the session without a model call
//   - one dataset is selected implicitly, several are chosen by number
//   - a bad choice is reported and the loop goes on
//   - a model failure ends the loop with that error
// ============================================================================

// ExitCommand ends a session.
const ExitCommand = "exit"

// Answerer dispatches one query. *dispatch.Dispatcher implements it.
type Answerer interface {
	Answer(ctx context.Context, query string, ds *dataset.Dataset, columns []string) (string, error)
}

// Requests is the input side of the loop. io.EOF from either method ends
// the session cleanly.
type Requests interface {
	Query() (string, error)
	Choice(entries []Entry) (string, error)
}

// Renderer is the output side of the loop.
type Renderer interface {
	Answer(entry Entry, answer string)
	Rejected(err error)
}

// Request is a query bound to one dataset.
type Request struct {
	Query   string
	Entry   Entry
	Columns []string
}

// IsExit reports whether input is the exit command.
func IsExit(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), ExitCommand)
}

// Loop runs queries against a Catalog.
type Loop struct {
	Catalog  *Catalog
	Answerer Answerer
	In       Requests
	Out      Renderer
}

// ErrNoDatasets is returned by Run when the catalog is empty.
var ErrNoDatasets = errors.New("no datasets loaded")

// Run reads and answers queries until exit or end of input.
func (l *Loop) Run(ctx context.Context) error {
	if l.Catalog.Len() == 0 {
		return ErrNoDatasets
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, done, err := l.next()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if req == nil {
			continue
		}

		answer, err := l.Answerer.Answer(ctx, req.Query, req.Entry.Dataset, req.Columns)
		if err != nil {
			return err
		}
		l.Out.Answer(req.Entry, answer)
	}
}

// next reads one request. A nil request with done unset means the input was
// rejected and the loop should prompt again.
func (l *Loop) next() (req *Request, done bool, err error) {
	query, err := l.In.Query()
	if errors.Is(err, io.EOF) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if IsExit(query) {
		return nil, true, nil
	}

	entry, ok := l.Catalog.Implicit()
	if !ok {
		choice, err := l.In.Choice(l.Catalog.Entries())
		if errors.Is(err, io.EOF) {
			return nil, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		if entry, err = l.Catalog.Select(choice); err != nil {
			l.Out.Rejected(err)
			return nil, false, nil
		}
	}

	return &Request{
		Query:   query,
		Entry:   entry,
		Columns: entry.Dataset.ColumnNames(),
	}, false, nil
}
