package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/tableqa/dataset"
	"github.com/spektr-org/tableqa/logging"
	"github.com/spektr-org/tableqa/metrics"
)

// ============================================================================
// QUERY DISPATCHER — One question about one table → one answer
// ============================================================================
// The dispatcher never answers anything itself. It packages the request for
// the model, makes a single blocking call and decodes the first output.
// Model failures are returned to the caller as they are; there is no retry.
// ============================================================================

// Generator runs the sequence-to-sequence model. *model.Handle implements it.
type Generator interface {
	Generate(ctx context.Context, input string) ([]string, error)
}

// ErrNoOutput is returned when the model produced no sequence.
var ErrNoOutput = errors.New("model returned no output")

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTokenizer replaces the default WordTokenizer.
func WithTokenizer(tok Tokenizer) Option {
	return func(d *Dispatcher) { d.tok = tok }
}

// WithLogger sets the logger. Defaults to discarding.
func WithLogger(log *logrus.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// Dispatcher sends query requests to a Generator.
type Dispatcher struct {
	gen       Generator
	maxLength int
	tok       Tokenizer
	log       *logrus.Logger
}

// New returns a Dispatcher bounded by maxLength input tokens.
func New(gen Generator, maxLength int, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		gen:       gen,
		maxLength: maxLength,
		tok:       WordTokenizer{},
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxLength < 1 {
		d.maxLength = DefaultMaxLength
	}
	return d
}

// Answer asks the model query about ds. columns picks and orders the
// columns sent; empty means all of them.
func (d *Dispatcher) Answer(ctx context.Context, query string, ds *dataset.Dataset, columns []string) (answer string, err error) {
	if ds == nil {
		return "", fmt.Errorf("no dataset to query")
	}

	table := ds
	if len(columns) > 0 {
		if table, err = ds.Project(columns); err != nil {
			return "", err
		}
	}

	enc := Encode(query, table, d.maxLength, d.tok)
	log := d.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"dataset":    ds.Name(),
		"rows_sent":  enc.RowsKept,
		"tokens":     enc.Tokens,
	})
	if enc.Truncated {
		log.Warnf("✂️ input truncated to %d of %d rows", enc.RowsKept, table.Len())
	}

	started := time.Now()
	defer func() { metrics.ObserveDispatch(started, enc.Truncated, err) }()

	outputs, err := d.gen.Generate(ctx, enc.Text)
	if err != nil {
		log.WithError(err).Error("❌ model call failed")
		return "", fmt.Errorf("model call failed: %w", err)
	}
	if len(outputs) == 0 {
		err = ErrNoOutput
		return "", err
	}

	answer = Decode(outputs[0])
	log.WithField("elapsed", time.Since(started)).Debug("💬 answered")
	return answer, nil
}
