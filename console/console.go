package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/tableqa/loader"
	"github.com/spektr-org/tableqa/logging"
	"github.com/spektr-org/tableqa/session"
)

// ============================================================================
// CONSOLE — Interactive front-end
// ============================================================================
// Flow:
//   1. ask for a dataset path (file or directory) and load it
//   2. loop: ask a question, pick a dataset when there are several, answer
//
// Load problems are printed and the session goes on with whatever loaded.
// A failed model call ends Run with the error.
// ============================================================================

const (
	promptPath   = "Enter dataset path: "
	promptQuery  = "Enter a natural language query (type 'exit' to quit): "
	promptChoice = "Choose a dataset (enter the number): "
)

var (
	warn = color.New(color.FgYellow)
	fail = color.New(color.FgRed)
	good = color.New(color.FgGreen)
)

// Console reads prompts from in and writes everything the user sees to out.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	loader   *loader.Loader
	answerer session.Answerer
	log      *logrus.Logger
}

// New returns a Console. A nil log discards log output.
func New(in io.Reader, out io.Writer, l *loader.Loader, a session.Answerer, log *logrus.Logger) *Console {
	if log == nil {
		log = logging.Discard()
	}
	return &Console{
		in:       bufio.NewReader(in),
		out:      out,
		loader:   l,
		answerer: a,
		log:      log,
	}
}

// Run drives one console session.
func (c *Console) Run(ctx context.Context) error {
	path, err := c.prompt(promptPath)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)

	cat, err := c.load(path)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	if cat == nil {
		return nil
	}
	if cat.Len() == 0 {
		fail.Fprintln(c.out, "No datasets loaded. Exiting.")
		return nil
	}

	loop := &session.Loop{Catalog: cat, Answerer: c.answerer, In: c, Out: c}
	return loop.Run(ctx)
}

// ============================================================================
// LOADING
// ============================================================================

// load returns nil without error when the session should end quietly.
func (c *Console) load(path string) (*session.Catalog, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return c.loadDir(path)
	case err == nil && info.Mode().IsRegular():
		return c.loadFile(path)
	default:
		fail.Fprintln(c.out, "Invalid dataset path. Exiting.")
		return nil, nil
	}
}

func (c *Console) loadDir(dir string) (*session.Catalog, error) {
	res, err := c.loader.LoadDir(dir, c)
	if err != nil {
		return nil, err
	}

	for _, name := range res.Skipped {
		warn.Fprintf(c.out, "Unsupported file format: %s\n", name)
	}
	for _, le := range res.Failed {
		c.loadFailed(le)
	}

	cat := &session.Catalog{}
	if len(res.Loaded) == 0 {
		return cat, nil
	}
	fmt.Fprintln(c.out, "Loaded datasets:")
	for _, n := range res.Loaded {
		cat.Add(n.Name, n.Dataset)
		fmt.Fprintf(c.out, "- %s: %d rows\n", n.Name, n.Dataset.Len())
	}
	return cat, nil
}

func (c *Console) loadFile(path string) (*session.Catalog, error) {
	name := filepath.Base(path)
	format, ok := loader.FormatFromName(name)
	if !ok {
		warn.Fprintf(c.out, "Unsupported file format: %s\n", name)
		return nil, nil
	}

	var table string
	if format == loader.EmbeddedRelational {
		t, err := c.TableName(name)
		if err != nil {
			return nil, err
		}
		table = t
	}

	cat := &session.Catalog{}
	ds, err := c.loader.Load(loader.FromPath(path), format, table)
	if err != nil {
		var le *loader.LoadError
		if errors.As(err, &le) {
			c.loadFailed(le)
			return cat, nil
		}
		return nil, err
	}

	cat.Add(name, ds)
	good.Fprintf(c.out, "Loaded dataset: %s: %d rows\n", name, ds.Len())
	return cat, nil
}

func (c *Console) loadFailed(le *loader.LoadError) {
	fail.Fprintf(c.out, "Error loading %s dataset: %v\n", le.Format.Label(), le.Err)
}

// TableName asks for the table to read from an embedded-relational file.
func (c *Console) TableName(fileName string) (string, error) {
	t, err := c.prompt(fmt.Sprintf("Enter table name in %s: ", fileName))
	return strings.TrimSpace(t), err
}

// ============================================================================
// session.Requests / session.Renderer
// ============================================================================

// Query implements session.Requests.
func (c *Console) Query() (string, error) {
	return c.prompt(promptQuery)
}

// Choice implements session.Requests.
func (c *Console) Choice(entries []session.Entry) (string, error) {
	fmt.Fprintln(c.out, "Available datasets:")
	for i, e := range entries {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, e.Name)
	}
	return c.prompt(promptChoice)
}

// Answer implements session.Renderer.
func (c *Console) Answer(_ session.Entry, answer string) {
	fmt.Fprintf(c.out, "Answer of Query: %s\n", answer)
}

// Rejected implements session.Renderer.
func (c *Console) Rejected(err error) {
	if errors.Is(err, session.ErrInvalidChoice) {
		warn.Fprintln(c.out, "Invalid dataset choice. Please choose a valid number.")
		return
	}
	warn.Fprintln(c.out, err)
}

// prompt writes msg and reads one line. A final line without a newline is
// still returned; io.EOF means nothing was left to read.
func (c *Console) prompt(msg string) (string, error) {
	fmt.Fprint(c.out, msg)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
