package web

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/tableqa/dataset"
	"github.com/spektr-org/tableqa/loader"
	"github.com/spektr-org/tableqa/session"
)

// ============================================================================
// HANDLERS
// ============================================================================
// /        empty form
// /upload  load one file into the session, preview it
// /query   answer a question about the session's dataset
// ============================================================================

const (
	cookieName = "tableqa_session"
	pageName   = "index.html"
)

// accepted lists the formats offered by the form, in upload-control order.
var accepted = []string{".csv", ".xlsx", ".db"}

type page struct {
	Accept    string
	Error     string
	Notice    string
	FileName  string
	NeedTable bool
	Preview   *preview
	Query     string
	Answer    string
	HasAnswer bool
}

type preview struct {
	Name    string
	Total   int
	Columns []string
	Rows    [][]string
}

func newPage() page {
	return page{Accept: strings.Join(accepted, ",")}
}

func (s *Server) index(c *gin.Context) {
	p := newPage()
	if st, ok := s.lookup(c); ok {
		st.mu.Lock()
		p.Preview = s.preview(st.catalog)
		st.mu.Unlock()
	}
	c.HTML(http.StatusOK, pageName, p)
}

// ============================================================================
// UPLOAD
// ============================================================================

func (s *Server) upload(c *gin.Context) {
	limit := s.cfg.MaxUploadMB << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	st := s.current(c)
	st.mu.Lock()
	defer st.mu.Unlock()

	p := newPage()
	table := strings.TrimSpace(c.PostForm("table"))

	up, err := readUpload(c, limit)
	switch {
	case errors.Is(err, http.ErrMissingFile) && st.pending != nil && table != "":
		up = st.pending
	case err != nil:
		status := http.StatusBadRequest
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || errors.Is(err, errTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		p.Error = err.Error()
		c.HTML(status, pageName, p)
		return
	}

	// Whatever happens next, the previous dataset is no longer the one on
	// screen, so it must not answer queries.
	st.catalog = nil

	format, ok := loader.FormatFromName(up.name)
	if !ok || !allowed(up.name) {
		p.Error = "Unsupported file format"
		c.HTML(http.StatusBadRequest, pageName, p)
		return
	}

	if format == loader.EmbeddedRelational && table == "" {
		st.pending = up
		p.FileName = up.name
		p.NeedTable = true
		c.HTML(http.StatusOK, pageName, p)
		return
	}
	st.pending = nil

	ds, err := s.loader.Load(loader.FromReader(up.name, bytes.NewReader(up.data)), format, table)
	if err != nil {
		var le *loader.LoadError
		if errors.As(err, &le) {
			p.Error = le.Error()
		} else {
			p.Error = err.Error()
		}
		c.HTML(http.StatusBadRequest, pageName, p)
		return
	}

	st.catalog = &session.Catalog{}
	st.catalog.Add(up.name, ds)
	p.Preview = s.preview(st.catalog)
	c.HTML(http.StatusOK, pageName, p)
}

var errTooLarge = errors.New("file exceeds the upload limit")

func readUpload(c *gin.Context, limit int64) (*upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	if fh.Size > limit {
		return nil, errTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &upload{name: filepath.Base(fh.Filename), data: data}, nil
}

func allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range accepted {
		if ext == a {
			return true
		}
	}
	return false
}

func (s *Server) preview(cat *session.Catalog) *preview {
	if cat == nil {
		return nil
	}
	e, ok := cat.Implicit()
	if !ok {
		return nil
	}
	head := e.Dataset.Head(s.cfg.PreviewRows)
	p := &preview{Name: e.Name, Total: e.Dataset.Len(), Columns: head.ColumnNames()}
	for i := 0; i < head.Len(); i++ {
		p.Rows = append(p.Rows, cells(head.Row(i)))
	}
	return p
}

func cells(vals []dataset.Value) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

// ============================================================================
// QUERY
// ============================================================================

func (s *Server) query(c *gin.Context) {
	p := newPage()
	q := c.PostForm("query")

	st, ok := s.lookup(c)
	if !ok {
		p.Error = "Upload a dataset first"
		c.HTML(http.StatusBadRequest, pageName, p)
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	p.Preview = s.preview(st.catalog)
	p.Query = q
	if p.Preview == nil {
		p.Error = "Upload a dataset first"
		c.HTML(http.StatusBadRequest, pageName, p)
		return
	}

	switch {
	case strings.TrimSpace(q) == "":
		p.Notice = "Enter a question about the dataset."
		c.HTML(http.StatusOK, pageName, p)
		return
	case session.IsExit(q):
		p.Notice = "There is no session to end here. Enter a question about the dataset."
		c.HTML(http.StatusOK, pageName, p)
		return
	}

	out := &capture{}
	loop := &session.Loop{
		Catalog:  st.catalog,
		Answerer: s.answerer,
		In:       &single{query: q},
		Out:      out,
	}
	if err := loop.Run(c.Request.Context()); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	p.Answer, p.HasAnswer = out.answer, out.answered
	c.HTML(http.StatusOK, pageName, p)
}

// single feeds one query to the loop, then ends it.
type single struct {
	query string
	done  bool
}

func (r *single) Query() (string, error) {
	if r.done {
		return "", io.EOF
	}
	r.done = true
	return r.query, nil
}

// Choice is never reached: a web session holds one dataset.
func (r *single) Choice([]session.Entry) (string, error) { return "", io.EOF }

type capture struct {
	answer   string
	answered bool
}

func (o *capture) Answer(_ session.Entry, answer string) {
	o.answer, o.answered = answer, true
}

func (o *capture) Rejected(error) {}

// ============================================================================
// SESSIONS
// ============================================================================

// lookup returns the caller's session without creating one.
func (s *Server) lookup(c *gin.Context) (*state, bool) {
	id, err := c.Cookie(cookieName)
	if err != nil || id == "" {
		return nil, false
	}
	item := s.sessions.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// current returns the caller's session, starting a new one if needed.
func (s *Server) current(c *gin.Context) *state {
	if st, ok := s.lookup(c); ok {
		return st
	}

	id, err := nanoid.New()
	if err != nil {
		// crypto/rand failure; fall back to an unnamed, uncached session
		s.log.WithError(err).Error("⛔ unable to generate session id")
		return &state{}
	}
	st := &state{}
	s.sessions.Set(id, st, s.cfg.SessionTTL)
	c.SetCookie(cookieName, id, int(s.cfg.SessionTTL.Seconds()), "/", "", false, true)
	s.log.WithFields(logrus.Fields{"session": id}).Debug("🆕 session started")
	return st
}
