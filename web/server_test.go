package web

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tableqa/config"
	"github.com/spektr-org/tableqa/dataset"
	"github.com/spektr-org/tableqa/loader"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var peopleCSV = []byte(`id,name,age
1,Alice,30
2,Bob,25
`)

type stubAnswerer struct {
	answer string
	err    error
	calls  int
}

func (s *stubAnswerer) Answer(_ context.Context, _ string, _ *dataset.Dataset, _ []string) (string, error) {
	s.calls++
	return s.answer, s.err
}

// client replays the session cookie like a browser would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, a *stubAnswerer) *client {
	t.Helper()
	srv, err := New(config.Web{SessionTTL: time.Minute, PreviewRows: 1, MaxUploadMB: 1}, loader.New(nil), a, nil)
	require.NoError(t, err)
	return &client{t: t, handler: srv.Handler()}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if got := rec.Result().Cookies(); len(got) > 0 {
		c.cookies = got
	}
	return rec
}

func (c *client) upload(name string, data []byte, table string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if name != "" {
		part, err := w.CreateFormFile("file", name)
		require.NoError(c.t, err)
		_, err = part.Write(data)
		require.NoError(c.t, err)
	}
	if table != "" {
		require.NoError(c.t, w.WriteField("table", table))
	}
	require.NoError(c.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *client) ask(query string) *httptest.ResponseRecorder {
	form := url.Values{"query": {query}}
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func sqliteFile(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	db.MustExec(`CREATE TABLE items (sku TEXT, qty INTEGER)`)
	db.MustExec(`INSERT INTO items VALUES ('A-1', 4), ('B-2', 7)`)
	require.NoError(t, db.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// ============================================================================
// TESTS
// ============================================================================

func TestIndex(t *testing.T) {
	c := newClient(t, &stubAnswerer{})
	rec := c.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `accept=".csv,.xlsx,.db"`)
	assert.NotContains(t, rec.Body.String(), `name="query"`)
}

func TestUploadAndQuery(t *testing.T) {
	a := &stubAnswerer{answer: "30"}
	c := newClient(t, a)

	rec := c.upload("people.csv", peopleCSV, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<th>age</th>")
	assert.Contains(t, body, "<td>Alice</td>")
	assert.NotContains(t, body, "Bob", "preview is capped at one row")
	assert.Contains(t, body, "(2 rows)")
	assert.Contains(t, body, `name="query"`)

	rec = c.ask("How old is Alice?")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<textarea readonly rows=\"4\">30</textarea>")
	assert.Equal(t, 1, a.calls)

	rec = c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "<td>Alice</td>", "dataset stays in the session")
}

func TestUploadRejectsUnsupportedFormats(t *testing.T) {
	for _, name := range []string{"notes.txt", "events.parquet"} {
		c := newClient(t, &stubAnswerer{})
		rec := c.upload(name, []byte("x"), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Contains(t, rec.Body.String(), "Unsupported file format", name)
	}
}

func TestUploadDatabaseAsksForTable(t *testing.T) {
	c := newClient(t, &stubAnswerer{})
	data := sqliteFile(t)

	rec := c.upload("shop.db", data, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="table"`)
	assert.NotContains(t, rec.Body.String(), `name="query"`)

	// The browser only sends the table name the second time.
	rec = c.upload("", nil, "items")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<td>A-1</td>")
	assert.Contains(t, rec.Body.String(), "(2 rows)")
}

func TestUploadDatabaseWithTable(t *testing.T) {
	c := newClient(t, &stubAnswerer{})

	rec := c.upload("shop.db", sqliteFile(t), "items")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<th>qty</th>")

	rec = c.upload("shop.db", sqliteFile(t), "orders")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such table: orders")
}

func TestUploadLoadFailure(t *testing.T) {
	c := newClient(t, &stubAnswerer{})
	rec := c.upload("bad.csv", []byte("a,b\n1,2,3\n"), "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error loading CSV dataset bad.csv")
}

func TestUploadTooLarge(t *testing.T) {
	c := newClient(t, &stubAnswerer{})
	rec := c.upload("big.csv", bytes.Repeat([]byte("a\n"), 600<<10), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestQueryWithoutDataset(t *testing.T) {
	a := &stubAnswerer{}
	c := newClient(t, a)

	rec := c.ask("anything?")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload a dataset first")
	assert.Zero(t, a.calls)
}

func TestQueryDispatchFailureIs500(t *testing.T) {
	a := &stubAnswerer{err: errors.New("model unavailable")}
	c := newClient(t, a)
	require.Equal(t, http.StatusOK, c.upload("people.csv", peopleCSV, "").Code)

	rec := c.ask("How old is Alice?")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, a.calls)
}

func TestFailedUploadDropsPreviousDataset(t *testing.T) {
	for name, file := range map[string][]byte{
		"bad.csv":   []byte("a,b\n1,2,3\n"),
		"notes.txt": []byte("hello"),
	} {
		t.Run(name, func(t *testing.T) {
			a := &stubAnswerer{answer: "30"}
			c := newClient(t, a)
			require.Equal(t, http.StatusOK, c.upload("people.csv", peopleCSV, "").Code)

			rec := c.upload(name, file, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotContains(t, rec.Body.String(), "<td>Alice</td>")

			rec = c.ask("How old is Alice?")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "Upload a dataset first")
			assert.Zero(t, a.calls)
		})
	}
}

func TestQueryBlankIsNotSent(t *testing.T) {
	a := &stubAnswerer{answer: "30"}
	c := newClient(t, a)
	require.Equal(t, http.StatusOK, c.upload("people.csv", peopleCSV, "").Code)

	for _, q := range []string{"", "   ", "\t\n"} {
		rec := c.ask(q)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Enter a question about the dataset.")
		assert.Contains(t, body, "<td>Alice</td>")
		assert.NotContains(t, body, "<h2>Answer</h2>")
	}
	assert.Zero(t, a.calls)
}

func TestQueryExitShowsNotice(t *testing.T) {
	a := &stubAnswerer{answer: "30"}
	c := newClient(t, a)
	require.Equal(t, http.StatusOK, c.upload("people.csv", peopleCSV, "").Code)

	rec := c.ask("  EXIT ")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "There is no session to end here.")
	assert.Contains(t, rec.Body.String(), "<td>Alice</td>")
	assert.Zero(t, a.calls)

	// The dataset is still loaded afterwards.
	rec = c.ask("How old is Alice?")
	assert.Contains(t, rec.Body.String(), "<textarea readonly rows=\"4\">30</textarea>")
	assert.Equal(t, 1, a.calls)
}

func TestHealthAndMetrics(t *testing.T) {
	c := newClient(t, &stubAnswerer{})

	rec := c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = c.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tableqa_web_sessions")
}
