// Package web is the browser front-end: upload one dataset, preview it and
// ask questions about it.
package web

import (
	"compress/gzip"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/tableqa/config"
	"github.com/spektr-org/tableqa/loader"
	"github.com/spektr-org/tableqa/logging"
	"github.com/spektr-org/tableqa/metrics"
	"github.com/spektr-org/tableqa/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server serves the form. Each browser session owns one dataset.
type Server struct {
	cfg      config.Web
	loader   *loader.Loader
	answerer session.Answerer
	log      *logrus.Logger
	sessions *ttlcache.Cache[string, *state]
	router   *gin.Engine
}

// state is what one browser session holds between requests.
type state struct {
	mu      sync.Mutex
	catalog *session.Catalog
	pending *upload // a database file waiting for its table name
}

type upload struct {
	name string
	data []byte
}

// New builds the server and its routes. A nil log discards log output.
func New(cfg config.Web, l *loader.Loader, a session.Answerer, log *logrus.Logger) (*Server, error) {
	if log == nil {
		log = logging.Discard()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 5
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 200
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	sessions := ttlcache.New[string, *state](
		ttlcache.WithTTL[string, *state](cfg.SessionTTL),
	)
	sessions.OnInsertion(func(context.Context, *ttlcache.Item[string, *state]) {
		metrics.SessionOpened()
	})
	sessions.OnEviction(func(context.Context, ttlcache.EvictionReason, *ttlcache.Item[string, *state]) {
		metrics.SessionClosed()
	})

	s := &Server{
		cfg:      cfg,
		loader:   l,
		answerer: a,
		log:      log,
		sessions: sessions,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.Use(ginGzip.Gzip(gzip.DefaultCompression))
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = cfg.MaxUploadMB << 20

	r.GET("/", s.index)
	r.POST("/upload", s.upload)
	r.POST("/query", s.query)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = r
	return s, nil
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.sessions.Start()
	defer s.sessions.Stop()

	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("🌐 web form listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("🛑 shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(started),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Debug("request")
	}
}
