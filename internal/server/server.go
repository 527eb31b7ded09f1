// Package server exposes the dashboard over HTTP.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/dashboard"
	"github.com/projectcapital/capital/pkg/logging"
	"github.com/projectcapital/capital/pkg/render"
	"github.com/projectcapital/capital/pkg/spending"
)

//go:embed web/index.html
var indexHTML []byte

// shutdownTimeout bounds how long in-flight requests may run after the
// server is asked to stop.
const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	// Translator and Fetcher are shared by every chart session.
	Translator dashboard.Translator
	Fetcher    api.Fetcher
	Dashboard  dashboard.Config

	// Generator answers /api/generate. The route is not mounted when nil.
	Generator api.TextGenerator

	// Spending serves the bundled backend routes when non-nil.
	Spending *spending.Handler

	// CORSOrigins lists allowed origins. Empty allows all.
	CORSOrigins []string

	// MaxSessions caps mounted charts. Once reached, charts unused for
	// SessionTTL are reclaimed by the next mount.
	MaxSessions int
	SessionTTL  time.Duration
}

// Server is the HTTP surface of the dashboard.
type Server struct {
	router   *gin.Engine
	sessions *sessions
	gen      api.TextGenerator
	logger   *slog.Logger
}

// New creates a server and registers its routes.
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	s := &Server{
		gen:    opts.Generator,
		logger: logger,
	}
	s.sessions = newSessions(opts.MaxSessions, opts.SessionTTL, func(chart *render.Session) *dashboard.Orchestrator {
		return dashboard.New(chart, opts.Translator, opts.Fetcher, opts.Dashboard, logger)
	}, logger)

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger))
	r.Use(corsMiddleware(opts.CORSOrigins))

	r.GET("/", s.index)
	r.GET("/healthz", s.health)

	apiGroup := r.Group("/api")
	if s.gen != nil {
		apiGroup.POST("/generate", s.generate)
	}
	apiGroup.POST("/sessions", s.createSession)
	apiGroup.POST("/sessions/:id/query", s.query)
	apiGroup.GET("/sessions/:id/chart", s.chart)
	apiGroup.GET("/sessions/:id/state", s.state)
	apiGroup.DELETE("/sessions/:id", s.deleteSession)

	if opts.Spending != nil {
		opts.Spending.Register(r)
	}

	s.router = r
	return s
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully and
// disposes every chart session.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.closeAll()
	if err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.count()})
}
