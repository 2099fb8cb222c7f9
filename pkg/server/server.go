// Package server exposes the scanning engine over HTTP.
//
// The API accepts already-built dependency graphs; it never parses lock
// files or talks to package registries. Routes:
//
//	GET  /               service banner
//	GET  /health         backend connectivity (503 unless healthy)
//	GET  /status         worker state, queue depth, configuration echo
//	POST /api/scans      scan a graph (sync) or enqueue it (async=true)
//	GET  /api/scans      list recent reports
//	GET  /api/scans/{id} fetch one report
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/depsentry/depsentry/pkg/buildinfo"
	"github.com/depsentry/depsentry/pkg/config"
	"github.com/depsentry/depsentry/pkg/queue/redisq"
	"github.com/depsentry/depsentry/pkg/scan"
)

// serviceName identifies this service in banners and health payloads.
const serviceName = "depsentry"

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// WorkerState reports whether a queue consumer is alive. Implemented by
// redisq.Consumer; nil means no worker runs in this process.
type WorkerState interface {
	Running() bool
}

// Server is the HTTP API for the scanning engine.
type Server struct {
	scanner  *scan.Scanner
	store    scan.Store
	queue    *redisq.Queue
	worker   WorkerState
	settings config.Settings
	logger   *log.Logger
	router   chi.Router
}

// New assembles the server. queue and worker may be nil when the process
// runs without async scanning; the affected endpoints degrade gracefully.
func New(scanner *scan.Scanner, store scan.Store, queue *redisq.Queue, worker WorkerState, settings config.Settings, logger *log.Logger) *Server {
	s := &Server{
		scanner:  scanner,
		store:    store,
		queue:    queue,
		worker:   worker,
		settings: settings,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Route("/api", func(r chi.Router) {
		r.Post("/scans", s.handleCreateScan)
		r.Get("/scans", s.handleListScans)
		r.Get("/scans/{id}", s.handleGetScan)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.settings.Server.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", srv.Addr, "version", buildinfo.Version())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs each request with method, path, status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start).Round(time.Microsecond))
	})
}
