// Package api serves the stitching pipeline over HTTP for one board.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/v1/nets                  nets with filled zones on two or more layers
//	GET  /api/v1/nets/{net}/zones      filled zones on other nets
//	POST /api/v1/stitch                run the pipeline; body is pipeline.Options
//	GET  /api/v1/preview?net=GND       PNG preview of the plan
//	GET  /api/v1/runs                  run history, newest first
//	GET  /api/v1/runs/{id}
//
// Requests that change or analyse the board are serialized; a request
// arriving while another is running gets 409 with code BUSY.
//
// Errors are JSON objects {"code": "...", "error": "..."} with a status
// derived from the code.
package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/cache"
	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/observability"
	"github.com/matzehuels/viastitch/pkg/pipeline"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// SaveFunc persists the board after vias were created.
type SaveFunc func(ctx context.Context) error

// Server handles API requests.
type Server struct {
	runner   *pipeline.Runner
	board    board.Board
	defaults pipeline.Options
	save     SaveFunc
	logger   *log.Logger

	// mu serializes board access across requests.
	mu sync.Mutex
}

// Option configures a [Server].
type Option func(*Server)

// WithDefaults sets the options requests are decoded over.
func WithDefaults(o pipeline.Options) Option {
	return func(s *Server) { s.defaults = o }
}

// WithSave sets the function called after a successful commit.
func WithSave(fn SaveFunc) Option {
	return func(s *Server) { s.save = fn }
}

// WithCacheScope prefixes the runner's cache keys so that servers for
// different boards can share one cache backend.
func WithCacheScope(prefix string) Option {
	return func(s *Server) {
		if prefix != "" {
			s.runner.Keyer = cache.NewScopedKeyer(s.runner.Keyer, prefix)
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a server for b.
func New(runner *pipeline.Runner, b board.Board, opts ...Option) *Server {
	s := &Server{
		runner:   runner,
		board:    b,
		defaults: pipeline.DefaultOptions(),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/nets", s.handleNets)
		r.Get("/nets/{net}/zones", s.handleZones)
		r.Post("/stitch", s.handleStitch)
		r.Get("/preview", s.handlePreview)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: errors.ErrCodeUnsupported, Error: "method not allowed"})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// lock acquires the board lock without waiting.
func (s *Server) lock() error {
	if !s.mu.TryLock() {
		return errors.New(errors.ErrCodeBusy, "another request is using the board")
	}
	return nil
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, d)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", d,
			"request_id", middleware.GetReqID(r.Context()))
	})
}
