// Package server exposes the layout engine over HTTP.
//
// Routes:
//
//	GET    /healthz                      liveness and build info
//	POST   /v1/layout                    lay out caller-supplied items
//	GET    /v1/gallery                   fetch the gallery and lay it out
//	GET    /v1/gallery/render.{format}   render the gallery (svg, json, txt)
//	DELETE /v1/gallery/{fileID}          delete a file (signed-in, non-guest)
//	GET    /v1/stats                     event counters, when configured
//
// Errors are JSON documents {"error": {"code", "message"}} whose HTTP status
// is derived from the error code.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
	"github.com/matzehuels/masonry/pkg/observability"
	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/session"
)

const (
	// SessionHeader carries the session ID for authenticated routes.
	SessionHeader = "X-Session-ID"

	requestTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Options configures a Server.
type Options struct {
	Addr string

	// Runner executes layouts and renders. Required.
	Runner *pipeline.Runner

	// Source backs the gallery routes. Without it they answer 501.
	Source gallery.Source

	// Sessions authorizes deletes. Without it deletes answer 501.
	Sessions session.Store

	// Constraints apply when a request names none.
	Constraints masonry.Constraints

	// Limit caps the items fetched per gallery request.
	Limit int

	// Stats backs GET /v1/stats. Without it the route answers 501.
	Stats *observability.Counters

	Logger *log.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	logger *log.Logger
	router chi.Router
	http   *http.Server
}

// New creates a Server. It does not start listening.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	if opts.Constraints.IsZero() {
		opts.Constraints = masonry.DefaultConstraints()
	}
	if opts.Limit <= 0 {
		opts.Limit = pipeline.DefaultLimit
	}

	s := &Server{opts: opts, logger: opts.Logger}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, notFound("no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("METHOD_NOT_ALLOWED", r.Method+" is not allowed here"))
	})

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Get("/stats", s.handleStats)
		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", s.handleGallery)
			r.Get("/render.{format}", s.handleRender)
			r.Delete("/{fileID}", s.handleDelete)
		})
	})
	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Start listens and serves. It blocks until the server is shut down and
// returns nil on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
