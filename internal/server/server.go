// Package server hosts the nimbusfs HTTP gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/nimbusfs/internal/errors"
	"github.com/3leaps/nimbusfs/internal/observability"
	"github.com/3leaps/nimbusfs/internal/server/handlers"
	"github.com/3leaps/nimbusfs/internal/server/middleware"
	"github.com/3leaps/nimbusfs/pkg/objfs"
	"github.com/3leaps/nimbusfs/pkg/output"
)

// Timeouts applied to the underlying http.Server.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

// DefaultTimeouts mirrors the configuration defaults.
var DefaultTimeouts = Timeouts{
	Read:     30 * time.Second,
	Write:    30 * time.Second,
	Idle:     120 * time.Second,
	Shutdown: 10 * time.Second,
}

// Option configures a Server.
type Option func(*Server)

// WithFileSystem mounts the /v1 filesystem routes over fsys.
func WithFileSystem(fsys *objfs.FileSystem, readOnly bool) Option {
	return func(s *Server) {
		s.fs = fsys
		s.readOnly = readOnly
	}
}

// WithMetrics exposes m at /metrics and records request metrics into it.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the payload served at /version.
func WithVersion(info handlers.VersionInfo) Option {
	return func(s *Server) { s.version = info }
}

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTimeouts overrides DefaultTimeouts.
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) { s.timeouts = t }
}

// Server is the HTTP gateway.
type Server struct {
	host     string
	port     int
	fs       *objfs.FileSystem
	readOnly bool
	metrics  *observability.Metrics
	version  handlers.VersionInfo
	log      *zap.Logger
	timeouts Timeouts
	router   chi.Router
}

// New builds a server listening on host:port. The router is assembled
// immediately so Handler can be used without starting a listener.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:     host,
		port:     port,
		version:  handlers.VersionInfo{Version: "dev"},
		log:      zap.NewNop(),
		timeouts: DefaultTimeouts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Port returns the configured port.
func (s *Server) Port() int { return s.port }

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string { return net.JoinHostPort(s.host, strconv.Itoa(s.port)) }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	var obs middleware.RequestObserver
	if s.metrics != nil {
		obs = s.metrics
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Observe(s.log, obs))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.Write(w, req, http.StatusNotFound, apperrors.CodeRouteNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.Write(w, req, http.StatusMethodNotAllowed, apperrors.CodeMethodNotAllowed, "method not allowed", nil)
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler(s.version))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	if s.fs != nil {
		handlers.SetHTTPErrorResponder(errorResponder(s.log))
		h := handlers.NewFS(s.fs, s.readOnly, s.log)
		r.Route("/v1", func(r chi.Router) {
			r.Get("/stat", h.Stat)
			r.Get("/list", h.List)
			r.Get("/glob", h.Glob)
			r.Get("/content", h.GetContent)
			r.Put("/content", h.Writable(h.PutContent))
			r.Delete("/content", h.Writable(h.DeleteContent))
			r.Post("/rename", h.Writable(h.Rename))
			r.Post("/mkdirs", h.Writable(h.Mkdirs))
		})
	}
	return r
}

// errorResponder logs failures that map to a 5xx status before writing the
// envelope; client errors are left to the access log.
func errorResponder(log *zap.Logger) handlers.HTTPErrorResponder {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		code := output.CodeOf(err)
		if apperrors.StatusFor(code) >= http.StatusInternalServerError {
			log.Error("Request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path),
				zap.String("code", code), zap.Error(err))
		}
		apperrors.RespondWithError(w, r, err)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully within
// the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.timeouts.Read,
		WriteTimeout: s.timeouts.Write,
		IdleTimeout:  s.timeouts.Idle,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Gateway listening", zap.String("addr", ln.Addr().String()), zap.Bool("readonly", s.readOnly))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.Shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
