package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowscope/pkg/packet"
	"github.com/matzehuels/flowscope/pkg/pipeline"
)

const (
	defaultIdleTimeout  = 120 * time.Second
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 60 * time.Second
)

// Server answers API requests for one loaded capture.
type Server struct {
	records []packet.Record
	runner  *pipeline.Runner
	base    pipeline.Options
	logger  *log.Logger

	srv    *http.Server
	router *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithOptions sets the pipeline options every request starts from.
// Mode and Formats are overridden per request.
func WithOptions(opts pipeline.Options) Option {
	return func(s *Server) { s.base = opts }
}

// WithTimeouts overrides the read and write timeouts of the HTTP server.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.srv.ReadTimeout = read
		}
		if write > 0 {
			s.srv.WriteTimeout = write
		}
	}
}

// NewServer creates a server bound to addr serving records through runner.
func NewServer(addr string, records []packet.Record, runner *pipeline.Runner, opts ...Option) *Server {
	mux := chi.NewRouter()
	s := &Server{
		records: records,
		runner:  runner,
		logger:  log.Default(),
		router:  mux,
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			IdleTimeout:  defaultIdleTimeout,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/graph/{mode}", s.handleGraph)
		r.Get("/layout/{mode}", s.handleLayout)
		r.Get("/render/{mode}.{format}", s.handleRender)
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the address the server listens on.
func (s *Server) Addr() string { return s.srv.Addr }

// ListenAndServe blocks serving requests until ctx is cancelled, then
// shuts the server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.srv.Addr, "records", len(s.records))
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}
