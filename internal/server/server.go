// Package server exposes the scene over HTTP: frames and state for
// renderers, input events, uploads and removals.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/signalsfoundry/memory-orbs/internal/ingest"
	"github.com/signalsfoundry/memory-orbs/internal/input"
	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/observability"
	"github.com/signalsfoundry/memory-orbs/internal/scene"
)

// DefaultMaxUploadBytes caps the body of one upload request.
const DefaultMaxUploadBytes = 32 << 20

const requestIDHeader = "X-Request-ID"

var validate = validator.New()

// Server routes HTTP requests onto a scene.
type Server struct {
	scene      *scene.Scene
	controller *input.Controller
	ingestor   *ingest.Ingestor
	metrics    *observability.SceneCollector
	log        logging.Logger
	maxUpload  int64
	origins    []string
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the base logger; each request gets a child carrying its
// request_id.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(c *observability.SceneCollector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithAllowedOrigins enables CORS for browser renderers on other origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// New builds a Server. in may be nil, in which case uploads are refused.
func New(sc *scene.Scene, ctl *input.Controller, in *ingest.Ingestor, opts ...Option) *Server {
	s := &Server{
		scene:      sc,
		controller: ctl,
		ingestor:   in,
		log:        logging.Noop(),
		maxUpload:  DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.controller == nil {
		s.controller = input.NewController(sc)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Middleware)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/frame", s.handleFrame)
		r.Get("/state", s.handleState)
		r.Post("/events", s.handleEvent)
		r.Post("/uploads", s.handleUpload)
		r.Delete("/memories/{id}", s.handleRemove)
		r.Post("/memories/{id}/focus", s.handleFocus)
	})
	return r
}

// requestLogger attaches a request-scoped logger, honouring an inbound
// X-Request-ID, and logs each completed request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, reqLog := logging.WithRequestLogger(r.Context(), s.log, r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		reqLog.Debug(ctx, "http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func ListenAndServe(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, log logging.Logger) error {
	if log == nil {
		log = logging.Noop()
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", logging.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info(ctx, "http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
