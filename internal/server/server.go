package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nao1215/personashield/internal/database"
	"github.com/nao1215/personashield/internal/ingest"
	"github.com/nao1215/personashield/internal/store"
	"github.com/nao1215/personashield/internal/view"
)

const (
	// DefaultMaxUploadSize bounds a dashboard upload.
	DefaultMaxUploadSize int64 = 32 << 20

	// shutdownTimeout bounds the graceful shutdown.
	shutdownTimeout = 10 * time.Second
)

// Ingester runs one document through inspection and upload.
// *ingest.Ingestor implements it.
type Ingester interface {
	Ingest(ctx context.Context, path string) (*ingest.Job, error)
}

// UploadHistory lists recorded upload attempts. *database.DB implements it.
type UploadHistory interface {
	ListUploads(ctx context.Context, limit int) ([]database.UploadRecord, error)
}

// Server serves the dashboard API.
type Server struct {
	store    *store.Store
	ingester Ingester
	uploads  UploadHistory
	hub      *Hub
	logger   *slog.Logger

	viewOpts       view.Options
	allowedOrigins []string
	maxUploadSize  int64
	version        string
}

// Option configures a Server.
type Option func(*Server)

// WithIngester enables POST /api/analysis/upload.
func WithIngester(in Ingester) Option {
	return func(s *Server) {
		s.ingester = in
	}
}

// WithUploadHistory enables GET /api/uploads.
func WithUploadHistory(h UploadHistory) Option {
	return func(s *Server) {
		s.uploads = h
	}
}

// WithLogger sets the logger for requests and the WebSocket hub.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAllowedOrigins sets the CORS and WebSocket origins. "*" allows all.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithViewOptions sets the options used to build page views.
func WithViewOptions(opts view.Options) Option {
	return func(s *Server) {
		s.viewOpts = opts
	}
}

// WithMaxUploadSize bounds the accepted upload body.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a Server over st.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:         st,
		logger:        slog.New(slog.DiscardHandler),
		viewOpts:      view.DefaultOptions(),
		maxUploadSize: DefaultMaxUploadSize,
		version:       "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger, s.checkOrigin)
	return s
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(s.requestLogger)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Get("/health", s.wrap(s.handleHealth))
	mux.Get("/ws", s.hub.ServeHTTP)

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/pages", s.wrap(s.handlePages))
		rt.Get("/views/{page}", s.wrap(s.handleView))
		rt.Get("/snapshot", s.wrap(s.handleSnapshot))
		rt.Get("/report", s.wrap(s.handleReport))
		rt.Get("/uploads", s.wrap(s.handleUploads))

		rt.Route("/analysis", func(rt chi.Router) {
			rt.Get("/current", s.wrap(s.handleCurrent))
			rt.Delete("/current", s.wrap(s.handleClear))
			rt.Get("/history", s.wrap(s.handleHistory))
			rt.Post("/history/{index}/restore", s.wrap(s.handleRestore))
			rt.Post("/upload", s.wrap(s.handleUpload))
		})
	})

	return mux
}

// start runs the hub and connects it to the store. The returned function
// stops both and waits for the hub to finish.
func (s *Server) start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	go s.hub.Run(ctx)
	unsubscribe := s.hub.Follow(s.store)
	return func() {
		unsubscribe()
		cancel()
		<-s.hub.Done()
	}
}

// ListenAndServe listens on addr and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := s.start(ctx)
	defer stop()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard API listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down dashboard API")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// checkOrigin accepts requests without an Origin header, same-host
// requests and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
		)
	})
}
