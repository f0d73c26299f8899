package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/rhuss/ollabridge/pkg/observability"
	"github.com/rhuss/ollabridge/pkg/transport"
)

// Server wraps an http.Server with the transport adapter and manages
// the full lifecycle including startup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	adapter    *Adapter
	config     ServerConfig
	logger     *slog.Logger
}

// ServerConfig holds configuration for the transport server.
type ServerConfig struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout time.Duration
	Logger          *slog.Logger

	// AllowedOrigins lists CORS origins. Empty means any origin.
	AllowedOrigins []string

	// Metrics enables the Prometheus middleware and GET /metrics.
	Metrics bool

	// Auth wraps every route; bypass rules are the middleware's concern.
	Auth func(http.Handler) http.Handler

	// InFlight, when set, holds active streams that are cancelled once
	// half of the shutdown timeout has passed.
	InFlight *transport.InFlightRegistry
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":11434",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30 * time.Second,
		Logger:          slog.Default(),
		Metrics:         true,
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.config.Addr = addr }
}

// WithMaxBodySize sets the maximum request body size.
func WithMaxBodySize(n int64) ServerOption {
	return func(s *Server) { s.config.MaxBodySize = n }
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.config.Logger = l; s.logger = l }
}

// WithAllowedOrigins restricts CORS to the given origins.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.config.AllowedOrigins = origins }
}

// WithMetrics enables or disables Prometheus metrics.
func WithMetrics(enabled bool) ServerOption {
	return func(s *Server) { s.config.Metrics = enabled }
}

// WithAuth installs authentication middleware.
func WithAuth(mw func(http.Handler) http.Handler) ServerOption {
	return func(s *Server) { s.config.Auth = mw }
}

// WithInFlight sets the registry of active streams to cancel on shutdown.
func WithInFlight(r *transport.InFlightRegistry) ServerOption {
	return func(s *Server) { s.config.InFlight = r }
}

// NewServer creates a new transport server with the given handler, catalog
// and options. Default middleware (recovery, request ID, logging) is
// applied to the handler automatically.
//
// HTTP middleware order, outermost first: CORS, request ID, auth, metrics,
// mux. Metrics sits directly on the mux so it can read the matched route.
func NewServer(handler transport.Handler, catalog Catalog, opts ...ServerOption) *Server {
	s := &Server{
		config: DefaultServerConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	defaultMW := []transport.Middleware{
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(s.logger),
	}

	s.adapter = NewAdapter(handler, catalog, Config{
		MaxBodySize: s.config.MaxBodySize,
		Logger:      s.logger,
	}, defaultMW...)

	var h http.Handler = s.adapter.Mux()
	if s.config.Metrics {
		s.adapter.Mount("GET /metrics", promhttp.Handler())
		h = observability.MetricsMiddleware(h)
	}
	if s.config.Auth != nil {
		h = s.config.Auth(h)
	}
	h = httpRequestIDMiddleware(h)
	h = newCORS(s.config.AllowedOrigins).Handler(h)

	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// newCORS allows every method and header the Ollama API uses. Preflight
// requests are answered with 200 and an empty body.
func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:       origins,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions, http.MethodHead},
		AllowedHeaders:       []string{"*"},
		ExposedHeaders:       []string{"X-Request-ID"},
		OptionsSuccessStatus: http.StatusOK,
	})
}

// Handler returns the fully wrapped HTTP handler. Used for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the server and blocks until a shutdown signal
// (SIGINT or SIGTERM) is received. It then gracefully shuts down,
// waiting for in-flight requests to complete within the configured timeout.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if s.config.InFlight != nil {
		timer := time.AfterFunc(s.config.ShutdownTimeout/2, func() {
			if n := s.config.InFlight.CancelAll(); n > 0 {
				s.logger.Warn("cancelled active streams", slog.Int("count", n))
			}
		})
		defer timer.Stop()
	}

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
