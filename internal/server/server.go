// Package server exposes factorization over HTTP.
//
// Endpoints:
//
//	GET /factor?n=<decimal>   factor one integer
//	GET /health               liveness probe
//	GET /metrics              Prometheus exposition
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/agbru/qsieve/internal/config"
	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/logging"
	"github.com/agbru/qsieve/internal/service"
)

// Server is the HTTP front end of the factoring service. It wraps an
// http.Server with the middleware chain and graceful shutdown.
type Server struct {
	service        service.Service
	cfg            config.AppConfig
	mux            *http.ServeMux
	httpServer     *http.Server
	logger         logging.Logger
	shutdownSignal chan os.Signal
	rateLimiter    *RateLimiter
	securityConfig SecurityConfig
	metrics        *Metrics
	timeouts       Timeouts
}

// NewServer creates a Server that answers requests with svc.
//
// Parameters:
//   - svc: The factorization service.
//   - cfg: The application configuration (port, limits).
//   - opts: Functional options (WithLogger, WithTimeouts, ...).
//
// Returns:
//   - *Server: The configured server, not yet listening.
func NewServer(svc service.Service, cfg config.AppConfig, opts ...Option) *Server {
	s := &Server{
		service:        svc,
		cfg:            cfg,
		logger:         logging.NewLogger(os.Stderr, "server", cfg.LogLevel),
		shutdownSignal: make(chan os.Signal, 1),
		securityConfig: DefaultSecurityConfig(),
		metrics:        NewMetrics(),
		timeouts:       DefaultServerTimeouts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rateLimiter == nil {
		s.rateLimiter = NewRateLimiter(DefaultRateLimiterConfig())
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/factor", s.wrapWithMiddleware(s.handleFactor))
	s.mux.HandleFunc("/health", s.wrapWithMiddleware(s.handleHealth))
	s.mux.HandleFunc("/metrics", s.wrapWithMiddleware(s.handleMetrics))

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.mux,
		ReadTimeout:  s.timeouts.ReadTimeout,
		WriteTimeout: s.timeouts.WriteTimeout,
		IdleTimeout:  s.timeouts.IdleTimeout,
	}
	return s
}

// Handler returns the routed handler with its middleware, for embedding
// the API in another server or in tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// wrapWithMiddleware builds Security -> RateLimit -> Logging -> Metrics -> handler.
func (s *Server) wrapWithMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	wrapped := s.metricsMiddleware(handler)
	wrapped = s.loggingMiddleware(wrapped)
	wrapped = RateLimitMiddleware(s.rateLimiter, wrapped)
	return SecurityMiddleware(s.securityConfig, wrapped)
}

// Start listens on the configured port until SIGINT or SIGTERM, then drains
// in-flight requests within the shutdown timeout.
//
// Returns:
//   - error: A ServerError if listening or shutdown fails.
func (s *Server) Start() error {
	signal.Notify(s.shutdownSignal, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(s.shutdownSignal)
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			logging.String("addr", s.httpServer.Addr),
			logging.Int("max_bits", s.cfg.MaxBits),
			logging.Int("workers", s.cfg.Workers))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-s.shutdownSignal:
		s.logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case err := <-errCh:
		return apperrors.NewServerError("server failed to start", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeouts.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return apperrors.NewServerError("failed to gracefully shutdown server", err)
	}
	s.logger.Info("server stopped")
	return nil
}
