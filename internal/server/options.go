package server

import (
	"time"

	"github.com/agbru/qsieve/internal/logging"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the server logger. A nil logger is ignored.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeouts sets the HTTP and per-request timeouts.
//
// Parameters:
//   - timeouts: The timeout configuration.
//
// Returns:
//   - Option: A functional option that configures the server's timeouts.
func WithTimeouts(timeouts Timeouts) Option {
	return func(s *Server) {
		s.timeouts = timeouts
	}
}

// WithRateLimiter sets the per-client rate limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.rateLimiter = rl
	}
}

// WithSecurityConfig sets the response header and CORS policy.
func WithSecurityConfig(config SecurityConfig) Option {
	return func(s *Server) {
		s.securityConfig = config
	}
}

// WithMaxDigits bounds the length of the decimal 'n' parameter, so that
// oversized inputs are rejected before they are parsed.
func WithMaxDigits(digits int) Option {
	return func(s *Server) {
		s.securityConfig.MaxDigits = digits
	}
}

// Timeouts holds the timeout configuration of the HTTP server.
type Timeouts struct {
	// RequestTimeout bounds a single factorization.
	RequestTimeout time.Duration
	// ShutdownTimeout bounds the graceful drain.
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// DefaultServerTimeouts returns timeouts sized for sieve runs of a few minutes.
func DefaultServerTimeouts() Timeouts {
	return Timeouts{
		RequestTimeout:  5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    6 * time.Minute,
		IdleTimeout:     2 * time.Minute,
	}
}
