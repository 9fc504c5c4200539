package server

import (
	"net/http"
	"time"

	"github.com/agbru/qsieve/internal/logging"
)

// loggingMiddleware logs each request with its duration at debug level.
func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		s.logger.Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String("remote", r.RemoteAddr),
			logging.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000))
	}
}
