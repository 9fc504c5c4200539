package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes request-level counters. Sieve counters live in the
// qsieve package and share the default registry.
type Metrics struct {
	handler http.Handler
}

var (
	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qsieve_active_requests",
		Help: "Current number of in-flight HTTP requests",
	})
	totalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qsieve_requests_total",
		Help: "Total number of HTTP requests by path and status code",
	}, []string{"path", "code"})
)

// NewMetrics creates a Metrics serving the default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{handler: promhttp.Handler()}
}

// RequestStarted increments the in-flight gauge.
func (m *Metrics) RequestStarted() {
	activeRequests.Inc()
}

// RequestFinished decrements the in-flight gauge and counts the request.
func (m *Metrics) RequestFinished(path string, code int) {
	activeRequests.Dec()
	totalRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.metrics.handler.ServeHTTP(w, r)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		s.metrics.RequestStarted()
		defer func() { s.metrics.RequestFinished(r.URL.Path, rec.code) }()
		next(rec, r)
	}
}
