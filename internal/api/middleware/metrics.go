package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/ColeUyematsu/RoomMatchv2/internal/observability"
)

// Numeric path segment (user ids), e.g. /v1/users/42/similar.
var numericSegmentRegex = regexp.MustCompile(`/\d+(/|$)`)

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics returns middleware that records HTTP request duration via
// MatcherMetrics. When metrics is nil, recording is skipped. Put Metrics
// outermost so duration covers the full request.
func Metrics(metrics observability.MatcherMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			metrics.RecordRequest(r.Context(), r.Method, normalizeRoute(r.URL.Path), statusToClass(rw.statusCode), time.Since(start))
		})
	}
}

// normalizeRoute replaces numeric path segments with {id} to bound cardinality.
func normalizeRoute(path string) string {
	return numericSegmentRegex.ReplaceAllString(path, "/{id}$1")
}

// statusToClass maps an HTTP status code to 1xx..5xx.
func statusToClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status >= 100:
		return "1xx"
	default:
		return "unknown"
	}
}
