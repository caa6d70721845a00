package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ColeUyematsu/RoomMatchv2/internal/observability"
)

// Logging logs each request with method, path, status and duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if requestID, ok := r.Context().Value(observability.RequestIDKey).(string); ok {
			attrs = append(attrs, "request_id", requestID)
		}

		if rw.statusCode >= 500 {
			slog.Error("Request completed", attrs...)
		} else {
			slog.Info("Request completed", attrs...)
		}
	})
}
