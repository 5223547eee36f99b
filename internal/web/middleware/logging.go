// Package middleware provides HTTP middleware for the bridge server.
package middleware

import (
	"net/http"
	"time"

	"github.com/parttrace/kicadbridge/internal/logging"
)

// Logger logs one structured entry per request: method, path, status,
// duration, client IP and user agent. Entries carry the chi request id
// through logging.FromContext so a request can be traced across log
// lines.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		logger := logging.FromContext(r.Context())
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	})
}
