// Package logging configures log/slog for the bridge and derives
// request-scoped loggers from chi request IDs.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the process-wide slog default.
//
// level is one of "debug", "info", "warn", "error" (default "info");
// format is "json" or "text" (default "text"). JSON suits log
// pipelines, text suits a terminal.
func Setup(level, format string) {
	slog.SetDefault(slog.New(newHandler(level, format)))
}

func newHandler(level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger enriched with the chi request
// id when the context carries one, so every entry written while
// serving one request can be correlated.
//
//	func handlePartDetail(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("resolving part", "part_id", partID)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return slog.Default().With("request_id", reqID)
	}
	return slog.Default()
}

// WithFields returns a request-scoped logger carrying extra fields.
// The import service builds one per run, so lines logged after the
// upload response has gone out still carry the upload's request id.
//
//	log := logging.WithFields(ctx, "import_id", id, "username", user)
//	log.Info("import started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
