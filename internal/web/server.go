// Package web provides the HTTP surface of the bridge: the KiCad
// library endpoints under /v1, the admin API under /api, and the
// metadata upload pipeline.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/parttrace/kicadbridge/internal/admin"
	"github.com/parttrace/kicadbridge/internal/config"
	"github.com/parttrace/kicadbridge/internal/core"
	"github.com/parttrace/kicadbridge/internal/metrics"
	"github.com/parttrace/kicadbridge/internal/web/middleware"
)

// Deps are the collaborators the server exposes over HTTP. Recorder,
// Seeder and Resetter may be nil; the matching endpoints then report
// themselves unavailable.
type Deps struct {
	Service  *core.Service
	Recorder *metrics.Recorder
	Seeder   *admin.Seeder
	Resetter *admin.Resetter
}

// Server is the HTTP server for the KiCad library bridge.
type Server struct {
	service  *core.Service
	recorder *metrics.Recorder
	seeder   *admin.Seeder
	resetter *admin.Resetter
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		service:  deps.Service,
		recorder: deps.Recorder,
		seeder:   deps.Seeder,
		resetter: deps.Resetter,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes. The request
// timeout is applied per route group instead, since uploads and
// progress streams legitimately outlive it.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Auth.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(securityHeaders)

	if s.recorder != nil {
		s.router.Use(middleware.Metrics(s.recorder))
	}

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	timeout := chimw.Timeout(s.cfg.Server.RequestTimeout)

	// KiCad library endpoints, in the shape the HTTP library client
	// expects.
	s.router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Auth))

		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.Get("/", s.handleIndex)
			r.Get("/categories.json", s.handleCategories)
			r.Get("/parts/category/{id}.json", s.handleCategoryParts)
			r.Get("/parts/{id}.json", s.handlePartDetail)
			r.Get("/settings.json", s.handleFieldVisibility)
			r.Get("/progress.json", s.handleProgress)
		})

		// The upload request blocks until the import finishes and the
		// progress stream stays open while it runs, so both are bounded
		// by the import timeout rather than the request timeout.
		if s.cfg.Rate.Enabled {
			importLimiter := newRateLimiter(s.cfg.Rate.ImportPerMinute, time.Minute)
			r.With(importLimiter.middleware).Post("/upload.json", s.handleUpload)
		} else {
			r.Post("/upload.json", s.handleUpload)
		}
		r.Get("/progress/stream", s.handleProgressStream)
	})

	// Admin API for category configs, mappings and settings.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Auth))
		r.Use(timeout)

		r.Get("/categories", s.handleListCategories)

		r.Get("/category", s.handleListConfigs)
		r.Post("/category", s.handleCreateConfig)
		r.Get("/category/{id}", s.handleGetConfig)
		r.Put("/category/{id}", s.handleUpdateConfig)
		r.Delete("/category/{id}", s.handleDeleteConfig)

		r.Get("/category/{id}/mappings", s.handleListMappings)
		r.Post("/category/{id}/mappings", s.handleCreateMapping)
		r.Delete("/mappings/{id}", s.handleDeleteMapping)

		r.Get("/settings", s.handleListSettings)
		r.Get("/settings/{key}", s.handleGetSetting)
		r.Put("/settings/{key}", s.handlePutSetting)

		r.Get("/imports", s.handleImportRuns)
		r.Get("/imports/{id}/progress", s.handleImportProgress)
		r.Post("/imports/{id}/cancel", s.handleCancelImport)

		r.Post("/admin/reset", s.handleReset)
		r.Post("/admin/seed", s.handleSeed)
	})

	// Unauthenticated operational endpoints.
	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, metrics.Handler())
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps SSE streams open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// Responses are JSON or SSE; nothing should load subresources
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeError writes a minimal JSON error for failures that carry no
// underlying error value, e.g. straight from middleware. Handlers with
// a real error go through respondError instead.
func writeError(w http.ResponseWriter, status int, message string) {
	slog.Warn("request rejected", "status", status, "error", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`+"\n", message)
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// writeJSONStatus is writeJSON with an explicit status code.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
