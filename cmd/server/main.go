package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/parttrace/kicadbridge/internal/admin"
	"github.com/parttrace/kicadbridge/internal/config"
	"github.com/parttrace/kicadbridge/internal/core"
	_ "github.com/parttrace/kicadbridge/internal/core/settings" // Register all plugin settings
	"github.com/parttrace/kicadbridge/internal/inventory"
	"github.com/parttrace/kicadbridge/internal/logging"
	"github.com/parttrace/kicadbridge/internal/metrics"
	"github.com/parttrace/kicadbridge/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	pool, err := inventory.NewPool(ctx, inventory.PoolSettings{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	store := inventory.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	settings := core.NewSettingsService(store)
	if err := settings.Load(ctx); err != nil {
		slog.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	seeder := &admin.Seeder{Store: store, Settings: settings}
	if cfg.Seed.File != "" {
		if err := seeder.ApplyFile(ctx, cfg.Seed.File); err != nil {
			slog.Error("failed to apply seed file", "file", cfg.Seed.File, "error", err)
			os.Exit(1)
		}
		slog.Info("seed file applied", "file", cfg.Seed.File)
	}

	recorder := metrics.NewRecorder()

	service := core.NewService(store, settings, core.ServiceConfig{
		BaseURL:       cfg.Server.ExternalURL,
		ImportTimeout: cfg.Import.Timeout,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		QueueWait:     cfg.Import.MaxWaitTime,
		Metrics:       recorder,
	})

	slog.Info("settings registered", "count", len(core.AllSettings()))

	server := web.NewServer(cfg, web.Deps{
		Service:  service,
		Recorder: recorder,
		Seeder:   seeder,
		Resetter: &admin.Resetter{Store: store, Settings: settings},
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight imports finish before closing the pool
		status := service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Start returns as soon as Shutdown is called; wait for the drain
	// to finish before the deferred pool.Close runs.
	<-done
	slog.Info("server stopped")
}
