package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parttrace/kicadbridge/internal/core"
	"github.com/parttrace/kicadbridge/internal/inventory"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// Resetter clears the bridge-owned tables: category configs, footprint
// mappings, stored settings, progress rows and import history.
// Inventory data is never touched.
type Resetter struct {
	Store    *inventory.Store
	Settings *core.SettingsService
}

// ResetAll truncates the plugin state and reloads the settings cache so
// registered defaults take effect again.
func (r *Resetter) ResetAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	if err := r.Store.ResetPluginState(ctx); err != nil {
		return err
	}
	if err := r.Settings.Load(ctx); err != nil {
		return fmt.Errorf("reload settings after reset: %w", err)
	}

	slog.Info("plugin state reset")
	return nil
}
