package core

// service_catalog.go is the read side served to KiCad plus the category
// configuration operations behind the admin API.

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/parttrace/kicadbridge/internal/inventory"
)

// BaseURL returns the configured external server URL without a
// trailing slash.
func (s *Service) BaseURL() string {
	return s.baseURL
}

// Ping checks database connectivity, for health probes.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Categories returns the categories exposed to the CAD client: only
// those carrying a configuration, each with its slash-joined path.
func (s *Service) Categories(ctx context.Context) ([]inventory.Category, error) {
	return s.store.ConfiguredCategories(ctx)
}

// AllCategories returns every inventory category with its path, whether
// configured or not. The admin API serves it so a config can be
// attached by id without guessing.
func (s *Service) AllCategories(ctx context.Context) ([]inventory.Category, error) {
	return s.store.Categories(ctx)
}

// PartPreview is one row in a category part listing.
type PartPreview struct {
	ID          int64
	Name        string
	Description string
}

// PartsForCategory lists the previews shown when a category is opened.
// With subcategories enabled the whole subtree is included. An unknown
// category id lists every part, matching the desktop plugin's
// behavior for stale category links.
func (s *Service) PartsForCategory(ctx context.Context, categoryID int64) ([]PartPreview, error) {
	snap := s.settings.Snapshot()
	hideInactive := snap.Bool(SettingHideInactiveParts)

	var (
		parts []inventory.Part
		err   error
	)

	_, lookupErr := s.store.CategoryByID(ctx, categoryID)
	switch {
	case errors.Is(lookupErr, inventory.ErrNotFound):
		parts, err = s.store.AllParts(ctx, hideInactive)
	case lookupErr != nil:
		return nil, lookupErr
	case snap.Bool(SettingEnableSubcategory):
		ids, idsErr := s.store.DescendantCategoryIDs(ctx, categoryID)
		if idsErr != nil {
			return nil, idsErr
		}
		parts, err = s.store.PartsByCategory(ctx, ids, hideInactive)
	default:
		parts, err = s.store.PartsByCategory(ctx, []int64{categoryID}, hideInactive)
	}
	if err != nil {
		return nil, err
	}

	previews := make([]PartPreview, len(parts))
	for i, p := range parts {
		previews[i] = PartPreview{
			ID:          p.ID,
			Name:        DisplayName(p, snap),
			Description: DisplayDescription(p, snap),
		}
	}
	return previews, nil
}

// PartDetail resolves the full KiCad view of one part: symbol,
// footprint, exclusions and the field table.
func (s *Service) PartDetail(ctx context.Context, partID int64) (PartDetails, error) {
	part, err := s.store.PartByID(ctx, partID)
	if err != nil {
		return PartDetails{}, err
	}

	in := ResolveInput{
		Part:     part,
		Settings: s.settings.Snapshot(),
		BaseURL:  s.baseURL,
	}

	if part.CategoryID != nil {
		config, cfgErr := s.store.DeepestConfigFor(ctx, *part.CategoryID)
		switch {
		case errors.Is(cfgErr, inventory.ErrNotFound):
		case cfgErr != nil:
			return PartDetails{}, cfgErr
		default:
			in.Config = &config
			if in.Mappings, err = s.store.MappingsForConfig(ctx, config.ID); err != nil {
				return PartDetails{}, err
			}
		}
	}

	if in.Parameters, err = s.store.ParametersForPart(ctx, partID); err != nil {
		return PartDetails{}, err
	}
	if in.Attachments, err = s.store.AttachmentsForPart(ctx, partID); err != nil {
		return PartDetails{}, err
	}
	if in.Settings.Bool(SettingManufacturerData) {
		if in.Manufacturers, err = s.store.ManufacturerPartsFor(ctx, partID); err != nil {
			return PartDetails{}, err
		}
	}

	return Resolve(in), nil
}

// FieldVisibilityMap is the settings-discovery payload: every known
// field name mapped to "1" or "0".
func (s *Service) FieldVisibilityMap(ctx context.Context) (map[string]string, error) {
	templates, err := s.store.Templates(ctx)
	if err != nil {
		return nil, err
	}
	return FieldVisibility(templates), nil
}

// CategoryConfigs lists every per-category configuration.
func (s *Service) CategoryConfigs(ctx context.Context) ([]inventory.CategoryConfig, error) {
	return s.store.CategoryConfigs(ctx)
}

// CategoryConfig returns one configuration by id.
func (s *Service) CategoryConfig(ctx context.Context, id uuid.UUID) (inventory.CategoryConfig, error) {
	return s.store.CategoryConfigByID(ctx, id)
}

// CreateCategoryConfig adds a configuration for a category. The
// category must exist; one config per category.
func (s *Service) CreateCategoryConfig(ctx context.Context, c inventory.CategoryConfig) (inventory.CategoryConfig, error) {
	if _, err := s.store.CategoryByID(ctx, c.CategoryID); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return inventory.CategoryConfig{}, fmt.Errorf("invalid id: unknown category %d", c.CategoryID)
		}
		return inventory.CategoryConfig{}, err
	}
	return s.store.CreateCategoryConfig(ctx, c)
}

// UpdateCategoryConfig rewrites a configuration's defaults.
func (s *Service) UpdateCategoryConfig(ctx context.Context, c inventory.CategoryConfig) (inventory.CategoryConfig, error) {
	return s.store.UpdateCategoryConfig(ctx, c)
}

// DeleteCategoryConfig removes a configuration and its mappings.
func (s *Service) DeleteCategoryConfig(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteCategoryConfig(ctx, id)
}

// ConfigMappings lists the footprint rewrites of one configuration.
func (s *Service) ConfigMappings(ctx context.Context, configID uuid.UUID) ([]inventory.FootprintMapping, error) {
	return s.store.MappingsForConfig(ctx, configID)
}

// AddFootprintMapping adds one footprint rewrite rule.
func (s *Service) AddFootprintMapping(ctx context.Context, m inventory.FootprintMapping) (inventory.FootprintMapping, error) {
	return s.store.AddFootprintMapping(ctx, m)
}

// DeleteFootprintMapping removes one rewrite rule.
func (s *Service) DeleteFootprintMapping(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteFootprintMapping(ctx, id)
}
