package inventory

import (
	"context"
	"fmt"
)

// schemaStatements creates every table the bridge needs. Statements are
// idempotent so EnsureSchema can run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS part_categories (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		parent_id BIGINT REFERENCES part_categories(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_part_categories_parent ON part_categories(parent_id)`,

	`CREATE TABLE IF NOT EXISTS parts (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		category_id BIGINT REFERENCES part_categories(id) ON DELETE SET NULL,
		name TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		ipn TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		in_stock DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_parts_category ON parts(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_parts_name ON parts(name)`,

	`CREATE TABLE IF NOT EXISTS part_parameter_templates (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		units TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS part_parameters (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		part_id BIGINT NOT NULL REFERENCES parts(id) ON DELETE CASCADE,
		template_id BIGINT NOT NULL REFERENCES part_parameter_templates(id) ON DELETE CASCADE,
		data TEXT NOT NULL DEFAULT '',
		UNIQUE (part_id, template_id)
	)`,

	`CREATE TABLE IF NOT EXISTS part_attachments (
		id UUID PRIMARY KEY,
		part_id BIGINT NOT NULL REFERENCES parts(id) ON DELETE CASCADE,
		comment TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_part_attachments_part ON part_attachments(part_id)`,

	`CREATE TABLE IF NOT EXISTS manufacturer_parts (
		id UUID PRIMARY KEY,
		part_id BIGINT NOT NULL REFERENCES parts(id) ON DELETE CASCADE,
		manufacturer TEXT NOT NULL DEFAULT '',
		mpn TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_manufacturer_parts_part ON manufacturer_parts(part_id)`,

	`CREATE TABLE IF NOT EXISTS kicad_category_configs (
		id UUID PRIMARY KEY,
		category_id BIGINT NOT NULL UNIQUE REFERENCES part_categories(id) ON DELETE CASCADE,
		default_symbol TEXT NOT NULL DEFAULT '',
		default_footprint TEXT NOT NULL DEFAULT '',
		default_reference TEXT NOT NULL DEFAULT '',
		default_value_template_id BIGINT REFERENCES part_parameter_templates(id) ON DELETE SET NULL,
		footprint_template_id BIGINT REFERENCES part_parameter_templates(id) ON DELETE SET NULL
	)`,

	`CREATE TABLE IF NOT EXISTS kicad_footprint_mappings (
		id UUID PRIMARY KEY,
		config_id UUID NOT NULL REFERENCES kicad_category_configs(id) ON DELETE CASCADE,
		parameter_value TEXT NOT NULL,
		footprint TEXT NOT NULL,
		UNIQUE (config_id, parameter_value)
	)`,

	`CREATE TABLE IF NOT EXISTS kicad_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS kicad_import_progress (
		username TEXT PRIMARY KEY,
		percent INTEGER NOT NULL DEFAULT 0,
		file_name TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS kicad_import_runs (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		file_name TEXT NOT NULL,
		format TEXT NOT NULL,
		components INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		datasheets INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'running',
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		finished_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kicad_import_runs_started ON kicad_import_runs(started_at DESC)`,
}

// EnsureSchema creates any missing tables and indexes. It is safe to
// call on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
