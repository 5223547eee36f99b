package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const configColumns = `id, category_id, default_symbol, default_footprint, default_reference,
	default_value_template_id, footprint_template_id`

func scanCategoryConfig(row pgx.Row) (CategoryConfig, error) {
	var (
		c  CategoryConfig
		id pgtype.UUID
	)
	err := row.Scan(&id, &c.CategoryID, &c.DefaultSymbol, &c.DefaultFootprint,
		&c.DefaultReference, &c.DefaultValueTemplateID, &c.FootprintTemplateID)
	c.ID = PgUUIDValue(id)
	return c, err
}

// CategoryConfigs returns every per-category configuration.
func (s *Store) CategoryConfigs(ctx context.Context) ([]CategoryConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+configColumns+` FROM kicad_category_configs ORDER BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category configs: %w", err)
	}
	defer rows.Close()

	var out []CategoryConfig
	for rows.Next() {
		c, err := scanCategoryConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category config: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category configs: %w", err)
	}
	return out, nil
}

// CategoryConfigByID returns one configuration or ErrNotFound.
func (s *Store) CategoryConfigByID(ctx context.Context, id uuid.UUID) (CategoryConfig, error) {
	c, err := scanCategoryConfig(s.pool.QueryRow(ctx,
		`SELECT `+configColumns+` FROM kicad_category_configs WHERE id = $1`, ToPgUUID(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return CategoryConfig{}, ErrNotFound
	}
	if err != nil {
		return CategoryConfig{}, fmt.Errorf("failed to query category config %s: %w", id, err)
	}
	return c, nil
}

// CategoryConfigForCategory returns the configuration attached directly
// to the given category, or ErrNotFound.
func (s *Store) CategoryConfigForCategory(ctx context.Context, categoryID int64) (CategoryConfig, error) {
	c, err := scanCategoryConfig(s.pool.QueryRow(ctx,
		`SELECT `+configColumns+` FROM kicad_category_configs WHERE category_id = $1`, categoryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return CategoryConfig{}, ErrNotFound
	}
	if err != nil {
		return CategoryConfig{}, fmt.Errorf("failed to query config for category %d: %w", categoryID, err)
	}
	return c, nil
}

// DeepestConfigFor walks from the given category up to the root and
// returns the first configuration found, so a part inherits defaults
// from its closest configured ancestor. Returns ErrNotFound when no
// ancestor is configured.
func (s *Store) DeepestConfigFor(ctx context.Context, categoryID int64) (CategoryConfig, error) {
	c, err := scanCategoryConfig(s.pool.QueryRow(ctx, `WITH RECURSIVE ancestors AS (
			SELECT id, parent_id, 0 AS depth FROM part_categories WHERE id = $1
			UNION ALL
			SELECT c.id, c.parent_id, a.depth + 1
			FROM part_categories c
			JOIN ancestors a ON c.id = a.parent_id
		)
		SELECT k.id, k.category_id, k.default_symbol, k.default_footprint, k.default_reference,
			k.default_value_template_id, k.footprint_template_id
		FROM kicad_category_configs k
		JOIN ancestors a ON a.id = k.category_id
		ORDER BY a.depth
		LIMIT 1`, categoryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return CategoryConfig{}, ErrNotFound
	}
	if err != nil {
		return CategoryConfig{}, fmt.Errorf("failed to resolve config for category %d: %w", categoryID, err)
	}
	return c, nil
}

// CreateCategoryConfig inserts a new per-category configuration. A
// second config for the same category returns ErrConflict.
func (s *Store) CreateCategoryConfig(ctx context.Context, c CategoryConfig) (CategoryConfig, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	out, err := scanCategoryConfig(s.pool.QueryRow(ctx, `INSERT INTO kicad_category_configs
			(id, category_id, default_symbol, default_footprint, default_reference,
			default_value_template_id, footprint_template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+configColumns,
		ToPgUUID(c.ID), c.CategoryID, c.DefaultSymbol, c.DefaultFootprint,
		c.DefaultReference, c.DefaultValueTemplateID, c.FootprintTemplateID))
	if isUniqueViolation(err) {
		return CategoryConfig{}, fmt.Errorf("category %d: %w", c.CategoryID, ErrConflict)
	}
	if err != nil {
		return CategoryConfig{}, fmt.Errorf("failed to create config for category %d: %w", c.CategoryID, err)
	}
	return out, nil
}

// UpdateCategoryConfig rewrites the defaults of an existing config.
// The category binding itself is immutable.
func (s *Store) UpdateCategoryConfig(ctx context.Context, c CategoryConfig) (CategoryConfig, error) {
	out, err := scanCategoryConfig(s.pool.QueryRow(ctx, `UPDATE kicad_category_configs SET
			default_symbol = $2,
			default_footprint = $3,
			default_reference = $4,
			default_value_template_id = $5,
			footprint_template_id = $6
		WHERE id = $1
		RETURNING `+configColumns,
		ToPgUUID(c.ID), c.DefaultSymbol, c.DefaultFootprint, c.DefaultReference,
		c.DefaultValueTemplateID, c.FootprintTemplateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return CategoryConfig{}, ErrNotFound
	}
	if err != nil {
		return CategoryConfig{}, fmt.Errorf("failed to update category config %s: %w", c.ID, err)
	}
	return out, nil
}

// DeleteCategoryConfig removes a config and, via cascade, its footprint
// mappings. Returns ErrNotFound if no row matched.
func (s *Store) DeleteCategoryConfig(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM kicad_category_configs WHERE id = $1`, ToPgUUID(id))
	if err != nil {
		return fmt.Errorf("failed to delete category config %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MappingsForConfig returns the footprint rewrites of one config,
// ordered by the raw parameter value.
func (s *Store) MappingsForConfig(ctx context.Context, configID uuid.UUID) ([]FootprintMapping, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, config_id, parameter_value, footprint
		FROM kicad_footprint_mappings
		WHERE config_id = $1
		ORDER BY parameter_value`, ToPgUUID(configID))
	if err != nil {
		return nil, fmt.Errorf("failed to query footprint mappings: %w", err)
	}
	defer rows.Close()

	var out []FootprintMapping
	for rows.Next() {
		var (
			m      FootprintMapping
			id     pgtype.UUID
			confID pgtype.UUID
		)
		if err := rows.Scan(&id, &confID, &m.ParameterValue, &m.Footprint); err != nil {
			return nil, fmt.Errorf("failed to scan footprint mapping: %w", err)
		}
		m.ID = PgUUIDValue(id)
		m.ConfigID = PgUUIDValue(confID)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read footprint mappings: %w", err)
	}
	return out, nil
}

// AddFootprintMapping inserts one rewrite rule. A duplicate parameter
// value within the same config returns ErrConflict.
func (s *Store) AddFootprintMapping(ctx context.Context, m FootprintMapping) (FootprintMapping, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO kicad_footprint_mappings
			(id, config_id, parameter_value, footprint)
		VALUES ($1, $2, $3, $4)
		RETURNING parameter_value, footprint`,
		ToPgUUID(m.ID), ToPgUUID(m.ConfigID), m.ParameterValue, m.Footprint).
		Scan(&m.ParameterValue, &m.Footprint)
	if isUniqueViolation(err) {
		return FootprintMapping{}, fmt.Errorf("mapping for %q: %w", m.ParameterValue, ErrConflict)
	}
	if err != nil {
		return FootprintMapping{}, fmt.Errorf("failed to add footprint mapping: %w", err)
	}
	return m, nil
}

// DeleteFootprintMapping removes one rewrite rule. Returns ErrNotFound
// if no row matched.
func (s *Store) DeleteFootprintMapping(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM kicad_footprint_mappings WHERE id = $1`, ToPgUUID(id))
	if err != nil {
		return fmt.Errorf("failed to delete footprint mapping %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
