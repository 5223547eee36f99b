package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const partColumns = `id, category_id, name, full_name, ipn, description, keywords, link, active, in_stock`

func scanPart(row pgx.Row) (Part, error) {
	var p Part
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.FullName, &p.IPN,
		&p.Description, &p.Keywords, &p.Link, &p.Active, &p.InStock)
	return p, err
}

func scanParts(rows pgx.Rows) ([]Part, error) {
	defer rows.Close()
	var out []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan part: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parts: %w", err)
	}
	return out, nil
}

// PartByID returns one part or ErrNotFound.
func (s *Store) PartByID(ctx context.Context, id int64) (Part, error) {
	p, err := scanPart(s.pool.QueryRow(ctx,
		`SELECT `+partColumns+` FROM parts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Part{}, ErrNotFound
	}
	if err != nil {
		return Part{}, fmt.Errorf("failed to query part %d: %w", id, err)
	}
	return p, nil
}

// PartByName returns the lowest-id part with the given name, or
// ErrNotFound. Imports fall back to it when the numeric id lookup
// misses and the fallback setting is on.
func (s *Store) PartByName(ctx context.Context, name string) (Part, error) {
	p, err := scanPart(s.pool.QueryRow(ctx,
		`SELECT `+partColumns+` FROM parts WHERE name = $1 ORDER BY id LIMIT 1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Part{}, ErrNotFound
	}
	if err != nil {
		return Part{}, fmt.Errorf("failed to query part %q: %w", name, err)
	}
	return p, nil
}

// PartsByCategory returns the parts in any of the given categories,
// ordered by name. With hideInactive set, inactive parts are omitted.
func (s *Store) PartsByCategory(ctx context.Context, categoryIDs []int64, hideInactive bool) ([]Part, error) {
	q := `SELECT ` + partColumns + ` FROM parts WHERE category_id = ANY($1)`
	if hideInactive {
		q += ` AND active`
	}
	q += ` ORDER BY name, id`

	rows, err := s.pool.Query(ctx, q, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query parts by category: %w", err)
	}
	return scanParts(rows)
}

// AllParts returns every part, ordered by name. With hideInactive set,
// inactive parts are omitted.
func (s *Store) AllParts(ctx context.Context, hideInactive bool) ([]Part, error) {
	q := `SELECT ` + partColumns + ` FROM parts`
	if hideInactive {
		q += ` WHERE active`
	}
	q += ` ORDER BY name, id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query parts: %w", err)
	}
	return scanParts(rows)
}

// UpsertPart inserts or, when p.ID is set and already present, updates a
// part. The seed loader uses it with explicit ids.
func (s *Store) UpsertPart(ctx context.Context, p Part) (Part, error) {
	var row pgx.Row
	if p.ID > 0 {
		row = s.pool.QueryRow(ctx, `INSERT INTO parts
				(id, category_id, name, full_name, ipn, description, keywords, link, active, in_stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				category_id = EXCLUDED.category_id,
				name = EXCLUDED.name,
				full_name = EXCLUDED.full_name,
				ipn = EXCLUDED.ipn,
				description = EXCLUDED.description,
				keywords = EXCLUDED.keywords,
				link = EXCLUDED.link,
				active = EXCLUDED.active,
				in_stock = EXCLUDED.in_stock
			RETURNING `+partColumns,
			p.ID, p.CategoryID, p.Name, p.FullName, p.IPN, p.Description,
			p.Keywords, p.Link, p.Active, p.InStock)
	} else {
		row = s.pool.QueryRow(ctx, `INSERT INTO parts
				(category_id, name, full_name, ipn, description, keywords, link, active, in_stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+partColumns,
			p.CategoryID, p.Name, p.FullName, p.IPN, p.Description,
			p.Keywords, p.Link, p.Active, p.InStock)
	}

	out, err := scanPart(row)
	if err != nil {
		return Part{}, fmt.Errorf("failed to upsert part %q: %w", p.Name, err)
	}
	return out, nil
}

// TemplateByID returns one parameter template or ErrNotFound.
func (s *Store) TemplateByID(ctx context.Context, id int64) (ParameterTemplate, error) {
	var t ParameterTemplate
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, units, description FROM part_parameter_templates WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Units, &t.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return ParameterTemplate{}, ErrNotFound
	}
	if err != nil {
		return ParameterTemplate{}, fmt.Errorf("failed to query template %d: %w", id, err)
	}
	return t, nil
}

// TemplateByName returns a template by case-insensitive name, or
// ErrNotFound.
func (s *Store) TemplateByName(ctx context.Context, name string) (ParameterTemplate, error) {
	var t ParameterTemplate
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, units, description FROM part_parameter_templates WHERE lower(name) = lower($1)`, name).
		Scan(&t.ID, &t.Name, &t.Units, &t.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return ParameterTemplate{}, ErrNotFound
	}
	if err != nil {
		return ParameterTemplate{}, fmt.Errorf("failed to query template %q: %w", name, err)
	}
	return t, nil
}

// Templates returns all parameter templates ordered by name.
func (s *Store) Templates(ctx context.Context) ([]ParameterTemplate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, units, description FROM part_parameter_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var out []ParameterTemplate
	for rows.Next() {
		var t ParameterTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Units, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return out, nil
}

// EnsureTemplate inserts a template by unique name or updates its units
// and description, returning the stored row.
func (s *Store) EnsureTemplate(ctx context.Context, name, units, description string) (ParameterTemplate, error) {
	var t ParameterTemplate
	err := s.pool.QueryRow(ctx, `INSERT INTO part_parameter_templates (name, units, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET units = EXCLUDED.units, description = EXCLUDED.description
		RETURNING id, name, units, description`, name, units, description).
		Scan(&t.ID, &t.Name, &t.Units, &t.Description)
	if err != nil {
		return ParameterTemplate{}, fmt.Errorf("failed to ensure template %q: %w", name, err)
	}
	return t, nil
}

// ParametersForPart returns the part's parameter values joined with
// their template names and units, ordered by template name.
func (s *Store) ParametersForPart(ctx context.Context, partID int64) ([]PartParameter, error) {
	rows, err := s.pool.Query(ctx, `SELECT p.id, p.part_id, p.template_id, p.data, t.name, t.units
		FROM part_parameters p
		JOIN part_parameter_templates t ON t.id = p.template_id
		WHERE p.part_id = $1
		ORDER BY t.name`, partID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters for part %d: %w", partID, err)
	}
	defer rows.Close()

	var out []PartParameter
	for rows.Next() {
		var p PartParameter
		if err := rows.Scan(&p.ID, &p.PartID, &p.TemplateID, &p.Data, &p.TemplateName, &p.TemplateUnits); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}
	return out, nil
}

// UpsertParameter writes one parameter value. Without override, an
// existing value is left untouched and false is returned. The db
// argument lets import runs execute it inside their transaction.
func (s *Store) UpsertParameter(ctx context.Context, db DBTX, partID, templateID int64, value string, override bool) (bool, error) {
	q := `INSERT INTO part_parameters (part_id, template_id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (part_id, template_id) DO NOTHING`
	if override {
		q = `INSERT INTO part_parameters (part_id, template_id, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (part_id, template_id) DO UPDATE SET data = EXCLUDED.data`
	}

	tag, err := db.Exec(ctx, q, partID, templateID, value)
	if err != nil {
		return false, fmt.Errorf("failed to upsert parameter %d on part %d: %w", templateID, partID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// AttachmentsForPart returns the part's attachments, oldest first.
func (s *Store) AttachmentsForPart(ctx context.Context, partID int64) ([]Attachment, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, part_id, comment, file_name, link, created_at
		FROM part_attachments
		WHERE part_id = $1
		ORDER BY created_at, id`, partID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments for part %d: %w", partID, err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var (
			a  Attachment
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &a.PartID, &a.Comment, &a.FileName, &a.Link, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		a.ID = PgUUIDValue(id)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attachments: %w", err)
	}
	return out, nil
}

// AddAttachment inserts an attachment unless an identical one already
// exists for the part. Returns true if a row was written.
func (s *Store) AddAttachment(ctx context.Context, partID int64, comment, fileName, link string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `INSERT INTO part_attachments (id, part_id, comment, file_name, link)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (
			SELECT 1 FROM part_attachments
			WHERE part_id = $2 AND comment = $3 AND file_name = $4 AND link = $5
		)`, ToPgUUID(uuid.New()), partID, comment, fileName, link)
	if err != nil {
		return false, fmt.Errorf("failed to add attachment to part %d: %w", partID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// AddDatasheetLink attaches url as the part's datasheet unless the part
// already has an attachment whose comment is "datasheet" in any casing.
// Returns true if a row was written.
func (s *Store) AddDatasheetLink(ctx context.Context, db DBTX, partID int64, url string) (bool, error) {
	tag, err := db.Exec(ctx, `INSERT INTO part_attachments (id, part_id, comment, link)
		SELECT $1, $2, 'datasheet', $3
		WHERE NOT EXISTS (
			SELECT 1 FROM part_attachments
			WHERE part_id = $2 AND lower(comment) = 'datasheet'
		)`, ToPgUUID(uuid.New()), partID, url)
	if err != nil {
		return false, fmt.Errorf("failed to attach datasheet to part %d: %w", partID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ManufacturerPartsFor returns the part's manufacturer links ordered by
// manufacturer name.
func (s *Store) ManufacturerPartsFor(ctx context.Context, partID int64) ([]ManufacturerPart, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, part_id, manufacturer, mpn
		FROM manufacturer_parts
		WHERE part_id = $1
		ORDER BY manufacturer, mpn`, partID)
	if err != nil {
		return nil, fmt.Errorf("failed to query manufacturer parts for part %d: %w", partID, err)
	}
	defer rows.Close()

	var out []ManufacturerPart
	for rows.Next() {
		var (
			m  ManufacturerPart
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &m.PartID, &m.Manufacturer, &m.MPN); err != nil {
			return nil, fmt.Errorf("failed to scan manufacturer part: %w", err)
		}
		m.ID = PgUUIDValue(id)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manufacturer parts: %w", err)
	}
	return out, nil
}

// AddManufacturerPart inserts a manufacturer link unless the same
// (manufacturer, mpn) pair already exists for the part.
func (s *Store) AddManufacturerPart(ctx context.Context, partID int64, manufacturer, mpn string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `INSERT INTO manufacturer_parts (id, part_id, manufacturer, mpn)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1 FROM manufacturer_parts
			WHERE part_id = $2 AND manufacturer = $3 AND mpn = $4
		)`, ToPgUUID(uuid.New()), partID, manufacturer, mpn)
	if err != nil {
		return false, fmt.Errorf("failed to add manufacturer part to part %d: %w", partID, err)
	}
	return tag.RowsAffected() > 0, nil
}
