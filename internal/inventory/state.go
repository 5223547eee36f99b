package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// SetSettingValue upserts one settings key.
func (s *Store) SetSettingValue(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO kicad_settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}
	return nil
}

// AllSettingValues returns every stored settings row as a map.
func (s *Store) AllSettingValues(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM kicad_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return out, nil
}

// ImportProgressFor returns the recorded progress for one user. A user
// with no recorded import yields a zero-percent row, not an error.
func (s *Store) ImportProgressFor(ctx context.Context, username string) (ImportProgress, error) {
	p := ImportProgress{Username: username}
	err := s.pool.QueryRow(ctx, `SELECT percent, file_name, updated_at
		FROM kicad_import_progress WHERE username = $1`, username).
		Scan(&p.Percent, &p.FileName, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return ImportProgress{}, fmt.Errorf("failed to query import progress for %q: %w", username, err)
	}
	return p, nil
}

// SetImportProgress upserts the per-user progress row.
func (s *Store) SetImportProgress(ctx context.Context, username string, percent int, fileName string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO kicad_import_progress (username, percent, file_name, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (username) DO UPDATE SET
			percent = EXCLUDED.percent,
			file_name = EXCLUDED.file_name,
			updated_at = now()`,
		username, percent, fileName)
	if err != nil {
		return fmt.Errorf("failed to set import progress for %q: %w", username, err)
	}
	return nil
}

// InsertImportRun records the start of an import and returns the row
// with its generated id and start time.
func (s *Store) InsertImportRun(ctx context.Context, run ImportRun) (ImportRun, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = "running"
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO kicad_import_runs
			(id, username, file_name, format, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING started_at`,
		ToPgUUID(run.ID), run.Username, run.FileName, run.Format, run.Status).
		Scan(&run.StartedAt)
	if err != nil {
		return ImportRun{}, fmt.Errorf("failed to insert import run: %w", err)
	}
	return run, nil
}

// FinishImportRun writes the outcome of a completed or failed import.
func (s *Store) FinishImportRun(ctx context.Context, id uuid.UUID, status string, components, updated, skipped, datasheets int, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE kicad_import_runs SET
			status = $2,
			components = $3,
			updated = $4,
			skipped = $5,
			datasheets = $6,
			error = $7,
			finished_at = now()
		WHERE id = $1`,
		ToPgUUID(id), status, components, updated, skipped, datasheets, errMsg)
	if err != nil {
		return fmt.Errorf("failed to finish import run %s: %w", id, err)
	}
	return nil
}

// RecentImportRuns returns the newest runs first, capped at limit.
func (s *Store) RecentImportRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `SELECT id, username, file_name, format,
			components, updated, skipped, datasheets, status, error, started_at, finished_at
		FROM kicad_import_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var out []ImportRun
	for rows.Next() {
		var (
			r  ImportRun
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &r.Username, &r.FileName, &r.Format,
			&r.Components, &r.Updated, &r.Skipped, &r.Datasheets,
			&r.Status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		r.ID = PgUUIDValue(id)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read import runs: %w", err)
	}
	return out, nil
}

// ResetPluginState truncates the bridge-owned tables: category configs,
// footprint mappings, stored settings, progress rows and import history.
// Inventory data is left untouched.
func (s *Store) ResetPluginState(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE kicad_footprint_mappings,
		kicad_category_configs, kicad_settings,
		kicad_import_progress, kicad_import_runs`)
	if err != nil {
		return fmt.Errorf("failed to reset plugin state: %w", err)
	}
	return nil
}
