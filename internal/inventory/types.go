// Package inventory provides the PostgreSQL storage layer for the bridge.
//
// It owns the schema for the inventory entities (categories, parts,
// parameters, attachments) and for the plugin-owned tables (per-category
// KiCad configuration, footprint mappings, settings values, import
// progress and history). All SQL is hand-written and executed through
// a pgx connection pool.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with a uniqueness
// rule, such as a second config for the same category.
var ErrConflict = errors.New("already exists")

// DBTX is the common interface implemented by pgxpool.Pool and pgx.Tx.
// Write operations that must participate in the import transaction take
// it explicitly.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Category is a node in the part category tree.
type Category struct {
	ID          int64
	Name        string
	Description string
	ParentID    *int64

	// PathString is the slash-joined path from the root, e.g.
	// "Electronics/Passives/Resistors". Populated by queries that
	// compute it; zero value otherwise.
	PathString string
}

// Part is a single inventory item.
type Part struct {
	ID          int64
	CategoryID  *int64
	Name        string
	FullName    string
	IPN         string
	Description string
	Keywords    string
	Link        string
	Active      bool
	InStock     float64
}

// ParameterTemplate defines a named, optionally unit-bearing attribute
// that parts can carry values for.
type ParameterTemplate struct {
	ID          int64
	Name        string
	Units       string
	Description string
}

// PartParameter is a single parameter value on a part, joined with its
// template's name and units for convenience.
type PartParameter struct {
	ID            int64
	PartID        int64
	TemplateID    int64
	Data          string
	TemplateName  string
	TemplateUnits string
}

// Attachment is a file or link attached to a part. The datasheet for a
// part is the first attachment whose comment equals "datasheet".
type Attachment struct {
	ID        uuid.UUID
	PartID    int64
	Comment   string
	FileName  string
	Link      string
	CreatedAt time.Time
}

// ManufacturerPart records a manufacturer name and MPN for a part.
type ManufacturerPart struct {
	ID           uuid.UUID
	PartID       int64
	Manufacturer string
	MPN          string
}

// CategoryConfig is the per-category KiCad configuration. A category has
// at most one; parts inherit the config of their deepest configured
// ancestor category.
type CategoryConfig struct {
	ID                     uuid.UUID
	CategoryID             int64
	DefaultSymbol          string
	DefaultFootprint       string
	DefaultReference       string
	DefaultValueTemplateID *int64
	FootprintTemplateID    *int64
}

// FootprintMapping rewrites a raw footprint parameter value into a KiCad
// footprint name, scoped to one category config. Unique per
// (config, parameter value).
type FootprintMapping struct {
	ID             uuid.UUID
	ConfigID       uuid.UUID
	ParameterValue string
	Footprint      string
}

// ImportProgress is the per-user progress row for an in-flight (or the
// most recent) metadata import.
type ImportProgress struct {
	Username  string
	Percent   int
	FileName  string
	UpdatedAt time.Time
}

// ImportRun is one recorded metadata import operation.
type ImportRun struct {
	ID         uuid.UUID
	Username   string
	FileName   string
	Format     string
	Components int
	Updated    int
	Skipped    int
	Datasheets int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}
