package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolSettings carries the connection pool knobs from configuration
// without making this package depend on the config loader.
type PoolSettings struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// NewPool builds and verifies a pgx connection pool.
func NewPool(ctx context.Context, ps PoolSettings) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(ps.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if ps.MaxConns > 0 {
		cfg.MaxConns = ps.MaxConns
	}
	if ps.MinConns > 0 {
		cfg.MinConns = ps.MinConns
	}
	if ps.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = ps.MaxConnLifetime
	}
	if ps.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = ps.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx := ctx
	if ps.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, ps.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// Store executes all SQL for the bridge against one connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for callers that manage their own
// transactions.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Begin starts a transaction. Import runs use it together with the
// DBTX-taking write methods.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Ping verifies database connectivity, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SyncIdentitySequences realigns identity sequences after rows were
// inserted with explicit ids, as the seed loader does.
func (s *Store) SyncIdentitySequences(ctx context.Context) error {
	for _, table := range []string{"part_categories", "parts", "part_parameter_templates", "part_parameters"} {
		q := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT COALESCE(MAX(id), 1) FROM %s))`,
			table, table,
		)
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to sync sequence for %s: %w", table, err)
		}
	}
	return nil
}
