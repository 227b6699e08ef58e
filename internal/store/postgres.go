package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
)

// singletonID is the primary key of the one-row tables
const singletonID = 1

const (
	selectRegionSQL = `
SELECT name, count, previous_count, last_update
FROM regions
WHERE name = $1`

	upsertRegionSQL = `
INSERT INTO regions (name, count, previous_count, last_update)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE
SET count = EXCLUDED.count,
    previous_count = EXCLUDED.previous_count,
    last_update = EXCLUDED.last_update`

	listRegionsSQL = `
SELECT name, count, previous_count, last_update
FROM regions
ORDER BY name`

	selectStatsSQL = `
SELECT positive_24, positive_total, death_24, death_total,
       recovered_24, recovered_total, test_24, test_total, updated_at
FROM aggregate_stats
WHERE id = $1`

	upsertStatsSQL = `
INSERT INTO aggregate_stats (id, positive_24, positive_total, death_24, death_total,
                             recovered_24, recovered_total, test_24, test_total, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE
SET positive_24 = EXCLUDED.positive_24,
    positive_total = EXCLUDED.positive_total,
    death_24 = EXCLUDED.death_24,
    death_total = EXCLUDED.death_total,
    recovered_24 = EXCLUDED.recovered_24,
    recovered_total = EXCLUDED.recovered_total,
    test_24 = EXCLUDED.test_24,
    test_total = EXCLUDED.test_total,
    updated_at = EXCLUDED.updated_at`

	selectSyncStateSQL = `
SELECT district_syncing, stats_syncing, last_district_sync, last_stats_sync,
       last_district_attempt, last_stats_attempt, last_error
FROM sync_state
WHERE id = $1`

	upsertSyncStateSQL = `
INSERT INTO sync_state (id, district_syncing, stats_syncing, last_district_sync, last_stats_sync,
                        last_district_attempt, last_stats_attempt, last_error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
SET district_syncing = EXCLUDED.district_syncing,
    stats_syncing = EXCLUDED.stats_syncing,
    last_district_sync = EXCLUDED.last_district_sync,
    last_stats_sync = EXCLUDED.last_stats_sync,
    last_district_attempt = EXCLUDED.last_district_attempt,
    last_stats_attempt = EXCLUDED.last_stats_attempt,
    last_error = EXCLUDED.last_error`
)

// PostgresStore keeps records in PostgreSQL. The schema is created by the
// migrations in the database package.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing connection pool. The store takes ownership of the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgresStore creates a connection pool from cfg and verifies it
func OpenPostgresStore(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresStore, error) {
	pool, err := buildConnectionPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create database connection pool: %w", ErrStorage, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrStorage, err)
	}

	slog.Info("Database connection established",
		"user", cfg.User, "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return NewPostgresStore(pool), nil
}

// buildConnectionPool creates a connection pool with the configured limits
func buildConnectionPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	connStr, err := cfg.GetConnectionString()
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime != "" {
		lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connMaxLifetime: %w", err)
		}
		poolConfig.MaxConnLifetime = lifetime
	}

	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// FindRegionByName returns the named region
func (p *PostgresStore) FindRegionByName(ctx context.Context, name string) (*model.Region, error) {
	var r model.Region
	err := p.pool.QueryRow(ctx, selectRegionSQL, name).
		Scan(&r.Name, &r.Count, &r.PreviousCount, &r.LastUpdate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("region %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to load region %q: %w", ErrStorage, name, err)
	}
	return &r, nil
}

// UpsertRegion creates or replaces the region keyed by name
func (p *PostgresStore) UpsertRegion(ctx context.Context, region *model.Region) error {
	if region == nil || region.Name == "" {
		return fmt.Errorf("%w: region name is required", ErrStorage)
	}

	_, err := p.pool.Exec(ctx, upsertRegionSQL,
		region.Name, region.Count, region.PreviousCount, region.LastUpdate)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert region %q: %w", ErrStorage, region.Name, err)
	}
	return nil
}

// ListRegions returns all regions ordered by name
func (p *PostgresStore) ListRegions(ctx context.Context) ([]model.Region, error) {
	rows, err := p.pool.Query(ctx, listRegionsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list regions: %w", ErrStorage, err)
	}

	regions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Region, error) {
		var r model.Region
		err := row.Scan(&r.Name, &r.Count, &r.PreviousCount, &r.LastUpdate)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan regions: %w", ErrStorage, err)
	}
	return regions, nil
}

// GetStats returns the aggregate counters
func (p *PostgresStore) GetStats(ctx context.Context) (*model.AggregateStat, error) {
	var s model.AggregateStat
	err := p.pool.QueryRow(ctx, selectStatsSQL, singletonID).Scan(
		&s.Positive24, &s.PositiveTotal, &s.Death24, &s.DeathTotal,
		&s.Recovered24, &s.RecoveredTotal, &s.Test24, &s.TestTotal, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("aggregate stats: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to load aggregate stats: %w", ErrStorage, err)
	}
	return &s, nil
}

// SaveStats overwrites the aggregate counters in one statement
func (p *PostgresStore) SaveStats(ctx context.Context, stats *model.AggregateStat) error {
	if stats == nil {
		return fmt.Errorf("%w: stats cannot be nil", ErrStorage)
	}

	_, err := p.pool.Exec(ctx, upsertStatsSQL, singletonID,
		stats.Positive24, stats.PositiveTotal, stats.Death24, stats.DeathTotal,
		stats.Recovered24, stats.RecoveredTotal, stats.Test24, stats.TestTotal, stats.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save aggregate stats: %w", ErrStorage, err)
	}
	return nil
}

// GetSyncState returns the sync state
func (p *PostgresStore) GetSyncState(ctx context.Context) (*status.SyncState, error) {
	var s status.SyncState
	err := p.pool.QueryRow(ctx, selectSyncStateSQL, singletonID).Scan(
		&s.DistrictSyncing, &s.StatsSyncing, &s.LastDistrictSync, &s.LastStatsSync,
		&s.LastDistrictAttempt, &s.LastStatsAttempt, &s.LastError,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sync state: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to load sync state: %w", ErrStorage, err)
	}
	return &s, nil
}

// SaveSyncState overwrites the sync state in one statement
func (p *PostgresStore) SaveSyncState(ctx context.Context, state *status.SyncState) error {
	if state == nil {
		return fmt.Errorf("%w: sync state cannot be nil", ErrStorage)
	}

	_, err := p.pool.Exec(ctx, upsertSyncStateSQL, singletonID,
		state.DistrictSyncing, state.StatsSyncing, state.LastDistrictSync, state.LastStatsSync,
		state.LastDistrictAttempt, state.LastStatsAttempt, state.LastError,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save sync state: %w", ErrStorage, err)
	}
	return nil
}

// Close closes the connection pool
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		slog.Info("Closing database connection pool")
		p.pool.Close()
	}
	return nil
}
