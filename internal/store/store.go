// Package store persists regions, the aggregate counters and the sync state.
//
// Four backends implement Store: an in-memory map for tests and one-shot runs,
// a single JSON file, PostgreSQL through pgxpool and MongoDB. Every write is
// atomic per record only; there are no cross-record transactions.
package store

import (
	"context"
	"errors"

	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrStorage wraps every failure of the underlying backend
	ErrStorage = errors.New("storage error")
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// Store is the keyed record store used by the sync engine
type Store interface {
	// FindRegionByName returns the region with the given name or ErrNotFound
	FindRegionByName(ctx context.Context, name string) (*model.Region, error)

	// UpsertRegion creates or replaces the region keyed by its name
	UpsertRegion(ctx context.Context, region *model.Region) error

	// ListRegions returns every region ordered by name
	ListRegions(ctx context.Context) ([]model.Region, error)

	// GetStats returns the aggregate counters or ErrNotFound if never saved
	GetStats(ctx context.Context) (*model.AggregateStat, error)

	// SaveStats overwrites the aggregate counters in a single write
	SaveStats(ctx context.Context, stats *model.AggregateStat) error

	// GetSyncState returns the sync state or ErrNotFound if never saved
	GetSyncState(ctx context.Context) (*status.SyncState, error)

	// SaveSyncState overwrites the sync state in a single write
	SaveSyncState(ctx context.Context, state *status.SyncState) error

	// Close releases backend resources
	Close() error
}
