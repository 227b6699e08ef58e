package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
)

// MemoryStore keeps every record in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	regions   map[string]model.Region
	stats     *model.AggregateStat
	syncState *status.SyncState
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		regions: make(map[string]model.Region),
	}
}

// FindRegionByName returns a copy of the named region
func (m *MemoryStore) FindRegionByName(_ context.Context, name string) (*model.Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	region, ok := m.regions[name]
	if !ok {
		return nil, fmt.Errorf("region %q: %w", name, ErrNotFound)
	}
	return &region, nil
}

// UpsertRegion stores a copy of region
func (m *MemoryStore) UpsertRegion(_ context.Context, region *model.Region) error {
	if region == nil || region.Name == "" {
		return fmt.Errorf("%w: region name is required", ErrStorage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions[region.Name] = *region
	return nil
}

// ListRegions returns copies of all regions ordered by name
func (m *MemoryStore) ListRegions(_ context.Context) ([]model.Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedRegions(m.regions), nil
}

// GetStats returns a copy of the aggregate counters
func (m *MemoryStore) GetStats(_ context.Context) (*model.AggregateStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.stats == nil {
		return nil, fmt.Errorf("aggregate stats: %w", ErrNotFound)
	}
	stats := *m.stats
	return &stats, nil
}

// SaveStats replaces the aggregate counters
func (m *MemoryStore) SaveStats(_ context.Context, stats *model.AggregateStat) error {
	if stats == nil {
		return fmt.Errorf("%w: stats cannot be nil", ErrStorage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := *stats
	m.stats = &s
	return nil
}

// GetSyncState returns a copy of the sync state
func (m *MemoryStore) GetSyncState(_ context.Context) (*status.SyncState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.syncState == nil {
		return nil, fmt.Errorf("sync state: %w", ErrNotFound)
	}
	return m.syncState.Copy(), nil
}

// SaveSyncState replaces the sync state
func (m *MemoryStore) SaveSyncState(_ context.Context, state *status.SyncState) error {
	if state == nil {
		return fmt.Errorf("%w: sync state cannot be nil", ErrStorage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncState = state.Copy()
	return nil
}

// Close is a no-op
func (*MemoryStore) Close() error {
	return nil
}

func sortedRegions(regions map[string]model.Region) []model.Region {
	result := make([]model.Region, 0, len(regions))
	for _, r := range regions {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
