package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	"github.com/healthstats-bd/healthstats-sync/internal/versions"
)

// SchemaVersion is the version of the JSON document written by FileStore
const SchemaVersion = "1.0.0"

// fileDocument is the on-disk layout of a FileStore
type fileDocument struct {
	SchemaVersion string                  `json:"schemaVersion"`
	SavedAt       time.Time               `json:"savedAt"`
	Regions       map[string]model.Region `json:"regions"`
	Stats         *model.AggregateStat    `json:"stats,omitempty"`
	SyncState     *status.SyncState       `json:"syncState,omitempty"`
}

// FileStore keeps every record in a single JSON file, rewritten atomically on each change
type FileStore struct {
	mu   sync.RWMutex
	path string
	doc  fileDocument
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens the store at path, creating its directory if needed.
// A missing file is treated as an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrStorage)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory for %s: %w", ErrStorage, path, err)
	}

	s := &FileStore{
		path: path,
		doc: fileDocument{
			SchemaVersion: SchemaVersion,
			Regions:       make(map[string]model.Region),
		},
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	// #nosec G304 -- path comes from validated configuration
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: failed to read %s: %w", ErrStorage, s.path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: failed to unmarshal %s: %w", ErrStorage, s.path, err)
	}

	if versions.IsNewerVersion(doc.SchemaVersion, SchemaVersion) {
		return fmt.Errorf("%w: %s has schema version %s, newer than supported %s",
			ErrStorage, s.path, doc.SchemaVersion, SchemaVersion)
	}

	if doc.Regions == nil {
		doc.Regions = make(map[string]model.Region)
	}
	doc.SchemaVersion = SchemaVersion
	s.doc = doc
	return nil
}

// persist writes the document to a temporary file and renames it over the target.
// Callers must hold the write lock.
func (s *FileStore) persist() error {
	s.doc.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal store document: %w", ErrStorage, err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("%w: failed to write temporary file %s: %w", ErrStorage, tempPath, err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: failed to rename %s: %w", ErrStorage, tempPath, err)
	}
	return nil
}

// FindRegionByName returns a copy of the named region
func (s *FileStore) FindRegionByName(_ context.Context, name string) (*model.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	region, ok := s.doc.Regions[name]
	if !ok {
		return nil, fmt.Errorf("region %q: %w", name, ErrNotFound)
	}
	return &region, nil
}

// UpsertRegion stores region and rewrites the file
func (s *FileStore) UpsertRegion(_ context.Context, region *model.Region) error {
	if region == nil || region.Name == "" {
		return fmt.Errorf("%w: region name is required", ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.doc.Regions[region.Name]
	s.doc.Regions[region.Name] = *region
	if err := s.persist(); err != nil {
		// Keep memory consistent with disk
		if existed {
			s.doc.Regions[region.Name] = previous
		} else {
			delete(s.doc.Regions, region.Name)
		}
		return err
	}
	return nil
}

// ListRegions returns copies of all regions ordered by name
func (s *FileStore) ListRegions(_ context.Context) ([]model.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedRegions(s.doc.Regions), nil
}

// GetStats returns a copy of the aggregate counters
func (s *FileStore) GetStats(_ context.Context) (*model.AggregateStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc.Stats == nil {
		return nil, fmt.Errorf("aggregate stats: %w", ErrNotFound)
	}
	stats := *s.doc.Stats
	return &stats, nil
}

// SaveStats replaces the aggregate counters and rewrites the file
func (s *FileStore) SaveStats(_ context.Context, stats *model.AggregateStat) error {
	if stats == nil {
		return fmt.Errorf("%w: stats cannot be nil", ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.doc.Stats
	next := *stats
	s.doc.Stats = &next
	if err := s.persist(); err != nil {
		s.doc.Stats = previous
		return err
	}
	return nil
}

// GetSyncState returns a copy of the sync state
func (s *FileStore) GetSyncState(_ context.Context) (*status.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc.SyncState == nil {
		return nil, fmt.Errorf("sync state: %w", ErrNotFound)
	}
	return s.doc.SyncState.Copy(), nil
}

// SaveSyncState replaces the sync state and rewrites the file
func (s *FileStore) SaveSyncState(_ context.Context, state *status.SyncState) error {
	if state == nil {
		return fmt.Errorf("%w: sync state cannot be nil", ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.doc.SyncState
	s.doc.SyncState = state.Copy()
	if err := s.persist(); err != nil {
		s.doc.SyncState = previous
		return err
	}
	return nil
}

// Close is a no-op; every write is already on disk
func (*FileStore) Close() error {
	return nil
}
