package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
)

func TestFileStore(t *testing.T) {
	t.Parallel()
	testStoreContract(t, func(t *testing.T) Store {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
		require.NoError(t, err)
		return s
	})
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ctx := context.Background()
	reported := time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC)

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertRegion(ctx, &model.Region{Name: "Dhaka", Count: 15, PreviousCount: 10, LastUpdate: reported}))
	require.NoError(t, s.SaveStats(ctx, &model.AggregateStat{Positive24: 3, TestTotal: 100}))
	require.NoError(t, s.SaveSyncState(ctx, &status.SyncState{StatsSyncing: true}))
	require.NoError(t, s.Close())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	region, err := reopened.FindRegionByName(ctx, "Dhaka")
	require.NoError(t, err)
	assert.Equal(t, int64(15), region.Count)
	assert.Equal(t, int64(10), region.PreviousCount)
	assert.True(t, reported.Equal(region.LastUpdate))

	stats, err := reopened.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Positive24)
	assert.Equal(t, int64(100), stats.TestTotal)

	state, err := reopened.GetSyncState(ctx)
	require.NoError(t, err)
	assert.True(t, state.StatsSyncing)
}

func TestFileStore_DocumentLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertRegion(context.Background(), &model.Region{Name: "Khulna", Count: 2, PreviousCount: 2}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, SchemaVersion, doc["schemaVersion"])
	assert.Contains(t, doc["regions"], "Khulna")
}

func TestFileStore_RejectsNewerSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion":"2.0.0","regions":{}}`), 0600))

	_, err := NewFileStore(path)
	require.ErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestFileStore_AcceptsOlderSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion":"0.9.0"}`), 0600))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	regions, err := s.ListRegions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := NewFileStore(path)
	require.ErrorIs(t, err, ErrStorage)
}

func TestFileStore_WriteFailureKeepsMemoryConsistent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	// A directory at the temp path makes the write fail
	require.NoError(t, os.Mkdir(path+".tmp", 0750))

	ctx := context.Background()
	err = s.UpsertRegion(ctx, &model.Region{Name: "Rajshahi", Count: 1})
	require.ErrorIs(t, err, ErrStorage)

	_, err = s.FindRegionByName(ctx, "Rajshahi")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore("")
	require.ErrorIs(t, err, ErrStorage)
}
