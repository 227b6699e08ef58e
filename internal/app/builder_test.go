package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/mock/gomock"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	"github.com/healthstats-bd/healthstats-sync/internal/store"
	pkgsync "github.com/healthstats-bd/healthstats-sync/internal/sync"
	syncmocks "github.com/healthstats-bd/healthstats-sync/internal/sync/mocks"
)

func createValidTestConfig() *config.Config {
	return &config.Config{
		Sources: config.SourcesConfig{
			District: config.DistrictSourceConfig{
				BaseURL:    "http://example.com",
				ReportText: "District wise report",
			},
			Stats: config.StatsSourceConfig{
				URL: "http://example.com/stats",
			},
		},
		Storage: config.StorageConfig{Type: config.StorageTypeMemory},
	}
}

func TestBaseConfig(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		built, err := baseConfig()
		require.Error(t, err)
		assert.Nil(t, built)
		assert.Contains(t, err.Error(), "config cannot be nil")
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		st := store.NewMemoryStore()
		built, err := baseConfig(
			WithConfig(createValidTestConfig()),
			WithStore(st),
		)
		require.NoError(t, err)
		assert.Same(t, st, built.store)
	})

	t.Run("option error stops the build", func(t *testing.T) {
		t.Parallel()

		built, err := baseConfig(
			WithConfig(createValidTestConfig()),
			WithStore(nil),
		)
		require.Error(t, err)
		assert.Nil(t, built)
		assert.Contains(t, err.Error(), "store cannot be nil")
	})
}

func TestNewSyncApp(t *testing.T) {
	t.Parallel()

	t.Run("default components over a memory store", func(t *testing.T) {
		t.Parallel()

		app, err := NewSyncApp(context.Background(), WithConfig(createValidTestConfig()))
		require.NoError(t, err)
		require.NotNil(t, app)
		assert.NotNil(t, app.components.SyncCoordinator)
		assert.NotNil(t, app.components.StateService)
		assert.NotNil(t, app.components.Store)
		assert.NotNil(t, app.GetConfig())
	})

	t.Run("unsupported storage type", func(t *testing.T) {
		t.Parallel()

		cfg := createValidTestConfig()
		cfg.Storage.Type = "tape"

		app, err := NewSyncApp(context.Background(), WithConfig(cfg))
		require.Error(t, err)
		assert.Nil(t, app)
		assert.Contains(t, err.Error(), "failed to open store")
	})

	t.Run("injected manager runs through the coordinator", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)

		manager := syncmocks.NewMockManager(ctrl)
		manager.EXPECT().SyncDistricts(gomock.Any()).Return(&pkgsync.Result{
			Kind:       status.SyncKindDistrict,
			HasUpdated: true,
			Regions:    &pkgsync.ReconcileResult{HasUpdated: true, Created: 2},
		}, nil)
		manager.EXPECT().SyncStats(gomock.Any()).Return(nil, &pkgsync.Error{
			Message: "counter parse failed",
			Reason:  pkgsync.ReasonParseFailed,
		})

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
		tp := sdktrace.NewTracerProvider()
		t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

		ctx := context.Background()
		app, err := NewSyncApp(ctx,
			WithConfig(createValidTestConfig()),
			WithSyncManager(manager),
			WithMeterProvider(mp),
			WithTracerProvider(tp),
		)
		require.NoError(t, err)

		outcomes, err := app.RunOnce(ctx, status.SyncKindDistrict, status.SyncKindStats)
		require.NoError(t, err)
		require.Len(t, outcomes, 2)
		assert.NoError(t, outcomes[0].Err)
		assert.Error(t, outcomes[1].Err)

		report, err := app.Status(ctx)
		require.NoError(t, err)
		assert.NotNil(t, report.SyncState.LastDistrictSync)
		assert.Nil(t, report.SyncState.LastStatsSync)
		assert.Contains(t, report.SyncState.LastError, "stats sync")
		assert.False(t, report.SyncState.DistrictSyncing)
		assert.False(t, report.SyncState.StatsSyncing)
	})
}

func TestNewSyncApp_RunOnceRespectsHeldGuard(t *testing.T) {
	t.Parallel()

	recent := time.Now().UTC().Add(-5 * time.Minute)
	tests := []struct {
		name  string
		state *status.SyncState
	}{
		{
			name:  "guard without start time",
			state: &status.SyncState{DistrictSyncing: true},
		},
		{
			name:  "guard started by a running scheduler",
			state: &status.SyncState{DistrictSyncing: true, LastDistrictAttempt: &recent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			ctx := context.Background()
			st := store.NewMemoryStore()
			require.NoError(t, st.SaveSyncState(ctx, tt.state))

			// No SyncDistricts expectation: any call fails the test
			manager := syncmocks.NewMockManager(ctrl)

			app, err := NewSyncApp(ctx,
				WithConfig(createValidTestConfig()),
				WithStore(st),
				WithSyncManager(manager),
			)
			require.NoError(t, err)

			outcomes, err := app.RunOnce(ctx, status.SyncKindDistrict)
			require.NoError(t, err)
			require.Len(t, outcomes, 1)
			assert.True(t, outcomes[0].Skipped)
			assert.NoError(t, outcomes[0].Err)

			regions, err := st.ListRegions(ctx)
			require.NoError(t, err)
			assert.Empty(t, regions)

			syncState, err := st.GetSyncState(ctx)
			require.NoError(t, err)
			assert.True(t, syncState.DistrictSyncing, "held guard stays set")
		})
	}
}

func TestNewSyncApp_RunOnceReclaimsStaleGuard(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	ctx := context.Background()
	st := store.NewMemoryStore()
	abandoned := time.Now().UTC().Add(-3 * time.Hour)
	require.NoError(t, st.SaveSyncState(ctx, &status.SyncState{
		DistrictSyncing:     true,
		LastDistrictAttempt: &abandoned,
	}))

	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().SyncDistricts(gomock.Any()).DoAndReturn(func(ctx context.Context) (*pkgsync.Result, *pkgsync.Error) {
		require.NoError(t, st.UpsertRegion(ctx, &model.Region{Name: "Dhaka", Count: 10, PreviousCount: 10}))
		return &pkgsync.Result{
			Kind:       status.SyncKindDistrict,
			HasUpdated: true,
			Regions:    &pkgsync.ReconcileResult{HasUpdated: true, Created: 1},
		}, nil
	})

	cfg := createValidTestConfig()
	cfg.Sync.StaleGuardAfter = "1h"
	app, err := NewSyncApp(ctx, WithConfig(cfg), WithStore(st), WithSyncManager(manager))
	require.NoError(t, err)

	outcomes, err := app.RunOnce(ctx, status.SyncKindDistrict)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Skipped)
	require.NoError(t, outcomes[0].Err)

	syncState, err := st.GetSyncState(ctx)
	require.NoError(t, err)
	assert.False(t, syncState.DistrictSyncing)
	require.NotNil(t, syncState.LastDistrictSync)
}
