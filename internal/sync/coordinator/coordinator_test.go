package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	"github.com/healthstats-bd/healthstats-sync/internal/store"
	"github.com/healthstats-bd/healthstats-sync/internal/sync"
	syncmocks "github.com/healthstats-bd/healthstats-sync/internal/sync/mocks"
	"github.com/healthstats-bd/healthstats-sync/internal/sync/state"
	statemocks "github.com/healthstats-bd/healthstats-sync/internal/sync/state/mocks"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestGetSyncInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      *config.SyncConfig
		kind     status.SyncKind
		expected time.Duration
	}{
		{
			name:     "nil config returns district default",
			cfg:      nil,
			kind:     status.SyncKindDistrict,
			expected: 30 * time.Minute,
		},
		{
			name:     "nil config returns stats default",
			cfg:      nil,
			kind:     status.SyncKindStats,
			expected: 18 * time.Minute,
		},
		{
			name:     "configured district interval",
			cfg:      &config.SyncConfig{DistrictInterval: "5m"},
			kind:     status.SyncKindDistrict,
			expected: 5 * time.Minute,
		},
		{
			name:     "configured stats interval",
			cfg:      &config.SyncConfig{StatsInterval: "90s"},
			kind:     status.SyncKindStats,
			expected: 90 * time.Second,
		},
		{
			name:     "invalid interval returns default",
			cfg:      &config.SyncConfig{StatsInterval: "invalid"},
			kind:     status.SyncKindStats,
			expected: 18 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, getSyncInterval(tt.cfg, tt.kind))
		})
	}
}

func TestGetSyncOnStart(t *testing.T) {
	t.Parallel()

	assert.True(t, getSyncOnStart(nil))
	assert.True(t, getSyncOnStart(&config.SyncConfig{}))
	assert.False(t, getSyncOnStart(&config.SyncConfig{SyncOnStart: boolPtr(false)}))
}

func TestCoordinator_Stop_BeforeStart(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)

	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	coordinator := New(mockManager, mockStateSvc, &config.SyncConfig{})

	// Stop should not panic if called before Start
	err := coordinator.Stop()
	assert.NoError(t, err)
}

func TestRunDistrictSync_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		hasUpdated bool
	}{
		{name: "fetched new data", hasUpdated: true},
		{name: "already up to date", hasUpdated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockManager := syncmocks.NewMockManager(ctrl)
			mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

			result := &sync.Result{
				Kind:       status.SyncKindDistrict,
				HasUpdated: tt.hasUpdated,
				Regions:    &sync.ReconcileResult{HasUpdated: tt.hasUpdated, Changed: 1},
			}

			gomock.InOrder(
				mockStateSvc.EXPECT().TryStartSync(gomock.Any(), status.SyncKindDistrict).Return(true, nil),
				mockManager.EXPECT().SyncDistricts(gomock.Any()).Return(result, nil),
				mockStateSvc.EXPECT().FinishSync(gomock.Any(), status.SyncKindDistrict, tt.hasUpdated, nil).Return(nil),
			)

			coord := New(mockManager, mockStateSvc, &config.SyncConfig{})
			outcome := coord.RunDistrictSync(context.Background())

			require.NoError(t, outcome.Err)
			assert.False(t, outcome.Skipped)
			assert.Equal(t, status.SyncKindDistrict, outcome.Kind)
			assert.NotEmpty(t, outcome.RunID)
			assert.Equal(t, result, outcome.Result)
		})
	}
}

func TestRunStatsSync_Success(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	gomock.InOrder(
		mockStateSvc.EXPECT().TryStartSync(gomock.Any(), status.SyncKindStats).Return(true, nil),
		mockManager.EXPECT().SyncStats(gomock.Any()).
			Return(&sync.Result{Kind: status.SyncKindStats, HasUpdated: true}, nil),
		mockStateSvc.EXPECT().FinishSync(gomock.Any(), status.SyncKindStats, true, nil).Return(nil),
	)

	outcome := New(mockManager, mockStateSvc, nil).RunStatsSync(context.Background())
	require.NoError(t, outcome.Err)
	assert.Equal(t, status.SyncKindStats, outcome.Kind)
}

func TestRunDistrictSync_AlreadyRunning(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	mockStateSvc.EXPECT().TryStartSync(gomock.Any(), status.SyncKindDistrict).Return(false, nil)
	// Neither the manager nor FinishSync may be called
	mockManager.EXPECT().SyncDistricts(gomock.Any()).Times(0)
	mockStateSvc.EXPECT().FinishSync(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	outcome := New(mockManager, mockStateSvc, nil).RunDistrictSync(context.Background())
	assert.True(t, outcome.Skipped)
	assert.NoError(t, outcome.Err)
	assert.Nil(t, outcome.Result)
}

func TestRunDistrictSync_GuardError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	guardErr := errors.New("state store unavailable")
	mockStateSvc.EXPECT().TryStartSync(gomock.Any(), status.SyncKindDistrict).Return(false, guardErr)

	outcome := New(mockManager, mockStateSvc, nil).RunDistrictSync(context.Background())
	assert.ErrorIs(t, outcome.Err, guardErr)
	assert.False(t, outcome.Skipped)
}

func TestRunDistrictSync_FailureReleasesGuard(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	syncErr := &sync.Error{
		Err:     errors.New("no anchor"),
		Message: "Fetch failed: no anchor",
		Reason:  sync.ReasonFetchFailed,
	}

	gomock.InOrder(
		mockStateSvc.EXPECT().TryStartSync(gomock.Any(), status.SyncKindDistrict).Return(true, nil),
		mockManager.EXPECT().SyncDistricts(gomock.Any()).Return(nil, syncErr),
		mockStateSvc.EXPECT().FinishSync(gomock.Any(), status.SyncKindDistrict, false, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ status.SyncKind, _ bool, err error) error {
				assert.ErrorIs(t, err, syncErr)
				return nil
			}),
	)

	outcome := New(mockManager, mockStateSvc, nil).RunDistrictSync(context.Background())

	var got *sync.Error
	require.ErrorAs(t, outcome.Err, &got)
	assert.Equal(t, sync.ReasonFetchFailed, got.Reason)
	assert.Nil(t, outcome.Result)
}

func TestRunDistrictSync_PanicReleasesGuard(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	gomock.InOrder(
		mockStateSvc.EXPECT().TryStartSync(gomock.Any(), status.SyncKindDistrict).Return(true, nil),
		mockManager.EXPECT().SyncDistricts(gomock.Any()).
			DoAndReturn(func(context.Context) (*sync.Result, *sync.Error) {
				panic("unexpected table layout")
			}),
		mockStateSvc.EXPECT().FinishSync(gomock.Any(), status.SyncKindDistrict, false, gomock.Not(nil)).Return(nil),
	)

	var outcome Outcome
	require.NotPanics(t, func() {
		outcome = New(mockManager, mockStateSvc, nil).RunDistrictSync(context.Background())
	})
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "unexpected table layout")
}

func TestRunStatsSync_CancelledContextStillReleasesGuard(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	ctx, cancel := context.WithCancel(context.Background())

	gomock.InOrder(
		mockStateSvc.EXPECT().TryStartSync(gomock.Any(), status.SyncKindStats).Return(true, nil),
		mockManager.EXPECT().SyncStats(gomock.Any()).
			DoAndReturn(func(ctx context.Context) (*sync.Result, *sync.Error) {
				cancel()
				return nil, &sync.Error{Err: ctx.Err(), Message: "Fetch failed: context canceled", Reason: sync.ReasonFetchFailed}
			}),
		mockStateSvc.EXPECT().FinishSync(gomock.Any(), status.SyncKindStats, false, gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ status.SyncKind, _ bool, _ error) error {
				assert.NoError(t, ctx.Err(), "guard release must not inherit cancellation")
				return nil
			}),
	)

	outcome := New(mockManager, mockStateSvc, nil).RunStatsSync(ctx)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestRunDistrictSync_GuardBlocksConcurrentRun(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	stateSvc := state.NewStateService(store.NewMemoryStore())

	entered := make(chan struct{})
	release := make(chan struct{})
	mockManager.EXPECT().SyncDistricts(gomock.Any()).
		DoAndReturn(func(context.Context) (*sync.Result, *sync.Error) {
			close(entered)
			<-release
			return &sync.Result{Kind: status.SyncKindDistrict, Regions: &sync.ReconcileResult{}}, nil
		}).Times(1)

	coord := New(mockManager, stateSvc, nil)

	first := make(chan Outcome, 1)
	go func() {
		first <- coord.RunDistrictSync(context.Background())
	}()
	<-entered

	second := coord.RunDistrictSync(context.Background())
	assert.True(t, second.Skipped)

	close(release)
	outcome := <-first
	require.NoError(t, outcome.Err)
	assert.False(t, outcome.Skipped)

	s, err := stateSvc.GetSyncState(context.Background())
	require.NoError(t, err)
	assert.False(t, s.DistrictSyncing)
	assert.Nil(t, s.LastDistrictSync, "no data changed")
}

func TestCoordinator_StartRunsBothKindsAndStops(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	stateSvc := state.NewStateService(store.NewMemoryStore())

	districtDone := make(chan struct{})
	statsDone := make(chan struct{})
	mockManager.EXPECT().SyncDistricts(gomock.Any()).
		DoAndReturn(func(context.Context) (*sync.Result, *sync.Error) {
			defer close(districtDone)
			return &sync.Result{
				Kind:       status.SyncKindDistrict,
				HasUpdated: true,
				Regions:    &sync.ReconcileResult{HasUpdated: true, Created: 64},
			}, nil
		})
	mockManager.EXPECT().SyncStats(gomock.Any()).
		DoAndReturn(func(context.Context) (*sync.Result, *sync.Error) {
			defer close(statsDone)
			return &sync.Result{Kind: status.SyncKindStats, HasUpdated: true}, nil
		})

	coord := New(mockManager, stateSvc, &config.SyncConfig{
		DistrictInterval: "1h",
		StatsInterval:    "1h",
	})

	startErr := make(chan error, 1)
	go func() {
		startErr <- coord.Start(context.Background())
	}()

	for _, done := range []chan struct{}{districtDone, statsDone} {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("initial sync did not run")
		}
	}

	require.Eventually(t, func() bool {
		s, err := stateSvc.GetSyncState(context.Background())
		return err == nil && s.LastDistrictSync != nil && s.LastStatsSync != nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, coord.Stop())
	require.NoError(t, <-startErr)
}

func TestCoordinator_StartWithoutSyncOnStart(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	mockStateSvc.EXPECT().Initialize(gomock.Any()).Return(nil)
	// Intervals are long enough that no tick fires
	mockManager.EXPECT().SyncDistricts(gomock.Any()).Times(0)
	mockManager.EXPECT().SyncStats(gomock.Any()).Times(0)

	coord := New(mockManager, mockStateSvc, &config.SyncConfig{
		DistrictInterval: "1h",
		StatsInterval:    "1h",
		SyncOnStart:      boolPtr(false),
	})

	ctx, cancel := context.WithCancel(context.Background())
	startErr := make(chan error, 1)
	go func() {
		startErr <- coord.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-startErr)
	require.NoError(t, coord.Stop())
}

func TestCoordinator_StartFailsWhenStateCannotInitialize(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	initErr := errors.New("permission denied")
	mockStateSvc.EXPECT().Initialize(gomock.Any()).Return(initErr)

	coord := New(mockManager, mockStateSvc, nil)
	err := coord.Start(context.Background())
	require.ErrorIs(t, err, initErr)

	// Stop after a failed Start must not block
	require.NoError(t, coord.Stop())
}

func TestCoordinator_StartTwice(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockManager := syncmocks.NewMockManager(ctrl)
	mockStateSvc := statemocks.NewMockSyncStateService(ctrl)

	initialized := make(chan struct{})
	mockStateSvc.EXPECT().Initialize(gomock.Any()).
		DoAndReturn(func(context.Context) error {
			close(initialized)
			return nil
		}).Times(1)

	coord := New(mockManager, mockStateSvc, &config.SyncConfig{
		DistrictInterval: "1h",
		StatsInterval:    "1h",
		SyncOnStart:      boolPtr(false),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startErr := make(chan error, 1)
	go func() {
		startErr <- coord.Start(ctx)
	}()

	select {
	case <-initialized:
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not start")
	}
	require.ErrorIs(t, coord.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, coord.Stop())
	require.NoError(t, <-startErr)

	// A stopped coordinator stays unusable rather than panicking
	require.ErrorIs(t, coord.Start(context.Background()), ErrAlreadyStarted)
}
