package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/otel"
	"github.com/healthstats-bd/healthstats-sync/internal/sources"
	"github.com/healthstats-bd/healthstats-sync/internal/store"
	"github.com/healthstats-bd/healthstats-sync/internal/store/mocks"
	"github.com/healthstats-bd/healthstats-sync/internal/timeparse"
)

// reportDay is the date printed in the report rows used below.
// 30.06.20 in UTC+6 is 2020-06-29 18:00 UTC.
const reportDay = "30.06.20"

var reportMidnight = time.Date(2020, 6, 29, 18, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestReconciler(st store.Store, clock *testClock) *Reconciler {
	parser := timeparse.New(timeparse.WithClock(clock.Now))
	return NewReconciler(st, parser, WithReconcilerClock(clock.Now))
}

func dhaka(count int64) []sources.RegionRow {
	return []sources.RegionRow{{Name: "Dhaka", Count: count, RawTimestamp: reportDay}}
}

func findRegion(t *testing.T, st store.Store, name string) *model.Region {
	t.Helper()
	region, err := st.FindRegionByName(context.Background(), name)
	require.NoError(t, err)
	return region
}

func TestReconcile_DhakaScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := &testClock{now: time.Date(2020, 6, 30, 12, 0, 0, 0, time.UTC)}
	r := newTestReconciler(st, clock)

	// First sighting
	result, err := r.Reconcile(ctx, dhaka(10))
	require.NoError(t, err)
	assert.True(t, result.HasUpdated)
	assert.Equal(t, 1, result.Created)
	region := findRegion(t, st, "Dhaka")
	assert.Equal(t, int64(10), region.Count)
	assert.Equal(t, int64(10), region.PreviousCount)
	assert.True(t, region.LastUpdate.Equal(reportMidnight))

	// Count changes
	result, err = r.Reconcile(ctx, dhaka(15))
	require.NoError(t, err)
	assert.True(t, result.HasUpdated)
	assert.Equal(t, 1, result.Changed)
	region = findRegion(t, st, "Dhaka")
	assert.Equal(t, int64(15), region.Count)
	assert.Equal(t, int64(10), region.PreviousCount)

	// Same day, same count: history is kept
	result, err = r.Reconcile(ctx, dhaka(15))
	require.NoError(t, err)
	assert.False(t, result.HasUpdated)
	assert.Equal(t, 1, result.Unchanged)
	region = findRegion(t, st, "Dhaka")
	assert.Equal(t, int64(15), region.Count)
	assert.Equal(t, int64(10), region.PreviousCount)

	// Four days later the report still says 15
	clock.now = clock.now.Add(4 * 24 * time.Hour)
	result, err = r.Reconcile(ctx, dhaka(15))
	require.NoError(t, err)
	assert.False(t, result.HasUpdated)
	assert.Equal(t, 1, result.Collapsed)
	region = findRegion(t, st, "Dhaka")
	assert.Equal(t, int64(15), region.Count)
	assert.Equal(t, int64(15), region.PreviousCount)
}

func TestReconcile_FreezeWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		now          time.Time
		wantPrevious int64
		wantOutcome  func(*ReconcileResult) int
	}{
		{
			name:         "within window keeps previous count",
			now:          reportMidnight.Add(71 * time.Hour),
			wantPrevious: 10,
			wantOutcome:  func(r *ReconcileResult) int { return r.Unchanged },
		},
		{
			name:         "exactly at window keeps previous count",
			now:          reportMidnight.Add(DefaultFreezeWindow),
			wantPrevious: 10,
			wantOutcome:  func(r *ReconcileResult) int { return r.Unchanged },
		},
		{
			name:         "past window collapses previous count",
			now:          reportMidnight.Add(DefaultFreezeWindow + time.Minute),
			wantPrevious: 15,
			wantOutcome:  func(r *ReconcileResult) int { return r.Collapsed },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			st := store.NewMemoryStore()
			require.NoError(t, st.UpsertRegion(ctx, &model.Region{
				Name: "Dhaka", Count: 15, PreviousCount: 10, LastUpdate: reportMidnight,
			}))

			r := newTestReconciler(st, &testClock{now: tt.now})
			result, err := r.Reconcile(ctx, dhaka(15))
			require.NoError(t, err)
			assert.Equal(t, 1, tt.wantOutcome(result))
			assert.Equal(t, tt.wantPrevious, findRegion(t, st, "Dhaka").PreviousCount)
		})
	}
}

func TestReconcile_CustomFreezeWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.UpsertRegion(ctx, &model.Region{
		Name: "Dhaka", Count: 15, PreviousCount: 10, LastUpdate: reportMidnight,
	}))

	clock := &testClock{now: reportMidnight.Add(2 * time.Hour)}
	r := NewReconciler(st, timeparse.New(), WithReconcilerClock(clock.Now), WithFreezeWindow(time.Hour))

	result, err := r.Reconcile(ctx, dhaka(15))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Collapsed)
}

func TestReconcile_ShiftsHistoryOncePerChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	r := newTestReconciler(st, &testClock{now: reportMidnight.Add(time.Hour)})

	for _, count := range []int64{3, 7, 7, 7, 12} {
		_, err := r.Reconcile(ctx, dhaka(count))
		require.NoError(t, err)
	}

	region := findRegion(t, st, "Dhaka")
	assert.Equal(t, int64(12), region.Count)
	assert.Equal(t, int64(7), region.PreviousCount)
}

func TestReconcile_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	r := newTestReconciler(st, &testClock{now: reportMidnight.Add(time.Hour)})

	rows := []sources.RegionRow{
		{Name: "Dhaka", Count: 15, RawTimestamp: reportDay},
		{Name: "Chattogram", Count: 4, RawTimestamp: "29/06/2020"},
	}
	_, err := r.Reconcile(ctx, rows)
	require.NoError(t, err)
	first, err := st.ListRegions(ctx)
	require.NoError(t, err)

	result, err := r.Reconcile(ctx, rows)
	require.NoError(t, err)
	assert.False(t, result.HasUpdated)
	assert.Equal(t, 2, result.Total())

	second, err := st.ListRegions(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconcile_UnparseableTimestampFallsBackToNow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	now := time.Date(2020, 7, 2, 9, 30, 0, 0, time.UTC)
	r := newTestReconciler(st, &testClock{now: now})

	_, err := r.Reconcile(ctx, []sources.RegionRow{{Name: "Sylhet", Count: 2, RawTimestamp: "garbage"}})
	require.NoError(t, err)
	assert.True(t, findRegion(t, st, "Sylhet").LastUpdate.Equal(now))
}

func TestReconcile_StopsAtFirstStorageFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	backendErr := errors.New("connection reset")

	gomock.InOrder(
		st.EXPECT().FindRegionByName(gomock.Any(), "Dhaka").Return(nil, store.ErrNotFound),
		st.EXPECT().UpsertRegion(gomock.Any(), gomock.Any()).Return(nil),
		st.EXPECT().FindRegionByName(gomock.Any(), "Khulna").Return(nil, store.ErrNotFound),
		st.EXPECT().UpsertRegion(gomock.Any(), gomock.Any()).Return(backendErr),
	)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	clock := &testClock{now: reportMidnight}
	r := NewReconciler(st, timeparse.New(timeparse.WithClock(clock.Now)),
		WithReconcilerClock(clock.Now), WithReconcilerTracer(tp.Tracer("reconcile")))
	result, err := r.Reconcile(context.Background(), []sources.RegionRow{
		{Name: "Dhaka", Count: 1, RawTimestamp: reportDay},
		{Name: "Khulna", Count: 2, RawTimestamp: reportDay},
		{Name: "Rajshahi", Count: 3, RawTimestamp: reportDay},
	})
	require.ErrorIs(t, err, backendErr)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Created)
	assert.True(t, result.HasUpdated)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	var failedRegion string
	for _, kv := range spans[0].Attributes {
		if kv.Key == otel.AttrRegionName {
			failedRegion = kv.Value.AsString()
		}
	}
	assert.Equal(t, "Khulna", failedRegion)
}

func TestReconcile_LookupFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().FindRegionByName(gomock.Any(), "Dhaka").Return(nil, store.ErrStorage)

	r := newTestReconciler(st, &testClock{now: reportMidnight})
	_, err := r.Reconcile(context.Background(), dhaka(1))
	require.ErrorIs(t, err, store.ErrStorage)
}
