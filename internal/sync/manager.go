package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/otel"
	"github.com/healthstats-bd/healthstats-sync/internal/sources"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	"github.com/healthstats-bd/healthstats-sync/internal/store"
	"github.com/healthstats-bd/healthstats-sync/internal/timeparse"
)

// Result contains the result of a successful sync operation
type Result struct {
	Kind status.SyncKind

	// HasUpdated reports whether stored data changed in a way that advances the last sync time
	HasUpdated bool

	// Regions is set for district syncs
	Regions *ReconcileResult

	// Stats is set for stats syncs
	Stats *model.AggregateStat
}

// Condition reasons for failed syncs
const (
	ReasonFetchFailed   = "FetchFailed"
	ReasonParseFailed   = "ParseFailed"
	ReasonStorageFailed = "StorageFailed"
)

// Error represents a failed sync with the stage it failed in
type Error struct {
	Err     error
	Message string
	Reason  string

	// Partial holds the regions committed before a district sync failed
	Partial *ReconcileResult
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Manager performs single sync cycles. It does not guard against overlapping
// runs; the coordinator does.
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/healthstats-bd/healthstats-sync/internal/sync Manager
type Manager interface {
	// SyncDistricts fetches the district report and reconciles every region row
	SyncDistricts(ctx context.Context) (*Result, *Error)

	// SyncStats fetches the national counters and overwrites the aggregate record
	SyncStats(ctx context.Context) (*Result, *Error)
}

// ManagerOption configures the default manager
type ManagerOption func(*defaultSyncManager)

// WithFreezeWindowDuration sets the reconciler freeze window
func WithFreezeWindowDuration(d time.Duration) ManagerOption {
	return func(m *defaultSyncManager) {
		m.reconcilerOpts = append(m.reconcilerOpts, WithFreezeWindow(d))
	}
}

// WithClock replaces time.Now for both reconciliation and stats timestamps
func WithClock(now func() time.Time) ManagerOption {
	return func(m *defaultSyncManager) {
		if now != nil {
			m.now = now
			m.reconcilerOpts = append(m.reconcilerOpts, WithReconcilerClock(now))
		}
	}
}

// WithTracer enables tracing of sync cycles
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(m *defaultSyncManager) {
		m.tracer = tracer
		m.reconcilerOpts = append(m.reconcilerOpts, WithReconcilerTracer(tracer))
	}
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	districts  sources.DistrictSource
	stats      sources.StatsSource
	store      store.Store
	reconciler *Reconciler
	now        func() time.Time
	tracer     trace.Tracer

	reconcilerOpts []ReconcilerOption
}

// NewDefaultSyncManager creates a new Manager
func NewDefaultSyncManager(
	districts sources.DistrictSource,
	stats sources.StatsSource,
	st store.Store,
	parser *timeparse.Parser,
	opts ...ManagerOption,
) Manager {
	m := &defaultSyncManager{
		districts: districts,
		stats:     stats,
		store:     st,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reconciler = NewReconciler(st, parser, m.reconcilerOpts...)
	return m
}

// SyncDistricts performs one district sync cycle
func (m *defaultSyncManager) SyncDistricts(ctx context.Context) (*Result, *Error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.SyncDistricts",
		trace.WithAttributes(otel.AttrSyncType.String(string(status.SyncKindDistrict))))
	defer span.End()

	rows, err := m.districts.FetchRegionRows(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, classifyFetchError(err)
	}
	slog.InfoContext(ctx, "District report fetched", "row_count", len(rows))

	reconciled, err := m.reconciler.Reconcile(ctx, rows)
	if err != nil {
		otel.RecordError(span, err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Storage failed: %v", err),
			Reason:  ReasonStorageFailed,
			Partial: reconciled,
		}
	}

	span.SetAttributes(
		otel.AttrResultCount.Int(reconciled.Total()),
		otel.AttrHasUpdated.Bool(reconciled.HasUpdated),
	)
	return &Result{
		Kind:       status.SyncKindDistrict,
		HasUpdated: reconciled.HasUpdated,
		Regions:    reconciled,
	}, nil
}

// SyncStats performs one stats sync cycle
func (m *defaultSyncManager) SyncStats(ctx context.Context) (*Result, *Error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.SyncStats",
		trace.WithAttributes(otel.AttrSyncType.String(string(status.SyncKindStats))))
	defer span.End()

	tokens, err := m.stats.FetchCounters(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, classifyFetchError(err)
	}

	stats, err := AggregateStats(tokens)
	if err != nil {
		otel.RecordError(span, err)
		slog.ErrorContext(ctx, "Stats counters invalid", "token_count", len(tokens), "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Parse failed: %v", err),
			Reason:  ReasonParseFailed,
		}
	}
	stats.UpdatedAt = m.now().UTC()

	if err := m.store.SaveStats(ctx, stats); err != nil {
		otel.RecordError(span, err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Storage failed: %v", err),
			Reason:  ReasonStorageFailed,
		}
	}

	slog.InfoContext(ctx, "Aggregate stats stored",
		"positive_total", stats.PositiveTotal,
		"death_total", stats.DeathTotal,
		"recovered_total", stats.RecoveredTotal,
		"test_total", stats.TestTotal)
	span.SetAttributes(otel.AttrHasUpdated.Bool(true))
	return &Result{
		Kind:       status.SyncKindStats,
		HasUpdated: true,
		Stats:      stats,
	}, nil
}

// classifyFetchError splits source failures into parse and fetch reasons
func classifyFetchError(err error) *Error {
	if errors.Is(err, sources.ErrParse) {
		return &Error{
			Err:     err,
			Message: fmt.Sprintf("Parse failed: %v", err),
			Reason:  ReasonParseFailed,
		}
	}
	return &Error{
		Err:     err,
		Message: fmt.Sprintf("Fetch failed: %v", err),
		Reason:  ReasonFetchFailed,
	}
}
