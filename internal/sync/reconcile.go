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
	"github.com/healthstats-bd/healthstats-sync/internal/store"
	"github.com/healthstats-bd/healthstats-sync/internal/timeparse"
)

// DefaultFreezeWindow is how long an unchanged count keeps its previous value
const DefaultFreezeWindow = 72 * time.Hour

// ReconcileResult summarizes one reconciliation pass
type ReconcileResult struct {
	// HasUpdated is true when any region was created or changed count
	HasUpdated bool

	// Created is the number of regions seen for the first time
	Created int

	// Changed is the number of regions whose count differed from the stored one
	Changed int

	// Collapsed is the number of unchanged regions whose previous count caught up
	Collapsed int

	// Unchanged is the number of regions left within the freeze window
	Unchanged int
}

// Total returns the number of rows reconciled
func (r *ReconcileResult) Total() int {
	return r.Created + r.Changed + r.Collapsed + r.Unchanged
}

// rowOutcome is the branch a single row took
type rowOutcome int

const (
	outcomeCreated rowOutcome = iota
	outcomeChanged
	outcomeCollapsed
	outcomeUnchanged
)

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithFreezeWindow sets how long a changed count keeps showing its previous value
func WithFreezeWindow(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.freezeWindow = d
		}
	}
}

// WithReconcilerClock replaces time.Now, mainly for tests
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithReconcilerTracer enables tracing of reconciliation passes
func WithReconcilerTracer(tracer trace.Tracer) ReconcilerOption {
	return func(r *Reconciler) {
		r.tracer = tracer
	}
}

// Reconciler applies freshly scraped region rows to the stored regions.
//
// For each row the stored region is created, shifted or left alone:
//   - absent: created with previous count equal to count
//   - count differs: previous count takes the old count, count takes the new one
//   - count equal: previous count catches up to count only once the report
//     timestamp is older than the freeze window
//
// The report timestamp is always overwritten and every row is persisted on its own.
type Reconciler struct {
	store        store.Store
	parser       *timeparse.Parser
	freezeWindow time.Duration
	now          func() time.Time
	tracer       trace.Tracer
}

// NewReconciler creates a reconciler writing to st and parsing timestamps with parser
func NewReconciler(st store.Store, parser *timeparse.Parser, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:        st,
		parser:       parser,
		freezeWindow: DefaultFreezeWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.parser == nil {
		r.parser = timeparse.New(timeparse.WithClock(r.now))
	}
	return r
}

// Reconcile applies rows in order. Rows committed before a failure stay committed;
// the returned result counts them.
func (r *Reconciler) Reconcile(ctx context.Context, rows []sources.RegionRow) (*ReconcileResult, error) {
	ctx, span := otel.StartSpan(ctx, r.tracer, "sync.Reconcile",
		trace.WithAttributes(otel.AttrResultCount.Int(len(rows))))
	defer span.End()

	result := &ReconcileResult{}
	for _, row := range rows {
		outcome, err := r.reconcileRow(ctx, row)
		if err != nil {
			span.SetAttributes(otel.AttrRegionName.String(row.Name))
			otel.RecordError(span, err)
			return result, err
		}

		switch outcome {
		case outcomeCreated:
			result.Created++
			result.HasUpdated = true
		case outcomeChanged:
			result.Changed++
			result.HasUpdated = true
		case outcomeCollapsed:
			result.Collapsed++
		case outcomeUnchanged:
			result.Unchanged++
		}
	}

	span.SetAttributes(otel.AttrHasUpdated.Bool(result.HasUpdated))
	return result, nil
}

func (r *Reconciler) reconcileRow(ctx context.Context, row sources.RegionRow) (rowOutcome, error) {
	lastUpdate := r.parser.Parse(row.RawTimestamp)

	existing, err := r.store.FindRegionByName(ctx, row.Name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("failed to look up region %q: %w", row.Name, err)
	}

	var outcome rowOutcome
	var region model.Region
	switch {
	case existing == nil:
		region = model.Region{Name: row.Name, Count: row.Count, PreviousCount: row.Count}
		outcome = outcomeCreated
	case existing.Count != row.Count:
		region = *existing
		region.PreviousCount = existing.Count
		region.Count = row.Count
		outcome = outcomeChanged
	default:
		region = *existing
		elapsed := r.now().UTC().Sub(lastUpdate.UTC())
		if elapsed > r.freezeWindow {
			region.PreviousCount = region.Count
			outcome = outcomeCollapsed
		} else {
			outcome = outcomeUnchanged
		}
	}
	region.LastUpdate = lastUpdate

	if err := r.store.UpsertRegion(ctx, &region); err != nil {
		return 0, fmt.Errorf("failed to save region %q: %w", row.Name, err)
	}

	slog.DebugContext(ctx, "Reconciled region",
		"region", region.Name,
		"count", region.Count,
		"previous_count", region.PreviousCount,
		"outcome", outcome.String())
	return outcome, nil
}

// String returns the log name of the outcome
func (o rowOutcome) String() string {
	switch o {
	case outcomeCreated:
		return "created"
	case outcomeChanged:
		return "changed"
	case outcomeCollapsed:
		return "collapsed"
	default:
		return "unchanged"
	}
}
