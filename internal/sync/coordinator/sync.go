package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthstats-bd/healthstats-sync/internal/otel"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	pkgsync "github.com/healthstats-bd/healthstats-sync/internal/sync"
)

// syncFunc is one manager sync cycle
type syncFunc func(ctx context.Context) (*pkgsync.Result, *pkgsync.Error)

// runGuarded takes the guard of kind, runs fn and always releases the guard,
// whether fn returns, fails or panics. Nothing escapes: failures end up in the
// returned Outcome, the sync state and the log.
func (c *defaultCoordinator) runGuarded(ctx context.Context, kind status.SyncKind, fn syncFunc) (outcome Outcome) {
	runID := uuid.NewString()
	outcome = Outcome{Kind: kind, RunID: runID}
	logger := slog.With("sync_type", string(kind), "run_id", runID)

	started, err := c.statusSvc.TryStartSync(ctx, kind)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to acquire sync guard", "error", err)
		outcome.Err = err
		return outcome
	}
	if !started {
		logger.InfoContext(ctx, "Sync already in progress, skipping")
		c.syncMetrics.RecordSyncSkipped(ctx, string(kind))
		outcome.Skipped = true
		return outcome
	}

	ctx, span := otel.StartSpan(ctx, c.tracer, "coordinator.Sync",
		trace.WithAttributes(
			otel.AttrSyncType.String(string(kind)),
			otel.AttrSyncRunID.String(runID),
		))
	startTime := time.Now()

	// Release the guard even if ctx was cancelled mid-sync
	defer func() {
		if r := recover(); r != nil {
			outcome.Result = nil
			outcome.Err = fmt.Errorf("%s sync panicked: %v", kind, r)
			logger.ErrorContext(ctx, "Sync panicked", "panic", r, "stack", string(debug.Stack()))
		}
		outcome.Duration = time.Since(startTime)

		releaseCtx := context.WithoutCancel(ctx)
		updated := outcome.Result != nil && outcome.Result.HasUpdated
		if err := c.statusSvc.FinishSync(releaseCtx, kind, updated, outcome.Err); err != nil {
			logger.ErrorContext(releaseCtx, "Failed to release sync guard", "error", err)
		}

		c.syncMetrics.RecordSyncDuration(releaseCtx, string(kind), outcome.Duration, outcome.Err == nil)
		if outcome.Err != nil {
			otel.RecordError(span, outcome.Err)
		}
		span.End()
	}()

	logger.InfoContext(ctx, "Starting sync operation")

	result, syncErr := fn(ctx)
	if syncErr != nil {
		outcome.Err = syncErr
		logger.ErrorContext(ctx, "Sync failed",
			"reason", syncErr.Reason,
			"error", syncErr.Message)
		if syncErr.Partial != nil {
			c.recordRegions(ctx, syncErr.Partial)
		}
		return outcome
	}

	outcome.Result = result
	c.logResult(ctx, logger, result)
	return outcome
}

// logResult reports a successful sync and records its metrics
func (c *defaultCoordinator) logResult(ctx context.Context, logger *slog.Logger, result *pkgsync.Result) {
	switch result.Kind {
	case status.SyncKindDistrict:
		regions := result.Regions
		if regions == nil {
			regions = &pkgsync.ReconcileResult{}
		}
		c.recordRegions(ctx, regions)
		c.regionMetrics.RecordRegionsTotal(ctx, int64(regions.Total()))

		if result.HasUpdated {
			logger.InfoContext(ctx, "District sync fetched new data",
				"created", regions.Created,
				"changed", regions.Changed)
		} else {
			logger.InfoContext(ctx, "District data already up-to-date",
				"region_count", regions.Total())
		}
	case status.SyncKindStats:
		logger.InfoContext(ctx, "Stats sync completed successfully")
	}
}

func (c *defaultCoordinator) recordRegions(ctx context.Context, r *pkgsync.ReconcileResult) {
	c.regionMetrics.RecordReconciled(ctx, "created", r.Created)
	c.regionMetrics.RecordReconciled(ctx, "changed", r.Changed)
	c.regionMetrics.RecordReconciled(ctx, "collapsed", r.Collapsed)
	c.regionMetrics.RecordReconciled(ctx, "unchanged", r.Unchanged)
}
