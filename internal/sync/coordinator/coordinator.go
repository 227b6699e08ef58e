package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	pkgsync "github.com/healthstats-bd/healthstats-sync/internal/sync"
	"github.com/healthstats-bd/healthstats-sync/internal/sync/state"
	"github.com/healthstats-bd/healthstats-sync/internal/telemetry"
)

// ErrAlreadyStarted is returned by Start on a coordinator that was started before
var ErrAlreadyStarted = errors.New("sync coordinator already started")

// Coordinator schedules the district and stats syncs and keeps runs of the same kind from overlapping
type Coordinator interface {
	// Start initializes the sync state and runs one ticker loop per sync kind.
	// Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator and waits for running syncs to return
	Stop() error

	// RunDistrictSync runs one guarded district sync. Safe to call at any time.
	RunDistrictSync(ctx context.Context) Outcome

	// RunStatsSync runs one guarded stats sync. Safe to call at any time.
	RunStatsSync(ctx context.Context) Outcome
}

// Outcome describes a single guarded sync attempt
type Outcome struct {
	Kind  status.SyncKind
	RunID string

	// Skipped is true when a sync of the same kind was already running
	Skipped bool

	// Result is set when the sync succeeded
	Result *pkgsync.Result

	// Err is set when the sync failed, panicked or the guard could not be read.
	// A failed sync yields a *pkgsync.Error.
	Err error

	Duration time.Duration
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager pkgsync.Manager
	config  *config.SyncConfig

	// Lifecycle management
	mu         gosync.Mutex
	started    bool
	cancelFunc context.CancelFunc
	done       chan struct{}

	statusSvc state.SyncStateService

	// Metrics
	syncMetrics   *telemetry.SyncMetrics
	regionMetrics *telemetry.RegionMetrics

	tracer trace.Tracer
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithRegionMetrics sets the region metrics for the coordinator
func WithRegionMetrics(metrics *telemetry.RegionMetrics) Option {
	return func(c *defaultCoordinator) {
		c.regionMetrics = metrics
	}
}

// WithTracer enables a span per guarded sync run
func WithTracer(tracer trace.Tracer) Option {
	return func(c *defaultCoordinator) {
		c.tracer = tracer
	}
}

// New creates a new coordinator with injected dependencies
func New(
	manager pkgsync.Manager,
	statusSvc state.SyncStateService,
	cfg *config.SyncConfig,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		manager:   manager,
		statusSvc: statusSvc,
		config:    cfg,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background sync coordination for both sync kinds
func (c *defaultCoordinator) Start(ctx context.Context) error {
	districtInterval := getSyncInterval(c.config, status.SyncKindDistrict)
	statsInterval := getSyncInterval(c.config, status.SyncKindStats)
	slog.Info("Starting background sync coordinator",
		"district_interval", districtInterval,
		"stats_interval", statsInterval)

	// Create cancellable context for this coordinator
	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		cancel()
		return ErrAlreadyStarted
	}
	c.started = true
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		close(c.done)
		slog.Info("Background sync coordinator shutting down")
	}()

	// Clear guards left behind by a process that stopped mid-sync
	if err := c.statusSvc.Initialize(coordCtx); err != nil {
		return fmt.Errorf("failed to initialize sync state: %w", err)
	}

	syncOnStart := getSyncOnStart(c.config)

	var wg gosync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.runLoop(coordCtx, districtInterval, syncOnStart, c.RunDistrictSync)
	}()
	go func() {
		defer wg.Done()
		c.runLoop(coordCtx, statsInterval, syncOnStart, c.RunStatsSync)
	}()

	<-coordCtx.Done()
	slog.Info("Sync coordinator stopping")
	wg.Wait()
	return nil
}

// runLoop drives one sync kind off its own ticker
func (c *defaultCoordinator) runLoop(
	ctx context.Context,
	interval time.Duration,
	syncOnStart bool,
	run func(context.Context) Outcome,
) {
	if syncOnStart {
		run(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		// Wait for coordinator to finish
		<-c.done
	}
	return nil
}

// RunDistrictSync runs one guarded district sync
func (c *defaultCoordinator) RunDistrictSync(ctx context.Context) Outcome {
	return c.runGuarded(ctx, status.SyncKindDistrict, c.manager.SyncDistricts)
}

// RunStatsSync runs one guarded stats sync
func (c *defaultCoordinator) RunStatsSync(ctx context.Context) Outcome {
	return c.runGuarded(ctx, status.SyncKindStats, c.manager.SyncStats)
}
