// Package app wires configuration, storage, sources and the sync coordinator
// into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	"github.com/healthstats-bd/healthstats-sync/internal/store"
	"github.com/healthstats-bd/healthstats-sync/internal/sync/coordinator"
)

// SyncApp encapsulates all components needed to run the sync engine.
// It provides lifecycle management and graceful shutdown capabilities.
type SyncApp struct {
	config     *config.Config
	components *AppComponents

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start runs the background scheduler and blocks until it stops
func (app *SyncApp) Start() error {
	slog.Info("Starting sync scheduler")
	if err := app.components.SyncCoordinator.Start(app.ctx); err != nil {
		return fmt.Errorf("sync coordinator failed: %w", err)
	}
	return nil
}

// Stop stops the scheduler, waiting at most timeout for running syncs, and closes the store
func (app *SyncApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down...")

	stopped := make(chan error, 1)
	go func() {
		stopped <- app.components.SyncCoordinator.Stop()
	}()

	var errs []error
	select {
	case err := <-stopped:
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to stop sync coordinator: %w", err))
		}
	case <-time.After(timeout):
		errs = append(errs, fmt.Errorf("sync coordinator did not stop within %s", timeout))
	}

	// Cancel the application context and release storage
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("Shutdown complete")
	return nil
}

// RunOnce runs one guarded sync per requested kind, in order, without the scheduler.
// A guard held by another process makes that kind's outcome Skipped.
func (app *SyncApp) RunOnce(ctx context.Context, kinds ...status.SyncKind) ([]coordinator.Outcome, error) {
	outcomes := make([]coordinator.Outcome, 0, len(kinds))
	for _, kind := range kinds {
		switch kind {
		case status.SyncKindDistrict:
			outcomes = append(outcomes, app.components.SyncCoordinator.RunDistrictSync(ctx))
		case status.SyncKindStats:
			outcomes = append(outcomes, app.components.SyncCoordinator.RunStatsSync(ctx))
		default:
			return outcomes, fmt.Errorf("unknown sync kind %q", kind)
		}
	}
	return outcomes, nil
}

// StatusReport is a snapshot of everything the engine has stored
type StatusReport struct {
	SyncState *status.SyncState    `json:"syncState" yaml:"syncState"`
	Stats     *model.AggregateStat `json:"stats,omitempty" yaml:"stats,omitempty"`
	Regions   []model.Region       `json:"regions" yaml:"regions"`

	// RecentlyChanged counts regions whose count still differs from the previous count
	RecentlyChanged int `json:"recentlyChanged" yaml:"recentlyChanged"`
}

// Status reads the sync state and the stored records
func (app *SyncApp) Status(ctx context.Context) (*StatusReport, error) {
	syncState, err := app.components.StateService.GetSyncState(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := app.components.Store.GetStats(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	regions, err := app.components.Store.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}

	report := &StatusReport{
		SyncState: syncState,
		Stats:     stats,
		Regions:   regions,
	}
	for i := range regions {
		if regions[i].HasRecentChange() {
			report.RecentlyChanged++
		}
	}
	return report, nil
}

// GetConfig returns the application configuration
func (app *SyncApp) GetConfig() *config.Config {
	return app.config
}
