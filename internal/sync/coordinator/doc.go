// Package coordinator schedules district and stats syncs in the background.
//
// It sits on top of sync.Manager and handles:
//
//   - one time.Ticker per sync kind (district every 30m, stats every 18m by default)
//   - an initial run of both kinds at startup
//   - the per-kind guard held in state.SyncStateService
//   - graceful shutdown
//
// # Guarded Runs
//
// Every run, scheduled or triggered through RunDistrictSync / RunStatsSync,
// goes through the same sequence:
//
//  1. TryStartSync sets the guard flag of the kind; if it is already set the
//     attempt is logged and skipped
//  2. the manager performs the sync
//  3. a deferred FinishSync clears the flag, advances the last sync time when
//     data changed and records the last error
//
// Step 3 also runs when the sync panics or its context is cancelled, so a
// failed cycle never leaves the guard set. Failures are logged and the next
// tick tries again; there is no cycle-level retry.
//
// # Usage Example
//
//	coord := coordinator.New(syncManager, stateService, &cfg.Sync)
//
//	go func() {
//	    if err := coord.Start(ctx); err != nil {
//	        slog.Error("coordinator failed", "error", err)
//	    }
//	}()
//
//	// ... on shutdown
//	_ = coord.Stop()
package coordinator
