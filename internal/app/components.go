package app

import (
	"github.com/healthstats-bd/healthstats-sync/internal/store"
	"github.com/healthstats-bd/healthstats-sync/internal/sync/coordinator"
	"github.com/healthstats-bd/healthstats-sync/internal/sync/state"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator schedules and guards the syncs
	SyncCoordinator coordinator.Coordinator

	// StateService owns the sync state record
	StateService state.SyncStateService

	// Store holds regions, stats and the sync state
	Store store.Store
}
