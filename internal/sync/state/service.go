// Package state owns the process-wide sync state record and the per-kind sync guard.
package state

import (
	"context"

	"github.com/healthstats-bd/healthstats-sync/internal/status"
)

// SyncStateService provides the guard that keeps syncs of the same kind from overlapping.
//
//go:generate mockgen -destination=mocks/mock_sync_state_service.go -package=mocks github.com/healthstats-bd/healthstats-sync/internal/sync/state SyncStateService
type SyncStateService interface {
	// Initialize creates the sync state record if absent. It is intended to be
	// called once at scheduler start, and resets guard flags whose sync started
	// longer ago than the stale bound. Younger guards stay set.
	Initialize(ctx context.Context) error
	// GetSyncState returns a copy of the current sync state.
	GetSyncState(ctx context.Context) (*status.SyncState, error)
	// TryStartSync sets the guard flag of kind and records the attempt time.
	// It returns false without changing anything when a sync of kind is already running.
	// A guard older than the stale bound is reclaimed.
	TryStartSync(ctx context.Context, kind status.SyncKind) (bool, error)
	// FinishSync clears the guard flag of kind. When updated is true the last
	// sync time of kind advances to now. syncErr, if not nil, is recorded as the
	// last error; a nil syncErr clears it.
	FinishSync(ctx context.Context, kind status.SyncKind, updated bool, syncErr error) error
	// UpdateStateAtomically is used to carry out atomic updates on the sync state.
	// Implementations will fetch the existing state, apply the testAndUpdateFn
	// function to it, and save the state if it is mutated by that function - all
	// as a single atomic action. testAndUpdateFn returns a boolean to indicate
	// whether the state was modified, and this is returned when done.
	UpdateStateAtomically(
		ctx context.Context,
		testAndUpdateFn func(state *status.SyncState) bool,
	) (bool, error)
}
