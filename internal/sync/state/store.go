package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	"github.com/healthstats-bd/healthstats-sync/internal/store"
)

// Option configures the store-backed state service
type Option func(*storeStateService)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *storeStateService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStaleAfter sets how long a guard may stay set before it is reclaimed.
// Zero or negative keeps set guards until they are released.
func WithStaleAfter(d time.Duration) Option {
	return func(s *storeStateService) {
		s.staleAfter = d
	}
}

type storeStateService struct {
	store      store.Store
	now        func() time.Time
	staleAfter time.Duration

	// Serializes every load-test-save cycle. The guard is atomic within
	// one process; processes sharing a backend are not coordinated.
	mu sync.Mutex
}

// NewStateService creates a SyncStateService that persists the state in st
func NewStateService(st store.Store, opts ...Option) SyncStateService {
	s := &storeStateService{
		store:      st,
		now:        time.Now,
		staleAfter: config.DefaultStaleGuardAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *storeStateService) Initialize(ctx context.Context) error {
	_, err := s.UpdateStateAtomically(ctx, func(state *status.SyncState) bool {
		now := s.now().UTC()
		changed := false
		for _, kind := range status.AllKinds {
			if !state.IsSyncing(kind) {
				continue
			}
			switch {
			case state.LastAttempt(kind) == nil:
				// Start the staleness clock for a guard without a start time
				slog.WarnContext(ctx, "Sync guard has no start time, it expires after the stale bound",
					"sync_type", kind, "stale_after", s.staleAfter)
				state.SetAttempt(kind, now)
				changed = true
			case s.isStale(state, kind, now):
				slog.WarnContext(ctx, "Previous sync was interrupted, resetting guard",
					"sync_type", kind, "started_at", state.LastAttempt(kind).Format(time.RFC3339))
				state.SetSyncing(kind, false)
				changed = true
			default:
				slog.InfoContext(ctx, "Sync guard is held by a running sync, leaving it set", "sync_type", kind)
			}
		}
		return changed
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sync state: %w", err)
	}

	state, err := s.GetSyncState(ctx)
	if err != nil {
		return err
	}
	if state.LastDistrictSync != nil {
		slog.InfoContext(ctx, "Loaded sync state", "last_district_sync", state.LastDistrictSync.Format(time.RFC3339))
	} else {
		slog.InfoContext(ctx, "Sync state initialized, no previous district sync")
	}
	return nil
}

func (s *storeStateService) GetSyncState(ctx context.Context) (*status.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(ctx)
}

func (s *storeStateService) TryStartSync(ctx context.Context, kind status.SyncKind) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("unknown sync kind %q", kind)
	}

	return s.UpdateStateAtomically(ctx, func(state *status.SyncState) bool {
		now := s.now().UTC()
		if state.IsSyncing(kind) {
			if !s.isStale(state, kind, now) {
				return false
			}
			slog.WarnContext(ctx, "Reclaiming stale sync guard",
				"sync_type", kind, "started_at", state.LastAttempt(kind).Format(time.RFC3339))
		}
		state.SetSyncing(kind, true)
		state.SetAttempt(kind, now)
		return true
	})
}

func (s *storeStateService) FinishSync(ctx context.Context, kind status.SyncKind, updated bool, syncErr error) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown sync kind %q", kind)
	}

	_, err := s.UpdateStateAtomically(ctx, func(state *status.SyncState) bool {
		state.SetSyncing(kind, false)
		if updated {
			state.SetLastSync(kind, s.now().UTC())
		}
		if syncErr != nil {
			state.LastError = fmt.Sprintf("%s sync: %s", kind, syncErr.Error())
		} else {
			state.LastError = ""
		}
		return true
	})
	return err
}

func (s *storeStateService) UpdateStateAtomically(
	ctx context.Context,
	testAndUpdateFn func(state *status.SyncState) bool,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	if !testAndUpdateFn(state) {
		return false, nil
	}

	if err := s.store.SaveSyncState(ctx, state); err != nil {
		return false, fmt.Errorf("failed to save sync state: %w", err)
	}
	return true, nil
}

// isStale reports whether the set guard of kind started longer than staleAfter ago.
// A guard without a start time is never stale here; Initialize stamps one.
func (s *storeStateService) isStale(state *status.SyncState, kind status.SyncKind, now time.Time) bool {
	attempt := state.LastAttempt(kind)
	if s.staleAfter <= 0 || attempt == nil {
		return false
	}
	return now.Sub(attempt.UTC()) > s.staleAfter
}

// load returns the stored state, or a fresh one persisted on first use.
// Callers must hold mu.
func (s *storeStateService) load(ctx context.Context) (*status.SyncState, error) {
	state, err := s.store.GetSyncState(ctx)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	state = &status.SyncState{}
	if err := s.store.SaveSyncState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to create sync state: %w", err)
	}
	return state, nil
}
