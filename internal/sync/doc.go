// Package sync turns scraped source data into stored records.
//
// # Core Types
//
//   - Manager: runs one district or stats sync cycle and reports a Result or an Error
//   - Reconciler: applies district rows to stored regions, keeping one step of count history
//   - AggregateStats: maps the eight national counters onto the aggregate record
//
// # Region History
//
// Every region keeps its current count and the count before the last change.
// When a count changes, the old count moves into PreviousCount. When it stays
// the same, PreviousCount catches up only after the report timestamp has aged
// past the freeze window (72h by default), so consumers can show "+N since last
// report" for a few days after a change.
//
// # Errors
//
// Error carries a Reason (FetchFailed, ParseFailed, StorageFailed) and unwraps
// to the underlying cause, so callers can still test for sources.ErrNotFound,
// sources.ErrParse or store.ErrStorage with errors.Is.
//
// Scheduling and overlap protection live in the sync/coordinator subpackage.
package sync
