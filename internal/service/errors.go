package service

import "errors"

// Domain errors surfaced to handlers. All are local, recoverable
// conditions — the caller decides how to report them, nothing here is
// treated as fatal.
var (
	// ErrParentCycle means a parent assignment would close a cycle in the
	// record tree (the proposed parent is the record itself or one of its
	// descendants).
	ErrParentCycle = errors.New("parent assignment would create a cycle")

	// ErrBoxUnavailable means a stock box is already consumed by an active
	// production input.
	ErrBoxUnavailable = errors.New("stock box is not available")

	// ErrAllocationExceedsAvailability means a source or consumption would
	// overdraw its origin's remaining weight.
	ErrAllocationExceedsAvailability = errors.New("allocation exceeds the origin's available weight")

	// ErrSyncPartialFailure means one or more items of a bulk reconciliation
	// failed. Already-applied items are not rolled back; the per-item result
	// list tells the caller exactly which ones went through.
	ErrSyncPartialFailure = errors.New("one or more items failed during sync")
)
