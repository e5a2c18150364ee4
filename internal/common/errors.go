// Package common defines shared constants and sentinel errors used across
// fieldsync components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Scoping errors. A missing user/organization context refuses the
	// operation; callers on the read path degrade to empty results.
	ErrMissingScope = errors.New("missing security scope")

	// Sync classification errors. A remote failure wraps one of these so the
	// orchestrator can decide between "leave for the next run" and
	// "park for manual resolution".
	ErrRetryable = errors.New("retryable failure")
	ErrTerminal  = errors.New("terminal failure")

	// ErrSyncInProgress is returned when a sync pass is requested while
	// another one is still draining its snapshot.
	ErrSyncInProgress = errors.New("sync already in progress")
)
