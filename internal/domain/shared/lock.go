package shared

import "context"

// Release undoes a successful lock acquisition. It is safe to call once.
type Release func()

// LockManager serializes writers that touch the same lot scopes.
type LockManager interface {
	// AcquireAll takes every scope in ascending key order and waits a bounded
	// time for each. On failure nothing stays held and a CONTENTION error is
	// returned.
	AcquireAll(ctx context.Context, scopes []string) (Release, error)
}
