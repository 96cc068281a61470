package lock_service

import "github.com/tanmaygrover/namestore/internal/dfspath"

// LockService hands out hierarchical reader/writer locks on namespace
// paths. Acquiring a path takes shared locks on every strict ancestor
// plus the requested mode on the path itself; releasing gives back the
// same chain. Waiters on any single path are served in FIFO order.
type LockService interface {
	// Acquire blocks until the caller holds the requested lock chain.
	// It fails with ErrPathNotFound when the path is unknown to the
	// namespace.
	Acquire(p dfspath.Path, exclusive bool) error
	// Release gives back the chain taken by a matching Acquire. It fails
	// with ErrLockNotHeld when the path has no active lock.
	Release(p dfspath.Path, exclusive bool) error
}
