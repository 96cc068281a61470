package lock_service

import (
	"sync"

	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/namespace_service"
)

// waiter is a single queued acquire attempt. Identity matters: a waiter
// is runnable only while it sits at the head of its cell's queue.
type waiter struct {
	exclusive bool
}

// lockCell is the per-path lock state: a FIFO queue of pending waiters,
// the live holder count, and whether the current holders are exclusive.
// Each cell signals on its own condition so a release only wakes waiters
// of that path. Cells are created lazily and never destroyed.
type lockCell struct {
	queue     []*waiter
	count     int
	exclusive bool
	cond      *sync.Cond
}

// runnable reports whether w may take the lock now: it must be at the
// head of the queue, and either nobody holds the cell or the holders and
// w are all shared.
func (c *lockCell) runnable(w *waiter) bool {
	if len(c.queue) == 0 || c.queue[0] != w {
		return false
	}
	return c.count == 0 || (!c.exclusive && !w.exclusive)
}

type HierarchicalLockService struct {
	ns namespace_service.NamespaceService
	ls log_service.LogService

	mu    sync.Mutex
	cells map[dfspath.Path]*lockCell
}

func NewHierarchicalLockService(ns namespace_service.NamespaceService, ls log_service.LogService) *HierarchicalLockService {
	return &HierarchicalLockService{
		ns:    ns,
		ls:    ls,
		cells: make(map[dfspath.Path]*lockCell),
	}
}

// chain lists the lock order for p: the root first, then each prefix
// down to p itself.
func chain(p dfspath.Path) []dfspath.Path {
	out := []dfspath.Path{dfspath.Root()}
	cur := dfspath.Root()
	for _, comp := range p.Components() {
		next, err := dfspath.Append(cur, comp)
		if err != nil {
			break
		}
		cur = next
		out = append(out, cur)
	}
	return out
}

func (s *HierarchicalLockService) Acquire(p dfspath.Path, exclusive bool) error {
	if !s.ns.HasPath(p) {
		return ErrPathNotFound
	}

	levels := chain(p)
	for i, q := range levels {
		// Intermediate levels are always shared; only the target takes
		// the caller's mode.
		s.acquireOne(q, exclusive && i == len(levels)-1)
	}

	s.ls.Debug(log_service.LogEvent{
		Message:  "Acquired lock chain",
		Metadata: map[string]any{"path": p.String(), "exclusive": exclusive},
	})
	return nil
}

func (s *HierarchicalLockService) acquireOne(p dfspath.Path, exclusive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.cellLocked(p)
	w := &waiter{exclusive: exclusive}
	cell.queue = append(cell.queue, w)

	for !cell.runnable(w) {
		cell.cond.Wait()
	}

	cell.count++
	cell.exclusive = exclusive
	cell.queue = cell.queue[1:]

	// A batch of consecutive shared waiters is admitted one signal at a
	// time: each grant re-checks the new head.
	if len(cell.queue) > 0 && cell.runnable(cell.queue[0]) {
		cell.cond.Broadcast()
	}
}

func (s *HierarchicalLockService) Release(p dfspath.Path, exclusive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, ok := s.cells[p]
	if !ok || cell.count == 0 {
		return ErrLockNotHeld
	}

	// Walk upward from the target to the root, undoing one level each
	// step and waking that level's head if it can now run.
	q := p
	for {
		cell := s.cells[q]
		cell.count--
		if len(cell.queue) > 0 && cell.runnable(cell.queue[0]) {
			cell.cond.Broadcast()
		}
		if q.IsRoot() {
			break
		}
		parent, err := q.Parent()
		if err != nil {
			break
		}
		q = parent
	}

	s.ls.Debug(log_service.LogEvent{
		Message:  "Released lock chain",
		Metadata: map[string]any{"path": p.String(), "exclusive": exclusive},
	})
	return nil
}

func (s *HierarchicalLockService) cellLocked(p dfspath.Path) *lockCell {
	cell, ok := s.cells[p]
	if !ok {
		cell = &lockCell{}
		cell.cond = sync.NewCond(&s.mu)
		s.cells[p] = cell
	}
	return cell
}

// HolderCount reports the live holder count for p. Zero for paths that
// were never locked.
func (s *HierarchicalLockService) HolderCount(p dfspath.Path) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, ok := s.cells[p]
	if !ok {
		return 0
	}
	return cell.count
}

var _ LockService = (*HierarchicalLockService)(nil)
