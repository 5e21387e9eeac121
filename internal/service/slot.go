package service

import "sync"

// ActionSlot tracks the runs of one page action of one visitor. Only the
// most recently begun run may commit its result; older runs finish quietly.
type ActionSlot struct {
	mu      sync.Mutex
	current uint64
	active  map[uint64]struct{}
}

// NewActionSlot creates an idle slot
func NewActionSlot() *ActionSlot {
	return &ActionSlot{active: make(map[uint64]struct{})}
}

// Begin starts a run and returns its token
func (s *ActionSlot) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	s.active[s.current] = struct{}{}
	return s.current
}

// Commit runs fn when token is still current and reports whether it did
func (s *ActionSlot) Commit(token uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.current {
		return false
	}
	fn()
	return true
}

// Finish ends a run whether or not it committed
func (s *ActionSlot) Finish(token uint64) {
	s.mu.Lock()
	delete(s.active, token)
	s.mu.Unlock()
}

// Invalidate supersedes every run in flight
func (s *ActionSlot) Invalidate() {
	s.mu.Lock()
	s.current++
	s.mu.Unlock()
}

// Loading reports whether a run is in flight
func (s *ActionSlot) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active) > 0
}
