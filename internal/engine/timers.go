package engine

import (
	"sync"
	"time"
)

// timerSet tracks one cancellable pending timer per capture id.
// Scheduling replaces any pending timer for the same id (reset, not
// stack); cancel removes exactly the in-flight timer. The fired
// callback and cancel race through the map under one mutex: whichever
// removes the entry first wins, and a callback that finds its entry
// gone (or replaced) returns without running.
type timerSet struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
	closed bool
}

func (s *timerSet) init() {
	s.timers = make(map[string]*time.Timer)
}

// schedule arms fn to run after d, replacing any pending timer for id.
func (s *timerSet) schedule(id string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[id]; ok {
		delete(s.timers, id)
		if old.Stop() {
			s.wg.Done()
		}
	}

	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer s.wg.Done()
		s.mu.Lock()
		cur, ok := s.timers[id]
		if !ok || cur != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()
		fn()
	})
	s.timers[id] = t
}

// cancel stops the pending timer for id. Returns false when no timer
// was pending (never armed, already fired, or already cancelled).
func (s *timerSet) cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	if t.Stop() {
		s.wg.Done()
	}
	// Stop returning false means the callback already fired; it will
	// find its entry gone and return without acting.
	return true
}

// pending reports whether a timer is armed for id.
func (s *timerSet) pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// drain cancels every pending timer, rejects new ones, and waits for
// in-flight callbacks to finish.
func (s *timerSet) drain() {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.timers {
		delete(s.timers, id)
		if t.Stop() {
			s.wg.Done()
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}
