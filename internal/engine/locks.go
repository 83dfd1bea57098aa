package engine

import "sync"

// keyedLocks serializes multi-step sequences per capture id. Different
// captures proceed fully in parallel; two sequences for the same id
// never interleave. Entries are reference counted so the map does not
// grow with the number of captures ever touched.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLocks) init() {
	k.entries = make(map[string]*lockEntry)
}

// lock acquires the lock for id and returns the matching unlock func.
func (k *keyedLocks) lock(id string) func() {
	k.mu.Lock()
	e, ok := k.entries[id]
	if !ok {
		e = &lockEntry{}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, id)
		}
		k.mu.Unlock()
	}
}
