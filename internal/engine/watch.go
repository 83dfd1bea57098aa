package engine

import "sync"

// ChangeKind names the write that produced a Change notification.
type ChangeKind string

const (
	ChangeCaptured     ChangeKind = "captured"
	ChangeClassified   ChangeKind = "classified"
	ChangeReclassified ChangeKind = "reclassified"
	ChangeConfirmed    ChangeKind = "confirmed"
	ChangeDeleted      ChangeKind = "deleted"
	ChangeRestored     ChangeKind = "restored"
	ChangeHardDeleted  ChangeKind = "hard_deleted"
	ChangeTrashed      ChangeKind = "trashed"
)

// Change is one notification to live-view subscribers. Subscribers
// re-query on receipt; the change carries identity, not row data.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	CaptureID string     `json:"capture_id"`
	At        int64      `json:"at"`
}

// watcher fans Change notifications out to subscribers. Delivery is
// best-effort: a subscriber that stops draining its channel misses
// notifications rather than blocking writers.
type watcher struct {
	mu     sync.Mutex
	subs   map[int]chan Change
	nextID int
	closed bool
}

// Subscribe registers a listener. The returned cancel func must be
// called when the listener is done; the channel is closed on cancel or
// engine shutdown.
func (w *watcher) Subscribe() (<-chan Change, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan Change, 16)
	if w.closed {
		close(ch)
		return ch, func() {}
	}
	if w.subs == nil {
		w.subs = make(map[int]chan Change)
	}
	id := w.nextID
	w.nextID++
	w.subs[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if sub, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(sub)
		}
	}
}

func (w *watcher) notify(c Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
}
