package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// ReviewPolicy is how a fresh classification is presented to the user.
type ReviewPolicy string

const (
	// PolicyAutoAccept applies immediately and starts a countdown that
	// confirms the classification unless the user intervenes.
	PolicyAutoAccept ReviewPolicy = "AUTO_ACCEPT"
	// PolicyConfirm applies immediately; the user acknowledges or edits.
	PolicyConfirm ReviewPolicy = "CONFIRM"
	// PolicyManualSelect holds the result unapplied until the user
	// picks a category.
	PolicyManualSelect ReviewPolicy = "MANUAL_SELECT"
)

// PolicyFor maps a confidence bucket to its review policy.
func PolicyFor(level model.ConfidenceLevel) ReviewPolicy {
	switch level {
	case model.ConfidenceHigh:
		return PolicyAutoAccept
	case model.ConfidenceMedium:
		return PolicyConfirm
	default:
		return PolicyManualSelect
	}
}

// reviewWindow is the metadata behind an armed auto-accept countdown.
type reviewWindow struct {
	startedAt time.Time
	duration  time.Duration
}

// reviewSet tracks per-capture review state: armed auto-accept
// countdowns and low-confidence results parked until the user picks a
// category.
type reviewSet struct {
	timers timerSet

	mu      sync.Mutex
	windows map[string]reviewWindow
	parked  map[string]*model.Classification
}

func (s *reviewSet) init() {
	s.timers.init()
	s.windows = make(map[string]reviewWindow)
	s.parked = make(map[string]*model.Classification)
}

func (s *reviewSet) schedule(id string, d time.Duration, fn func()) {
	s.mu.Lock()
	s.windows[id] = reviewWindow{startedAt: time.Now(), duration: d}
	s.mu.Unlock()

	s.timers.schedule(id, d, func() {
		s.mu.Lock()
		delete(s.windows, id)
		s.mu.Unlock()
		fn()
	})
}

// cancel drops any countdown and any parked result for id. Returns
// true when a countdown was actually pending.
func (s *reviewSet) cancel(id string) bool {
	s.mu.Lock()
	delete(s.windows, id)
	delete(s.parked, id)
	s.mu.Unlock()
	return s.timers.cancel(id)
}

// progress reports how far the countdown for id has advanced, in
// [0,1], monotonically. False when no countdown is pending.
func (s *reviewSet) progress(id string) (float64, bool) {
	s.mu.Lock()
	w, ok := s.windows[id]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	p := float64(time.Since(w.startedAt)) / float64(w.duration)
	if p > 1 {
		p = 1
	}
	return p, true
}

func (s *reviewSet) park(id string, cls *model.Classification) {
	s.mu.Lock()
	s.parked[id] = cls
	s.mu.Unlock()
}

func (s *reviewSet) takeParked(id string) (*model.Classification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, ok := s.parked[id]
	if ok {
		delete(s.parked, id)
	}
	return cls, ok
}

func (s *reviewSet) drain() {
	s.timers.drain()
	s.mu.Lock()
	s.windows = make(map[string]reviewWindow)
	s.parked = make(map[string]*model.Classification)
	s.mu.Unlock()
}

// ProcessClassification routes a classifier result by confidence.
// HIGH applies immediately and arms the auto-accept countdown whose
// expiry is an implicit confirm. MEDIUM applies immediately and waits
// for an explicit confirm. LOW parks the result without applying; the
// user must pick a category through SaveReview.
func (e *Engine) ProcessClassification(ctx context.Context, captureID string, cls *model.Classification) (ReviewPolicy, *model.Capture, error) {
	if err := ValidateClassification(cls); err != nil {
		return "", nil, err
	}

	policy := PolicyFor(cls.Level())
	if policy == PolicyManualSelect {
		e.reviews.park(captureID, cls)
		return policy, nil, nil
	}

	capture, err := e.Apply(ctx, captureID, cls)
	if err != nil {
		return "", nil, err
	}

	if policy == PolicyAutoAccept {
		e.reviews.schedule(captureID, e.AutoAcceptDuration(), func() {
			cctx, cancel := context.WithTimeout(context.Background(),
				time.Duration(e.cfg.DispatchTimeoutSeconds)*time.Second)
			defer cancel()
			if err := e.Confirm(cctx, captureID); err != nil {
				log.Printf("engine: auto-accept confirm of %s: %v", captureID, err)
			}
		})
	}
	return policy, capture, nil
}

// CancelAutoAccept stops the countdown for a capture, switching it to
// the explicit-confirm path. Returns false when no countdown was
// pending (it already fired or never existed); a cancel that loses
// the race does not undo the confirm.
func (e *Engine) CancelAutoAccept(captureID string) bool {
	return e.reviews.cancel(captureID)
}

// AutoAcceptProgress reports the countdown progress for a capture in
// [0,1]. False when no countdown is pending.
func (e *Engine) AutoAcceptProgress(captureID string) (float64, bool) {
	return e.reviews.progress(captureID)
}

// ReviewSelection is the user's category choice for a parked
// low-confidence result.
type ReviewSelection struct {
	Type         model.CaptureType   `json:"type"`
	SubType      *model.NoteSubType  `json:"sub_type,omitempty"`
	TodoInfo     *model.TodoInfo     `json:"todo_info,omitempty"`
	ScheduleInfo *model.ScheduleInfo `json:"schedule_info,omitempty"`
}

// SaveReview applies a parked low-confidence result with the user's
// chosen category. This is the first materialization for the capture,
// so it routes through Apply, not Reclassify. NotFound when nothing is
// parked for the capture.
func (e *Engine) SaveReview(ctx context.Context, captureID string, sel ReviewSelection) (*model.Capture, error) {
	cls, ok := e.reviews.takeParked(captureID)
	if !ok {
		return nil, errors.NewNotFound("pending review", captureID)
	}

	chosen := *cls
	chosen.Type = sel.Type
	chosen.SubType = sel.SubType
	if sel.TodoInfo != nil {
		chosen.TodoInfo = sel.TodoInfo
	}
	if sel.ScheduleInfo != nil {
		chosen.ScheduleInfo = sel.ScheduleInfo
	}

	capture, err := e.Apply(ctx, captureID, &chosen)
	if err != nil {
		// The selection was invalid or the write failed; park the
		// result again so the user can retry.
		e.reviews.park(captureID, cls)
		return nil, err
	}
	return capture, nil
}
