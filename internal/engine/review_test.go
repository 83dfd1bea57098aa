package engine

import (
	"context"
	"testing"
	"time"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

func TestPolicyFor_Buckets(t *testing.T) {
	cases := []struct {
		score float64
		want  ReviewPolicy
	}{
		{0.97, PolicyAutoAccept},
		{0.95, PolicyAutoAccept},
		{0.84, PolicyConfirm},
		{0.80, PolicyConfirm},
		{0.50, PolicyManualSelect},
		{0.0, PolicyManualSelect},
	}
	for _, tc := range cases {
		got := PolicyFor(model.LevelForScore(tc.score))
		if got != tc.want {
			t.Errorf("PolicyFor(%.2f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

// waitForConfirmed polls until the capture is confirmed or times out.
func waitForConfirmed(t *testing.T, e *Engine, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c, err := db.GetCapture(context.Background(), e.db, id, false)
		if err != nil {
			t.Fatalf("GetCapture failed: %v", err)
		}
		if c.IsConfirmed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("capture never auto-confirmed")
}

func TestProcessClassification_HighAutoAccepts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "dentist friday 3pm")

	policy, capture, err := e.ProcessClassification(ctx, id, scheduleClassification(0.97, 1000, 2000))
	if err != nil {
		t.Fatalf("ProcessClassification failed: %v", err)
	}
	if policy != PolicyAutoAccept {
		t.Fatalf("policy = %s, want AUTO_ACCEPT", policy)
	}
	if capture.IsConfirmed {
		t.Fatal("confirmed before the countdown elapsed")
	}
	if _, ok := e.AutoAcceptProgress(id); !ok {
		t.Fatal("no countdown pending after HIGH result")
	}

	waitForConfirmed(t, e, id)
	if _, ok := e.AutoAcceptProgress(id); ok {
		t.Error("countdown still pending after it fired")
	}
}

func TestProcessClassification_CancelStopsAutoAccept(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "team offsite next week")

	policy, _, err := e.ProcessClassification(ctx, id, scheduleClassification(0.96, 1000, 2000))
	if err != nil {
		t.Fatalf("ProcessClassification failed: %v", err)
	}
	if policy != PolicyAutoAccept {
		t.Fatalf("policy = %s, want AUTO_ACCEPT", policy)
	}

	if !e.CancelAutoAccept(id) {
		t.Fatal("CancelAutoAccept found no pending countdown")
	}

	time.Sleep(3 * e.AutoAcceptDuration())
	capture, err := db.GetCapture(ctx, e.db, id, false)
	if err != nil {
		t.Fatalf("GetCapture failed: %v", err)
	}
	if capture.IsConfirmed {
		t.Error("capture confirmed despite cancellation")
	}
}

func TestProcessClassification_MediumAppliesWithoutTimer(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "maybe read that paper")

	policy, capture, err := e.ProcessClassification(ctx, id, notesClassification(0.85, nil))
	if err != nil {
		t.Fatalf("ProcessClassification failed: %v", err)
	}
	if policy != PolicyConfirm {
		t.Fatalf("policy = %s, want CONFIRM", policy)
	}
	if capture == nil || capture.ClassifiedType != model.TypeNotes {
		t.Fatal("MEDIUM result not applied")
	}
	if _, ok := e.AutoAcceptProgress(id); ok {
		t.Error("countdown pending for MEDIUM result")
	}
}

func TestProcessClassification_LowParksUnapplied(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "hmm")

	policy, capture, err := e.ProcessClassification(ctx, id, notesClassification(0.4, nil))
	if err != nil {
		t.Fatalf("ProcessClassification failed: %v", err)
	}
	if policy != PolicyManualSelect {
		t.Fatalf("policy = %s, want MANUAL_SELECT", policy)
	}
	if capture != nil {
		t.Fatal("LOW result returned an applied capture")
	}

	// Not applied: still TEMP, no derived entity.
	c, err := db.GetCapture(ctx, e.db, id, false)
	if err != nil {
		t.Fatalf("GetCapture failed: %v", err)
	}
	if c.ClassifiedType != model.TypeTemp {
		t.Errorf("classified_type = %s, want TEMP", c.ClassifiedType)
	}
	if n := derivedCount(t, e, id); n != 0 {
		t.Errorf("derived count = %d, want 0", n)
	}

	// User picks TODO; first materialization routes through Apply.
	saved, err := e.SaveReview(ctx, id, ReviewSelection{Type: model.TypeTodo})
	if err != nil {
		t.Fatalf("SaveReview failed: %v", err)
	}
	if saved.ClassifiedType != model.TypeTodo {
		t.Errorf("classified_type = %s, want TODO", saved.ClassifiedType)
	}
	if n := derivedCount(t, e, id); n != 1 {
		t.Errorf("derived count = %d, want 1", n)
	}
	// No audit row: this was a first classification, not a reclassify.
	logs, err := db.LogsForCapture(ctx, e.db, id)
	if err != nil {
		t.Fatalf("LogsForCapture failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("log count = %d, want 0", len(logs))
	}
}

func TestSaveReview_NothingParked(t *testing.T) {
	e := newTestEngine(t)
	id := seedCapture(t, e, "nothing here")

	_, err := e.SaveReview(context.Background(), id, ReviewSelection{Type: model.TypeTodo})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestSaveReview_InvalidSelectionReparks(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "something on friday")

	if _, _, err := e.ProcessClassification(ctx, id, notesClassification(0.3, nil)); err != nil {
		t.Fatalf("ProcessClassification failed: %v", err)
	}

	// SCHEDULE without times is rejected, and the parked result survives
	// so the user can retry.
	_, err := e.SaveReview(ctx, id, ReviewSelection{Type: model.TypeSchedule})
	if !errors.Is(err, errors.ErrValidationFailure) {
		t.Fatalf("err = %v, want VALIDATION_FAILURE", err)
	}
	if _, err := e.SaveReview(ctx, id, ReviewSelection{Type: model.TypeNotes}); err != nil {
		t.Fatalf("retry SaveReview failed: %v", err)
	}
}

func TestAutoAcceptProgress_Monotonic(t *testing.T) {
	e := newTestEngine(t)
	e.autoAcceptDur = 200 * time.Millisecond
	ctx := context.Background()
	id := seedCapture(t, e, "high confidence thing")

	if _, _, err := e.ProcessClassification(ctx, id, todoClassification(0.99)); err != nil {
		t.Fatalf("ProcessClassification failed: %v", err)
	}

	prev := -1.0
	for i := 0; i < 5; i++ {
		p, ok := e.AutoAcceptProgress(id)
		if !ok {
			break
		}
		if p < prev {
			t.Fatalf("progress went backwards: %f -> %f", prev, p)
		}
		if p < 0 || p > 1 {
			t.Fatalf("progress out of range: %f", p)
		}
		prev = p
		time.Sleep(20 * time.Millisecond)
	}
}
