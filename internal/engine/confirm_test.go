package engine

import (
	"context"
	"testing"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

func TestConfirm_SetsFlagAndTimestamp(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "confirm me")
	if _, err := e.Apply(ctx, id, notesClassification(0.85, nil)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if err := e.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	capture, err := db.GetCapture(ctx, e.db, id, false)
	if err != nil {
		t.Fatalf("GetCapture failed: %v", err)
	}
	if !capture.IsConfirmed || capture.ConfirmedAt == nil {
		t.Errorf("is_confirmed = %v, confirmed_at = %v", capture.IsConfirmed, capture.ConfirmedAt)
	}
}

func TestConfirm_MissingCaptureNotFound(t *testing.T) {
	e := newTestEngine(t)
	err := e.Confirm(context.Background(), "01JNOTREAL00000000000000AA")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestConfirmAll_SkipsUnclassified(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	classified := seedCapture(t, e, "first")
	if _, err := e.Apply(ctx, classified, todoClassification(0.85)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	tempID := seedCapture(t, e, "still waiting on the classifier")

	n, err := e.ConfirmAll(ctx)
	if err != nil {
		t.Fatalf("ConfirmAll failed: %v", err)
	}
	if n != 1 {
		t.Errorf("confirmed = %d, want 1", n)
	}

	temp, err := db.GetCapture(ctx, e.db, tempID, false)
	if err != nil {
		t.Fatalf("GetCapture failed: %v", err)
	}
	if temp.IsConfirmed {
		t.Error("TEMP capture confirmed by ConfirmAll")
	}
}

func TestUnconfirmed_WindowExcludesStale(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	fresh := seedCapture(t, e, "fresh")
	if _, err := e.Apply(ctx, fresh, notesClassification(0.85, nil)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	stale := seedCapture(t, e, "stale")
	if _, err := e.Apply(ctx, stale, notesClassification(0.85, nil)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Push the stale capture's classification out of the 24h window.
	old := db.Now() - UnconfirmedWindow.Milliseconds() - 1000
	if _, err := e.db.ExecContext(ctx,
		`UPDATE captures SET classification_completed_at = ? WHERE id = ?`, old, stale); err != nil {
		t.Fatalf("age capture: %v", err)
	}

	list, err := e.Unconfirmed(ctx)
	if err != nil {
		t.Fatalf("Unconfirmed failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != fresh {
		t.Fatalf("unconfirmed = %d captures, want just the fresh one", len(list))
	}

	count, err := e.UnconfirmedCount(ctx)
	if err != nil {
		t.Fatalf("UnconfirmedCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	// The stale capture dropped out of the view but stays unconfirmed.
	c, err := db.GetCapture(ctx, e.db, stale, false)
	if err != nil {
		t.Fatalf("GetCapture failed: %v", err)
	}
	if c.IsConfirmed {
		t.Error("stale capture should remain unconfirmed")
	}
}

func TestCapture_CreatesTempAndEnqueues(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	capture, err := e.Capture(ctx, CaptureInput{Text: "  pick up dry cleaning  "})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if capture.ClassifiedType != model.TypeTemp {
		t.Errorf("classified_type = %s, want TEMP", capture.ClassifiedType)
	}
	if capture.OriginalText != "pick up dry cleaning" {
		t.Errorf("original_text = %q, want trimmed text", capture.OriginalText)
	}
	if capture.Source != "cli" {
		t.Errorf("source = %q, want cli default", capture.Source)
	}

	items, err := db.ListOutboxByStatus(ctx, e.db, model.StatusPending)
	if err != nil {
		t.Fatalf("ListOutboxByStatus failed: %v", err)
	}
	if len(items) != 1 || items[0].Kind != model.ActionClassify {
		t.Fatalf("outbox = %d items, want one CLASSIFY action", len(items))
	}
}

func TestCapture_EmptyTextRejected(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Capture(context.Background(), CaptureInput{Text: "   "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestWatch_NotifiesOnApply(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "watched")

	ch, cancel := e.Watch()
	defer cancel()

	if _, err := e.Apply(ctx, id, notesClassification(0.9, nil)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	select {
	case change := <-ch:
		if change.Kind != ChangeClassified || change.CaptureID != id {
			t.Errorf("change = %+v, want classified %s", change, id)
		}
	default:
		t.Fatal("no change notification delivered")
	}
}
