package engine

import (
	"context"
	"testing"
	"time"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// waitForGone polls until the capture row disappears or the deadline
// hits. Timer-driven hard deletes land asynchronously.
func waitForGone(t *testing.T, e *Engine, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := db.GetCapture(context.Background(), e.db, id, true)
		if errors.Is(err, errors.ErrNotFound) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("capture still present after grace period")
}

func TestSoftDelete_UndoWithinGrace(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "keep me")
	if _, err := e.Apply(ctx, id, todoClassification(0.9)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if err := e.SoftDelete(ctx, id); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := db.GetCapture(ctx, e.db, id, false); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("soft-deleted capture visible in active queries: %v", err)
	}

	if err := e.UndoSoftDelete(ctx, id); err != nil {
		t.Fatalf("UndoSoftDelete failed: %v", err)
	}

	// Wait well past the original grace period; the capture must survive.
	time.Sleep(3 * e.GraceDuration())
	capture, err := db.GetCapture(ctx, e.db, id, false)
	if err != nil {
		t.Fatalf("capture gone despite undo: %v", err)
	}
	if capture.IsDeleted {
		t.Error("is_deleted still set after undo")
	}
	if n := derivedCount(t, e, id); n != 1 {
		t.Errorf("derived count = %d, want 1", n)
	}
}

func TestSoftDelete_GraceElapsesCascades(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "remove me")

	cls := todoClassification(0.9)
	cls.Tags = []string{"cleanup"}
	cls.Entities = []model.EntityFact{{EntityType: "X", RawValue: "y", Normalized: "y"}}
	if _, err := e.Apply(ctx, id, cls); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := e.Reclassify(ctx, id, ReclassifyInput{NewType: model.TypeNotes}); err != nil {
		t.Fatalf("Reclassify failed: %v", err)
	}

	if err := e.SoftDelete(ctx, id); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	waitForGone(t, e, id)

	if n := derivedCount(t, e, id); n != 0 {
		t.Errorf("derived count = %d, want 0", n)
	}
	ents, err := db.EntitiesForCapture(ctx, e.db, id)
	if err != nil {
		t.Fatalf("EntitiesForCapture failed: %v", err)
	}
	if len(ents) != 0 {
		t.Errorf("entity count = %d, want 0", len(ents))
	}
	logs, err := db.LogsForCapture(ctx, e.db, id)
	if err != nil {
		t.Fatalf("LogsForCapture failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("log count = %d, want 0", len(logs))
	}

	// Undo after the hard delete ran is NotFound.
	if err := e.UndoSoftDelete(ctx, id); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("undo after hard delete: err = %v, want NOT_FOUND", err)
	}
}

func TestSoftDelete_CyclesResetTimer(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "flip flop")
	if _, err := e.Apply(ctx, id, notesClassification(0.9, nil)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Two delete/undo cycles, then a final delete. Only the last timer
	// may fire, and only once its own grace period elapses.
	for i := 0; i < 2; i++ {
		if err := e.SoftDelete(ctx, id); err != nil {
			t.Fatalf("SoftDelete #%d failed: %v", i+1, err)
		}
		time.Sleep(e.GraceDuration() / 2)
		if err := e.UndoSoftDelete(ctx, id); err != nil {
			t.Fatalf("UndoSoftDelete #%d failed: %v", i+1, err)
		}
	}
	if err := e.SoftDelete(ctx, id); err != nil {
		t.Fatalf("final SoftDelete failed: %v", err)
	}

	// Immediately after the final delete the row must still exist.
	if _, err := db.GetCapture(ctx, e.db, id, true); err != nil {
		t.Fatalf("capture hard-deleted too early: %v", err)
	}
	waitForGone(t, e, id)
}

func TestSoftDelete_DoubleDeleteNotFound(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "once only")

	if err := e.SoftDelete(ctx, id); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if err := e.SoftDelete(ctx, id); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("second SoftDelete: err = %v, want NOT_FOUND", err)
	}
}

func TestTrash_RestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "old note")
	if _, err := e.Apply(ctx, id, notesClassification(0.9, nil)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if err := e.Trash(ctx, id); err != nil {
		t.Fatalf("Trash failed: %v", err)
	}
	if _, err := db.GetCapture(ctx, e.db, id, false); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("trashed capture visible in active queries: %v", err)
	}

	if err := e.Restore(ctx, id); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	capture, err := db.GetCapture(ctx, e.db, id, false)
	if err != nil {
		t.Fatalf("GetCapture after restore failed: %v", err)
	}
	if capture.IsTrashed {
		t.Error("is_trashed still set after restore")
	}
	// Trash does not touch the derived entity.
	if n := derivedCount(t, e, id); n != 1 {
		t.Errorf("derived count = %d, want 1", n)
	}
}

func TestPurgeTrash_RemovesExpiredOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	oldID := seedCapture(t, e, "expired")
	newID := seedCapture(t, e, "recent")
	if err := e.Trash(ctx, oldID); err != nil {
		t.Fatalf("Trash old failed: %v", err)
	}
	if err := e.Trash(ctx, newID); err != nil {
		t.Fatalf("Trash new failed: %v", err)
	}

	// Age the first capture past the retention window.
	expired := db.Now() - int64(e.cfg.TrashRetentionDays+1)*24*time.Hour.Milliseconds()
	if _, err := e.db.ExecContext(ctx,
		`UPDATE captures SET trashed_at = ? WHERE id = ?`, expired, oldID); err != nil {
		t.Fatalf("age capture: %v", err)
	}

	n, err := e.PurgeTrash(ctx)
	if err != nil {
		t.Fatalf("PurgeTrash failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	if _, err := db.GetCapture(ctx, e.db, oldID, true); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expired capture still present: %v", err)
	}
	if _, err := db.GetCapture(ctx, e.db, newID, true); err != nil {
		t.Errorf("recent capture purged: %v", err)
	}
}
