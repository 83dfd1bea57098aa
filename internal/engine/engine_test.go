package engine

import (
	"context"
	"testing"
	"time"

	"github.com/juneyoungl/jot/internal/config"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/model"
)

// newTestEngine opens a fresh database in a temp dir and returns an
// engine with millisecond-scale timers so lifecycle tests run fast.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	e := New(database, config.DefaultConfig(), nil)
	e.graceDur = 60 * time.Millisecond
	e.autoAcceptDur = 60 * time.Millisecond
	t.Cleanup(e.Shutdown)
	return e
}

// seedCapture inserts a TEMP capture directly, bypassing the outbox.
func seedCapture(t *testing.T, e *Engine, text string) string {
	t.Helper()
	id, err := db.NewID()
	if err != nil {
		t.Fatalf("NewID failed: %v", err)
	}
	now := db.Now()
	err = db.InsertCapture(context.Background(), e.db, &model.Capture{
		ID:             id,
		OriginalText:   text,
		ClassifiedType: model.TypeTemp,
		Source:         "test",
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("InsertCapture failed: %v", err)
	}
	return id
}

func strPtr(s string) *string { return &s }

func subTypePtr(s model.NoteSubType) *model.NoteSubType { return &s }

// notesClassification builds a NOTES result with the given score.
func notesClassification(score float64, subType *model.NoteSubType) *model.Classification {
	return &model.Classification{
		Type:    model.TypeNotes,
		SubType: subType,
		Score:   score,
		AITitle: strPtr("meeting notes"),
	}
}

func todoClassification(score float64) *model.Classification {
	return &model.Classification{
		Type:    model.TypeTodo,
		Score:   score,
		AITitle: strPtr("buy milk"),
		TodoInfo: &model.TodoInfo{
			Priority: model.PriorityHigh,
		},
	}
}

func scheduleClassification(score float64, start, end int64) *model.Classification {
	return &model.Classification{
		Type:    model.TypeSchedule,
		Score:   score,
		AITitle: strPtr("dentist"),
		ScheduleInfo: &model.ScheduleInfo{
			StartTime: start,
			EndTime:   end,
		},
	}
}

// pendingByKind returns the PENDING queue items of one action kind.
func pendingByKind(t *testing.T, e *Engine, kind model.ActionKind) []model.QueueItem {
	t.Helper()
	items, err := db.ListOutboxByStatus(context.Background(), e.db, model.StatusPending)
	if err != nil {
		t.Fatalf("ListOutboxByStatus failed: %v", err)
	}
	var matched []model.QueueItem
	for _, item := range items {
		if item.Kind == kind {
			matched = append(matched, item)
		}
	}
	return matched
}

// derivedCount asserts the derived-row total for a capture.
func derivedCount(t *testing.T, e *Engine, captureID string) int {
	t.Helper()
	n, err := db.CountDerivedFor(context.Background(), e.db, captureID)
	if err != nil {
		t.Fatalf("CountDerivedFor failed: %v", err)
	}
	return n
}
