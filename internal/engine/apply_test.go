package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

func TestApply_RoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "call the dentist tomorrow at 3")

	cls := todoClassification(0.97)
	cls.Tags = []string{"health", "errand"}
	cls.Entities = []model.EntityFact{
		{EntityType: "TIME", RawValue: "tomorrow at 3", Normalized: "2026-08-29T15:00"},
	}

	capture, err := e.Apply(ctx, id, cls)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if capture.ClassifiedType != model.TypeTodo {
		t.Errorf("classified_type = %s, want TODO", capture.ClassifiedType)
	}
	if capture.Confidence == nil || *capture.Confidence != model.ConfidenceHigh {
		t.Errorf("confidence = %v, want HIGH", capture.Confidence)
	}
	if capture.AITitle == nil || *capture.AITitle != "buy milk" {
		t.Errorf("ai_title = %v, want buy milk", capture.AITitle)
	}
	if capture.ClassificationCompletedAt == nil {
		t.Error("classification_completed_at not set")
	}

	todo, err := db.GetTodoByCapture(ctx, e.db, id)
	if err != nil {
		t.Fatalf("GetTodoByCapture failed: %v", err)
	}
	if todo.Priority != model.PriorityHigh {
		t.Errorf("priority = %s, want HIGH", todo.Priority)
	}
	if n := derivedCount(t, e, id); n != 1 {
		t.Errorf("derived count = %d, want 1", n)
	}

	tags, err := db.TagsForCapture(ctx, e.db, id)
	if err != nil {
		t.Fatalf("TagsForCapture failed: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("tag count = %d, want 2", len(tags))
	}
	ents, err := db.EntitiesForCapture(ctx, e.db, id)
	if err != nil {
		t.Fatalf("EntitiesForCapture failed: %v", err)
	}
	if len(ents) != 1 {
		t.Errorf("entity count = %d, want 1", len(ents))
	}
}

func TestApply_BookmarkFolder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		subType    *model.NoteSubType
		wantFolder string
	}{
		{"bookmark", subTypePtr(model.SubTypeBookmark), model.FolderBookmarks},
		{"no subtype", nil, model.FolderInbox},
		{"user folder", subTypePtr(model.SubTypeUserFolder), model.FolderInbox},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := seedCapture(t, e, "https://example.com/article")
			if _, err := e.Apply(ctx, id, notesClassification(0.9, tc.subType)); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			note, err := db.GetNoteByCapture(ctx, e.db, id)
			if err != nil {
				t.Fatalf("GetNoteByCapture failed: %v", err)
			}
			if note.Folder != tc.wantFolder {
				t.Errorf("folder = %q, want %q", note.Folder, tc.wantFolder)
			}
		})
	}
}

func TestApply_ScheduleQueuesCalendarMirror(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "dentist tuesday 9am")

	if _, err := e.Apply(ctx, id, scheduleClassification(0.9, 1000, 2000)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	sched, err := db.GetScheduleByCapture(ctx, e.db, id)
	if err != nil {
		t.Fatalf("GetScheduleByCapture failed: %v", err)
	}

	items := pendingByKind(t, e, model.ActionCalendarCreate)
	if len(items) != 1 {
		t.Fatalf("CALENDAR_CREATE items = %d, want 1", len(items))
	}
	var p model.CalendarCreatePayload
	if err := json.Unmarshal(items[0].Payload, &p); err != nil {
		t.Fatalf("failed to parse payload: %v", err)
	}
	if p.ScheduleID != sched.ID || p.StartTime != 1000 || p.EndTime != 2000 {
		t.Errorf("payload = %+v, want schedule %s [1000, 2000]", p, sched.ID)
	}

	// Non-schedule classifications queue no mirror.
	other := seedCapture(t, e, "buy milk")
	if _, err := e.Apply(ctx, other, todoClassification(0.9)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if items := pendingByKind(t, e, model.ActionCalendarCreate); len(items) != 1 {
		t.Errorf("CALENDAR_CREATE items = %d after todo apply, want 1", len(items))
	}
}

func TestApply_TempCreatesNothing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "???")

	if _, err := e.Apply(ctx, id, &model.Classification{Type: model.TypeTemp, Score: 0.2}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if n := derivedCount(t, e, id); n != 0 {
		t.Errorf("derived count = %d, want 0", n)
	}
}

func TestApply_ScheduleRequiresTimes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "meet jay friday")

	cls := &model.Classification{Type: model.TypeSchedule, Score: 0.9}
	_, err := e.Apply(ctx, id, cls)
	if !errors.Is(err, errors.ErrValidationFailure) {
		t.Fatalf("err = %v, want VALIDATION_FAILURE", err)
	}

	// Nothing was applied
	capture, err := db.GetCapture(ctx, e.db, id, false)
	if err != nil {
		t.Fatalf("GetCapture failed: %v", err)
	}
	if capture.ClassifiedType != model.TypeTemp {
		t.Errorf("classified_type = %s, want TEMP after failed apply", capture.ClassifiedType)
	}
}

func TestApply_UnknownCaptureNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Apply(context.Background(), "01JNOTREAL00000000000000AA", todoClassification(0.9))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestApply_ReplacesEntitiesWholesale(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := seedCapture(t, e, "standup monday 10am with sam")

	first := scheduleClassification(0.9, 1000, 2000)
	first.Entities = []model.EntityFact{
		{EntityType: "PERSON", RawValue: "sam", Normalized: "Sam"},
		{EntityType: "TIME", RawValue: "monday 10am", Normalized: "2026-08-31T10:00"},
	}
	if _, err := e.Apply(ctx, id, first); err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}

	// A second classification replaces the extracted set, never appends.
	if err := db.DeleteDerivedFor(ctx, e.db, id); err != nil {
		t.Fatalf("DeleteDerivedFor failed: %v", err)
	}
	second := scheduleClassification(0.9, 1000, 2000)
	second.Entities = []model.EntityFact{
		{EntityType: "PERSON", RawValue: "sam", Normalized: "Sam"},
	}
	if _, err := e.Apply(ctx, id, second); err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}

	ents, err := db.EntitiesForCapture(ctx, e.db, id)
	if err != nil {
		t.Fatalf("EntitiesForCapture failed: %v", err)
	}
	if len(ents) != 1 {
		t.Errorf("entity count = %d, want 1 after replacement", len(ents))
	}
}
