package engine

import (
	"context"
	"unicode/utf8"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// maxTitleRunes caps generated titles when no AI title is available.
const maxTitleRunes = 30

// defaultScheduleSpanMs is the event length assumed when a capture is
// reclassified to SCHEDULE without explicit times.
const defaultScheduleSpanMs = int64(60 * 60 * 1000)

// derivedTitle picks the display title for a derived entity: the AI
// title when present, otherwise the leading runes of the raw text.
func derivedTitle(aiTitle *string, originalText string) string {
	if aiTitle != nil && *aiTitle != "" {
		return *aiTitle
	}
	if utf8.RuneCountInString(originalText) <= maxTitleRunes {
		return originalText
	}
	runes := []rune(originalText)
	return string(runes[:maxTitleRunes])
}

// noteFolder resolves the system folder for a NOTES capture. BOOKMARK
// notes land in the bookmarks folder; every other subtype, including
// none, lands in the inbox.
func noteFolder(subType *model.NoteSubType) string {
	if subType != nil && *subType == model.SubTypeBookmark {
		return model.FolderBookmarks
	}
	return model.FolderInbox
}

// newDerived builds the single derived entity for a capture's current
// type. Returns nil for TEMP: unclassified captures materialize
// nothing. The switch is exhaustive over the sealed type set.
func newDerived(captureID string, typ model.CaptureType, subType *model.NoteSubType,
	title, body string, todoInfo *model.TodoInfo, schedInfo *model.ScheduleInfo,
	now int64) (model.DerivedEntity, error) {

	id, err := db.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	switch typ {
	case model.TypeTodo:
		t := &model.Todo{
			ID:              id,
			SourceCaptureID: captureID,
			Title:           title,
			Priority:        model.PriorityNone,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if todoInfo != nil {
			t.Deadline = todoInfo.Deadline
			if todoInfo.Priority != "" {
				t.Priority = todoInfo.Priority
			}
			t.Labels = todoInfo.Labels
		}
		return t, nil

	case model.TypeSchedule:
		s := &model.Schedule{
			ID:              id,
			SourceCaptureID: captureID,
			Title:           title,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if schedInfo != nil {
			s.StartTime = schedInfo.StartTime
			s.EndTime = schedInfo.EndTime
			s.Location = schedInfo.Location
			s.IsAllDay = schedInfo.IsAllDay
		} else {
			// Reclassification without explicit times books a
			// one-hour block starting now.
			s.StartTime = now
			s.EndTime = now + defaultScheduleSpanMs
		}
		return s, nil

	case model.TypeNotes:
		return &model.Note{
			ID:              id,
			SourceCaptureID: captureID,
			Title:           title,
			Body:            body,
			Folder:          noteFolder(subType),
			CreatedAt:       now,
			UpdatedAt:       now,
		}, nil

	case model.TypeTemp:
		return nil, nil
	}
	return nil, errors.NewInvalidRequest("unknown capture type: " + string(typ))
}

// insertDerived stores a freshly built derived entity.
func insertDerived(ctx context.Context, q db.DBTX, entity model.DerivedEntity) error {
	switch d := entity.(type) {
	case *model.Todo:
		return db.InsertTodo(ctx, q, d)
	case *model.Schedule:
		return db.InsertSchedule(ctx, q, d)
	case *model.Note:
		return db.InsertNote(ctx, q, d)
	}
	return errors.NewInternal(nil)
}

// TeardownDerived removes a capture's derived entity. A schedule that
// was mirrored into the external calendar gets a CALENDAR_DELETE action
// queued first so the mirror goes away with it.
func TeardownDerived(ctx context.Context, q db.DBTX, captureID string, maxRetries int, now int64) error {
	sched, err := db.GetScheduleByCapture(ctx, q, captureID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}
	if sched != nil && sched.CalendarEventID != nil {
		payload := model.CalendarDeletePayload{
			CaptureID:       captureID,
			CalendarEventID: *sched.CalendarEventID,
		}
		if _, err := db.EnqueueOutbox(ctx, q, model.ActionCalendarDelete, payload, maxRetries, now); err != nil {
			return err
		}
	}
	return db.DeleteDerivedFor(ctx, q, captureID)
}

// materializeDerived stores a freshly built derived entity and, for
// schedules, queues the CALENDAR_CREATE action that mirrors it into
// the external calendar. A nil entity is a no-op.
func materializeDerived(ctx context.Context, q db.DBTX, captureID string, entity model.DerivedEntity, maxRetries int, now int64) error {
	if entity == nil {
		return nil
	}
	if err := insertDerived(ctx, q, entity); err != nil {
		return err
	}
	s, ok := entity.(*model.Schedule)
	if !ok {
		return nil
	}
	payload := model.CalendarCreatePayload{
		CaptureID:  captureID,
		ScheduleID: s.ID,
		Title:      s.Title,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Location:   s.Location,
		IsAllDay:   s.IsAllDay,
	}
	_, err := db.EnqueueOutbox(ctx, q, model.ActionCalendarCreate, payload, maxRetries, now)
	return err
}

// RematerializeDerived rebuilds the derived entity for a capture from
// its own fields inside the caller's transaction: stale derived rows
// are torn down and the entity matching the capture's current type is
// inserted. Used when a capture row changes type outside the
// classify/reclassify paths, such as applying a pulled sync change.
// No calendar mirror is queued for the new entity; the device that
// originated the change owns the mirror.
func RematerializeDerived(ctx context.Context, q db.DBTX, c *model.Capture, maxRetries int, now int64) error {
	if err := TeardownDerived(ctx, q, c.ID, maxRetries, now); err != nil {
		return err
	}
	title := derivedTitle(c.AITitle, c.OriginalText)
	derived, err := newDerived(c.ID, c.ClassifiedType, c.NoteSubType,
		title, c.OriginalText, nil, nil, now)
	if err != nil {
		return err
	}
	if derived == nil {
		return nil
	}
	return insertDerived(ctx, q, derived)
}
