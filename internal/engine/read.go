package engine

import (
	"context"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/model"
)

// CaptureDetail bundles a capture with everything keyed off it.
type CaptureDetail struct {
	Capture  model.Capture             `json:"capture"`
	Todo     *model.Todo               `json:"todo,omitempty"`
	Schedule *model.Schedule           `json:"schedule,omitempty"`
	Note     *model.Note               `json:"note,omitempty"`
	Tags     []model.Tag               `json:"tags,omitempty"`
	Entities []model.ExtractedEntity   `json:"entities,omitempty"`
	Logs     []model.ClassificationLog `json:"logs,omitempty"`
}

// Get returns a capture with its derived entity, tags, extracted
// entities, and audit trail.
func (e *Engine) Get(ctx context.Context, captureID string, includeHidden bool) (*CaptureDetail, error) {
	c, err := db.GetCapture(ctx, e.db, captureID, includeHidden)
	if err != nil {
		return nil, err
	}
	detail := &CaptureDetail{Capture: *c}

	switch c.ClassifiedType {
	case model.TypeTodo:
		if t, err := db.GetTodoByCapture(ctx, e.db, captureID); err == nil {
			detail.Todo = t
		}
	case model.TypeSchedule:
		if s, err := db.GetScheduleByCapture(ctx, e.db, captureID); err == nil {
			detail.Schedule = s
		}
	case model.TypeNotes:
		if n, err := db.GetNoteByCapture(ctx, e.db, captureID); err == nil {
			detail.Note = n
		}
	}

	if detail.Tags, err = db.TagsForCapture(ctx, e.db, captureID); err != nil {
		return nil, err
	}
	if detail.Entities, err = db.EntitiesForCapture(ctx, e.db, captureID); err != nil {
		return nil, err
	}
	if detail.Logs, err = db.LogsForCapture(ctx, e.db, captureID); err != nil {
		return nil, err
	}
	return detail, nil
}

// List returns active captures, optionally filtered by type.
func (e *Engine) List(ctx context.Context, typ *model.CaptureType, limit, offset int) ([]model.Capture, error) {
	if limit <= 0 {
		limit = 50
	}
	return db.ListCaptures(ctx, e.db, typ, limit, offset)
}

// ActiveTodos returns incomplete todos, soonest deadline first.
func (e *Engine) ActiveTodos(ctx context.Context) ([]model.Todo, error) {
	return db.ListActiveTodos(ctx, e.db)
}

// SchedulesInRange returns schedules overlapping [from, to).
func (e *Engine) SchedulesInRange(ctx context.Context, from, to int64) ([]model.Schedule, error) {
	return db.ListSchedulesInRange(ctx, e.db, from, to)
}

// Logs returns a capture's reclassification audit trail, newest first.
func (e *Engine) Logs(ctx context.Context, captureID string) ([]model.ClassificationLog, error) {
	return db.LogsForCapture(ctx, e.db, captureID)
}

// Watch subscribes to change notifications.
func (e *Engine) Watch() (<-chan Change, func()) {
	return e.watcher.Subscribe()
}
