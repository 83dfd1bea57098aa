package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// ErrDerivedExists is returned when inserting a derived entity for a
// capture that already has one of that kind. The UNIQUE index on
// source_capture_id is the store-level backstop for the
// one-derived-entity invariant.
var ErrDerivedExists = &errors.JotError{
	Code:    errors.ErrConflict,
	Status:  409,
	Message: "derived entity already exists for capture",
}

// InsertTodo stores a derived todo.
func InsertTodo(ctx context.Context, q DBTX, t *model.Todo) error {
	var labelsJSON sql.NullString
	if len(t.Labels) > 0 {
		data, err := json.Marshal(t.Labels)
		if err != nil {
			return errors.NewInternal(err)
		}
		labelsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO todos (
			id, source_capture_id, title, deadline, priority, labels_json,
			is_completed, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		t.ID, t.SourceCaptureID, t.Title, toNullInt64(t.Deadline), string(t.Priority),
		labelsJSON, boolToInt(t.IsCompleted), toNullInt64(t.CompletedAt),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDerivedExists
		}
		return errors.NewInternal(err)
	}
	return nil
}

// InsertSchedule stores a derived schedule.
func InsertSchedule(ctx context.Context, q DBTX, s *model.Schedule) error {
	query := `
		INSERT INTO schedules (
			id, source_capture_id, title, start_time, end_time, location,
			is_all_day, calendar_event_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		s.ID, s.SourceCaptureID, s.Title, s.StartTime, s.EndTime,
		toNullString(s.Location), boolToInt(s.IsAllDay), toNullString(s.CalendarEventID),
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDerivedExists
		}
		return errors.NewInternal(err)
	}
	return nil
}

// InsertNote stores a derived note.
func InsertNote(ctx context.Context, q DBTX, n *model.Note) error {
	query := `
		INSERT INTO notes (
			id, source_capture_id, title, body, folder, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		n.ID, n.SourceCaptureID, n.Title, n.Body, n.Folder, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDerivedExists
		}
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteDerivedFor removes any todo, schedule, and note rows for the
// capture. Deleting rows that do not exist is a no-op, never an error.
func DeleteDerivedFor(ctx context.Context, q DBTX, captureID string) error {
	for _, table := range []string{"todos", "schedules", "notes"} {
		if _, err := q.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE source_capture_id = ?", captureID); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// CountDerivedFor returns the total number of derived rows (todo +
// schedule + note) referencing the capture. Always 0 or 1 when the
// engine's invariant holds.
func CountDerivedFor(ctx context.Context, q DBTX, captureID string) (int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM todos WHERE source_capture_id = ?) +
			(SELECT COUNT(*) FROM schedules WHERE source_capture_id = ?) +
			(SELECT COUNT(*) FROM notes WHERE source_capture_id = ?)
	`
	var n int
	if err := q.QueryRowContext(ctx, query, captureID, captureID, captureID).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// GetTodoByCapture retrieves the todo derived from a capture.
func GetTodoByCapture(ctx context.Context, q DBTX, captureID string) (*model.Todo, error) {
	query := `
		SELECT id, source_capture_id, title, deadline, priority, labels_json,
			is_completed, completed_at, created_at, updated_at
		FROM todos WHERE source_capture_id = ?
	`
	var (
		t           model.Todo
		deadline    sql.NullInt64
		priority    string
		labelsJSON  sql.NullString
		isCompleted int
		completedAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx, query, captureID).Scan(
		&t.ID, &t.SourceCaptureID, &t.Title, &deadline, &priority, &labelsJSON,
		&isCompleted, &completedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("todo", captureID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	t.Deadline = fromNullInt64(deadline)
	t.Priority = model.TodoPriority(priority)
	t.IsCompleted = isCompleted != 0
	t.CompletedAt = fromNullInt64(completedAt)
	if labelsJSON.Valid && labelsJSON.String != "" {
		if err := json.Unmarshal([]byte(labelsJSON.String), &t.Labels); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	return &t, nil
}

// GetScheduleByCapture retrieves the schedule derived from a capture.
func GetScheduleByCapture(ctx context.Context, q DBTX, captureID string) (*model.Schedule, error) {
	query := `
		SELECT id, source_capture_id, title, start_time, end_time, location,
			is_all_day, calendar_event_id, created_at, updated_at
		FROM schedules WHERE source_capture_id = ?
	`
	var (
		s        model.Schedule
		location sql.NullString
		isAllDay int
		eventID  sql.NullString
	)
	err := q.QueryRowContext(ctx, query, captureID).Scan(
		&s.ID, &s.SourceCaptureID, &s.Title, &s.StartTime, &s.EndTime, &location,
		&isAllDay, &eventID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("schedule", captureID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	s.Location = fromNullString(location)
	s.IsAllDay = isAllDay != 0
	s.CalendarEventID = fromNullString(eventID)
	return &s, nil
}

// GetNoteByCapture retrieves the note derived from a capture.
func GetNoteByCapture(ctx context.Context, q DBTX, captureID string) (*model.Note, error) {
	query := `
		SELECT id, source_capture_id, title, body, folder, created_at, updated_at
		FROM notes WHERE source_capture_id = ?
	`
	var n model.Note
	err := q.QueryRowContext(ctx, query, captureID).Scan(
		&n.ID, &n.SourceCaptureID, &n.Title, &n.Body, &n.Folder, &n.CreatedAt, &n.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("note", captureID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &n, nil
}

// SetScheduleCalendarEvent records the external calendar event id on a
// derived schedule after the calendar mirror succeeds.
func SetScheduleCalendarEvent(ctx context.Context, q DBTX, scheduleID, eventID string, now int64) error {
	query := `UPDATE schedules SET calendar_event_id = ?, updated_at = ? WHERE id = ?`
	result, err := q.ExecContext(ctx, query, eventID, now, scheduleID)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "schedule", scheduleID)
}

// ListSchedulesInRange returns schedules overlapping [from, to).
func ListSchedulesInRange(ctx context.Context, q DBTX, from, to int64) ([]model.Schedule, error) {
	query := `
		SELECT id, source_capture_id, title, start_time, end_time, location,
			is_all_day, calendar_event_id, created_at, updated_at
		FROM schedules
		WHERE start_time < ? AND end_time >= ?
		ORDER BY start_time ASC
	`
	rows, err := q.QueryContext(ctx, query, to, from)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		var (
			s        model.Schedule
			location sql.NullString
			isAllDay int
			eventID  sql.NullString
		)
		if err := rows.Scan(
			&s.ID, &s.SourceCaptureID, &s.Title, &s.StartTime, &s.EndTime, &location,
			&isAllDay, &eventID, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Location = fromNullString(location)
		s.IsAllDay = isAllDay != 0
		s.CalendarEventID = fromNullString(eventID)
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return schedules, nil
}

// ListActiveTodos returns incomplete todos ordered by deadline, with
// deadline-less todos last.
func ListActiveTodos(ctx context.Context, q DBTX) ([]model.Todo, error) {
	query := `
		SELECT id, source_capture_id, title, deadline, priority, labels_json,
			is_completed, completed_at, created_at, updated_at
		FROM todos
		WHERE is_completed = 0
		ORDER BY deadline IS NULL, deadline ASC, created_at ASC
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		var (
			t           model.Todo
			deadline    sql.NullInt64
			priority    string
			labelsJSON  sql.NullString
			isCompleted int
			completedAt sql.NullInt64
		)
		if err := rows.Scan(
			&t.ID, &t.SourceCaptureID, &t.Title, &deadline, &priority, &labelsJSON,
			&isCompleted, &completedAt, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		t.Deadline = fromNullInt64(deadline)
		t.Priority = model.TodoPriority(priority)
		t.IsCompleted = isCompleted != 0
		t.CompletedAt = fromNullInt64(completedAt)
		if labelsJSON.Valid && labelsJSON.String != "" {
			if err := json.Unmarshal([]byte(labelsJSON.String), &t.Labels); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return todos, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE
// constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
