package engine

import (
	"context"
	"database/sql"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// ReclassifyInput is a user-initiated category change. TodoInfo and
// ScheduleInfo are optional refinements; when absent the new derived
// entity is built from the capture's existing fields alone.
type ReclassifyInput struct {
	NewType      model.CaptureType   `json:"new_type"`
	NewSubType   *model.NoteSubType  `json:"new_sub_type,omitempty"`
	TodoInfo     *model.TodoInfo     `json:"todo_info,omitempty"`
	ScheduleInfo *model.ScheduleInfo `json:"schedule_info,omitempty"`
}

func (in *ReclassifyInput) validate() error {
	if !in.NewType.Valid() {
		return errors.NewValidationFailure("unknown capture type: " + string(in.NewType))
	}
	if in.NewType == model.TypeTemp {
		return errors.NewValidationFailure("cannot reclassify a capture to TEMP")
	}
	if in.NewSubType != nil {
		if in.NewType != model.TypeNotes {
			return errors.NewValidationFailure("note_sub_type is only valid for NOTES")
		}
		if !in.NewSubType.Valid() {
			return errors.NewValidationFailure("unknown note sub type: " + string(*in.NewSubType))
		}
	}
	if in.ScheduleInfo != nil && in.ScheduleInfo.EndTime < in.ScheduleInfo.StartTime {
		return errors.NewValidationFailure("schedule end_time precedes start_time")
	}
	return nil
}

// Reclassify changes a capture's category: tears down whatever derived
// entity existed, rewrites the capture's type, materializes the new
// derived entity from the capture's existing fields (no new classifier
// call), and appends one audit log row. Idempotent when the target
// equals the current type: the derived row is refreshed, never
// duplicated. Captures that never completed classification are
// rejected; their first materialization must come through Apply.
func (e *Engine) Reclassify(ctx context.Context, captureID string, in ReclassifyInput) (*model.Capture, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := e.locks.lock(captureID)
	defer unlock()

	now := db.Now()
	var (
		capture  *model.Capture
		original model.CaptureType
	)
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		c, err := db.GetCapture(ctx, tx, captureID, false)
		if err != nil {
			return err
		}
		if c.ClassificationCompletedAt == nil {
			return errors.NewValidationFailure("capture has not completed classification")
		}
		original = c.ClassifiedType
		originalSub := c.NoteSubType

		if err := TeardownDerived(ctx, tx, captureID, e.cfg.QueueMaxRetries, now); err != nil {
			return err
		}
		if err := db.UpdateCaptureType(ctx, tx, captureID, in.NewType, in.NewSubType, now); err != nil {
			return err
		}

		title := derivedTitle(c.AITitle, c.OriginalText)
		derived, err := newDerived(captureID, in.NewType, in.NewSubType,
			title, c.OriginalText, in.TodoInfo, in.ScheduleInfo, now)
		if err != nil {
			return err
		}
		if err := materializeDerived(ctx, tx, captureID, derived, e.cfg.QueueMaxRetries, now); err != nil {
			return err
		}

		report := model.ReclassifyPayload{
			CaptureID:  captureID,
			NewType:    in.NewType,
			NewSubType: in.NewSubType,
		}
		if _, err := db.EnqueueOutbox(ctx, tx, model.ActionReclassify, report, e.cfg.QueueMaxRetries, now); err != nil {
			return err
		}

		logID, err := db.NewID()
		if err != nil {
			return errors.NewInternal(err)
		}
		var sinceMs *int64
		if c.ClassificationCompletedAt != nil {
			d := now - *c.ClassificationCompletedAt
			sinceMs = &d
		}
		if err := db.InsertClassificationLog(ctx, tx, &model.ClassificationLog{
			ID:                        logID,
			CaptureID:                 captureID,
			OriginalType:              original,
			OriginalSubType:           originalSub,
			NewType:                   in.NewType,
			NewSubType:                in.NewSubType,
			TimeSinceClassificationMs: sinceMs,
			ModifiedAt:                now,
		}); err != nil {
			return err
		}

		capture, err = db.GetCapture(ctx, tx, captureID, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.analytics.Emit(ctx, analytics.Event{
		Name:      "capture_reclassified",
		CaptureID: captureID,
		Props: map[string]any{
			"from": string(original),
			"to":   string(in.NewType),
		},
	})
	e.watcher.notify(Change{Kind: ChangeReclassified, CaptureID: captureID, At: now})
	return capture, nil
}
