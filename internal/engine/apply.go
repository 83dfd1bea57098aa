package engine

import (
	"context"
	"database/sql"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// ValidateClassification checks a classifier result for the required
// type-specific fields before any row is touched.
func ValidateClassification(cls *model.Classification) error {
	if cls == nil {
		return errors.NewValidationFailure("classification is required")
	}
	if !cls.Type.Valid() {
		return errors.NewValidationFailure("unknown classification type: " + string(cls.Type))
	}
	if cls.Score < 0 || cls.Score > 1 {
		return errors.NewValidationFailure("confidence score out of range [0,1]")
	}
	if cls.SubType != nil {
		if cls.Type != model.TypeNotes {
			return errors.NewValidationFailure("note_sub_type is only valid for NOTES")
		}
		if !cls.SubType.Valid() {
			return errors.NewValidationFailure("unknown note sub type: " + string(*cls.SubType))
		}
	}
	if cls.Type == model.TypeSchedule {
		if cls.ScheduleInfo == nil {
			return errors.NewValidationFailure("SCHEDULE classification requires schedule_info")
		}
		if cls.ScheduleInfo.StartTime == 0 || cls.ScheduleInfo.EndTime == 0 {
			return errors.NewValidationFailure("schedule_info requires start_time and end_time")
		}
		if cls.ScheduleInfo.EndTime < cls.ScheduleInfo.StartTime {
			return errors.NewValidationFailure("schedule end_time precedes start_time")
		}
	}
	return nil
}

// Apply folds a fresh classification into the capture: type, subtype,
// title and confidence on the capture row, wholesale replacement of
// extracted entities, tag links, and exactly one derived entity. The
// whole sequence commits or none of it does. Assumes the capture has
// no prior derived entity; category changes go through Reclassify.
func (e *Engine) Apply(ctx context.Context, captureID string, cls *model.Classification) (*model.Capture, error) {
	if err := ValidateClassification(cls); err != nil {
		return nil, err
	}

	unlock := e.locks.lock(captureID)
	defer unlock()

	now := db.Now()
	var capture *model.Capture
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := db.ApplyClassification(ctx, tx, captureID, cls, now); err != nil {
			return err
		}
		if err := db.ReplaceEntities(ctx, tx, captureID, cls.Entities); err != nil {
			return err
		}
		for _, name := range cls.Tags {
			tag, err := db.GetOrCreateTag(ctx, tx, name, now)
			if err != nil {
				return err
			}
			if err := db.LinkTag(ctx, tx, captureID, tag.ID); err != nil {
				return err
			}
		}

		c, err := db.GetCapture(ctx, tx, captureID, false)
		if err != nil {
			return err
		}
		capture = c

		title := derivedTitle(cls.AITitle, c.OriginalText)
		derived, err := newDerived(captureID, cls.Type, cls.SubType,
			title, c.OriginalText, cls.TodoInfo, cls.ScheduleInfo, now)
		if err != nil {
			return err
		}
		return materializeDerived(ctx, tx, captureID, derived, e.cfg.QueueMaxRetries, now)
	})
	if err != nil {
		return nil, err
	}

	e.analytics.Emit(ctx, analytics.Event{
		Name:      "classification_applied",
		CaptureID: captureID,
		Props: map[string]any{
			"type":       string(cls.Type),
			"confidence": string(cls.Level()),
		},
	})
	e.watcher.notify(Change{Kind: ChangeClassified, CaptureID: captureID, At: now})
	return capture, nil
}
