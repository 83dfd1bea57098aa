package engine

import (
	"context"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/model"
)

// Confirm marks a capture's classification as user-acknowledged. Any
// pending auto-accept countdown for the capture is cancelled first so
// an explicit confirm and the timer cannot both fire.
func (e *Engine) Confirm(ctx context.Context, captureID string) error {
	e.reviews.cancel(captureID)

	unlock := e.locks.lock(captureID)
	defer unlock()

	now := db.Now()
	if err := db.ConfirmCapture(ctx, e.db, captureID, now); err != nil {
		return err
	}

	e.analytics.Emit(ctx, analytics.Event{Name: "classification_confirmed", CaptureID: captureID})
	e.watcher.notify(Change{Kind: ChangeConfirmed, CaptureID: captureID, At: now})
	return nil
}

// ConfirmAll confirms every classified-but-unconfirmed capture in one
// statement. Returns the number of captures confirmed.
func (e *Engine) ConfirmAll(ctx context.Context) (int, error) {
	now := db.Now()
	n, err := db.ConfirmAllCaptures(ctx, e.db, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.analytics.Emit(ctx, analytics.Event{
			Name:  "classifications_confirmed_all",
			Props: map[string]any{"count": n},
		})
		e.watcher.notify(Change{Kind: ChangeConfirmed, CaptureID: "", At: now})
	}
	return n, nil
}

// Unconfirmed returns the review queue: captures classified within the
// last 24 hours that the user has not confirmed. Older unconfirmed
// captures drop out of this view but stay unconfirmed.
func (e *Engine) Unconfirmed(ctx context.Context) ([]model.Capture, error) {
	since := db.Now() - UnconfirmedWindow.Milliseconds()
	return db.ListUnconfirmed(ctx, e.db, since)
}

// UnconfirmedCount counts the captures currently in the review queue.
func (e *Engine) UnconfirmedCount(ctx context.Context) (int, error) {
	since := db.Now() - UnconfirmedWindow.Milliseconds()
	return db.CountUnconfirmed(ctx, e.db, since)
}
