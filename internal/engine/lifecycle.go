package engine

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/db"
)

// SoftDelete marks a capture deleted and arms the grace-period timer
// that hard-deletes it. The capture disappears from active queries
// immediately; UndoSoftDelete within the grace period brings it back.
// Repeated soft-delete/undo cycles reset the timer, never stack it.
func (e *Engine) SoftDelete(ctx context.Context, captureID string) error {
	unlock := e.locks.lock(captureID)
	defer unlock()

	now := db.Now()
	if err := db.SoftDeleteCapture(ctx, e.db, captureID, now); err != nil {
		return err
	}

	e.reviews.cancel(captureID)
	e.deleteTimers.schedule(captureID, e.GraceDuration(), func() {
		// The capture may have been undone and re-deleted; HardDelete
		// only runs for the timer that is still current.
		dctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(e.cfg.DispatchTimeoutSeconds)*time.Second)
		defer cancel()
		if err := e.HardDelete(dctx, captureID); err != nil {
			log.Printf("engine: grace-period hard delete of %s: %v", captureID, err)
		}
	})

	e.analytics.Emit(ctx, analytics.Event{Name: "capture_soft_deleted", CaptureID: captureID})
	e.watcher.notify(Change{Kind: ChangeDeleted, CaptureID: captureID, At: now})
	return nil
}

// UndoSoftDelete cancels the pending hard delete and restores the
// capture. Once the grace period has elapsed and the hard delete ran,
// the capture row is gone and undo returns NotFound.
func (e *Engine) UndoSoftDelete(ctx context.Context, captureID string) error {
	// Cancel before touching the row so no hard delete can start once
	// the undo is accepted. A cancel that loses the race finds the row
	// already gone below.
	e.deleteTimers.cancel(captureID)

	unlock := e.locks.lock(captureID)
	defer unlock()

	now := db.Now()
	if err := db.UndoSoftDeleteCapture(ctx, e.db, captureID, now); err != nil {
		return err
	}

	e.analytics.Emit(ctx, analytics.Event{Name: "capture_delete_undone", CaptureID: captureID})
	e.watcher.notify(Change{Kind: ChangeRestored, CaptureID: captureID, At: now})
	return nil
}

// HardDelete irreversibly removes the capture row and cascades to its
// derived entity, tag links, extracted entities, and audit log rows.
func (e *Engine) HardDelete(ctx context.Context, captureID string) error {
	e.deleteTimers.cancel(captureID)
	e.reviews.cancel(captureID)

	unlock := e.locks.lock(captureID)
	defer unlock()

	now := db.Now()
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := TeardownDerived(ctx, tx, captureID, e.cfg.QueueMaxRetries, now); err != nil {
			return err
		}
		if err := db.UnlinkTagsFor(ctx, tx, captureID); err != nil {
			return err
		}
		if err := db.DeleteEntitiesFor(ctx, tx, captureID); err != nil {
			return err
		}
		if err := db.DeleteLogsFor(ctx, tx, captureID); err != nil {
			return err
		}
		return db.DeleteCaptureRow(ctx, tx, captureID)
	})
	if err != nil {
		return err
	}

	e.analytics.Emit(ctx, analytics.Event{Name: "capture_hard_deleted", CaptureID: captureID})
	e.watcher.notify(Change{Kind: ChangeHardDeleted, CaptureID: captureID, At: now})
	return nil
}

// Trash moves a capture into the 30-day trash. Unlike soft delete
// there is no timer; trashed captures sit until restored or purged.
func (e *Engine) Trash(ctx context.Context, captureID string) error {
	unlock := e.locks.lock(captureID)
	defer unlock()

	now := db.Now()
	if err := db.TrashCapture(ctx, e.db, captureID, now); err != nil {
		return err
	}
	e.reviews.cancel(captureID)

	e.analytics.Emit(ctx, analytics.Event{Name: "capture_trashed", CaptureID: captureID})
	e.watcher.notify(Change{Kind: ChangeTrashed, CaptureID: captureID, At: now})
	return nil
}

// Restore takes a capture back out of the trash.
func (e *Engine) Restore(ctx context.Context, captureID string) error {
	unlock := e.locks.lock(captureID)
	defer unlock()

	now := db.Now()
	if err := db.RestoreCapture(ctx, e.db, captureID, now); err != nil {
		return err
	}

	e.analytics.Emit(ctx, analytics.Event{Name: "capture_restored", CaptureID: captureID})
	e.watcher.notify(Change{Kind: ChangeRestored, CaptureID: captureID, At: now})
	return nil
}

// PurgeTrash hard-deletes every capture that has sat in the trash
// longer than the retention window. Returns the number purged.
func (e *Engine) PurgeTrash(ctx context.Context) (int, error) {
	cutoff := db.Now() - int64(e.cfg.TrashRetentionDays)*24*time.Hour.Milliseconds()
	ids, err := db.ListTrashedBefore(ctx, e.db, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, id := range ids {
		if err := e.HardDelete(ctx, id); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}
