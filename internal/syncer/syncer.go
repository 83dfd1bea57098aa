// Package syncer exchanges capture records with a remote peer: push
// sends everything changed since the last acknowledged point, pull
// applies remote changes from an opaque cursor forward. Conflicts
// resolve last-write-wins by timestamp; there is no merge.
package syncer

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/google/uuid"

	"github.com/juneyoungl/jot/internal/config"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/engine"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// ChangeOp is the operation a change record carries.
type ChangeOp string

const (
	OpUpsert ChangeOp = "upsert"
	OpDelete ChangeOp = "delete"
)

// ChangeRecord is one capture change in flight between peers.
// ClientChangeID is generated per push so the server can de-duplicate
// replayed batches.
type ChangeRecord struct {
	ClientChangeID  string         `json:"client_change_id"`
	Op              ChangeOp       `json:"op"`
	CaptureID       string         `json:"capture_id"`
	Capture         *model.Capture `json:"capture,omitempty"`
	ClientTimestamp int64          `json:"client_timestamp"`
}

// PushResult is the server's acknowledgement of a pushed batch.
type PushResult struct {
	AcknowledgedCount int   `json:"acknowledged_count"`
	ServerTimestamp   int64 `json:"server_timestamp"`
}

// PullResult is one page of remote changes plus the cursor for the
// next pull.
type PullResult struct {
	Changes    []ChangeRecord `json:"changes"`
	NextCursor string         `json:"next_cursor"`
}

// Peer is the remote sync endpoint.
type Peer interface {
	Push(ctx context.Context, changes []ChangeRecord) (*PushResult, error)
	Pull(ctx context.Context, cursor string) (*PullResult, error)
}

// Coordinator runs incremental sync rounds against one peer.
type Coordinator struct {
	db   *sql.DB
	cfg  *config.Config
	peer Peer
}

// NewCoordinator creates a sync coordinator.
func NewCoordinator(database *sql.DB, cfg *config.Config, peer Peer) *Coordinator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Coordinator{db: database, cfg: cfg, peer: peer}
}

// Push sends every capture changed since the last acknowledged point.
// The server timestamp from the acknowledgement becomes the new local
// low-water-mark. Returns the number of records acknowledged.
func (c *Coordinator) Push(ctx context.Context) (int, error) {
	mark, err := c.pushMark(ctx)
	if err != nil {
		return 0, err
	}
	captures, err := db.ListChangedSince(ctx, c.db, mark)
	if err != nil {
		return 0, err
	}
	if len(captures) == 0 {
		return 0, nil
	}

	now := db.Now()
	changes := make([]ChangeRecord, len(captures))
	for i := range captures {
		changes[i] = ChangeRecord{
			ClientChangeID:  uuid.NewString(),
			Op:              OpUpsert,
			CaptureID:       captures[i].ID,
			Capture:         &captures[i],
			ClientTimestamp: now,
		}
	}

	result, err := c.peer.Push(ctx, changes)
	if err != nil {
		return 0, errors.NewTransientNetwork(err)
	}
	if err := db.SetSyncState(ctx, c.db, db.SyncKeyPushMark,
		strconv.FormatInt(result.ServerTimestamp, 10)); err != nil {
		return result.AcknowledgedCount, err
	}
	return result.AcknowledgedCount, nil
}

// Pull fetches remote changes from the stored cursor and applies them
// last-write-wins; the returned next-cursor is stored for the
// following pull. Returns the number of changes applied (records the
// local copy already supersedes count as skipped, not applied).
func (c *Coordinator) Pull(ctx context.Context) (int, error) {
	cursor, err := db.GetSyncState(ctx, c.db, db.SyncKeyPullCursor)
	if err != nil {
		return 0, err
	}

	result, err := c.peer.Pull(ctx, cursor)
	if err != nil {
		return 0, errors.NewTransientNetwork(err)
	}

	applied := 0
	for i := range result.Changes {
		ok, err := c.applyChange(ctx, &result.Changes[i])
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}

	if err := db.SetSyncState(ctx, c.db, db.SyncKeyPullCursor, result.NextCursor); err != nil {
		return applied, err
	}
	return applied, nil
}

// Sync runs one push/pull round. Returns pushed and pulled counts.
func (c *Coordinator) Sync(ctx context.Context) (pushed, pulled int, err error) {
	if pushed, err = c.Push(ctx); err != nil {
		return pushed, 0, err
	}
	pulled, err = c.Pull(ctx)
	return pushed, pulled, err
}

func (c *Coordinator) applyChange(ctx context.Context, change *ChangeRecord) (bool, error) {
	switch change.Op {
	case OpDelete:
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return false, errors.NewInternal(err)
		}
		err = func() error {
			if err := engine.TeardownDerived(ctx, tx, change.CaptureID,
				c.cfg.QueueMaxRetries, db.Now()); err != nil {
				return err
			}
			if err := db.UnlinkTagsFor(ctx, tx, change.CaptureID); err != nil {
				return err
			}
			if err := db.DeleteEntitiesFor(ctx, tx, change.CaptureID); err != nil {
				return err
			}
			if err := db.DeleteLogsFor(ctx, tx, change.CaptureID); err != nil {
				return err
			}
			return db.DeleteCaptureRow(ctx, tx, change.CaptureID)
		}()
		if err != nil {
			_ = tx.Rollback()
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, errors.NewInternal(err)
		}
		return true, nil

	case OpUpsert:
		if change.Capture == nil {
			return false, errors.NewInvalidRequest("upsert change without capture data")
		}
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return false, errors.NewInternal(err)
		}
		var applied bool
		err = func() error {
			var typeChanged bool
			var err error
			applied, typeChanged, err = db.UpsertCaptureFromSync(ctx, tx, change.Capture)
			if err != nil || !applied {
				return err
			}
			if !typeChanged {
				return nil
			}
			// The remote row landed with a different category, so the
			// local derived entity no longer matches it.
			return engine.RematerializeDerived(ctx, tx, change.Capture,
				c.cfg.QueueMaxRetries, db.Now())
		}()
		if err != nil {
			_ = tx.Rollback()
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, errors.NewInternal(err)
		}
		return applied, nil
	}
	return false, errors.NewInvalidRequest("unknown change op: " + string(change.Op))
}

func (c *Coordinator) pushMark(ctx context.Context) (int64, error) {
	raw, err := db.GetSyncState(ctx, c.db, db.SyncKeyPushMark)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	mark, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return mark, nil
}
