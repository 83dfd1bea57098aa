// Package engine implements the capture classification core: applying
// classifier output, user reclassification, confidence-gated review,
// confirmation tracking, and the reversible delete lifecycle.
//
// Every multi-step sequence for one capture runs under that capture's
// keyed lock and inside a single SQLite transaction, so the
// at-most-one-derived-entity invariant holds at every observable point.
package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/config"
	"github.com/juneyoungl/jot/internal/errors"
)

// UnconfirmedWindow is how far back the unconfirmed review view reaches.
const UnconfirmedWindow = 24 * time.Hour

// Engine owns the per-process state the core needs beyond the database:
// per-capture locks, the pending auto-accept and hard-delete timers, and
// the change-notification hub. Callers must Shutdown the engine to drain
// timers; nothing is cleaned up ambiently.
type Engine struct {
	db        *sql.DB
	cfg       *config.Config
	analytics analytics.Emitter

	locks        keyedLocks
	deleteTimers timerSet
	reviews      reviewSet
	watcher      watcher

	graceDur      time.Duration
	autoAcceptDur time.Duration
}

// New creates an engine over an initialized database.
func New(database *sql.DB, cfg *config.Config, emitter analytics.Emitter) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if emitter == nil {
		emitter = analytics.Nop{}
	}
	e := &Engine{
		db:            database,
		cfg:           cfg,
		analytics:     emitter,
		graceDur:      time.Duration(cfg.DeleteGraceSeconds) * time.Second,
		autoAcceptDur: time.Duration(cfg.AutoAcceptSeconds) * time.Second,
	}
	e.locks.init()
	e.deleteTimers.init()
	e.reviews.init()
	return e
}

// GraceDuration is the soft-delete undo window.
func (e *Engine) GraceDuration() time.Duration {
	return e.graceDur
}

// AutoAcceptDuration is the HIGH-confidence countdown length.
func (e *Engine) AutoAcceptDuration() time.Duration {
	return e.autoAcceptDur
}

// Shutdown cancels every pending timer and waits for in-flight timer
// callbacks to finish. Pending hard deletes are abandoned, not executed:
// a restart re-enters soft-deleted captures through the trash/purge path.
func (e *Engine) Shutdown() {
	e.deleteTimers.drain()
	e.reviews.drain()
	e.watcher.close()
}

// inTx runs fn inside a transaction, committing on nil and rolling back
// on error so multi-step sequences are all-or-nothing.
func (e *Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
