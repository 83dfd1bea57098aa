// Package analytics emits engine events on a best-effort basis.
// Emission failures are swallowed; they must never roll back or block
// the state change that produced the event.
package analytics

import (
	"context"
	"database/sql"
	"log"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/model"
)

// Event is one analytics record.
type Event struct {
	Name      string         `json:"name"`
	CaptureID string         `json:"capture_id,omitempty"`
	Props     map[string]any `json:"props,omitempty"`
	At        int64          `json:"at"`
}

// Emitter receives engine events. Implementations must be safe for
// concurrent use and must not return errors to callers: delivery is
// fire-and-forget.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Nop discards all events. Used in tests and when analytics is disabled.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(context.Context, Event) {}

// OutboxEmitter batches events through the offline action queue so they
// reach the remote collector whenever connectivity allows.
type OutboxEmitter struct {
	DB         *sql.DB
	MaxRetries int
}

// Emit enqueues the event as an ANALYTICS_BATCH action. Failures are
// logged and dropped.
func (e *OutboxEmitter) Emit(ctx context.Context, ev Event) {
	if ev.At == 0 {
		ev.At = db.Now()
	}
	_, err := db.EnqueueOutbox(ctx, e.DB, model.ActionAnalyticsBatch, ev, e.MaxRetries, db.Now())
	if err != nil {
		log.Printf("analytics: dropping event %s: %v", ev.Name, err)
	}
}
