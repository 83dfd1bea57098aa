// Package outbox drives the durable offline action queue: FIFO
// dispatch of PENDING items to per-kind handlers, exponential backoff
// with jitter on failure, a terminal FAILED state once the retry
// budget runs out, and recovery of items stranded in PROCESSING by a
// crash.
package outbox

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/juneyoungl/jot/internal/config"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
	"github.com/juneyoungl/jot/internal/util"
)

// Handler executes one queued action against the remote side. A nil
// return completes the item; an error sends it down the retry path.
// Handlers must be replay-safe: dispatching the same payload twice
// must not double-apply.
type Handler func(ctx context.Context, item *model.QueueItem) error

// DefaultBatchSize caps how many items one dispatch pass claims.
const DefaultBatchSize = 20

// DefaultBaseDelay seeds the exponential backoff schedule.
const DefaultBaseDelay = 2 * time.Second

// Dispatcher owns the dispatch loop over the outbox table.
type Dispatcher struct {
	db        *sql.DB
	cfg       *config.Config
	handlers  map[model.ActionKind]Handler
	baseDelay time.Duration
	batchSize int
}

// NewDispatcher creates a dispatcher with no handlers registered.
func NewDispatcher(database *sql.DB, cfg *config.Config) *Dispatcher {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Dispatcher{
		db:        database,
		cfg:       cfg,
		handlers:  make(map[model.ActionKind]Handler),
		baseDelay: DefaultBaseDelay,
		batchSize: DefaultBatchSize,
	}
}

// Register installs the handler for an action kind, replacing any
// previous one.
func (d *Dispatcher) Register(kind model.ActionKind, h Handler) {
	d.handlers[kind] = h
}

// DispatchOnce runs one pass: claim eligible PENDING items FIFO and
// execute each. Returns the number of items attempted. Item failures
// are absorbed into the retry path, not returned.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	now := db.Now()
	items, err := db.EligibleOutbox(ctx, d.db, now, d.batchSize)
	if err != nil {
		return 0, err
	}

	attempted := 0
	for i := range items {
		item := &items[i]
		if err := ctx.Err(); err != nil {
			return attempted, errors.NewInternal(err)
		}
		if err := db.MarkProcessing(ctx, d.db, item.ID, db.Now()); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				// Another dispatcher claimed it.
				continue
			}
			return attempted, err
		}
		attempted++
		d.execute(ctx, item)
	}
	return attempted, nil
}

// execute runs the handler for one claimed item and records the outcome.
func (d *Dispatcher) execute(ctx context.Context, item *model.QueueItem) {
	handler, ok := d.handlers[item.Kind]
	if !ok {
		d.fail(ctx, item, "no handler registered for "+string(item.Kind))
		return
	}

	hctx, cancel := context.WithTimeout(ctx,
		time.Duration(d.cfg.DispatchTimeoutSeconds)*time.Second)
	err := handler(hctx, item)
	cancel()

	now := db.Now()
	if err == nil {
		if merr := db.MarkCompleted(ctx, d.db, item.ID, now); merr != nil {
			log.Printf("outbox: completing %s: %v", item.ID, merr)
		}
		return
	}

	attempt := item.RetryCount + 1
	if attempt < item.MaxRetries {
		delay := util.CalculateBackoff(d.baseDelay, attempt)
		if merr := db.MarkRetry(ctx, d.db, item.ID, now+delay.Milliseconds(), err.Error(), now); merr != nil {
			log.Printf("outbox: scheduling retry of %s: %v", item.ID, merr)
		}
		return
	}
	d.fail(ctx, item, err.Error())
}

func (d *Dispatcher) fail(ctx context.Context, item *model.QueueItem, reason string) {
	log.Printf("outbox: %s action %s failed permanently: %s", item.Kind, item.ID, reason)
	if err := db.MarkFailed(ctx, d.db, item.ID, reason, db.Now()); err != nil {
		log.Printf("outbox: failing %s: %v", item.ID, err)
	}
}

// RecoverStale re-enters items stranded in PROCESSING longer than the
// dispatch timeout into the retry path. Run it once on startup before
// the loop.
func (d *Dispatcher) RecoverStale(ctx context.Context) (int, error) {
	now := db.Now()
	cutoff := now - int64(d.cfg.DispatchTimeoutSeconds)*1000
	return db.RecoverStale(ctx, d.db, cutoff, now)
}

// Failed returns terminally failed items, oldest first. These are
// surfaced to the user, never silently dropped.
func (d *Dispatcher) Failed(ctx context.Context) ([]model.QueueItem, error) {
	return db.ListOutboxByStatus(ctx, d.db, model.StatusFailed)
}

// PurgeCompleted garbage-collects COMPLETED items older than the given
// age. Returns the number removed.
func (d *Dispatcher) PurgeCompleted(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := db.Now() - olderThan.Milliseconds()
	return db.PurgeCompletedOutbox(ctx, d.db, cutoff)
}

// Run dispatches on a fixed interval until the context is cancelled.
// Stale PROCESSING items are recovered once at startup.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if n, err := d.RecoverStale(ctx); err != nil {
		return err
	} else if n > 0 {
		log.Printf("outbox: recovered %d stale item(s)", n)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				log.Printf("outbox: dispatch pass: %v", err)
			}
		}
	}
}
