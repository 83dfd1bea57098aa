package outbox

import (
	"context"
	"encoding/json"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/classify"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/engine"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// Remote is the slice of the remote API that queued actions call.
// Implementations must treat the payload ids as idempotency keys so a
// replayed action does not double-apply.
type Remote interface {
	ReportReclassification(ctx context.Context, p model.ReclassifyPayload) error
	CreateCalendarEvent(ctx context.Context, p model.CalendarCreatePayload) (eventID string, err error)
	DeleteCalendarEvent(ctx context.Context, p model.CalendarDeletePayload) error
	SendAnalytics(ctx context.Context, ev analytics.Event) error
}

func decodePayload[T any](item *model.QueueItem) (T, error) {
	var p T
	if err := json.Unmarshal(item.Payload, &p); err != nil {
		return p, errors.NewInvalidRequest("malformed " + string(item.Kind) + " payload: " + err.Error())
	}
	return p, nil
}

// ClassifyHandler runs the classifier for a queued capture and routes
// the result through the engine's confidence router. A capture deleted
// while the action sat in the queue completes the item as a no-op.
func ClassifyHandler(c classify.Classifier, e *engine.Engine) Handler {
	return func(ctx context.Context, item *model.QueueItem) error {
		p, err := decodePayload[model.ClassifyPayload](item)
		if err != nil {
			return err
		}

		cls, err := c.Classify(ctx, p.Content)
		if err != nil {
			return err
		}
		_, _, err = e.ProcessClassification(ctx, p.CaptureID, cls)
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
}

// ReclassifyHandler reports a user-initiated category change to the
// remote peer.
func ReclassifyHandler(r Remote) Handler {
	return func(ctx context.Context, item *model.QueueItem) error {
		p, err := decodePayload[model.ReclassifyPayload](item)
		if err != nil {
			return err
		}
		return r.ReportReclassification(ctx, p)
	}
}

// CalendarCreateHandler mirrors a derived schedule into the external
// calendar and stores the returned event id on the schedule row. The
// schedule may have been deleted while the action was queued; that
// completes the item.
func CalendarCreateHandler(r Remote, database db.DBTX) Handler {
	return func(ctx context.Context, item *model.QueueItem) error {
		p, err := decodePayload[model.CalendarCreatePayload](item)
		if err != nil {
			return err
		}

		eventID, err := r.CreateCalendarEvent(ctx, p)
		if err != nil {
			return err
		}
		err = db.SetScheduleCalendarEvent(ctx, database, p.ScheduleID, eventID, db.Now())
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
}

// CalendarDeleteHandler removes a previously mirrored calendar event.
func CalendarDeleteHandler(r Remote) Handler {
	return func(ctx context.Context, item *model.QueueItem) error {
		p, err := decodePayload[model.CalendarDeletePayload](item)
		if err != nil {
			return err
		}
		return r.DeleteCalendarEvent(ctx, p)
	}
}

// AnalyticsHandler forwards one batched analytics event to the remote
// collector.
func AnalyticsHandler(r Remote) Handler {
	return func(ctx context.Context, item *model.QueueItem) error {
		ev, err := decodePayload[analytics.Event](item)
		if err != nil {
			return err
		}
		return r.SendAnalytics(ctx, ev)
	}
}

// RegisterAll wires the standard handler set onto a dispatcher.
func RegisterAll(d *Dispatcher, c classify.Classifier, e *engine.Engine, r Remote) {
	d.Register(model.ActionClassify, ClassifyHandler(c, e))
	d.Register(model.ActionReclassify, ReclassifyHandler(r))
	d.Register(model.ActionCalendarCreate, CalendarCreateHandler(r, d.db))
	d.Register(model.ActionCalendarDelete, CalendarDeleteHandler(r))
	d.Register(model.ActionAnalyticsBatch, AnalyticsHandler(r))
}
