package engine

import (
	"context"
	"database/sql"
	"strings"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// CaptureInput is one user-submitted item entering the engine.
type CaptureInput struct {
	Text            string  `json:"text"`
	Source          string  `json:"source"`
	ImageURI        *string `json:"image_uri,omitempty"`
	ParentCaptureID *string `json:"parent_capture_id,omitempty"`
}

// Capture stores a new TEMP capture and enqueues its classification as
// an offline action, so capturing works without connectivity and the
// classifier call happens whenever the dispatcher next runs. The row
// and the queue item commit together.
func (e *Engine) Capture(ctx context.Context, in CaptureInput) (*model.Capture, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, errors.NewInvalidRequest("capture text is required")
	}
	source := in.Source
	if source == "" {
		source = "cli"
	}
	if in.ParentCaptureID != nil {
		if _, err := db.GetCapture(ctx, e.db, *in.ParentCaptureID, true); err != nil {
			return nil, err
		}
	}

	id, err := db.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := db.Now()
	capture := &model.Capture{
		ID:              id,
		OriginalText:    text,
		ClassifiedType:  model.TypeTemp,
		Source:          source,
		CreatedAt:       now,
		UpdatedAt:       now,
		ImageURI:        in.ImageURI,
		ParentCaptureID: in.ParentCaptureID,
	}

	err = e.inTx(ctx, func(tx *sql.Tx) error {
		if err := db.InsertCapture(ctx, tx, capture); err != nil {
			return err
		}
		payload := model.ClassifyPayload{CaptureID: id, Content: text}
		_, err := db.EnqueueOutbox(ctx, tx, model.ActionClassify, payload, e.cfg.QueueMaxRetries, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.analytics.Emit(ctx, analytics.Event{
		Name:      "capture_created",
		CaptureID: id,
		Props:     map[string]any{"source": source},
	})
	e.watcher.notify(Change{Kind: ChangeCaptured, CaptureID: id, At: now})
	return capture, nil
}
