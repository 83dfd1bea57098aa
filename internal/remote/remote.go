// Package remote implements the HTTP client side of the capture API:
// the sync peer the coordinator talks to and the action endpoints the
// offline queue replays against. A Local implementation covers setups
// with no remote endpoint configured.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/juneyoungl/jot/internal/analytics"
	"github.com/juneyoungl/jot/internal/model"
	"github.com/juneyoungl/jot/internal/syncer"
)

const defaultTimeout = 30 * time.Second

// Client talks to the remote capture API over HTTP. It implements both
// syncer.Peer and the outbox Remote interface.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// Push sends a batch of local changes to the peer.
func (c *Client) Push(ctx context.Context, changes []syncer.ChangeRecord) (*syncer.PushResult, error) {
	var result syncer.PushResult
	err := c.do(ctx, http.MethodPost, "/v1/sync/push",
		map[string]any{"changes": changes}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Pull fetches remote changes from the given cursor.
func (c *Client) Pull(ctx context.Context, cursor string) (*syncer.PullResult, error) {
	var result syncer.PullResult
	path := "/v1/sync/pull"
	if cursor != "" {
		path += "?cursor=" + cursor
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReportReclassification reports a user-initiated category change.
func (c *Client) ReportReclassification(ctx context.Context, p model.ReclassifyPayload) error {
	return c.do(ctx, http.MethodPost, "/v1/reclassifications", p, nil)
}

// CreateCalendarEvent mirrors a schedule into the remote calendar. The
// schedule id in the payload is the idempotency key; replaying the same
// payload returns the same event id.
func (c *Client) CreateCalendarEvent(ctx context.Context, p model.CalendarCreatePayload) (string, error) {
	var result struct {
		EventID string `json:"event_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/calendar/events", p, &result); err != nil {
		return "", err
	}
	return result.EventID, nil
}

// DeleteCalendarEvent removes a previously mirrored calendar event.
func (c *Client) DeleteCalendarEvent(ctx context.Context, p model.CalendarDeletePayload) error {
	return c.do(ctx, http.MethodDelete, "/v1/calendar/events/"+p.CalendarEventID, nil, nil)
}

// SendAnalytics forwards one analytics event to the collector.
func (c *Client) SendAnalytics(ctx context.Context, ev analytics.Event) error {
	return c.do(ctx, http.MethodPost, "/v1/analytics", ev, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Local is the offline stand-in used when no sync endpoint is
// configured. Calendar events get locally generated ids; everything
// else is a no-op that always succeeds, so queued actions drain instead
// of piling up retries against nothing.
type Local struct{}

// ReportReclassification is a no-op.
func (Local) ReportReclassification(ctx context.Context, p model.ReclassifyPayload) error {
	return nil
}

// CreateCalendarEvent assigns a locally generated event id.
func (Local) CreateCalendarEvent(ctx context.Context, p model.CalendarCreatePayload) (string, error) {
	return "local-" + uuid.NewString(), nil
}

// DeleteCalendarEvent is a no-op.
func (Local) DeleteCalendarEvent(ctx context.Context, p model.CalendarDeletePayload) error {
	return nil
}

// SendAnalytics is a no-op.
func (Local) SendAnalytics(ctx context.Context, ev analytics.Event) error {
	return nil
}
