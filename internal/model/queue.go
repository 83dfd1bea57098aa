package model

import "encoding/json"

// ActionKind identifies what a queued offline action does when it
// reaches the remote peer.
type ActionKind string

const (
	ActionClassify       ActionKind = "CLASSIFY"
	ActionReclassify     ActionKind = "RECLASSIFY"
	ActionCalendarCreate ActionKind = "CALENDAR_CREATE"
	ActionCalendarDelete ActionKind = "CALENDAR_DELETE"
	ActionAnalyticsBatch ActionKind = "ANALYTICS_BATCH"
)

// QueueStatus is the lifecycle state of an offline queue item.
type QueueStatus string

const (
	StatusPending    QueueStatus = "PENDING"
	StatusProcessing QueueStatus = "PROCESSING"
	StatusCompleted  QueueStatus = "COMPLETED"
	StatusFailed     QueueStatus = "FAILED"
)

// QueueItem is one durable offline action. Lifecycle:
// PENDING -> PROCESSING -> COMPLETED, or back to PENDING with an
// incremented retry count and a future next_retry_at, until the retry
// budget is exhausted and the item lands in FAILED (terminal, surfaced).
type QueueItem struct {
	ID          string          `json:"id"`
	Kind        ActionKind      `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
	Status      QueueStatus     `json:"status"`
	CreatedAt   int64           `json:"created_at"`
	UpdatedAt   int64           `json:"updated_at"`
	NextRetryAt *int64          `json:"next_retry_at,omitempty"`
	StartedAt   *int64          `json:"started_at,omitempty"`
	LastError   *string         `json:"last_error,omitempty"`
}
