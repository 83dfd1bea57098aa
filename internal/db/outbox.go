package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

const outboxColumns = `id, kind, payload, retry_count, max_retries, status,
	created_at, updated_at, next_retry_at, started_at, last_error`

// EnqueueOutbox appends a PENDING item eligible immediately.
func EnqueueOutbox(ctx context.Context, q DBTX, kind model.ActionKind, payload any, maxRetries int, now int64) (*model.QueueItem, error) {
	id, err := NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	item := &model.QueueItem{
		ID:         id,
		Kind:       kind,
		Payload:    data,
		MaxRetries: maxRetries,
		Status:     model.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	query := `
		INSERT INTO outbox (id, kind, payload, retry_count, max_retries, status, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, 'PENDING', ?, ?)
	`
	if _, err := q.ExecContext(ctx, query, id, string(kind), string(data), maxRetries, now, now); err != nil {
		return nil, errors.NewInternal(err)
	}
	return item, nil
}

// EligibleOutbox returns PENDING items whose next_retry_at is null or
// has passed, FIFO by creation order.
func EligibleOutbox(ctx context.Context, q DBTX, now int64, limit int) ([]model.QueueItem, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox
		WHERE status = 'PENDING' AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

// MarkProcessing transitions a PENDING item to PROCESSING, recording
// the dispatch start. Returns NotFound if the item is no longer PENDING
// (another dispatcher claimed it).
func MarkProcessing(ctx context.Context, q DBTX, id string, now int64) error {
	query := `
		UPDATE outbox
		SET status = 'PROCESSING', started_at = ?, updated_at = ?
		WHERE id = ? AND status = 'PENDING'
	`
	result, err := q.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "queue item", id)
}

// MarkCompleted finishes an item. Completed items may later be purged.
func MarkCompleted(ctx context.Context, q DBTX, id string, now int64) error {
	query := `
		UPDATE outbox
		SET status = 'COMPLETED', updated_at = ?, next_retry_at = NULL, last_error = NULL
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "queue item", id)
}

// MarkRetry puts a failed attempt back in PENDING with an incremented
// retry count and a future retry time.
func MarkRetry(ctx context.Context, q DBTX, id string, nextRetryAt int64, lastError string, now int64) error {
	query := `
		UPDATE outbox
		SET status = 'PENDING', retry_count = retry_count + 1,
			next_retry_at = ?, last_error = ?, started_at = NULL, updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query, nextRetryAt, lastError, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "queue item", id)
}

// MarkFailed parks an item in the terminal FAILED state.
func MarkFailed(ctx context.Context, q DBTX, id string, lastError string, now int64) error {
	query := `
		UPDATE outbox
		SET status = 'FAILED', retry_count = retry_count + 1,
			last_error = ?, started_at = NULL, updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query, lastError, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "queue item", id)
}

// RecoverStale returns PROCESSING items whose dispatch started before
// the cutoff to PENDING so they re-enter the retry path. The
// interrupted attempt counts against the retry budget, so an item that
// crashed on its final attempt lands in FAILED instead of getting one
// more dispatch. Covers a process killed mid-dispatch. Returns the
// number re-entered as PENDING.
func RecoverStale(ctx context.Context, q DBTX, cutoff int64, now int64) (int, error) {
	failQuery := `
		UPDATE outbox
		SET status = 'FAILED', retry_count = retry_count + 1,
			last_error = 'dispatch interrupted', started_at = NULL, updated_at = ?
		WHERE status = 'PROCESSING' AND started_at <= ?
			AND retry_count + 1 >= max_retries
	`
	if _, err := q.ExecContext(ctx, failQuery, now, cutoff); err != nil {
		return 0, errors.NewInternal(err)
	}

	query := `
		UPDATE outbox
		SET status = 'PENDING', retry_count = retry_count + 1,
			next_retry_at = ?, started_at = NULL, updated_at = ?
		WHERE status = 'PROCESSING' AND started_at <= ?
	`
	result, err := q.ExecContext(ctx, query, now, now, cutoff)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// GetOutboxItem retrieves one queue item by id.
func GetOutboxItem(ctx context.Context, q DBTX, id string) (*model.QueueItem, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox WHERE id = ?`
	item, err := scanQueueItem(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("queue item", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return item, nil
}

// ListOutboxByStatus returns queue items in the given state, FIFO.
func ListOutboxByStatus(ctx context.Context, q DBTX, status model.QueueStatus) ([]model.QueueItem, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

// PurgeCompletedOutbox garbage-collects COMPLETED items updated at or
// before the cutoff. Returns the number purged.
func PurgeCompletedOutbox(ctx context.Context, q DBTX, cutoff int64) (int, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM outbox WHERE status = 'COMPLETED' AND updated_at <= ?`, cutoff)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func scanQueueItem(row scanner) (*model.QueueItem, error) {
	var (
		item        model.QueueItem
		kind        string
		payload     string
		status      string
		nextRetryAt sql.NullInt64
		startedAt   sql.NullInt64
		lastError   sql.NullString
	)
	err := row.Scan(
		&item.ID, &kind, &payload, &item.RetryCount, &item.MaxRetries, &status,
		&item.CreatedAt, &item.UpdatedAt, &nextRetryAt, &startedAt, &lastError,
	)
	if err != nil {
		return nil, err
	}

	item.Kind = model.ActionKind(kind)
	item.Payload = json.RawMessage(payload)
	item.Status = model.QueueStatus(status)
	item.NextRetryAt = fromNullInt64(nextRetryAt)
	item.StartedAt = fromNullInt64(startedAt)
	item.LastError = fromNullString(lastError)
	return &item, nil
}

func scanQueueItems(rows *sql.Rows) ([]model.QueueItem, error) {
	var items []model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}
