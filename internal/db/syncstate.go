package db

import (
	"context"
	"database/sql"

	"github.com/juneyoungl/jot/internal/errors"
)

// Sync-state keys.
const (
	SyncKeyPushMark   = "push_low_water_mark"
	SyncKeyPullCursor = "pull_cursor"
)

// GetSyncState returns the stored value for a sync-state key, or ""
// when the key has never been written.
func GetSyncState(ctx context.Context, q DBTX, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return value, nil
}

// SetSyncState upserts a sync-state key.
func SetSyncState(ctx context.Context, q DBTX, key, value string) error {
	query := `INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := q.ExecContext(ctx, query, key, value); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
