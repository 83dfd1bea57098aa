package db

import (
	"context"
	"database/sql"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// InsertClassificationLog appends one audit row. Log rows are never
// updated; they go away only with the owning capture's hard delete.
func InsertClassificationLog(ctx context.Context, q DBTX, l *model.ClassificationLog) error {
	query := `
		INSERT INTO classification_log (
			id, capture_id, original_type, original_sub_type,
			new_type, new_sub_type, time_since_classification_ms, modified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		l.ID, l.CaptureID, string(l.OriginalType), subTypeToNull(l.OriginalSubType),
		string(l.NewType), subTypeToNull(l.NewSubType),
		toNullInt64(l.TimeSinceClassificationMs), l.ModifiedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LogsForCapture returns the audit trail for a capture, newest first.
func LogsForCapture(ctx context.Context, q DBTX, captureID string) ([]model.ClassificationLog, error) {
	query := `
		SELECT id, capture_id, original_type, original_sub_type,
			new_type, new_sub_type, time_since_classification_ms, modified_at
		FROM classification_log
		WHERE capture_id = ?
		ORDER BY modified_at DESC, id DESC
	`
	rows, err := q.QueryContext(ctx, query, captureID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var logs []model.ClassificationLog
	for rows.Next() {
		var (
			l        model.ClassificationLog
			origType string
			origSub  sql.NullString
			newType  string
			newSub   sql.NullString
			sinceMs  sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.CaptureID, &origType, &origSub, &newType, &newSub, &sinceMs, &l.ModifiedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		l.OriginalType = model.CaptureType(origType)
		if origSub.Valid {
			st := model.NoteSubType(origSub.String)
			l.OriginalSubType = &st
		}
		l.NewType = model.CaptureType(newType)
		if newSub.Valid {
			st := model.NoteSubType(newSub.String)
			l.NewSubType = &st
		}
		l.TimeSinceClassificationMs = fromNullInt64(sinceMs)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return logs, nil
}

// DeleteLogsFor removes all audit rows for a capture (hard-delete
// cascade only).
func DeleteLogsFor(ctx context.Context, q DBTX, captureID string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM classification_log WHERE capture_id = ?`, captureID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
