package db

import (
	"context"
	"database/sql"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

const captureColumns = `id, original_text, ai_title, classified_type, note_sub_type,
	confidence, source, is_confirmed, confirmed_at, is_deleted, deleted_at,
	is_trashed, trashed_at, created_at, updated_at, classification_completed_at,
	image_uri, parent_capture_id`

// InsertCapture stores a new capture row.
func InsertCapture(ctx context.Context, q DBTX, c *model.Capture) error {
	query := `
		INSERT INTO captures (
			id, original_text, ai_title, classified_type, note_sub_type,
			confidence, source, is_confirmed, confirmed_at, is_deleted, deleted_at,
			is_trashed, trashed_at, created_at, updated_at, classification_completed_at,
			image_uri, parent_capture_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		c.ID, c.OriginalText, toNullString(c.AITitle), string(c.ClassifiedType),
		subTypeToNull(c.NoteSubType), confidenceToNull(c.Confidence), c.Source,
		boolToInt(c.IsConfirmed), toNullInt64(c.ConfirmedAt),
		boolToInt(c.IsDeleted), toNullInt64(c.DeletedAt),
		boolToInt(c.IsTrashed), toNullInt64(c.TrashedAt),
		c.CreatedAt, c.UpdatedAt, toNullInt64(c.ClassificationCompletedAt),
		toNullString(c.ImageURI), toNullString(c.ParentCaptureID),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetCapture retrieves a capture by id. Soft-deleted and trashed
// captures are excluded unless includeHidden is set.
func GetCapture(ctx context.Context, q DBTX, id string, includeHidden bool) (*model.Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = ?`
	if !includeHidden {
		query += " AND is_deleted = 0 AND is_trashed = 0"
	}

	c, err := scanCapture(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("capture", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// ApplyClassification updates the capture row with a fresh
// classification result and stamps classification_completed_at.
func ApplyClassification(ctx context.Context, q DBTX, id string, cls *model.Classification, now int64) error {
	level := cls.Level()
	query := `
		UPDATE captures
		SET classified_type = ?, note_sub_type = ?, ai_title = ?, confidence = ?,
			classification_completed_at = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0 AND is_trashed = 0
	`
	result, err := q.ExecContext(ctx, query,
		string(cls.Type), subTypeToNull(cls.SubType), toNullString(cls.AITitle),
		string(level), now, now, id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "capture", id)
}

// UpdateCaptureType rewrites classified_type/note_sub_type for a
// user-initiated reclassification.
func UpdateCaptureType(ctx context.Context, q DBTX, id string, typ model.CaptureType, subType *model.NoteSubType, now int64) error {
	query := `
		UPDATE captures
		SET classified_type = ?, note_sub_type = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0 AND is_trashed = 0
	`
	result, err := q.ExecContext(ctx, query, string(typ), subTypeToNull(subType), now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "capture", id)
}

// ConfirmCapture marks a capture's classification as user-confirmed.
func ConfirmCapture(ctx context.Context, q DBTX, id string, now int64) error {
	query := `
		UPDATE captures
		SET is_confirmed = 1, confirmed_at = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0 AND is_trashed = 0
	`
	result, err := q.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "capture", id)
}

// ConfirmAllCaptures confirms every unconfirmed classified capture.
// Returns the number of captures confirmed.
func ConfirmAllCaptures(ctx context.Context, q DBTX, now int64) (int, error) {
	query := `
		UPDATE captures
		SET is_confirmed = 1, confirmed_at = ?, updated_at = ?
		WHERE is_confirmed = 0 AND confidence IS NOT NULL
			AND is_deleted = 0 AND is_trashed = 0
	`
	result, err := q.ExecContext(ctx, query, now, now)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// ListUnconfirmed returns captures that completed classification at or
// after the since timestamp and have not been confirmed, newest first.
func ListUnconfirmed(ctx context.Context, q DBTX, since int64) ([]model.Capture, error) {
	query := `
		SELECT ` + captureColumns + `
		FROM captures
		WHERE is_confirmed = 0 AND classification_completed_at >= ?
			AND is_deleted = 0 AND is_trashed = 0
		ORDER BY classification_completed_at DESC
	`
	rows, err := q.QueryContext(ctx, query, since)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanCaptures(rows)
}

// CountUnconfirmed counts captures eligible for the unconfirmed view.
func CountUnconfirmed(ctx context.Context, q DBTX, since int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM captures
		WHERE is_confirmed = 0 AND classification_completed_at >= ?
			AND is_deleted = 0 AND is_trashed = 0
	`
	var n int
	if err := q.QueryRowContext(ctx, query, since).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ListCaptures returns active captures, optionally filtered by type,
// newest first with limit/offset pagination.
func ListCaptures(ctx context.Context, q DBTX, typ *model.CaptureType, limit, offset int) ([]model.Capture, error) {
	query := `
		SELECT ` + captureColumns + `
		FROM captures
		WHERE is_deleted = 0 AND is_trashed = 0
	`
	args := []any{}
	if typ != nil {
		query += " AND classified_type = ?"
		args = append(args, string(*typ))
	}
	query += " ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanCaptures(rows)
}

// SoftDeleteCapture marks a capture deleted. Deleting an
// already-deleted capture returns NotFound.
func SoftDeleteCapture(ctx context.Context, q DBTX, id string, now int64) error {
	query := `
		UPDATE captures
		SET is_deleted = 1, deleted_at = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0
	`
	result, err := q.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "capture", id)
}

// UndoSoftDeleteCapture clears the soft-delete flags. Returns NotFound
// if the capture is gone or was never soft-deleted.
func UndoSoftDeleteCapture(ctx context.Context, q DBTX, id string, now int64) error {
	query := `
		UPDATE captures
		SET is_deleted = 0, deleted_at = NULL, updated_at = ?
		WHERE id = ? AND is_deleted = 1
	`
	result, err := q.ExecContext(ctx, query, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "capture", id)
}

// TrashCapture moves a capture to the 30-day trash.
func TrashCapture(ctx context.Context, q DBTX, id string, now int64) error {
	query := `
		UPDATE captures
		SET is_trashed = 1, trashed_at = ?, updated_at = ?
		WHERE id = ? AND is_trashed = 0 AND is_deleted = 0
	`
	result, err := q.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "capture", id)
}

// RestoreCapture takes a capture back out of the trash.
func RestoreCapture(ctx context.Context, q DBTX, id string, now int64) error {
	query := `
		UPDATE captures
		SET is_trashed = 0, trashed_at = NULL, updated_at = ?
		WHERE id = ? AND is_trashed = 1
	`
	result, err := q.ExecContext(ctx, query, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRow(result, "capture", id)
}

// ListTrashedBefore returns ids of captures trashed at or before cutoff.
func ListTrashedBefore(ctx context.Context, q DBTX, cutoff int64) ([]string, error) {
	query := `SELECT id FROM captures WHERE is_trashed = 1 AND trashed_at <= ?`
	rows, err := q.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ids, nil
}

// DeleteCaptureRow removes the capture row itself. The engine's hard
// delete wraps this together with the cascade to owned rows.
func DeleteCaptureRow(ctx context.Context, q DBTX, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListChangedSince returns captures whose updated_at is strictly after
// the given low-water-mark, for sync push. Hidden captures are included
// so deletions propagate.
func ListChangedSince(ctx context.Context, q DBTX, since int64) ([]model.Capture, error) {
	query := `
		SELECT ` + captureColumns + `
		FROM captures
		WHERE updated_at > ?
		ORDER BY updated_at ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query, since)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanCaptures(rows)
}

// UpsertCaptureFromSync writes a pulled remote capture, keeping the
// local row when it is newer (last-write-wins by updated_at). Reports
// whether the remote row was applied and whether its classified type
// differs from what the local store held, so the caller can rebuild
// the derived entity. A capture the store has never seen counts as a
// type change. Callers run this inside a transaction; the
// delete-then-insert must not be interrupted.
func UpsertCaptureFromSync(ctx context.Context, q DBTX, c *model.Capture) (applied, typeChanged bool, err error) {
	existing, err := GetCapture(ctx, q, c.ID, true)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return false, false, err
	}
	if existing != nil && existing.UpdatedAt >= c.UpdatedAt {
		return false, false, nil
	}
	if existing != nil {
		if err := DeleteCaptureRow(ctx, q, c.ID); err != nil {
			return false, false, err
		}
	}
	if err := InsertCapture(ctx, q, c); err != nil {
		return false, false, err
	}
	typeChanged = existing == nil || existing.ClassifiedType != c.ClassifiedType
	return true, typeChanged, nil
}

// requireRow converts a zero-rows-affected update into NotFound.
func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(kind, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func subTypeToNull(s *model.NoteSubType) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

func confidenceToNull(c *model.ConfidenceLevel) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*c), Valid: true}
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCapture(row scanner) (*model.Capture, error) {
	var (
		c           model.Capture
		aiTitle     sql.NullString
		subType     sql.NullString
		confidence  sql.NullString
		isConfirmed int
		confirmedAt sql.NullInt64
		isDeleted   int
		deletedAt   sql.NullInt64
		isTrashed   int
		trashedAt   sql.NullInt64
		completedAt sql.NullInt64
		imageURI    sql.NullString
		parentID    sql.NullString
		typ         string
	)

	err := row.Scan(
		&c.ID, &c.OriginalText, &aiTitle, &typ, &subType,
		&confidence, &c.Source, &isConfirmed, &confirmedAt, &isDeleted, &deletedAt,
		&isTrashed, &trashedAt, &c.CreatedAt, &c.UpdatedAt, &completedAt,
		&imageURI, &parentID,
	)
	if err != nil {
		return nil, err
	}

	c.AITitle = fromNullString(aiTitle)
	c.ClassifiedType = model.CaptureType(typ)
	if subType.Valid {
		st := model.NoteSubType(subType.String)
		c.NoteSubType = &st
	}
	if confidence.Valid {
		lvl := model.ConfidenceLevel(confidence.String)
		c.Confidence = &lvl
	}
	c.IsConfirmed = isConfirmed != 0
	c.ConfirmedAt = fromNullInt64(confirmedAt)
	c.IsDeleted = isDeleted != 0
	c.DeletedAt = fromNullInt64(deletedAt)
	c.IsTrashed = isTrashed != 0
	c.TrashedAt = fromNullInt64(trashedAt)
	c.ClassificationCompletedAt = fromNullInt64(completedAt)
	c.ImageURI = fromNullString(imageURI)
	c.ParentCaptureID = fromNullString(parentID)

	return &c, nil
}

func scanCaptures(rows *sql.Rows) ([]model.Capture, error) {
	var captures []model.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		captures = append(captures, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return captures, nil
}
