package db

import (
	"context"
	"database/sql"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// GetOrCreateTag returns the tag with the given name, creating it if
// missing. Race-safe per name: concurrent callers resolve through the
// UNIQUE index on tags.name.
func GetOrCreateTag(ctx context.Context, q DBTX, name string, now int64) (*model.Tag, error) {
	id, err := NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	// ON CONFLICT DO NOTHING keeps the first writer's row; the SELECT
	// below reads whichever row won.
	insert := `INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING`
	if _, err := q.ExecContext(ctx, insert, id, name, now); err != nil {
		return nil, errors.NewInternal(err)
	}

	var tag model.Tag
	err = q.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name = ?`, name).
		Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &tag, nil
}

// LinkTag attaches a tag to a capture. Linking an already-linked tag is
// a no-op, not an error.
func LinkTag(ctx context.Context, q DBTX, captureID, tagID string) error {
	query := `INSERT OR IGNORE INTO capture_tags (capture_id, tag_id) VALUES (?, ?)`
	if _, err := q.ExecContext(ctx, query, captureID, tagID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UnlinkTagsFor removes all tag links for a capture.
func UnlinkTagsFor(ctx context.Context, q DBTX, captureID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM capture_tags WHERE capture_id = ?`, captureID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// TagsForCapture returns the tags linked to a capture, by name.
func TagsForCapture(ctx context.Context, q DBTX, captureID string) ([]model.Tag, error) {
	query := `
		SELECT t.id, t.name, t.created_at
		FROM tags t
		JOIN capture_tags ct ON ct.tag_id = t.id
		WHERE ct.capture_id = ?
		ORDER BY t.name ASC
	`
	rows, err := q.QueryContext(ctx, query, captureID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return tags, nil
}

// GetTagByName retrieves a tag by its unique name.
func GetTagByName(ctx context.Context, q DBTX, name string) (*model.Tag, error) {
	var t model.Tag
	err := q.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("tag", name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &t, nil
}
