package db

import (
	"context"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
)

// ReplaceEntities swaps the full extracted-entity set for a capture:
// delete-all then insert-all. Entities are never incrementally patched.
func ReplaceEntities(ctx context.Context, q DBTX, captureID string, facts []model.EntityFact) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM extracted_entities WHERE capture_id = ?`, captureID); err != nil {
		return errors.NewInternal(err)
	}

	insert := `
		INSERT INTO extracted_entities (id, capture_id, entity_type, raw_value, normalized_value)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, f := range facts {
		id, err := NewID()
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := q.ExecContext(ctx, insert, id, captureID, f.EntityType, f.RawValue, f.Normalized); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// DeleteEntitiesFor removes all extracted entities for a capture.
func DeleteEntitiesFor(ctx context.Context, q DBTX, captureID string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM extracted_entities WHERE capture_id = ?`, captureID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// EntitiesForCapture returns the extracted entities of a capture.
func EntitiesForCapture(ctx context.Context, q DBTX, captureID string) ([]model.ExtractedEntity, error) {
	query := `
		SELECT id, capture_id, entity_type, raw_value, normalized_value
		FROM extracted_entities
		WHERE capture_id = ?
		ORDER BY id ASC
	`
	rows, err := q.QueryContext(ctx, query, captureID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var ents []model.ExtractedEntity
	for rows.Next() {
		var e model.ExtractedEntity
		if err := rows.Scan(&e.ID, &e.CaptureID, &e.EntityType, &e.RawValue, &e.Normalized); err != nil {
			return nil, errors.NewInternal(err)
		}
		ents = append(ents, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ents, nil
}
