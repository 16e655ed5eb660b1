package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/mailboard/internal/model"
)

// SaveClassifications upserts a batch of automatic classifications in one
// transaction. An existing manual row wins over any incoming record.
func (s *SQLiteStore) SaveClassifications(ctx context.Context, records []model.Classification) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO classifications (
			message_id, category, priority, redundant, redundant_of,
			confidence, rationale, manual, updated_at
		) VALUES (
			:message_id, :category, :priority, :redundant, :redundant_of,
			:confidence, :rationale, 0, :updated_at
		)
		ON CONFLICT(message_id) DO UPDATE SET
			category     = excluded.category,
			priority     = excluded.priority,
			redundant    = excluded.redundant,
			redundant_of = excluded.redundant_of,
			confidence   = excluded.confidence,
			rationale    = excluded.rationale,
			updated_at   = excluded.updated_at
		WHERE classifications.manual = 0`

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing classification upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range records {
		c.UpdatedAt = timestamp(c.UpdatedAt)
		if _, err := stmt.ExecContext(ctx, c); err != nil {
			return fmt.Errorf("saving classification for %s: %w", c.MessageID, err)
		}
	}

	return tx.Commit()
}

// SetManualClassification stores a user correction, replacing whatever
// was there.
func (s *SQLiteStore) SetManualClassification(ctx context.Context, c model.Classification) error {
	if c.MessageID == "" {
		return fmt.Errorf("classification needs a message id")
	}
	c.Manual = true
	c.UpdatedAt = timestamp(c.UpdatedAt)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO classifications (
			message_id, category, priority, redundant, redundant_of,
			confidence, rationale, manual, updated_at
		) VALUES (
			:message_id, :category, :priority, :redundant, :redundant_of,
			:confidence, :rationale, 1, :updated_at
		)`, c)
	if err != nil {
		return fmt.Errorf("saving manual classification for %s: %w", c.MessageID, err)
	}
	return nil
}

// GetClassifications returns stored records for the given ids, in no
// particular order. Ids without a record are skipped.
func (s *SQLiteStore) GetClassifications(ctx context.Context, messageIDs []string) ([]model.Classification, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var out []model.Classification
	for _, chunk := range chunks(messageIDs, 500) {
		query, args, err := inQuery("SELECT * FROM classifications WHERE message_id IN (?)", chunk)
		if err != nil {
			return nil, err
		}

		var rows []model.Classification
		if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("querying classifications: %w", err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
