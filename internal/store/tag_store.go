package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/mailboard/internal/model"
)

// CreateTag inserts a new tag and returns it with its id and timestamp.
func (s *SQLiteStore) CreateTag(ctx context.Context, tag model.Tag) (model.Tag, error) {
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return model.Tag{}, fmt.Errorf("tag name must not be empty")
	}
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	tag.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO tags (id, name, color, created_at) VALUES (:id, :name, :color, :created_at)",
		tag,
	)
	if err != nil {
		return model.Tag{}, fmt.Errorf("creating tag: %w", err)
	}
	return tag, nil
}

// UpdateTag updates a tag's name and color.
func (s *SQLiteStore) UpdateTag(ctx context.Context, tag model.Tag) error {
	if strings.TrimSpace(tag.Name) == "" {
		return fmt.Errorf("tag name must not be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE tags SET name = ?, color = ? WHERE id = ?",
		strings.TrimSpace(tag.Name), tag.Color, tag.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tag %s: %w", tag.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("tag %s not found", tag.ID)
	}
	return nil
}

// DeleteTag removes a tag. CASCADE on message_tags removes associations.
func (s *SQLiteStore) DeleteTag(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting tag %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("tag %s not found", id)
	}
	return nil
}

// GetTags retrieves all tags ordered by name.
func (s *SQLiteStore) GetTags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	if err := s.db.SelectContext(ctx, &tags,
		"SELECT id, name, color, created_at FROM tags ORDER BY name"); err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	return tags, nil
}

// SetMessageTags replaces all tag associations for a message.
func (s *SQLiteStore) SetMessageTags(
	ctx context.Context,
	messageID string,
	tagIDs []string,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM message_tags WHERE message_id = ?", messageID); err != nil {
		return fmt.Errorf("clearing message tags: %w", err)
	}

	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO message_tags (message_id, tag_id) VALUES (?, ?)",
			messageID, tagID); err != nil {
			return fmt.Errorf("setting tag %s on message %s: %w", tagID, messageID, err)
		}
	}

	return tx.Commit()
}

// GetTagIndex maps message id to tag ids for the given messages. Messages
// without tags are absent from the map.
func (s *SQLiteStore) GetTagIndex(ctx context.Context, messageIDs []string) (map[string][]string, error) {
	index := make(map[string][]string)
	for _, chunk := range chunks(messageIDs, 500) {
		query, args, err := inQuery(
			"SELECT message_id, tag_id FROM message_tags WHERE message_id IN (?) ORDER BY message_id, tag_id",
			chunk,
		)
		if err != nil {
			return nil, err
		}

		var rows []struct {
			MessageID string `db:"message_id"`
			TagID     string `db:"tag_id"`
		}
		if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("querying message tags: %w", err)
		}
		for _, r := range rows {
			index[r.MessageID] = append(index[r.MessageID], r.TagID)
		}
	}
	return index, nil
}
