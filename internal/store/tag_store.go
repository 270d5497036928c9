package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hmalik/maildash/internal/model"
)

// CreateTag inserts a new tag.
// If the tag has no ID, a new UUID is generated.
func (s *SQLiteStore) CreateTag(ctx context.Context, tag model.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tags (id, name, color, created_at) VALUES (?, ?, ?, ?)",
		tag.ID, tag.Name, tag.Color, tag.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating tag %s: %w", tag.Name, err)
	}

	return nil
}

// GetTags retrieves all tags ordered by name.
func (s *SQLiteStore) GetTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

// AddMessageTag associates a tag with a message. Adding an association
// that already exists is a no-op, which keeps rule-driven tagging
// idempotent and additive-only.
func (s *SQLiteStore) AddMessageTag(ctx context.Context, messageID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO message_tags (message_id, tag_id) VALUES (?, ?)",
		messageID, tagID,
	)
	if err != nil {
		return fmt.Errorf("tagging message %s with %s: %w", messageID, tagID, err)
	}
	return nil
}

// GetMessageTags retrieves the tags associated with a message,
// ordered by name.
func (s *SQLiteStore) GetMessageTags(ctx context.Context, messageID string) ([]model.Tag, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT t.* FROM tags t
		JOIN message_tags mt ON mt.tag_id = t.id
		WHERE mt.message_id = ?
		ORDER BY t.name`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying tags for message %s: %w", messageID, err)
	}
	defer rows.Close()

	return collectTags(rows)
}

// collectTags scans all rows into a tag slice.
func collectTags(rows *sqlx.Rows) ([]model.Tag, error) {
	var tags []model.Tag
	for rows.Next() {
		var (
			tag       model.Tag
			createdAt time.Time
		)
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tag.CreatedAt = createdAt
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
