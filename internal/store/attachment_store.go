package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmalik/maildash/internal/model"
)

// GetAttachments retrieves attachment metadata rows for a message.
func (s *SQLiteStore) GetAttachments(ctx context.Context, messageID string) ([]model.Attachment, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM attachments WHERE message_id = ? ORDER BY filename",
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attachments for message %s: %w", messageID, err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var att model.Attachment
		err := rows.Scan(
			&att.ID, &att.MessageID, &att.Filename, &att.Size,
			&att.ContentType, &att.ContentID, &att.StoragePath,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		attachments = append(attachments, att)
	}

	return attachments, rows.Err()
}

// SetAttachmentStoragePath records where an attachment's bytes were
// persisted on disk.
func (s *SQLiteStore) SetAttachmentStoragePath(ctx context.Context, attachmentID, path string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE attachments SET storage_path = ? WHERE id = ?",
		path, attachmentID,
	)
	if err != nil {
		return fmt.Errorf("setting storage path for attachment %s: %w", attachmentID, err)
	}
	return nil
}

// RecordDeviceAttachment tracks a file materialized on local storage.
// Recording the same (message, path) pair twice is a no-op.
func (s *SQLiteStore) RecordDeviceAttachment(ctx context.Context, da model.DeviceAttachment) error {
	if da.ID == "" {
		da.ID = uuid.New().String()
	}
	if da.SavedAt.IsZero() {
		da.SavedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO device_attachments (
			id, message_id, filename, dir, path, size, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		da.ID, da.MessageID, da.Filename, da.Dir, da.Path, da.Size, da.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("recording device attachment %s: %w", da.Path, err)
	}

	return nil
}

// GetDeviceAttachments retrieves the files materialized on local storage
// for a message.
func (s *SQLiteStore) GetDeviceAttachments(ctx context.Context, messageID string) ([]model.DeviceAttachment, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM device_attachments WHERE message_id = ? ORDER BY saved_at",
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device attachments for message %s: %w", messageID, err)
	}
	defer rows.Close()

	var das []model.DeviceAttachment
	for rows.Next() {
		var (
			da      model.DeviceAttachment
			savedAt time.Time
		)
		err := rows.Scan(
			&da.ID, &da.MessageID, &da.Filename, &da.Dir, &da.Path,
			&da.Size, &savedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning device attachment row: %w", err)
		}
		da.SavedAt = savedAt
		das = append(das, da)
	}

	return das, rows.Err()
}

// HasDeviceAttachmentIn reports whether any file for the message has
// already been saved into dir. The orchestrator uses this to skip
// re-fetching attachment bytes for messages whose auto-save already ran.
func (s *SQLiteStore) HasDeviceAttachmentIn(ctx context.Context, messageID, dir string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM device_attachments WHERE message_id = ? AND dir = ?",
		messageID, dir,
	)
	if err != nil {
		return false, fmt.Errorf("checking device attachments for message %s: %w", messageID, err)
	}
	return count > 0, nil
}
