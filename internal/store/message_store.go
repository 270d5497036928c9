package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hmalik/maildash/internal/model"
)

// MessageExists reports whether a message with the given server UID is
// already stored for the account. This is the deduplication gate checked
// before any insert.
func (s *SQLiteStore) MessageExists(ctx context.Context, accountID, uid string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM messages WHERE account_id = ? AND uid = ?",
		accountID, uid,
	)
	if err != nil {
		return false, fmt.Errorf("checking message %s for account %s: %w", uid, accountID, err)
	}
	return count > 0, nil
}

// GetMessageByUID retrieves a message by its deduplication key.
func (s *SQLiteStore) GetMessageByUID(ctx context.Context, accountID, uid string) (*model.Message, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM messages WHERE account_id = ? AND uid = ?",
		accountID, uid,
	)
	if err != nil {
		return nil, fmt.Errorf("querying message %s: %w", uid, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying message %s: %w", uid, err)
		}
		return nil, fmt.Errorf("getting message %s: %w", uid, sql.ErrNoRows)
	}

	msg, err := scanMessage(rows)
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

// InsertMessage persists a message and its attachment metadata rows in a
// single transaction. If any write fails, the whole message is rolled
// back so a partial record never becomes visible.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg model.Message, attachments []model.Attachment) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (
			id, account_id, uid, subject, sender, recipients,
			received_at, read, has_attachment,
			body_text, body_html, body_format, size_bytes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.AccountID, msg.UID, msg.Subject, msg.Sender, msg.Recipients,
		msg.ReceivedAt.UTC(), boolToInt(msg.Read), boolToInt(msg.HasAttachment),
		msg.BodyText, msg.BodyHTML, msg.BodyFormat, msg.SizeBytes, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting message %s: %w", msg.UID, err)
	}

	for _, att := range attachments {
		if att.ID == "" {
			att.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attachments (
				id, message_id, filename, size, content_type, content_id, storage_path
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			att.ID, msg.ID, att.Filename, att.Size, att.ContentType,
			att.ContentID, att.StoragePath,
		)
		if err != nil {
			return fmt.Errorf("inserting attachment %s for message %s: %w", att.Filename, msg.UID, err)
		}
	}

	return tx.Commit()
}

// GetMessages retrieves messages matching the provided filter options.
func (s *SQLiteStore) GetMessages(ctx context.Context, filter MessageFilter) ([]model.Message, error) {
	var conditions []string
	var args []interface{}

	if filter.AccountID != nil {
		conditions = append(conditions, "account_id = ?")
		args = append(args, *filter.AccountID)
	}
	if filter.Sender != nil {
		conditions = append(conditions, "sender LIKE ?")
		args = append(args, "%"+*filter.Sender+"%")
	}
	if filter.TagID != nil {
		conditions = append(conditions, "id IN (SELECT message_id FROM message_tags WHERE tag_id = ?)")
		args = append(args, *filter.TagID)
	}
	if filter.Unread {
		conditions = append(conditions, "read = 0")
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(subject LIKE ? OR sender LIKE ? OR body_text LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q, q)
	}

	query := "SELECT * FROM messages"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Determine sort column.
	sortBy := "received_at"
	if filter.SortBy != "" {
		allowedSorts := map[string]bool{
			"received_at": true,
			"subject":     true,
			"sender":      true,
			"created_at":  true,
		}
		if allowedSorts[filter.SortBy] {
			sortBy = filter.SortBy
		}
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// SetMessageRead updates the local read-state flag for a message.
func (s *SQLiteStore) SetMessageRead(ctx context.Context, id string, read bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE messages SET read = ? WHERE id = ?",
		boolToInt(read), id,
	)
	if err != nil {
		return fmt.Errorf("setting read state for message %s: %w", id, err)
	}
	return nil
}

// scanMessage scans a message row from a sqlx.Rows result set.
func scanMessage(rows *sqlx.Rows) (model.Message, error) {
	var (
		msg           model.Message
		read          int
		hasAttachment int
		receivedAt    time.Time
		createdAt     time.Time
	)

	err := rows.Scan(
		&msg.ID, &msg.AccountID, &msg.UID, &msg.Subject, &msg.Sender,
		&msg.Recipients, &receivedAt, &read, &hasAttachment,
		&msg.BodyText, &msg.BodyHTML, &msg.BodyFormat, &msg.SizeBytes,
		&createdAt,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("scanning message row: %w", err)
	}

	msg.Read = read != 0
	msg.HasAttachment = hasAttachment != 0
	msg.ReceivedAt = receivedAt
	msg.CreatedAt = createdAt

	return msg, nil
}
