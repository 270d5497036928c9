package model

import "time"

// Body format constants for Message.BodyFormat.
const (
	FormatText  = "text"
	FormatHTML  = "html"
	FormatBoth  = "both"
	FormatEmpty = "empty"
)

// Message is one stored mail item.
//
// The pair (AccountID, UID) is unique and acts as the deduplication key.
// Content columns are written exactly once on first sighting; afterwards
// only the read flag and tag associations change.
type Message struct {
	// ID is the internal unique identifier for this message.
	ID string `json:"id" db:"id"`

	// AccountID references the owning account.
	AccountID string `json:"account_id" db:"account_id"`

	// UID is the server-assigned unique identifier, scoped to the
	// account's mailbox.
	UID string `json:"uid" db:"uid"`

	// Subject is the decoded subject line.
	Subject string `json:"subject" db:"subject"`

	// Sender is the from address (display form when available).
	Sender string `json:"sender" db:"sender"`

	// Recipients is the comma-joined list of to addresses.
	Recipients string `json:"recipients" db:"recipients"`

	// ReceivedAt is when the server received the message.
	ReceivedAt time.Time `json:"received_at" db:"received_at"`

	// Read is the local read-state flag.
	Read bool `json:"read" db:"read"`

	// HasAttachment indicates the message carried at least one
	// attachment-disposed part.
	HasAttachment bool `json:"has_attachment" db:"has_attachment"`

	// BodyText is the accumulated plain-text content.
	BodyText string `json:"body_text" db:"body_text"`

	// BodyHTML is the accumulated HTML content, empty when absent.
	BodyHTML string `json:"body_html" db:"body_html"`

	// BodyFormat is one of the Format* constants.
	BodyFormat string `json:"body_format" db:"body_format"`

	// SizeBytes is the combined size of the stored body content.
	SizeBytes int64 `json:"size_bytes" db:"size_bytes"`

	// CreatedAt is when the row was first persisted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Attachment is metadata for one attachment part of a stored message.
// StoragePath stays empty until the file is persisted to disk by
// auto-save or an explicit user action.
type Attachment struct {
	ID          string `json:"id" db:"id"`
	MessageID   string `json:"message_id" db:"message_id"`
	Filename    string `json:"filename" db:"filename"`
	Size        int64  `json:"size" db:"size"`
	ContentType string `json:"content_type" db:"content_type"`

	// ContentID is the identifier used by cid: references for inline parts.
	ContentID string `json:"content_id" db:"content_id"`

	// StoragePath is the local path once saved, empty otherwise.
	StoragePath string `json:"storage_path" db:"storage_path"`
}

// DeviceAttachment records a file actually materialized on local storage.
// It is tracked separately from Attachment so that repeated syncs can
// recognize "already saved to disk" even when the message row pre-existed.
type DeviceAttachment struct {
	ID        string    `json:"id" db:"id"`
	MessageID string    `json:"message_id" db:"message_id"`
	Filename  string    `json:"filename" db:"filename"`
	Dir       string    `json:"dir" db:"dir"`
	Path      string    `json:"path" db:"path"`
	Size      int64     `json:"size" db:"size"`
	SavedAt   time.Time `json:"saved_at" db:"saved_at"`
}
