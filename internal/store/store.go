package store

import (
	"context"
	"time"

	"github.com/hmalik/maildash/internal/model"
)

// MessageFilter controls filtering, sorting, and pagination for message
// queries.
type MessageFilter struct {
	AccountID *string
	Sender    *string
	TagID     *string
	Unread    bool
	Query     *string // search subject + sender + body text
	SortBy    string  // "received_at", "subject", "sender", "created_at"
	SortDesc  bool
	Limit     int
	Offset    int
}

// Store defines the persistence interface the sync engine and its
// external surfaces consume.
type Store interface {
	// === Accounts ===

	UpsertAccount(ctx context.Context, acct model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)
	UpdateCheckpoint(ctx context.Context, accountID string, checkpoint time.Time) error

	// === Messages ===

	// MessageExists is the deduplication gate: it reports whether a
	// message with the given server UID is already stored for the account.
	MessageExists(ctx context.Context, accountID, uid string) (bool, error)
	GetMessageByUID(ctx context.Context, accountID, uid string) (*model.Message, error)

	// InsertMessage persists a message and its attachment metadata rows
	// in one transaction; an error rolls back all writes for the message.
	InsertMessage(ctx context.Context, msg model.Message, attachments []model.Attachment) error

	GetMessages(ctx context.Context, filter MessageFilter) ([]model.Message, error)
	SetMessageRead(ctx context.Context, id string, read bool) error

	// === Rules and tags ===

	CreateRule(ctx context.Context, rule model.Rule) error

	// GetActiveRules returns enabled rules ordered by priority ascending,
	// ties broken by creation order.
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
	GetRules(ctx context.Context) ([]model.Rule, error)

	CreateTag(ctx context.Context, tag model.Tag) error
	GetTags(ctx context.Context) ([]model.Tag, error)

	// AddMessageTag associates a tag with a message; adding an existing
	// association is a no-op, so tagging stays idempotent and additive.
	AddMessageTag(ctx context.Context, messageID, tagID string) error
	GetMessageTags(ctx context.Context, messageID string) ([]model.Tag, error)

	// === Attachments ===

	GetAttachments(ctx context.Context, messageID string) ([]model.Attachment, error)
	SetAttachmentStoragePath(ctx context.Context, attachmentID, path string) error

	// RecordDeviceAttachment tracks a file materialized on local storage;
	// recording the same (message, path) twice is a no-op.
	RecordDeviceAttachment(ctx context.Context, da model.DeviceAttachment) error
	GetDeviceAttachments(ctx context.Context, messageID string) ([]model.DeviceAttachment, error)

	// HasDeviceAttachmentIn reports whether any file for the message has
	// already been saved into dir.
	HasDeviceAttachmentIn(ctx context.Context, messageID, dir string) (bool, error)

	Close() error
}
