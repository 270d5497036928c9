package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	imap_host       TEXT NOT NULL,
	imap_port       INTEGER NOT NULL DEFAULT 993,
	tls_mode        TEXT NOT NULL DEFAULT 'tls' CHECK(tls_mode IN ('tls', 'starttls')),
	credential_key  TEXT NOT NULL,
	enabled         INTEGER NOT NULL DEFAULT 1 CHECK(enabled IN (0, 1)),
	session_expires DATETIME,
	last_checkpoint DATETIME,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id             TEXT PRIMARY KEY,
	account_id     TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	uid            TEXT NOT NULL,
	subject        TEXT NOT NULL DEFAULT '',
	sender         TEXT NOT NULL DEFAULT '',
	recipients     TEXT NOT NULL DEFAULT '',
	received_at    DATETIME NOT NULL,
	read           INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	has_attachment INTEGER NOT NULL DEFAULT 0 CHECK(has_attachment IN (0, 1)),
	body_text      TEXT NOT NULL DEFAULT '',
	body_html      TEXT NOT NULL DEFAULT '',
	body_format    TEXT NOT NULL DEFAULT 'empty'
		CHECK(body_format IN ('text', 'html', 'both', 'empty')),
	size_bytes     INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(account_id, uid)
);

CREATE TABLE IF NOT EXISTS attachments (
	id           TEXT PRIMARY KEY,
	message_id   TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	filename     TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	content_id   TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS device_attachments (
	id         TEXT PRIMARY KEY,
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	filename   TEXT NOT NULL,
	dir        TEXT NOT NULL,
	path       TEXT NOT NULL,
	size       INTEGER NOT NULL DEFAULT 0,
	saved_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(message_id, path)
);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	color      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS message_tags (
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (message_id, tag_id)
);

CREATE TABLE IF NOT EXISTS rules (
	id               TEXT PRIMARY KEY,
	rule_type        TEXT NOT NULL CHECK(rule_type IN ('sender', 'subject', 'body', 'domain')),
	operator         TEXT NOT NULL DEFAULT 'contains'
		CHECK(operator IN ('contains', 'equals', 'starts_with', 'ends_with', 'regex')),
	value            TEXT NOT NULL,
	tag_id           TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	enabled          INTEGER NOT NULL DEFAULT 1 CHECK(enabled IN (0, 1)),
	priority         INTEGER NOT NULL DEFAULT 0,
	save_attachments INTEGER NOT NULL DEFAULT 0 CHECK(save_attachments IN (0, 1)),
	attachment_path  TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_account_uid ON messages(account_id, uid);
CREATE INDEX IF NOT EXISTS idx_messages_received_at ON messages(received_at);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
CREATE INDEX IF NOT EXISTS idx_attachments_message_id ON attachments(message_id);
CREATE INDEX IF NOT EXISTS idx_device_attachments_message_id ON device_attachments(message_id);
CREATE INDEX IF NOT EXISTS idx_rules_enabled ON rules(enabled);
CREATE INDEX IF NOT EXISTS idx_rules_priority ON rules(priority);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
