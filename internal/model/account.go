package model

import "time"

// TLSMode selects how the connection to the mail server is secured.
type TLSMode string

const (
	// TLSModeImplicit dials a TLS socket directly (usually port 993).
	TLSModeImplicit TLSMode = "tls"

	// TLSModeStartTLS dials plaintext and upgrades via STARTTLS.
	TLSModeStartTLS TLSMode = "starttls"
)

// Account identifies one remote mailbox endpoint owned by a user.
//
// The sync engine only reads the connection fields and reads/updates
// LastCheckpoint; account lifecycle management lives outside the engine.
type Account struct {
	// ID is the internal unique identifier for this account.
	ID string `json:"id" db:"id"`

	// Email is the mailbox address, also used as the login name.
	Email string `json:"email" db:"email"`

	// Host is the IMAP server hostname.
	Host string `json:"imap_host" db:"imap_host"`

	// Port is the IMAP server port (993 for implicit TLS by convention).
	Port int `json:"imap_port" db:"imap_port"`

	// TLSMode selects implicit TLS or STARTTLS.
	TLSMode TLSMode `json:"tls_mode" db:"tls_mode"`

	// CredentialKey is an opaque reference to the stored password,
	// resolved through the credential layer. The engine never sees
	// how the secret is stored.
	CredentialKey string `json:"credential_key" db:"credential_key"`

	// Enabled controls whether this account participates in
	// background monitoring.
	Enabled bool `json:"enabled" db:"enabled"`

	// SessionExpires is when the account's session lapses; expired
	// accounts are skipped when monitors are started. Nil means no expiry.
	SessionExpires *time.Time `json:"session_expires" db:"session_expires"`

	// LastCheckpoint is the instant through which this account has been
	// fully synchronized. Nil means the account has never completed a sync;
	// the first window then has no lower bound.
	LastCheckpoint *time.Time `json:"last_checkpoint" db:"last_checkpoint"`

	// CreatedAt is when the account row was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
