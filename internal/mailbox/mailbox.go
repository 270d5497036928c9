// Package mailbox connects to remote IMAP mailboxes and streams raw
// messages for a requested date window.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hmalik/maildash/internal/model"
)

// AuthError indicates that the mail server rejected the account's
// credentials. It is fatal for the attempt and never retried
// automatically.
type AuthError struct {
	Account string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Account, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// NetworkError indicates a connection, timeout, or protocol failure.
// It is retryable: the background monitor backs off and tries again on
// its next tick.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err (or any error in its chain) is a
// NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// RawMessage is one message as retrieved from the server, before content
// resolution.
type RawMessage struct {
	// UID is the server-assigned unique identifier within the mailbox.
	UID string

	// Subject is the decoded envelope subject.
	Subject string

	// Sender is the from address in display form when available.
	Sender string

	// Recipients are the envelope to addresses.
	Recipients []string

	// ReceivedAt is the server's received date for the message.
	ReceivedAt time.Time

	// Raw is the full RFC 5322 message body.
	Raw []byte
}

// Fetch streams the messages of one fetch window. Next returns nil when
// the sequence is exhausted or aborted; Err then reports the terminal
// error, if any.
type Fetch interface {
	Next() *RawMessage
	Err() error
}

// Session is an open, authenticated connection to one mailbox. It must
// be closed on every exit path, including mid-iteration failures.
type Session interface {
	// FetchSince retrieves messages received after since using a single
	// server-side date filter. A zero since means no lower bound (used
	// only for an account's very first sync). A positive limit caps the
	// count, keeping the most recent messages.
	FetchSince(ctx context.Context, since time.Time, limit int) (Fetch, error)

	Close() error
}

// Connector opens sessions to mail servers. The password is resolved by
// the caller from the account's opaque credential reference.
type Connector interface {
	Open(ctx context.Context, acct model.Account, password string) (Session, error)
}
