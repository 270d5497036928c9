package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/hmalik/maildash/internal/model"
)

// defaultOpTimeout bounds connect and search operations. Expiry is
// reported as a NetworkError, identical to any other network failure.
const defaultOpTimeout = 30 * time.Second

// IMAPConnector implements Connector using go-imap v2.
type IMAPConnector struct {
	opTimeout time.Duration
}

// NewIMAPConnector creates a connector with the default per-operation
// timeout.
func NewIMAPConnector() *IMAPConnector {
	return &IMAPConnector{opTimeout: defaultOpTimeout}
}

// Open dials the account's IMAP server, authenticates, and selects
// INBOX. A credential rejection returns an AuthError; everything else,
// including timeouts, returns a NetworkError.
func (c *IMAPConnector) Open(ctx context.Context, acct model.Account, password string) (Session, error) {
	addr := fmt.Sprintf("%s:%d", acct.Host, acct.Port)

	client, err := c.dial(ctx, addr, acct.TLSMode)
	if err != nil {
		return nil, err
	}

	if err := client.Login(acct.Email, password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{
			Account: acct.Email,
			Message: fmt.Sprintf("authentication failed: %v", err),
		}
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &NetworkError{Op: "select", Err: err}
	}

	return &imapSession{client: client, opTimeout: c.opTimeout}, nil
}

// dial connects within the per-operation timeout, honoring ctx
// cancellation while the dial is in flight.
func (c *IMAPConnector) dial(ctx context.Context, addr string, tlsMode model.TLSMode) (*imapclient.Client, error) {
	type dialResult struct {
		client *imapclient.Client
		err    error
	}

	resultCh := make(chan dialResult, 1)
	go func() {
		var client *imapclient.Client
		var err error
		if tlsMode == model.TLSModeStartTLS {
			client, err = imapclient.DialStartTLS(addr, nil)
		} else {
			client, err = imapclient.DialTLS(addr, nil)
		}
		resultCh <- dialResult{client: client, err: err}
	}()

	timer := time.NewTimer(c.opTimeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, &NetworkError{Op: "connect", Err: res.err}
		}
		return res.client, nil
	case <-timer.C:
		// The dial goroutine closes the connection whenever it
		// eventually completes.
		go func() {
			if res := <-resultCh; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, &NetworkError{Op: "connect", Err: fmt.Errorf("timeout dialing %s", addr)}
	case <-ctx.Done():
		go func() {
			if res := <-resultCh; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, &NetworkError{Op: "connect", Err: ctx.Err()}
	}
}

// imapSession wraps an authenticated client with INBOX selected.
type imapSession struct {
	client    *imapclient.Client
	opTimeout time.Duration
}

// FetchSince searches the selected mailbox with a single server-side
// SINCE criterion and streams the matching messages with their
// envelopes and full bodies. The search and every per-message wait are
// bounded by the session's per-operation timeout.
func (s *imapSession) FetchSince(ctx context.Context, since time.Time, limit int) (Fetch, error) {
	criteria := &imap.SearchCriteria{}
	if !since.IsZero() {
		criteria.Since = since
	}

	searchData, err := s.search(ctx, criteria)
	if err != nil {
		return nil, err
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		f := newIMAPFetch(ctx, s.opTimeout)
		close(f.items)
		return f, nil
	}

	// Keep the most recent messages when a cap applies.
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	cmd := s.client.Fetch(uidSet, fetchOpts)

	f := newIMAPFetch(ctx, s.opTimeout)
	go f.collect(cmd, bodySection)
	return f, nil
}

// search runs the UID search within the per-operation timeout.
func (s *imapSession) search(ctx context.Context, criteria *imap.SearchCriteria) (*imap.SearchData, error) {
	type searchResult struct {
		data *imap.SearchData
		err  error
	}

	resultCh := make(chan searchResult, 1)
	go func() {
		data, err := s.client.UIDSearch(criteria, nil).Wait()
		resultCh <- searchResult{data: data, err: err}
	}()

	timer := time.NewTimer(s.opTimeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, &NetworkError{Op: "search", Err: res.err}
		}
		return res.data, nil
	case <-timer.C:
		return nil, &NetworkError{Op: "search", Err: fmt.Errorf("timeout searching mailbox")}
	case <-ctx.Done():
		return nil, &NetworkError{Op: "search", Err: ctx.Err()}
	}
}

// Close logs out and releases the connection.
func (s *imapSession) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// imapFetch streams messages from one fetch command. A collector
// goroutine drains the command into items so each Next wait can be
// bounded by the per-operation timeout.
type imapFetch struct {
	ctx       context.Context
	opTimeout time.Duration
	items     chan *RawMessage
	errCh     chan error
	done      bool
	err       error
}

func newIMAPFetch(ctx context.Context, opTimeout time.Duration) *imapFetch {
	return &imapFetch{
		ctx:       ctx,
		opTimeout: opTimeout,
		items:     make(chan *RawMessage, 8),
		errCh:     make(chan error, 1),
	}
}

// collect drains the fetch command into items until the stream ends or
// the context is cancelled. Messages that fail to collect individually
// are skipped, not fatal; a close error is delivered through errCh.
func (f *imapFetch) collect(cmd *imapclient.FetchCommand, section *imap.FetchItemBodySection) {
	defer close(f.items)

	for {
		msg := cmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		select {
		case f.items <- rawFromBuffer(buf, section):
		case <-f.ctx.Done():
			_ = cmd.Close()
			return
		}
	}

	if err := cmd.Close(); err != nil {
		f.errCh <- &NetworkError{Op: "fetch", Err: err}
	}
}

// Next returns the next message, or nil when the stream is exhausted,
// the context is cancelled, or a protocol error occurred. A message
// that does not arrive within the per-operation timeout ends the
// stream with a NetworkError.
func (f *imapFetch) Next() *RawMessage {
	if f.done {
		return nil
	}

	timer := time.NewTimer(f.opTimeout)
	defer timer.Stop()

	select {
	case raw, ok := <-f.items:
		if !ok {
			f.done = true
			select {
			case err := <-f.errCh:
				f.err = err
			default:
			}
			return nil
		}
		return raw
	case <-f.ctx.Done():
		f.done = true
		f.err = f.ctx.Err()
		return nil
	case <-timer.C:
		f.done = true
		f.err = &NetworkError{Op: "fetch", Err: fmt.Errorf("timeout waiting for message")}
		return nil
	}
}

// Err reports the terminal error of the stream, if any.
func (f *imapFetch) Err() error {
	return f.err
}

// rawFromBuffer converts a collected fetch buffer into a RawMessage.
func rawFromBuffer(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) *RawMessage {
	raw := &RawMessage{
		UID: fmt.Sprintf("%d", uint32(buf.UID)),
	}

	if buf.Envelope != nil {
		raw.Subject = buf.Envelope.Subject
		raw.ReceivedAt = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			raw.Sender = buf.Envelope.From[0].Addr()
		}
		for _, to := range buf.Envelope.To {
			raw.Recipients = append(raw.Recipients, to.Addr())
		}
	}

	if body := buf.FindBodySection(section); body != nil {
		raw.Raw = body
	}

	return raw
}
