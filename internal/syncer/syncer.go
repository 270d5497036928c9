// Package syncer orchestrates one sync run per account: fetch, resolve,
// dedup, tag, auto-save, checkpoint.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hmalik/maildash/internal/content"
	"github.com/hmalik/maildash/internal/credential"
	"github.com/hmalik/maildash/internal/mailbox"
	"github.com/hmalik/maildash/internal/model"
	"github.com/hmalik/maildash/internal/rules"
	"github.com/hmalik/maildash/internal/saver"
	"github.com/hmalik/maildash/internal/store"
)

// Phase identifies where a sync run currently is.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseConnecting    Phase = "connecting"
	PhaseFetching      Phase = "fetching"
	PhaseResolving     Phase = "resolving"
	PhaseTagging       Phase = "tagging"
	PhaseSaving        Phase = "saving"
	PhaseCheckpointing Phase = "checkpointing"
	PhaseDone          Phase = "done"
	PhaseCancelled     Phase = "cancelled"
	PhaseFailed        Phase = "failed"
)

// ErrSyncInFlight is returned when a sync for the same account is
// already running. Callers skip, they do not queue.
var ErrSyncInFlight = errors.New("sync already in flight for this account")

// Progress is one progress event emitted during a run.
type Progress struct {
	Phase          Phase
	Processed      int
	CurrentSubject string
}

// MessageError records a failure isolated to one message. The rest of
// the window continues.
type MessageError struct {
	UID   string
	Stage string
	Err   error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("message %s (%s): %v", e.UID, e.Stage, e.Err)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// Result summarizes a completed (or aborted) sync run.
type Result struct {
	// NewCount is the number of messages stored for the first time.
	NewCount int

	// TaggedCount is the number of messages at least one rule matched.
	TaggedCount int

	// SavedCount is the number of attachment files actually written.
	SavedCount int

	// Errors holds the per-message and per-rule failures that did not
	// abort the window.
	Errors []error
}

// Options controls one sync invocation.
type Options struct {
	// Since overrides the window start. Zero means checkpoint-driven:
	// the account's last checkpoint, or no lower bound when the account
	// has never synced.
	Since time.Time

	// Limit caps the number of messages fetched, keeping the most
	// recent. Zero means no cap.
	Limit int

	// BatchSize gates per-message progress events: one event every
	// BatchSize messages. Zero or one reports every message.
	BatchSize int

	// OnProgress, when set, receives progress events.
	OnProgress func(Progress)
}

// Engine runs syncs. It is safe for concurrent use; overlapping runs
// for the same account are rejected with ErrSyncInFlight.
type Engine struct {
	store     store.Store
	connector mailbox.Connector
	creds     credential.Resolver
	log       zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// New returns an Engine wired to its persistence, transport, and
// credential dependencies.
func New(st store.Store, conn mailbox.Connector, creds credential.Resolver, logger zerolog.Logger) *Engine {
	return &Engine{
		store:     st,
		connector: conn,
		creds:     creds,
		log:       logger.With().Str("component", "syncer").Logger(),
		inFlight:  make(map[string]bool),
	}
}

// Sync runs one full sync for the account. The returned Result is
// non-nil whenever the run started, so partial counts survive an abort.
//
// The checkpoint advances to the window end captured before fetching,
// and only when the run completes without cancellation or a fatal
// error.
func (e *Engine) Sync(ctx context.Context, accountID string, opts Options) (*Result, error) {
	if err := e.acquire(accountID); err != nil {
		return nil, err
	}
	defer e.release(accountID)

	res := &Result{}
	log := e.log.With().Str("account_id", accountID).Logger()

	acct, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return res, fmt.Errorf("loading account: %w", err)
	}

	since := opts.Since
	if since.IsZero() && acct.LastCheckpoint != nil {
		since = *acct.LastCheckpoint
	}
	windowEnd := time.Now()

	log.Info().Time("window_start", since).Time("window_end", windowEnd).Msg("sync started")

	e.emit(opts, Progress{Phase: PhaseConnecting})
	password, err := e.creds.Resolve(acct.CredentialKey)
	if err != nil {
		e.emit(opts, Progress{Phase: PhaseFailed})
		return res, fmt.Errorf("resolving credentials: %w", err)
	}

	session, err := e.connector.Open(ctx, *acct, password)
	if err != nil {
		e.emit(opts, Progress{Phase: PhaseFailed})
		return res, err
	}
	defer session.Close()

	ruleSet, err := e.store.GetActiveRules(ctx)
	if err != nil {
		e.emit(opts, Progress{Phase: PhaseFailed})
		return res, fmt.Errorf("loading rules: %w", err)
	}

	e.emit(opts, Progress{Phase: PhaseFetching})
	fetch, err := session.FetchSince(ctx, since, opts.Limit)
	if err != nil {
		e.emit(opts, Progress{Phase: PhaseFailed})
		return res, err
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = 1
	}

	processed := 0
	for raw := fetch.Next(); raw != nil; raw = fetch.Next() {
		if err := ctx.Err(); err != nil {
			e.emit(opts, Progress{Phase: PhaseCancelled, Processed: processed})
			log.Info().Int("processed", processed).Msg("sync cancelled")
			return res, err
		}

		report := processed%batch == 0
		e.processMessage(ctx, acct, raw, ruleSet, opts, res, report, processed, log)
		processed++
	}
	if err := ctx.Err(); err != nil {
		e.emit(opts, Progress{Phase: PhaseCancelled, Processed: processed})
		log.Info().Int("processed", processed).Msg("sync cancelled")
		return res, err
	}
	if err := fetch.Err(); err != nil {
		e.emit(opts, Progress{Phase: PhaseFailed, Processed: processed})
		return res, err
	}

	e.emit(opts, Progress{Phase: PhaseCheckpointing, Processed: processed})
	if err := e.store.UpdateCheckpoint(ctx, accountID, windowEnd); err != nil {
		e.emit(opts, Progress{Phase: PhaseFailed, Processed: processed})
		return res, fmt.Errorf("advancing checkpoint: %w", err)
	}

	e.emit(opts, Progress{Phase: PhaseDone, Processed: processed})
	log.Info().
		Int("processed", processed).
		Int("new", res.NewCount).
		Int("tagged", res.TaggedCount).
		Int("saved", res.SavedCount).
		Int("errors", len(res.Errors)).
		Msg("sync completed")

	return res, nil
}

// processMessage runs one message through resolution, the dedup gate,
// rule tagging, and auto-save. All failures are recorded on res; none
// abort the window.
func (e *Engine) processMessage(ctx context.Context, acct *model.Account, raw *mailbox.RawMessage, ruleSet []model.Rule, opts Options, res *Result, report bool, processed int, log zerolog.Logger) {
	// Cancellation takes effect between messages only. Once a message
	// starts, its tag and save writes run to completion so no message
	// is ever left partially tagged.
	ctx = context.WithoutCancel(ctx)

	if report {
		e.emit(opts, Progress{Phase: PhaseResolving, Processed: processed, CurrentSubject: raw.Subject})
	}

	exists, err := e.store.MessageExists(ctx, acct.ID, raw.UID)
	if err != nil {
		e.record(res, raw.UID, "dedup", err, log)
		return
	}

	normalized, parseErr := content.Resolve(raw.Raw)
	if parseErr != nil {
		e.record(res, raw.UID, "parse", parseErr, log)
	}

	var (
		msg     *model.Message
		attRows []model.Attachment
	)
	if exists {
		msg, err = e.store.GetMessageByUID(ctx, acct.ID, raw.UID)
		if err != nil {
			e.record(res, raw.UID, "store", err, log)
			return
		}
		attRows, err = e.store.GetAttachments(ctx, msg.ID)
		if err != nil {
			e.record(res, raw.UID, "store", err, log)
		}
	} else {
		m := model.Message{
			ID:            uuid.NewString(),
			AccountID:     acct.ID,
			UID:           raw.UID,
			Subject:       raw.Subject,
			Sender:        raw.Sender,
			Recipients:    strings.Join(raw.Recipients, ", "),
			ReceivedAt:    raw.ReceivedAt,
			HasAttachment: normalized.HasAttachments(),
			BodyText:      normalized.Text,
			BodyHTML:      content.MaterializeInline(normalized.HTML, normalized.InlineImages),
			BodyFormat:    normalized.Format,
			SizeBytes:     normalized.SizeBytes(),
			CreatedAt:     time.Now(),
		}
		for i, part := range normalized.Attachments {
			name := part.Filename
			if name == "" {
				name = saver.FallbackFilename(i)
			}
			attRows = append(attRows, model.Attachment{
				ID:          uuid.NewString(),
				MessageID:   m.ID,
				Filename:    name,
				Size:        part.Size,
				ContentType: part.ContentType,
				ContentID:   part.ContentID,
			})
		}
		if err := e.store.InsertMessage(ctx, m, attRows); err != nil {
			e.record(res, raw.UID, "store", err, log)
			return
		}
		res.NewCount++
		msg = &m
	}

	if report {
		e.emit(opts, Progress{Phase: PhaseTagging, Processed: processed, CurrentSubject: raw.Subject})
	}

	// Rules re-apply to existing messages too; tagging is additive and
	// idempotent, so an overlapping window never duplicates tags.
	outcome := rules.Evaluate(ruleSet, rules.Input{
		Sender:  raw.Sender,
		Subject: raw.Subject,
		Body:    normalized.BodyForMatching(),
	})
	for _, re := range outcome.RuleErrors {
		e.record(res, raw.UID, "rule", re, log)
	}

	tagged := false
	for _, tagID := range outcome.TagIDs {
		if err := e.store.AddMessageTag(ctx, msg.ID, tagID); err != nil {
			e.record(res, raw.UID, "tag", err, log)
			continue
		}
		tagged = true
	}
	if tagged {
		res.TaggedCount++
	}

	if outcome.SaveDir == "" || !normalized.HasAttachments() {
		return
	}

	if report {
		e.emit(opts, Progress{Phase: PhaseSaving, Processed: processed, CurrentSubject: raw.Subject})
	}
	e.saveAttachments(ctx, msg, attRows, normalized.Attachments, outcome.SaveDir, res, log)
}

// saveAttachments writes the message's attachment parts into dir,
// unless a prior run already saved this message there.
func (e *Engine) saveAttachments(ctx context.Context, msg *model.Message, attRows []model.Attachment, parts []content.AttachmentPart, dir string, res *Result, log zerolog.Logger) {
	has, err := e.store.HasDeviceAttachmentIn(ctx, msg.ID, dir)
	if err != nil {
		e.record(res, msg.UID, "save", err, log)
		return
	}
	if has {
		return
	}

	for i, part := range parts {
		name := part.Filename
		if name == "" {
			name = saver.FallbackFilename(i)
		}

		path, saved, err := saver.Save(part.Data, name, dir)
		if err != nil {
			e.record(res, msg.UID, "save", err, log)
			continue
		}
		if saved {
			res.SavedCount++
		}

		da := model.DeviceAttachment{
			ID:        uuid.NewString(),
			MessageID: msg.ID,
			Filename:  filepath.Base(path),
			Dir:       dir,
			Path:      path,
			Size:      part.Size,
			SavedAt:   time.Now(),
		}
		if err := e.store.RecordDeviceAttachment(ctx, da); err != nil {
			e.record(res, msg.UID, "save", err, log)
			continue
		}

		if row := matchAttachmentRow(attRows, name, part.Size); row != nil && row.StoragePath == "" {
			if err := e.store.SetAttachmentStoragePath(ctx, row.ID, path); err != nil {
				e.record(res, msg.UID, "save", err, log)
			}
		}
	}
}

// matchAttachmentRow finds the stored metadata row for a resolved part.
func matchAttachmentRow(rows []model.Attachment, filename string, size int64) *model.Attachment {
	for i := range rows {
		if rows[i].Filename == filename && rows[i].Size == size {
			return &rows[i]
		}
	}
	return nil
}

func (e *Engine) record(res *Result, uid, stage string, err error, log zerolog.Logger) {
	merr := &MessageError{UID: uid, Stage: stage, Err: err}
	res.Errors = append(res.Errors, merr)
	log.Warn().Str("uid", uid).Str("stage", stage).Err(err).Msg("message error")
}

func (e *Engine) emit(opts Options, p Progress) {
	if opts.OnProgress != nil {
		opts.OnProgress(p)
	}
}

func (e *Engine) acquire(accountID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[accountID] {
		return ErrSyncInFlight
	}
	e.inFlight[accountID] = true
	return nil
}

func (e *Engine) release(accountID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, accountID)
}
