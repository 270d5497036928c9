package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/hmalik/maildash/internal/model"
	"github.com/hmalik/maildash/internal/store"
	"github.com/hmalik/maildash/tests/testutil"
)

func seedAccount(t *testing.T, s *store.SQLiteStore) model.Account {
	t.Helper()

	acct := model.Account{
		ID:            "acct-1",
		Email:         "alice@example.com",
		Host:          "imap.example.com",
		Port:          993,
		TLSMode:       model.TLSModeImplicit,
		CredentialKey: "cred-acct-1",
		Enabled:       true,
	}
	if err := s.UpsertAccount(context.Background(), acct); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
	return acct
}

func seedMessage(t *testing.T, s *store.SQLiteStore, accountID, uid string, atts []model.Attachment) model.Message {
	t.Helper()

	msg := model.Message{
		ID:            "msg-" + uid,
		AccountID:     accountID,
		UID:           uid,
		Subject:       "Subject " + uid,
		Sender:        "sender@example.com",
		Recipients:    "alice@example.com",
		ReceivedAt:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		HasAttachment: len(atts) > 0,
		BodyText:      "body",
		BodyFormat:    model.FormatText,
		SizeBytes:     4,
	}
	if err := s.InsertMessage(context.Background(), msg, atts); err != nil {
		t.Fatalf("seeding message %s: %v", uid, err)
	}
	return msg
}

func TestAccountCheckpointLifecycle(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s)

	got, err := s.GetAccountByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("getting account: %v", err)
	}
	if got.LastCheckpoint != nil {
		t.Error("new account should have no checkpoint")
	}
	if got.Email != acct.Email || got.TLSMode != model.TLSModeImplicit {
		t.Errorf("account fields did not round-trip: %+v", got)
	}

	checkpoint := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if err := s.UpdateCheckpoint(ctx, acct.ID, checkpoint); err != nil {
		t.Fatalf("updating checkpoint: %v", err)
	}

	got, err = s.GetAccountByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("getting account: %v", err)
	}
	if got.LastCheckpoint == nil || !got.LastCheckpoint.Equal(checkpoint) {
		t.Errorf("expected checkpoint %v, got %v", checkpoint, got.LastCheckpoint)
	}

	err = s.UpdateCheckpoint(ctx, "no-such-account", checkpoint)
	if !store.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestMessageDeduplicationKey(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s)

	atts := []model.Attachment{
		{ID: "att-1", Filename: "report.pdf", Size: 1024, ContentType: "application/pdf"},
	}
	msg := seedMessage(t, s, acct.ID, "101", atts)

	exists, err := s.MessageExists(ctx, acct.ID, "101")
	if err != nil {
		t.Fatalf("checking existence: %v", err)
	}
	if !exists {
		t.Error("expected message to exist")
	}

	exists, err = s.MessageExists(ctx, acct.ID, "102")
	if err != nil {
		t.Fatalf("checking existence: %v", err)
	}
	if exists {
		t.Error("unexpected message for unseen uid")
	}

	dup := msg
	dup.ID = "msg-dup"
	if err := s.InsertMessage(ctx, dup, nil); err == nil {
		t.Error("expected duplicate (account, uid) insert to fail")
	}

	got, err := s.GetMessageByUID(ctx, acct.ID, "101")
	if err != nil {
		t.Fatalf("getting message: %v", err)
	}
	if got.ID != msg.ID || !got.HasAttachment {
		t.Errorf("message did not round-trip: %+v", got)
	}

	stored, err := s.GetAttachments(ctx, msg.ID)
	if err != nil {
		t.Fatalf("getting attachments: %v", err)
	}
	if len(stored) != 1 || stored[0].Filename != "report.pdf" || stored[0].StoragePath != "" {
		t.Errorf("attachment metadata did not round-trip: %+v", stored)
	}
}

func TestGetMessagesFilter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s)

	first := seedMessage(t, s, acct.ID, "1", nil)
	seedMessage(t, s, acct.ID, "2", nil)

	if err := s.SetMessageRead(ctx, first.ID, true); err != nil {
		t.Fatalf("setting read state: %v", err)
	}

	msgs, err := s.GetMessages(ctx, store.MessageFilter{AccountID: &acct.ID, Unread: true})
	if err != nil {
		t.Fatalf("querying messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].UID != "2" {
		t.Errorf("expected one unread message with uid 2, got %+v", msgs)
	}
}

func TestActiveRuleOrdering(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	tag := model.Tag{ID: "tag-1", Name: "invoices", Color: "#ff0000"}
	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("creating tag: %v", err)
	}

	mk := func(id string, priority int, enabled bool, createdAt time.Time) model.Rule {
		return model.Rule{
			ID:        id,
			Type:      model.RuleTypeSubject,
			Operator:  model.OperatorContains,
			Value:     "invoice",
			TagID:     tag.ID,
			Enabled:   enabled,
			Priority:  priority,
			CreatedAt: createdAt,
		}
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, r := range []model.Rule{
		mk("r-late", 20, true, base),
		mk("r-early", 10, true, base.Add(time.Hour)),
		mk("r-tie-newer", 10, true, base.Add(2*time.Hour)),
		mk("r-disabled", 5, false, base),
	} {
		if err := s.CreateRule(ctx, r); err != nil {
			t.Fatalf("creating rule %s: %v", r.ID, err)
		}
	}

	active, err := s.GetActiveRules(ctx)
	if err != nil {
		t.Fatalf("getting active rules: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active rules, got %d", len(active))
	}
	want := []string{"r-early", "r-tie-newer", "r-late"}
	for i, id := range want {
		if active[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, active[i].ID)
		}
	}

	all, err := s.GetRules(ctx)
	if err != nil {
		t.Fatalf("getting all rules: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 rules total, got %d", len(all))
	}
}

func TestMessageTaggingIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s)
	msg := seedMessage(t, s, acct.ID, "1", nil)

	tag := model.Tag{ID: "tag-1", Name: "work", Color: "#00ff00"}
	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("creating tag: %v", err)
	}

	if err := s.AddMessageTag(ctx, msg.ID, tag.ID); err != nil {
		t.Fatalf("adding tag: %v", err)
	}
	if err := s.AddMessageTag(ctx, msg.ID, tag.ID); err != nil {
		t.Fatalf("re-adding tag should be a no-op: %v", err)
	}

	tags, err := s.GetMessageTags(ctx, msg.ID)
	if err != nil {
		t.Fatalf("getting message tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "work" {
		t.Errorf("expected one tag, got %+v", tags)
	}
}

func TestDeviceAttachmentTracking(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	acct := seedAccount(t, s)
	msg := seedMessage(t, s, acct.ID, "1", []model.Attachment{
		{ID: "att-1", Filename: "report.pdf", Size: 1024},
	})

	da := model.DeviceAttachment{
		ID:        "da-1",
		MessageID: msg.ID,
		Filename:  "report.pdf",
		Dir:       "/saves/invoices",
		Path:      "/saves/invoices/report.pdf",
		Size:      1024,
		SavedAt:   time.Now().UTC(),
	}
	if err := s.RecordDeviceAttachment(ctx, da); err != nil {
		t.Fatalf("recording device attachment: %v", err)
	}
	da.ID = "da-2"
	if err := s.RecordDeviceAttachment(ctx, da); err != nil {
		t.Fatalf("re-recording same path should be a no-op: %v", err)
	}

	saved, err := s.GetDeviceAttachments(ctx, msg.ID)
	if err != nil {
		t.Fatalf("getting device attachments: %v", err)
	}
	if len(saved) != 1 {
		t.Errorf("expected one device attachment, got %d", len(saved))
	}

	has, err := s.HasDeviceAttachmentIn(ctx, msg.ID, "/saves/invoices")
	if err != nil {
		t.Fatalf("checking device attachment: %v", err)
	}
	if !has {
		t.Error("expected device attachment in dir")
	}

	has, err = s.HasDeviceAttachmentIn(ctx, msg.ID, "/saves/other")
	if err != nil {
		t.Fatalf("checking device attachment: %v", err)
	}
	if has {
		t.Error("unexpected device attachment in unrelated dir")
	}

	if err := s.SetAttachmentStoragePath(ctx, "att-1", da.Path); err != nil {
		t.Fatalf("setting storage path: %v", err)
	}
	atts, err := s.GetAttachments(ctx, msg.ID)
	if err != nil {
		t.Fatalf("getting attachments: %v", err)
	}
	if len(atts) != 1 || atts[0].StoragePath != da.Path {
		t.Errorf("expected storage path recorded, got %+v", atts)
	}
}
