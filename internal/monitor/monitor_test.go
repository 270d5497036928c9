package monitor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmalik/maildash/internal/mailbox"
	"github.com/hmalik/maildash/internal/model"
	"github.com/hmalik/maildash/internal/monitor"
	"github.com/hmalik/maildash/internal/store"
	"github.com/hmalik/maildash/internal/syncer"
	"github.com/hmalik/maildash/tests/testutil"
)

type emptyFetch struct{}

func (emptyFetch) Next() *mailbox.RawMessage { return nil }
func (emptyFetch) Err() error                { return nil }

type countingSession struct{}

func (countingSession) FetchSince(ctx context.Context, since time.Time, limit int) (mailbox.Fetch, error) {
	return emptyFetch{}, nil
}

func (countingSession) Close() error { return nil }

type countingConnector struct {
	opens   atomic.Int64
	openErr error
}

func (c *countingConnector) Open(ctx context.Context, acct model.Account, password string) (mailbox.Session, error) {
	c.opens.Add(1)
	if c.openErr != nil {
		return nil, c.openErr
	}
	return countingSession{}, nil
}

type fixedCreds struct{}

func (fixedCreds) Resolve(key string) (string, error) { return "secret", nil }

func seedAccount(t *testing.T, s *store.SQLiteStore) model.Account {
	t.Helper()
	acct := model.Account{
		ID:            "acct-1",
		Email:         "alice@example.com",
		Host:          "imap.example.com",
		Port:          993,
		TLSMode:       model.TLSModeImplicit,
		CredentialKey: "cred-1",
		Enabled:       true,
	}
	if err := s.UpsertAccount(context.Background(), acct); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
	return acct
}

func TestMonitorTicksAndStops(t *testing.T) {
	s := testutil.NewTestStore(t)
	acct := seedAccount(t, s)

	conn := &countingConnector{}
	engine := syncer.New(s, conn, fixedCreds{}, zerolog.Nop())
	mon := monitor.New(engine, 25*time.Millisecond, model.SyncConfig{}, zerolog.Nop())

	mon.Start(acct.ID)
	mon.Start(acct.ID) // idempotent
	if !mon.Running(acct.ID) {
		t.Fatal("expected account to be monitored")
	}

	deadline := time.Now().Add(2 * time.Second)
	for conn.opens.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if conn.opens.Load() < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", conn.opens.Load())
	}

	got, err := s.GetAccountByID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("getting account: %v", err)
	}
	if got.LastCheckpoint == nil {
		t.Error("ticks should advance the checkpoint")
	}

	mon.Stop(acct.ID)
	if mon.Running(acct.ID) {
		t.Error("expected account to be unmonitored after stop")
	}

	// No further ticks after stop.
	settled := conn.opens.Load()
	time.Sleep(100 * time.Millisecond)
	if conn.opens.Load() != settled {
		t.Errorf("loop kept ticking after stop: %d -> %d", settled, conn.opens.Load())
	}
}

// blockingConnector parks Open until released, signalling entry first.
type blockingConnector struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingConnector) Open(ctx context.Context, acct model.Account, password string) (mailbox.Session, error) {
	c.entered <- struct{}{}
	<-c.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return countingSession{}, nil
}

func TestMonitorStopWaitsForInFlightTick(t *testing.T) {
	s := testutil.NewTestStore(t)
	acct := seedAccount(t, s)

	conn := &blockingConnector{entered: make(chan struct{}), release: make(chan struct{})}
	engine := syncer.New(s, conn, fixedCreds{}, zerolog.Nop())
	mon := monitor.New(engine, 10*time.Millisecond, model.SyncConfig{}, zerolog.Nop())

	mon.Start(acct.ID)
	select {
	case <-conn.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first tick never started")
	}

	stopped := make(chan struct{})
	go func() {
		mon.Stop(acct.ID)
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(conn.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the tick finished")
	}
}

func TestMonitorFailedTickKeepsLoopAlive(t *testing.T) {
	s := testutil.NewTestStore(t)
	acct := seedAccount(t, s)

	conn := &countingConnector{openErr: &mailbox.NetworkError{Op: "dial", Err: errors.New("refused")}}
	engine := syncer.New(s, conn, fixedCreds{}, zerolog.Nop())
	mon := monitor.New(engine, 25*time.Millisecond, model.SyncConfig{}, zerolog.Nop())

	mon.Start(acct.ID)

	deadline := time.Now().Add(2 * time.Second)
	for conn.opens.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if conn.opens.Load() < 1 {
		t.Fatal("expected at least one failed tick")
	}

	// The loop survives the failure and stops cleanly from its backoff.
	if !mon.Running(acct.ID) {
		t.Error("loop terminated on a failed tick")
	}

	done := make(chan struct{})
	go func() {
		mon.StopAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopAll did not return promptly")
	}
}
