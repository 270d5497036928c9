package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFetchNextTimesOut(t *testing.T) {
	f := newIMAPFetch(context.Background(), 20*time.Millisecond)

	// No collector feeds items: the wait must end with a NetworkError.
	if raw := f.Next(); raw != nil {
		t.Fatalf("expected nil on timeout, got %+v", raw)
	}
	if !IsNetworkError(f.Err()) {
		t.Errorf("expected a network error, got %v", f.Err())
	}

	// The stream stays terminated.
	if raw := f.Next(); raw != nil {
		t.Errorf("expected exhausted stream, got %+v", raw)
	}
}

func TestFetchNextStreamsUntilClosed(t *testing.T) {
	f := newIMAPFetch(context.Background(), time.Second)

	want := &RawMessage{UID: "7", Subject: "hello"}
	f.items <- want
	close(f.items)

	if got := f.Next(); got != want {
		t.Fatalf("expected queued message, got %+v", got)
	}
	if got := f.Next(); got != nil {
		t.Fatalf("expected end of stream, got %+v", got)
	}
	if f.Err() != nil {
		t.Errorf("clean stream should have no error, got %v", f.Err())
	}
}

func TestFetchNextReportsCloseError(t *testing.T) {
	f := newIMAPFetch(context.Background(), time.Second)

	f.errCh <- &NetworkError{Op: "fetch", Err: errors.New("connection reset")}
	close(f.items)

	if got := f.Next(); got != nil {
		t.Fatalf("expected end of stream, got %+v", got)
	}
	if !IsNetworkError(f.Err()) {
		t.Errorf("expected terminal network error, got %v", f.Err())
	}
}

func TestFetchNextStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newIMAPFetch(ctx, time.Second)
	cancel()

	if got := f.Next(); got != nil {
		t.Fatalf("expected nil after cancel, got %+v", got)
	}
	if !errors.Is(f.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", f.Err())
	}
}
