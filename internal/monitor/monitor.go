// Package monitor runs periodic background syncs, one loop per account.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmalik/maildash/internal/model"
	"github.com/hmalik/maildash/internal/syncer"
)

// errorBackoff is how long a loop pauses after a failed tick before
// resuming its normal interval.
const errorBackoff = time.Minute

// Monitor owns the per-account sync loops. Start and Stop may be called
// from any goroutine.
type Monitor struct {
	engine   *syncer.Engine
	interval time.Duration
	sync     model.SyncConfig
	log      zerolog.Logger

	mu    sync.Mutex
	loops map[string]*loopHandle
	wg    sync.WaitGroup
}

// loopHandle tracks one running account loop: stop requests termination,
// done is closed when the loop has actually exited.
type loopHandle struct {
	stop chan struct{}
	done chan struct{}
}

// New returns a Monitor ticking at the given interval. Config loading
// enforces the minimum interval bound before it reaches here.
func New(engine *syncer.Engine, interval time.Duration, syncCfg model.SyncConfig, logger zerolog.Logger) *Monitor {
	return &Monitor{
		engine:   engine,
		interval: interval,
		sync:     syncCfg,
		log:      logger.With().Str("component", "monitor").Logger(),
		loops:    make(map[string]*loopHandle),
	}
}

// Start launches the loop for an account. Starting an already-monitored
// account is a no-op: there is at most one loop per account.
func (m *Monitor) Start(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.loops[accountID]; running {
		return
	}

	h := &loopHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	m.loops[accountID] = h

	m.wg.Add(1)
	go m.loop(accountID, h)

	m.log.Info().Str("account_id", accountID).Dur("interval", m.interval).Msg("monitoring started")
}

// Stop terminates the loop for an account and waits until it has
// exited, so a Start immediately after never races a lingering loop.
// Stopping an unmonitored account is a no-op.
func (m *Monitor) Stop(accountID string) {
	m.mu.Lock()
	h, running := m.loops[accountID]
	if running {
		close(h.stop)
		delete(m.loops, accountID)
	}
	m.mu.Unlock()

	if running {
		<-h.done
		m.log.Info().Str("account_id", accountID).Msg("monitoring stopped")
	}
}

// StopAll terminates every loop and blocks until all have exited.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	for id, h := range m.loops {
		close(h.stop)
		delete(m.loops, id)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Running reports whether the account currently has a loop.
func (m *Monitor) Running(accountID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, running := m.loops[accountID]
	return running
}

// loop ticks until stopped. A failed tick logs, backs off, and resumes;
// it never terminates the loop. An in-flight sync for the account is a
// silent skip.
func (m *Monitor) loop(accountID string, h *loopHandle) {
	defer m.wg.Done()
	defer close(h.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-h.stop
		cancel()
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log := m.log.With().Str("account_id", accountID).Logger()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			_, err := m.engine.Sync(ctx, accountID, syncer.Options{
				Limit:     m.sync.FetchLimit,
				BatchSize: m.sync.BatchSize,
			})
			switch {
			case err == nil:
			case errors.Is(err, syncer.ErrSyncInFlight):
				// Previous tick still running.
			case errors.Is(err, context.Canceled):
				return
			default:
				log.Warn().Err(err).Dur("backoff", errorBackoff).Msg("sync tick failed")
				select {
				case <-h.stop:
					return
				case <-time.After(errorBackoff):
				}
			}
		}
	}
}
