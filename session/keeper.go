package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-sink-client/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DefaultRefreshInterval lands inside the backend's 5 minute access token lifetime.
const DefaultRefreshInterval = 4 * time.Minute

// Refresher is the part of the Client the Keeper drives.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Ticker abstracts time.Ticker so tests can fire ticks by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

// NewTimeTicker is the default Ticker factory.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// Keeper refreshes the session on a fixed cadence so the access token never
// expires while the application is running.
type Keeper struct {
	refresher Refresher
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	metrics   *metrics.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// KeeperOption defines a function type to modify the Keeper instance.
type KeeperOption func(*Keeper)

// WithTicker replaces the time.Ticker factory.
func WithTicker(newTicker func(time.Duration) Ticker) KeeperOption {
	return func(k *Keeper) {
		k.newTicker = newTicker
	}
}

// WithKeeperMetrics counts ticks on m.
func WithKeeperMetrics(m *metrics.Metrics) KeeperOption {
	return func(k *Keeper) {
		k.metrics = m
	}
}

// NewKeeper creates a stopped Keeper. A non-positive interval selects DefaultRefreshInterval.
func NewKeeper(refresher Refresher, interval time.Duration, options ...KeeperOption) *Keeper {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	k := &Keeper{
		refresher: refresher,
		interval:  interval,
		newTicker: NewTimeTicker,
	}
	for _, opt := range options {
		opt(k)
	}
	return k
}

// Start launches the refresh loop. Calling Start on a running Keeper does nothing.
func (k *Keeper) Start(ctx context.Context) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := k.newTicker(k.interval)
	k.cancel = cancel
	k.done = done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				// a tick racing with Stop must not refresh
				if ctx.Err() != nil {
					return
				}
				// an exchange already sent is settled before Stop returns
				k.tick(context.WithoutCancel(ctx))
			}
		}
	}()
	log.Debug().Dur("interval", k.interval).Msg("Session keeper started")
}

func (k *Keeper) tick(ctx context.Context) {
	k.metrics.KeeperTicked()
	if _, err := k.refresher.Refresh(ctx); err != nil {
		// Refresh has already ended the session.
		log.Warn().Err(err).Msg("Session keeper refresh failed")
	}
}

// Stop cancels the refresh loop and waits for it to exit. A refresh in flight
// is waited for, so any logout it causes happens before Stop returns. It is
// safe to call more than once and on a Keeper that was never started.
func (k *Keeper) Stop() {
	k.mu.Lock()
	cancel, done := k.cancel, k.done
	k.cancel, k.done = nil, nil
	k.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Debug().Msg("Session keeper stopped")
}

// Running reports whether the refresh loop is active.
func (k *Keeper) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cancel != nil
}
