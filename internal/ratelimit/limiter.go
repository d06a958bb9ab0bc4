// Package ratelimit enforces the global request budget: at most a fixed
// number of admissions per interval, with jittered waits at the window
// boundary so retries never land on a clean schedule.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"go.uber.org/zap"
)

// boundaryJitter is the half-width of the random offset applied to waits at
// the window boundary. Keeps wakeups from clustering on exact interval edges.
const boundaryJitter = 500 * time.Millisecond

// Limiter admits requests against a rolling interval window. The counter
// resets when a full interval has elapsed since the window opened.
type Limiter struct {
	interval time.Duration
	max      int
	catalog  *fingerprint.Catalog
	log      *zap.Logger

	mu          sync.Mutex
	windowStart time.Time
	count       int
	rng         *rand.Rand
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// New builds a limiter from configuration. The catalog supplies the
// kind-specific pacing delays layered on top of admission.
func New(cfg config.LimiterConfig, catalog *fingerprint.Catalog, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		interval: cfg.RequestInterval,
		max:      cfg.MaxRequestsPerInterval,
		catalog:  catalog,
		log:      logger.Named("ratelimit"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// SetClock overrides the limiter clock. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// SetSleep overrides the wait primitive. Test hook.
func (l *Limiter) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sleep = sleep
}

// SetRNG fixes the jitter source. Test hook.
func (l *Limiter) SetRNG(rng *rand.Rand) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rng = rng
}

// Acquire blocks until the request is admitted or ctx is done. When the
// current window is exhausted it waits out the remainder of the interval
// plus a +/-500ms jitter, then re-checks under a fresh window.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.interval {
			l.windowStart = now
			l.count = 0
		}
		if l.count < l.max {
			l.count++
			l.mu.Unlock()
			return nil
		}
		// Window exhausted. Sleep to just past the boundary, jittered.
		wait := l.windowStart.Add(l.interval).Sub(now)
		wait += time.Duration(l.rng.Float64()*2-1) * boundaryJitter
		if wait < 0 {
			wait = 0
		}
		sleep := l.sleep
		l.mu.Unlock()

		l.log.Debug("Request window exhausted", zap.Duration("wait", wait))
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// PacingDelay returns the human-shaped delay appropriate for the content
// kind: API-call pacing for machine-readable fetches, page-load pacing for
// document fetches.
func (l *Limiter) PacingDelay(kind fingerprint.ContentKind) time.Duration {
	if kind.IsMachineReadable() {
		return l.catalog.SampleDelay("apiCall")
	}
	return l.catalog.SampleDelay("pageLoad")
}

// Pace applies the kind-specific delay, honoring ctx cancellation.
func (l *Limiter) Pace(ctx context.Context, kind fingerprint.ContentKind) error {
	l.mu.Lock()
	sleep := l.sleep
	l.mu.Unlock()
	return sleep(ctx, l.PacingDelay(kind))
}

// Admitted reports how many requests the current window has admitted.
func (l *Limiter) Admitted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
