package ratelimit

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, interval time.Duration, max int) (*Limiter, *time.Time, *[]time.Duration) {
	t.Helper()
	l := New(config.LimiterConfig{
		RequestInterval:        interval,
		MaxRequestsPerInterval: max,
	}, fingerprint.New(rand.New(rand.NewSource(1))), zap.NewNop())

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var slept []time.Duration
	l.SetClock(func() time.Time { return now })
	l.SetRNG(rand.New(rand.NewSource(1)))
	l.SetSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		// Advance the fake clock as a real sleep would.
		now = now.Add(d)
		return nil
	})
	return l, &now, &slept
}

func TestAcquire_AdmitsUpToCap(t *testing.T) {
	l, _, slept := newTestLimiter(t, time.Minute, 3)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx))
	}

	assert.Equal(t, 3, l.Admitted())
	assert.Empty(t, *slept, "admissions under the cap never sleep")
}

func TestAcquire_BlocksUntilWindowRolls(t *testing.T) {
	l, _, slept := newTestLimiter(t, time.Minute, 2)

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	require.NotEmpty(t, *slept)
	// The boundary wait is the interval remainder plus at most 500ms of
	// jitter in either direction.
	assert.InDelta(t, time.Minute, (*slept)[0], float64(boundaryJitter))
	// After the roll the new window has exactly one admission.
	assert.Equal(t, 1, l.Admitted())
}

func TestAcquire_WindowResetsAfterInterval(t *testing.T) {
	l, now, slept := newTestLimiter(t, time.Minute, 2)

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	*now = now.Add(61 * time.Second)
	require.NoError(t, l.Acquire(ctx))

	assert.Empty(t, *slept, "an elapsed interval admits without waiting")
	assert.Equal(t, 1, l.Admitted())
}

func TestAcquire_ContextCancellation(t *testing.T) {
	l, _, _ := newTestLimiter(t, time.Minute, 1)
	l.SetSleep(sleepContext)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Acquire(ctx))

	cancel()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquire_HardCapWithinWindow(t *testing.T) {
	// Property check: no sequence of acquires ever exceeds the cap inside
	// one interval, regardless of jitter.
	l, now, _ := newTestLimiter(t, time.Minute, 5)
	windowStart := *now

	ctx := context.Background()
	admitted := 0
	for i := 0; i < 12; i++ {
		require.NoError(t, l.Acquire(ctx))
		if now.Sub(windowStart) < time.Minute {
			admitted++
		} else {
			windowStart = *now
			admitted = 1
		}
		require.LessOrEqual(t, admitted, 5)
	}
}

func TestPacingDelay_KindShaping(t *testing.T) {
	l, _, _ := newTestLimiter(t, time.Minute, 5)

	t.Run("machine kinds pace like api calls", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			d := l.PacingDelay(fingerprint.KindFeed)
			assert.LessOrEqual(t, d, 400*time.Millisecond)
		}
	})

	t.Run("page kind paces like a page load", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			d := l.PacingDelay(fingerprint.KindPage)
			assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		}
	})
}
