package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/will-iamxu/CSNews/internal/config"
	"go.uber.org/zap"
)

func testSessionsConfig() config.SessionsConfig {
	return config.SessionsConfig{
		RotationEnabled: true,
		MaxSessions:     3,
		TTL:             30 * time.Minute,
		DefaultID:       "default",
	}
}

func newTestRegistry(cfg config.SessionsConfig, extra ...Option) *Registry {
	opts := append([]Option{WithRotationDraw(func() float64 { return 1.0 })}, extra...)
	return NewRegistry(cfg, config.ProxyConfig{}, testCatalog(), nil, zap.NewNop(), opts...)
}

func TestRegistry_GetReusesExisting(t *testing.T) {
	r := newTestRegistry(testSessionsConfig())

	first := r.Get("alpha", false)
	second := r.Get("alpha", false)

	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_EmptyIDMapsToDefault(t *testing.T) {
	r := newTestRegistry(testSessionsConfig())

	s := r.Get("", false)
	assert.Equal(t, "default", s.ID())
	assert.Same(t, s, r.Get("default", false))
}

func TestRegistry_ForceNewReplacesIdentity(t *testing.T) {
	r := newTestRegistry(testSessionsConfig())

	old := r.Get("alpha", false)
	fresh := r.Get("alpha", true)

	assert.NotEqual(t, old.UID(), fresh.UID())
	assert.Equal(t, "alpha", fresh.ID())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RotationOnExhaustedIdentity(t *testing.T) {
	r := newTestRegistry(testSessionsConfig())

	old := r.Get("alpha", false)
	for i := 0; i < old.Behavior().MaxPageViews; i++ {
		old.RecordVisit("https://example.com/", nil)
	}

	// Same registry key, fresh identity underneath.
	replacement := r.Get("alpha", false)
	assert.Equal(t, "alpha", replacement.ID())
	assert.NotEqual(t, old.UID(), replacement.UID())
	assert.Equal(t, 0, replacement.VisitCount())
}

func TestRegistry_RotationDisabledKeepsExhaustedIdentity(t *testing.T) {
	cfg := testSessionsConfig()
	cfg.RotationEnabled = false
	r := newTestRegistry(cfg)

	old := r.Get("alpha", false)
	for i := 0; i < old.Behavior().MaxPageViews; i++ {
		old.RecordVisit("https://example.com/", nil)
	}

	assert.Same(t, old, r.Get("alpha", false))
}

func TestRegistry_CapacityEviction(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	r := newTestRegistry(testSessionsConfig(), WithClock(clock))
	r.SetClock(clock)

	r.Get("default", false)
	for i := 0; i < 2; i++ {
		s := r.Get(fmt.Sprintf("s%d", i), false)
		now = now.Add(time.Minute)
		s.RecordVisit("https://example.com/", nil)
	}
	require.Equal(t, 3, r.Len())

	// One over capacity: the least recently visited non-default session goes.
	r.Get("s2", false)
	assert.Equal(t, 3, r.Len())

	r.mu.Lock()
	_, s0Alive := r.sessions["s0"]
	_, s1Alive := r.sessions["s1"]
	_, s2Alive := r.sessions["s2"]
	_, defAlive := r.sessions["default"]
	r.mu.Unlock()
	assert.False(t, s0Alive)
	assert.True(t, s1Alive)
	assert.True(t, s2Alive)
	assert.True(t, defAlive)
}

func TestRegistry_GetSweepsStaleSessions(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	r := newTestRegistry(testSessionsConfig(), WithClock(clock))
	r.SetClock(clock)

	stale := r.Get("stale", false)

	// Well past the TTL, with no capacity pressure, a routine lookup under a
	// different key is enough to clear the expired identity.
	now = now.Add(31 * time.Minute)
	r.Get("fresh", false)

	require.Equal(t, 1, r.Len())
	r.mu.Lock()
	_, staleAlive := r.sessions["stale"]
	r.mu.Unlock()
	assert.False(t, staleAlive)

	// Asking for the swept key builds a new identity.
	assert.NotEqual(t, stale.UID(), r.Get("stale", false).UID())
}

func TestRegistry_SweepEvictsByTTL(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	r := newTestRegistry(testSessionsConfig(), WithClock(clock))
	r.SetClock(clock)

	// Register directly so the sweep under test is the only one that runs.
	r.Create("default")
	r.Create("old")

	now = now.Add(31 * time.Minute)
	r.Create("young")

	now = now.Add(time.Minute)
	evicted := r.Sweep()

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 2, r.Len())

	r.mu.Lock()
	_, oldAlive := r.sessions["old"]
	_, defAlive := r.sessions["default"]
	_, youngAlive := r.sessions["young"]
	r.mu.Unlock()
	assert.False(t, oldAlive)
	// The default identity outlives the TTL.
	assert.True(t, defAlive)
	assert.True(t, youngAlive)
}
