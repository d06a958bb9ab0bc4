package fetch

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"github.com/will-iamxu/CSNews/internal/ratelimit"
	"github.com/will-iamxu/CSNews/internal/session"
	"go.uber.org/zap"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *session.Registry) {
	t.Helper()
	catalog := fingerprint.New(rand.New(rand.NewSource(3)))

	limiter := ratelimit.New(config.LimiterConfig{
		RequestInterval:        time.Minute,
		MaxRequestsPerInterval: 1000,
	}, catalog, zap.NewNop())
	limiter.SetSleep(func(context.Context, time.Duration) error { return nil })

	registry := session.NewRegistry(config.SessionsConfig{
		RotationEnabled: true,
		MaxSessions:     5,
		TTL:             30 * time.Minute,
		DefaultID:       "default",
	}, config.ProxyConfig{}, catalog, nil, zap.NewNop(),
		session.WithRotationDraw(func() float64 { return 1.0 }))

	o := New(config.NetworkConfig{Timeout: 5 * time.Second}, limiter, registry, catalog, zap.NewNop())
	o.SetSleep(func(context.Context, time.Duration) error { return nil })
	return o, registry
}

func TestFetch_SessionPath(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		http.SetCookie(w, &http.Cookie{Name: "visited", Value: "yes", Path: "/"})
		_, _ = w.Write([]byte("<html>news</html>"))
	}))
	defer srv.Close()

	o, registry := newTestOrchestrator(t)
	res, err := o.Fetch(context.Background(), Request{URL: srv.URL + "/news", Kind: fingerprint.KindPage})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "<html>news</html>", string(res.Body))

	// A session identity presents browser headers.
	assert.NotEmpty(t, gotHeaders.Get("User-Agent"))
	assert.Equal(t, "1", gotHeaders.Get("Upgrade-Insecure-Requests"))

	// The visit lands in the session state and the shared mirror.
	sess := registry.Get("default", false)
	assert.Equal(t, 1, sess.VisitCount())
	assert.Equal(t, 1, sess.Cookies().Count())
	assert.Equal(t, 1, o.SharedCookies().Count())
}

func TestFetch_SessionActionDelayApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	o, _ := newTestOrchestrator(t)
	var delays []time.Duration
	o.SetSleep(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	})

	ctx := context.Background()
	_, err := o.Fetch(ctx, Request{URL: srv.URL + "/news", Kind: fingerprint.KindPage})
	require.NoError(t, err)

	// One per-action delay per session fetch, drawn within the click bounds.
	require.Len(t, delays, 1)
	assert.GreaterOrEqual(t, delays[0], 120*time.Millisecond)
	assert.LessOrEqual(t, delays[0], 650*time.Millisecond)

	// The crawler path paces through the limiter only.
	_, err = o.Fetch(ctx, Request{URL: srv.URL + "/rss", Kind: fingerprint.KindFeed})
	require.NoError(t, err)
	assert.Len(t, delays, 1)
}

func TestFetch_CookiesRoundTrip(t *testing.T) {
	var cookieHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookieHeader = r.Header.Get("Cookie")
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := o.Fetch(ctx, Request{URL: srv.URL + "/a", Kind: fingerprint.KindPage})
	require.NoError(t, err)
	_, err = o.Fetch(ctx, Request{URL: srv.URL + "/b", Kind: fingerprint.KindPage})
	require.NoError(t, err)

	assert.Equal(t, "sid=abc", cookieHeader)
}

func TestFetch_CrawlerPath(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		_, _ = w.Write([]byte("<rss></rss>"))
	}))
	defer srv.Close()

	o, registry := newTestOrchestrator(t)
	res, err := o.Fetch(context.Background(), Request{URL: srv.URL + "/rss", Kind: fingerprint.KindFeed})
	require.NoError(t, err)

	assert.Equal(t, "<rss></rss>", string(res.Body))
	// Crawlers carry no browser identity surface and no session state.
	assert.NotEmpty(t, gotHeaders.Get("User-Agent"))
	assert.Empty(t, gotHeaders.Get("Upgrade-Insecure-Requests"))
	assert.Empty(t, gotHeaders.Get("Cookie"))
	assert.Equal(t, 0, registry.Len())
}

func TestFetch_DetectionBurnsIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	o, registry := newTestOrchestrator(t)
	before := registry.Get("default", false)
	beforeUID := before.UID()

	_, err := o.Fetch(context.Background(), Request{URL: srv.URL, Kind: fingerprint.KindPage})
	require.Error(t, err)
	assert.True(t, IsDetection(err))

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)

	// The burned identity is gone; the key resolves to a fresh one.
	after := registry.Get("default", false)
	assert.NotEqual(t, beforeUID, after.UID())
}

func TestFetch_RateLimitedStatusIsDetection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o, _ := newTestOrchestrator(t)
	_, err := o.Fetch(context.Background(), Request{URL: srv.URL, Kind: fingerprint.KindPage})
	assert.True(t, IsDetection(err))
}

func TestFetch_NotFoundIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	o, registry := newTestOrchestrator(t)
	_, err := o.Fetch(context.Background(), Request{URL: srv.URL, Kind: fingerprint.KindPage})

	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsDetection(err))
	// Plain errors do not burn the identity.
	assert.Equal(t, 1, registry.Len())
}

func TestFetch_ContextCancelled(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Fetch(ctx, Request{URL: "http://127.0.0.1:0/", Kind: fingerprint.KindPage})
	require.Error(t, err)
}
