// Package session implements simulated browsing identities. A Session is one
// coherent identity: a fingerprint profile, derived device metadata, a cookie
// store, and behavior state that decides when the identity has outlived its
// plausibility. The Registry owns the pool of sessions and their lifecycle.
package session

import (
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/will-iamxu/CSNews/internal/cookies"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"github.com/will-iamxu/CSNews/internal/proxy"
	"go.uber.org/zap"
)

const (
	// Probability that the referrer is the previously visited page rather
	// than the identity's entry referrer.
	lastVisitReferrerChance = 0.8
	// Probability that a visit triggers a cookie expiry sweep.
	purgeChance = 0.1
	// Unconditional rotation chance. Breaks any detectable periodicity in
	// rotation timing.
	randomRotateChance = 0.05

	maxVisitHistory = 50
)

// Session is one simulated client identity. All mutable state is guarded by
// mu; the derived metadata is fixed at construction.
type Session struct {
	id      string
	uid     string
	profile fingerprint.Profile
	catalog *fingerprint.Catalog
	log     *zap.Logger

	screen     fingerprint.ScreenResolution
	gpu        fingerprint.WebGLDescriptor
	tlsDesc    fingerprint.TLSDescriptor
	navigation fingerprint.NavigationPattern
	behavior   fingerprint.SessionBehavior

	cookieStore *cookies.Store

	mu           sync.Mutex
	rng          *rand.Rand
	rotateDraw   func() float64
	baseReferrer string
	visits       []string
	visitCount   int
	startedAt    time.Time
	lastVisit    time.Time
	lastRequest  time.Time
	proxyDesc    *proxy.Descriptor
	now          func() time.Time
}

// Option mutates construction-time knobs. Tests use these to pin randomness
// and the clock.
type Option func(*Session)

// WithRNG fixes the session's random source.
func WithRNG(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithClock fixes the session's clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRotationDraw overrides the Bernoulli draw used by ShouldRotate,
// isolating the 5% random-rotation term for deterministic tests.
func WithRotationDraw(draw func() float64) Option {
	return func(s *Session) { s.rotateDraw = draw }
}

// WithProfile pins the fingerprint profile instead of drawing one.
func WithProfile(p fingerprint.Profile) Option {
	return func(s *Session) { s.profile = p }
}

// New constructs a session with the given id (a fresh uuid when empty),
// drawing a profile, device metadata, navigation pattern and behavior from
// the catalog.
func New(id string, catalog *fingerprint.Catalog, logger *zap.Logger, opts ...Option) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		id:      id,
		uid:     uuid.New().String(),
		catalog: catalog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.rotateDraw == nil {
		s.rotateDraw = s.rng.Float64
	}
	if s.profile.UserAgent == "" {
		s.profile = catalog.SelectBrowserProfile()
	}

	s.log = logger.Named("session").With(
		zap.String("session_id", id),
		zap.String("profile", s.profile.Name),
	)

	s.screen, s.gpu = catalog.SampleDevice(s.profile.Mobile)
	s.tlsDesc = fingerprint.TLSDescriptorFor(s.profile.Family)
	s.navigation = catalog.SampleNavigationPattern()
	s.behavior = catalog.SampleSessionBehavior()
	s.baseReferrer = catalog.RandomReferrer()
	s.cookieStore = cookies.NewStore(logger)
	s.startedAt = s.now()

	s.log.Debug("Session created",
		zap.String("behavior", s.behavior.Name),
		zap.String("navigation", s.navigation.Name),
		zap.Int("screen_w", s.screen.Width),
	)
	return s
}

// ID is the registry key; UID is the unique identity identifier. Rotation
// reuses the key but never the UID.
func (s *Session) ID() string                                { return s.id }
func (s *Session) UID() string                               { return s.uid }
func (s *Session) Profile() fingerprint.Profile              { return s.profile }
func (s *Session) TLSDescriptor() fingerprint.TLSDescriptor  { return s.tlsDesc }
func (s *Session) Behavior() fingerprint.SessionBehavior     { return s.behavior }
func (s *Session) Navigation() fingerprint.NavigationPattern { return s.navigation }
func (s *Session) Screen() fingerprint.ScreenResolution      { return s.screen }
func (s *Session) WebGL() fingerprint.WebGLDescriptor        { return s.gpu }
func (s *Session) Cookies() *cookies.Store                   { return s.cookieStore }

// Proxy returns the assigned proxy descriptor, nil when direct.
func (s *Session) Proxy() *proxy.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proxyDesc
}

// AssignProxy pins an outbound proxy for the life of this identity.
func (s *Session) AssignProxy(d proxy.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proxyDesc = &d
}

// VisitCount returns the number of recorded visits.
func (s *Session) VisitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visitCount
}

// LastVisit returns the time of the most recent visit; zero when none.
func (s *Session) LastVisit() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVisit
}

// StartedAt returns the session creation time.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Age returns how long the identity has existed.
func (s *Session) Age() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.startedAt)
}

// BuildHeaders assembles the identity's base header set: the profile surface
// plus family-specific extensions (client hints for Chromium, fetch metadata
// for Firefox).
func (s *Session) BuildHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", s.profile.UserAgent)
	h.Set("Accept", s.profile.Accept)
	h.Set("Accept-Language", s.profile.AcceptLanguage)
	h.Set("Cache-Control", "max-age=0")
	h.Set("Connection", "keep-alive")
	h.Set("Referer", s.baseReferrer)
	h.Set("Upgrade-Insecure-Requests", "1")

	if ch := s.profile.ClientHints; ch != nil {
		h.Set("Sec-Ch-Ua", ch.UA)
		h.Set("Sec-Ch-Ua-Mobile", ch.Mobile)
		h.Set("Sec-Ch-Ua-Platform", ch.Platform)
	}
	if fm := s.profile.FetchMetadata; fm != nil {
		h.Set("Sec-Fetch-Dest", fm.Dest)
		h.Set("Sec-Fetch-Mode", fm.Mode)
		h.Set("Sec-Fetch-Site", fm.Site)
		h.Set("Sec-Fetch-User", fm.User)
	}
	return h
}

// HeaderOptions adjusts per-request header preparation.
type HeaderOptions struct {
	// Referrer overrides the base referrer when the last-visit draw misses.
	Referrer string
	// IncludeOrigin forces an Origin header regardless of path shape.
	IncludeOrigin bool
}

// PrepareRequestHeaders clones the base headers for a request to rawURL:
// the referrer becomes the most recently visited URL with 80% probability
// (else the explicit override, else the base default), the cookie header is
// attached when any cookie matches, and Origin is added when requested or
// the path looks API-like.
func (s *Session) PrepareRequestHeaders(rawURL string, opts HeaderOptions) http.Header {
	h := s.BuildHeaders()

	s.mu.Lock()
	if len(s.visits) > 0 && s.rng.Float64() < lastVisitReferrerChance {
		h.Set("Referer", s.visits[len(s.visits)-1])
	} else if opts.Referrer != "" {
		h.Set("Referer", opts.Referrer)
	}
	s.mu.Unlock()

	if cookieHeader := s.cookieStore.HeaderFor(rawURL); cookieHeader != "" {
		h.Set("Cookie", cookieHeader)
	}

	if opts.IncludeOrigin || looksLikeAPI(rawURL) {
		if origin := originOf(rawURL); origin != "" {
			h.Set("Origin", origin)
		}
	}
	return h
}

// RecordVisit appends to the visit history, bumps the counters, and feeds
// the response cookies into the store. Occasionally sweeps expired cookies.
func (s *Session) RecordVisit(rawURL string, responseHeaders http.Header) {
	s.mu.Lock()
	s.visits = append(s.visits, rawURL)
	if len(s.visits) > maxVisitHistory {
		s.visits = s.visits[len(s.visits)-maxVisitHistory:]
	}
	s.visitCount++
	now := s.now()
	s.lastVisit = now
	s.lastRequest = now
	shouldPurge := s.rng.Float64() < purgeChance
	s.mu.Unlock()

	if responseHeaders != nil {
		s.cookieStore.Absorb(responseHeaders, domainOf(rawURL))
	}
	if shouldPurge {
		s.cookieStore.PurgeExpired()
	}
}

// TouchRequest stamps the last-request time without recording a visit.
func (s *Session) TouchRequest() {
	s.mu.Lock()
	s.lastRequest = s.now()
	s.mu.Unlock()
}

// ShouldRotate reports whether this identity has outlived its behavior
// bounds, or loses the unconditional 5% draw. The random term exists to
// break any fixed relationship between visit counts and rotation.
func (s *Session) ShouldRotate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visitCount >= s.behavior.MaxPageViews {
		return true
	}
	if s.now().Sub(s.startedAt) >= s.behavior.MaxDuration {
		return true
	}
	return s.rotateDraw() < randomRotateChance
}

// ActionDelay draws the session's small per-action pacing delay.
func (s *Session) ActionDelay() time.Duration {
	return s.catalog.SampleDelay("click")
}

func looksLikeAPI(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	return strings.HasPrefix(path, "/api") ||
		strings.Contains(path, "/api/") ||
		strings.HasSuffix(path, ".json")
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
