// Package fetch coordinates a single page retrieval: admission through the
// rate limiter, identity resolution, header preparation, the HTTP exchange,
// and bookkeeping of the outcome back into the session state.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/cookies"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"github.com/will-iamxu/CSNews/internal/network"
	"github.com/will-iamxu/CSNews/internal/ratelimit"
	"github.com/will-iamxu/CSNews/internal/session"
	"go.uber.org/zap"
)

// maxBodyBytes caps response reads. The target pages are well under this.
const maxBodyBytes = 10 << 20

// clientCacheLimit bounds the per-identity client map. Rotation churns
// identities; dropping the whole map is cheaper than tracking LRU order.
const clientCacheLimit = 32

// Request describes one retrieval.
type Request struct {
	URL  string
	Kind fingerprint.ContentKind
	// SessionID selects the identity; empty means the default identity.
	// Ignored for machine-readable kinds, which present as crawlers.
	SessionID string
	// Referrer is a fallback referrer when the session has no history.
	Referrer string
	// ForceNewSession discards any existing identity under SessionID.
	ForceNewSession bool
}

// Result is a completed retrieval.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string
}

// Orchestrator owns the retrieval flow and the per-identity HTTP clients.
type Orchestrator struct {
	netCfg   config.NetworkConfig
	limiter  *ratelimit.Limiter
	registry *session.Registry
	catalog  *fingerprint.Catalog
	shared   *cookies.Store
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	clients       map[string]*network.Client
	crawlerClient *network.Client
}

// New builds an orchestrator. The shared cookie store mirrors every cookie
// any identity receives, so strategies that bypass sessions still present
// plausible state.
func New(netCfg config.NetworkConfig, limiter *ratelimit.Limiter, registry *session.Registry, catalog *fingerprint.Catalog, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		netCfg:   netCfg,
		limiter:  limiter,
		registry: registry,
		catalog:  catalog,
		shared:   cookies.NewStore(logger),
		log:      logger.Named("fetch"),
		sleep:    sleepContext,
		clients:  make(map[string]*network.Client),
	}
}

// SetSleep overrides the wait primitive. Test hook.
func (o *Orchestrator) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sleep = sleep
}

// SharedCookies exposes the cross-identity cookie mirror.
func (o *Orchestrator) SharedCookies() *cookies.Store { return o.shared }

// Fetch performs one retrieval end to end. Machine-readable kinds present
// as a crawler without session state; page kinds run through an identity
// session. A 403 or 429 classifies as detection and burns the identity.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (*Result, error) {
	if err := o.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	if err := o.limiter.Pace(ctx, req.Kind); err != nil {
		return nil, err
	}

	if req.Kind.IsMachineReadable() {
		return o.fetchAsCrawler(ctx, req)
	}
	return o.fetchWithSession(ctx, req)
}

func (o *Orchestrator) fetchAsCrawler(ctx context.Context, req Request) (*Result, error) {
	profile := o.catalog.SelectCrawlerProfile(req.Kind)

	headers := http.Header{}
	headers.Set("User-Agent", profile.UserAgent)
	headers.Set("Accept", profile.Accept)

	res, err := o.do(ctx, o.crawler(), req.URL, headers)
	if err != nil {
		return nil, err
	}

	o.shared.Absorb(res.Header, hostOf(req.URL))
	o.log.Debug("Crawler fetch complete",
		zap.String("url", req.URL),
		zap.String("profile", profile.Name),
		zap.Int("status", res.StatusCode))
	return res, nil
}

func (o *Orchestrator) fetchWithSession(ctx context.Context, req Request) (*Result, error) {
	sess := o.registry.Get(req.SessionID, req.ForceNewSession)
	sess.TouchRequest()

	// The identity's per-action delay layers on top of the limiter's kind
	// pacing, so request timing tracks the simulated person, not the poller.
	if err := o.sleep(ctx, sess.ActionDelay()); err != nil {
		return nil, err
	}

	headers := sess.PrepareRequestHeaders(req.URL, session.HeaderOptions{Referrer: req.Referrer})

	res, err := o.do(ctx, o.clientFor(sess), req.URL, headers)
	if err != nil {
		if IsDetection(err) {
			// The identity is burned. The next request under this key
			// builds a fresh one.
			o.registry.Discard(sess.ID())
			o.log.Warn("Identity flagged, discarding session",
				zap.String("session_id", sess.ID()),
				zap.String("url", req.URL))
		}
		return nil, err
	}

	sess.RecordVisit(req.URL, res.Header)
	o.shared.Absorb(res.Header, hostOf(req.URL))
	o.log.Debug("Session fetch complete",
		zap.String("session_id", sess.ID()),
		zap.String("url", req.URL),
		zap.Int("status", res.StatusCode),
		zap.Int("visits", sess.VisitCount()))
	return res, nil
}

func (o *Orchestrator) do(ctx context.Context, client *network.Client, rawURL string, headers http.Header) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, transportError(rawURL, err)
	}
	for key, values := range headers {
		httpReq.Header[key] = values
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, transportError(rawURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, detectionError(rawURL, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Class: FailureTransport, URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(rawURL, err)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// clientFor returns the client bound to the session's identity, building it
// with the identity's TLS profile and proxy on first use.
func (o *Orchestrator) clientFor(sess *session.Session) *network.Client {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.clients[sess.UID()]; ok {
		return c
	}
	if len(o.clients) >= clientCacheLimit {
		o.clients = make(map[string]*network.Client)
	}

	cfg := network.NewClientConfig(o.netCfg, o.log)
	tlsProfile := sess.TLSDescriptor()
	cfg.TLSProfile = &tlsProfile
	if p := sess.Proxy(); p != nil {
		cfg.ProxyURL = p.URL()
	}

	c := network.NewClient(cfg)
	o.clients[sess.UID()] = c
	return c
}

func (o *Orchestrator) crawler() *network.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.crawlerClient == nil {
		o.crawlerClient = network.NewClient(network.NewClientConfig(o.netCfg, o.log))
	}
	return o.crawlerClient
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

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
