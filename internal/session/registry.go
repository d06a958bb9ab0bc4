package session

import (
	"sort"
	"sync"
	"time"

	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"github.com/will-iamxu/CSNews/internal/proxy"
	"go.uber.org/zap"
)

// Registry manages the bounded pool of identity sessions: creation, reuse,
// rotation, and the dual eviction policy (capacity and lifetime).
type Registry struct {
	cfg     config.SessionsConfig
	catalog *fingerprint.Catalog
	proxies *proxy.Pool
	pType   string
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
	opts     []Option
}

// NewRegistry builds an empty registry. proxies may be nil when proxying is
// disabled; extraOpts are applied to every session constructed (tests inject
// clocks and RNGs this way).
func NewRegistry(cfg config.SessionsConfig, proxyCfg config.ProxyConfig, catalog *fingerprint.Catalog, proxies *proxy.Pool, logger *zap.Logger, extraOpts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	pType := ""
	if proxyCfg.Enabled {
		pType = proxyCfg.Type
	}
	return &Registry{
		cfg:      cfg,
		catalog:  catalog,
		proxies:  proxies,
		pType:    pType,
		log:      logger.Named("registry"),
		sessions: make(map[string]*Session),
		now:      time.Now,
		opts:     extraOpts,
	}
}

// SetClock overrides the registry clock. Test hook.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Get returns the session registered under id, constructing a fresh identity
// when absent, when forceNew is set, or when rotation is enabled and the
// existing session reports it should rotate. In every replacement case the
// old identity is discarded and a new one takes over the same id. Every
// lookup first sweeps identities past their TTL, so stale sessions never
// wait on capacity pressure to be evicted.
func (r *Registry) Get(id string, forceNew bool) *Session {
	r.Sweep()

	if id == "" {
		id = r.cfg.DefaultID
	}

	r.mu.Lock()
	existing, ok := r.sessions[id]
	r.mu.Unlock()

	if ok && !forceNew {
		if !r.cfg.RotationEnabled || !existing.ShouldRotate() {
			return existing
		}
		r.log.Info("Rotating session",
			zap.String("session_id", id),
			zap.Int("visits", existing.VisitCount()),
			zap.Duration("age", existing.Age()))
	}

	if ok {
		r.Discard(id)
	}
	return r.Create(id)
}

// Create builds a new session under id (auto-generated when empty), assigns
// a proxy when enabled, registers it, and evicts if over capacity.
func (r *Registry) Create(id string) *Session {
	s := New(id, r.catalog, r.log, r.opts...)

	if r.proxies != nil && r.pType != "" {
		if d, ok := r.proxies.Next(r.pType); ok {
			s.AssignProxy(d)
		}
	}

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.evictLocked()
	count := len(r.sessions)
	r.mu.Unlock()

	r.log.Debug("Session registered", zap.String("session_id", s.ID()), zap.Int("active", count))
	return s
}

// Discard removes the session registered under id, if any.
func (r *Registry) Discard(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		r.log.Debug("Session discarded", zap.String("session_id", id))
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts every non-default session whose age exceeds the configured
// TTL. Returns the number evicted.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	now := r.now()
	for id, s := range r.sessions {
		if id == r.cfg.DefaultID {
			continue
		}
		if now.Sub(s.StartedAt()) > r.cfg.TTL {
			delete(r.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.log.Info("Swept stale sessions", zap.Int("evicted", evicted))
	}
	return evicted
}

// evictLocked enforces the capacity bound: oldest last-visit first, the
// default identity exempt. Caller holds r.mu.
func (r *Registry) evictLocked() {
	if len(r.sessions) <= r.cfg.MaxSessions {
		return
	}

	type entry struct {
		id   string
		when time.Time
	}
	candidates := make([]entry, 0, len(r.sessions))
	for id, s := range r.sessions {
		if id == r.cfg.DefaultID {
			continue
		}
		when := s.LastVisit()
		if when.IsZero() {
			when = s.StartedAt()
		}
		candidates = append(candidates, entry{id: id, when: when})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].when.Before(candidates[j].when)
	})

	for _, c := range candidates {
		if len(r.sessions) <= r.cfg.MaxSessions {
			break
		}
		delete(r.sessions, c.id)
		r.log.Debug("Evicted session for capacity", zap.String("session_id", c.id))
	}
}
