// Package cookies implements a per-domain cookie store with standard
// cookie-jar upsert semantics, expiry handling and secure-flag matching. The
// net/http cookiejar is deliberately not used here: sessions need to inspect,
// mirror and purge cookies individually, and the jar exposes none of that.
package cookies

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cookie is one stored cookie. Expires is zero when the cookie is
// session-scoped (no expiry attribute).
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HttpOnly bool
	SameSite string
}

// expired reports whether the cookie is past its expiry at time now.
func (c Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

// Store holds cookies bucketed by domain. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	domains map[string][]Cookie
	log     *zap.Logger

	// now is the clock, injectable for expiry tests.
	now func() time.Time
}

// NewStore builds an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		domains: make(map[string][]Cookie),
		log:     logger.Named("cookies"),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Absorb parses every Set-Cookie directive in the response headers and
// upserts the results, defaulting domain and path to the request domain and
// "/" respectively. An existing entry with the same (domain, name, path) is
// replaced in place; last write wins.
func (s *Store) Absorb(headers http.Header, requestDomain string) {
	setCookies := headers.Values("Set-Cookie")
	if len(setCookies) == 0 {
		return
	}

	// Let net/http do the attribute parsing (expires, max-age, secure,
	// httponly, samesite); it already implements the RFC 6265 grammar.
	parsed := (&http.Response{Header: headers}).Cookies()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, hc := range parsed {
		if hc.Name == "" {
			continue
		}
		c := Cookie{
			Name:     hc.Name,
			Value:    hc.Value,
			Domain:   hc.Domain,
			Path:     hc.Path,
			Secure:   hc.Secure,
			HttpOnly: hc.HttpOnly,
			SameSite: sameSiteString(hc.SameSite),
		}
		if c.Domain == "" {
			c.Domain = requestDomain
		}
		if c.Path == "" {
			c.Path = "/"
		}
		// Max-Age is relative and overrides an absolute Expires.
		switch {
		case hc.MaxAge > 0:
			c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		case hc.MaxAge < 0:
			c.Expires = now.Add(-time.Second)
		default:
			c.Expires = hc.Expires
		}
		s.upsertLocked(c)
	}
}

// Set stores a single cookie directly, applying the same upsert key.
func (s *Store) Set(c Cookie) {
	if c.Path == "" {
		c.Path = "/"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(c)
}

func (s *Store) upsertLocked(c Cookie) {
	bucket := s.domains[c.Domain]
	for i := range bucket {
		if bucket[i].Name == c.Name && bucket[i].Path == c.Path {
			bucket[i] = c
			return
		}
	}
	s.domains[c.Domain] = append(bucket, c)
}

// HeaderFor computes the Cookie header value for a request to rawURL: all
// unexpired cookies whose domain matches the hostname (exact or parent
// suffix), whose path prefixes the request path, and whose secure flag is
// compatible with the scheme, joined as "name=value; ...". Empty string when
// nothing matches.
func (s *Store) HeaderFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		s.log.Debug("Unparseable URL for cookie lookup", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	host := u.Hostname()
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	secure := u.Scheme == "https"

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var pairs []string
	for domain, bucket := range s.domains {
		if !domainMatches(host, domain) {
			continue
		}
		for _, c := range bucket {
			if c.expired(now) {
				continue
			}
			if !strings.HasPrefix(path, c.Path) {
				continue
			}
			if c.Secure && !secure {
				continue
			}
			pairs = append(pairs, c.Name+"="+c.Value)
		}
	}
	return strings.Join(pairs, "; ")
}

// PurgeExpired removes all expired cookies and drops now-empty domain
// buckets. Returns the number removed.
func (s *Store) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for domain, bucket := range s.domains {
		kept := bucket[:0]
		for _, c := range bucket {
			if c.expired(now) {
				removed++
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			delete(s.domains, domain)
		} else {
			s.domains[domain] = kept
		}
	}
	if removed > 0 {
		s.log.Debug("Purged expired cookies", zap.Int("removed", removed))
	}
	return removed
}

// Count returns the total number of stored cookies, expired or not.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, bucket := range s.domains {
		n += len(bucket)
	}
	return n
}

// All returns a snapshot of every stored cookie. Used to mirror session
// cookies into the shared jar.
func (s *Store) All() []Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Cookie
	for _, bucket := range s.domains {
		out = append(out, bucket...)
	}
	return out
}

// domainMatches implements host-to-cookie-domain matching: exact match, or
// the stored domain (with or without a leading dot) is a parent suffix of the
// request host.
func domainMatches(host, cookieDomain string) bool {
	bare := strings.TrimPrefix(cookieDomain, ".")
	if host == bare {
		return true
	}
	return strings.HasSuffix(host, "."+bare)
}

func sameSiteString(ss http.SameSite) string {
	switch ss {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}
