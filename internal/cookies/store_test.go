package cookies

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func headerWith(values ...string) http.Header {
	h := http.Header{}
	for _, v := range values {
		h.Add("Set-Cookie", v)
	}
	return h
}

func TestAbsorb_BasicParse(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Absorb(headerWith("sid=abc123; Path=/; HttpOnly; Secure; SameSite=Lax"), "example.com")

	require.Equal(t, 1, s.Count())
	all := s.All()
	assert.Equal(t, "sid", all[0].Name)
	assert.Equal(t, "abc123", all[0].Value)
	assert.Equal(t, "example.com", all[0].Domain)
	assert.Equal(t, "/", all[0].Path)
	assert.True(t, all[0].Secure)
	assert.True(t, all[0].HttpOnly)
	assert.Equal(t, "Lax", all[0].SameSite)
}

func TestAbsorb_UpsertReplacesSameKey(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Absorb(headerWith("sid=first; Path=/"), "example.com")
	s.Absorb(headerWith("sid=second; Path=/"), "example.com")

	// Exactly one entry, reflecting the most recent value.
	require.Equal(t, 1, s.Count())
	assert.Equal(t, "second", s.All()[0].Value)
}

func TestAbsorb_DistinctPathsCoexist(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Absorb(headerWith("sid=root; Path=/", "sid=news; Path=/news"), "example.com")
	assert.Equal(t, 2, s.Count())
}

func TestAbsorb_MaxAgeOverridesExpires(t *testing.T) {
	s := NewStore(zap.NewNop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })

	s.Absorb(headerWith("sid=x; Expires=Wed, 01 Jan 2020 00:00:00 GMT; Max-Age=3600"), "example.com")

	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, base.Add(time.Hour), all[0].Expires)
}

func TestHeaderFor_DomainMatching(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Set(Cookie{Name: "a", Value: "1", Domain: ".example.com"})
	s.Set(Cookie{Name: "b", Value: "2", Domain: "other.com"})

	t.Run("parent domain matches subdomain", func(t *testing.T) {
		assert.Equal(t, "a=1", s.HeaderFor("https://sub.example.com/"))
	})
	t.Run("parent domain matches apex", func(t *testing.T) {
		assert.Equal(t, "a=1", s.HeaderFor("https://example.com/"))
	})
	t.Run("foreign domain never matches", func(t *testing.T) {
		assert.NotContains(t, s.HeaderFor("https://example.com/"), "b=2")
	})
}

func TestHeaderFor_PathPrefix(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Set(Cookie{Name: "n", Value: "v", Domain: "example.com", Path: "/news"})

	assert.Equal(t, "n=v", s.HeaderFor("https://example.com/news/item/1"))
	assert.Equal(t, "", s.HeaderFor("https://example.com/matches"))
}

func TestHeaderFor_SecureFlag(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Set(Cookie{Name: "sec", Value: "v", Domain: "example.com", Secure: true})

	assert.Equal(t, "sec=v", s.HeaderFor("https://example.com/"))
	assert.Equal(t, "", s.HeaderFor("http://example.com/"))
}

func TestHeaderFor_NeverReturnsExpired(t *testing.T) {
	s := NewStore(zap.NewNop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })

	s.Set(Cookie{Name: "dead", Value: "v", Domain: "example.com", Expires: base.Add(-time.Minute)})
	s.Set(Cookie{Name: "live", Value: "v", Domain: "example.com", Expires: base.Add(time.Minute)})

	assert.Equal(t, "live=v", s.HeaderFor("https://example.com/"))
}

func TestPurgeExpired(t *testing.T) {
	s := NewStore(zap.NewNop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })

	s.Set(Cookie{Name: "dead", Value: "v", Domain: "gone.com", Expires: base.Add(-time.Hour)})
	s.Set(Cookie{Name: "live", Value: "v", Domain: "stays.com", Expires: base.Add(time.Hour)})
	s.Set(Cookie{Name: "session", Value: "v", Domain: "stays.com"})

	removed := s.PurgeExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.Count())

	// The emptied domain bucket is dropped entirely.
	s.mu.Lock()
	_, exists := s.domains["gone.com"]
	s.mu.Unlock()
	assert.False(t, exists)
}

func TestHeaderFor_MultipleCookiesJoined(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.Set(Cookie{Name: "a", Value: "1", Domain: "example.com"})
	s.Set(Cookie{Name: "b", Value: "2", Domain: "example.com"})

	header := s.HeaderFor("https://example.com/")
	assert.Contains(t, header, "a=1")
	assert.Contains(t, header, "b=2")
	assert.Contains(t, header, "; ")
}
