package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type article struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	return s, &now
}

func TestStore_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	in := []article{{Title: "Major announced", URL: "https://example.com/1"}}
	changed, err := s.Put("news", in)
	require.NoError(t, err)
	assert.True(t, changed)

	var out []article
	require.True(t, s.Get("news", time.Hour, &out))
	assert.Equal(t, in, out)
}

func TestStore_MissingKey(t *testing.T) {
	s, _ := newTestStore(t)
	var out []article
	assert.False(t, s.Get("absent", time.Hour, &out))
}

func TestStore_TTLExpiry(t *testing.T) {
	s, now := newTestStore(t)

	_, err := s.Put("news", []article{{Title: "a"}})
	require.NoError(t, err)

	var out []article
	assert.True(t, s.Get("news", time.Hour, &out))

	*now = now.Add(61 * time.Minute)
	assert.False(t, s.Get("news", time.Hour, &out))

	// A longer TTL still accepts the same entry.
	assert.True(t, s.Get("news", 2*time.Hour, &out))
}

func TestStore_UnchangedPayloadSkipsWrite(t *testing.T) {
	s, now := newTestStore(t)

	_, err := s.Put("news", []article{{Title: "a", URL: "u"}})
	require.NoError(t, err)
	firstAge, ok := s.Age("news")
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), firstAge)

	*now = now.Add(30 * time.Minute)
	changed, err := s.Put("news", []article{{Title: "a", URL: "u"}})
	require.NoError(t, err)
	assert.False(t, changed)

	// The timestamp survives the skipped write.
	age, ok := s.Age("news")
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, age)
}

func TestStore_ChangedPayloadRefreshesTimestamp(t *testing.T) {
	s, now := newTestStore(t)

	_, err := s.Put("news", []article{{Title: "a"}})
	require.NoError(t, err)

	*now = now.Add(30 * time.Minute)
	changed, err := s.Put("news", []article{{Title: "b"}})
	require.NoError(t, err)
	assert.True(t, changed)

	age, ok := s.Age("news")
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), age)
}

func TestStore_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "news.json"), []byte("{not json"), 0o644))

	var out []article
	assert.False(t, s.Get("news", time.Hour, &out))
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Put("news", []article{{Title: "a"}})
	require.NoError(t, err)
	require.NoError(t, s.Delete("news"))

	var out []article
	assert.False(t, s.Get("news", time.Hour, &out))

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete("news"))
}

func TestStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Put("news", []article{{Title: "a"}})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "news.json", entries[0].Name())
}
