// Package cache is a file-backed TTL cache for scraped datasets. Entries are
// JSON envelopes carrying their write timestamp; staleness is judged at read
// time against a caller-supplied TTL, so different datasets can share one
// store with different lifetimes.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

type envelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Store persists dataset snapshots under a directory, one file per key.
type Store struct {
	dir string
	log *zap.Logger

	mu  sync.RWMutex
	now func() time.Time
}

// New creates the cache directory if needed and returns a store over it.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache dir: %w", err)
	}
	return &Store{
		dir: dir,
		log: logger.Named("cache"),
		now: time.Now,
	}, nil
}

// SetClock overrides the store clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get loads the entry under key into out when it exists and is younger than
// ttl. A missing, stale or unreadable entry reports found=false; corruption
// is logged, not returned, because the caller falls through to a live fetch
// either way.
func (s *Store) Get(key string, ttl time.Duration, out any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn("Discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return false
	}

	if s.now().Sub(env.Timestamp) > ttl {
		return false
	}

	if err := json.Unmarshal(env.Payload, out); err != nil {
		s.log.Warn("Discarding unreadable cache payload", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Put writes value under key via a temp file and atomic rename. When the
// stored payload is semantically identical the write is skipped and the old
// timestamp survives; changed reports whether the payload differed.
func (s *Store) Put(key string, value any) (changed bool, err error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cannot marshal cache payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if same := s.unchangedLocked(key, payload); same {
		return false, nil
	}

	env := envelope{Timestamp: s.now(), Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		return false, fmt.Errorf("cannot marshal cache envelope: %w", err)
	}

	target := s.path(key)
	tmp := target + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Errorf("cannot create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, fmt.Errorf("cannot write cache file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return false, fmt.Errorf("cannot sync cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("cannot close cache file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return false, fmt.Errorf("cannot finalize cache file: %w", err)
	}

	s.log.Debug("Cache entry written", zap.String("key", key), zap.Int("bytes", len(data)))
	return true, nil
}

// unchangedLocked reports whether the stored payload equals the candidate.
// Comparison happens on the decoded values so key ordering and whitespace
// differences do not count as changes.
func (s *Store) unchangedLocked(key string, payload []byte) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false
	}

	var oldVal, newVal any
	if err := json.Unmarshal(env.Payload, &oldVal); err != nil {
		return false
	}
	if err := json.Unmarshal(payload, &newVal); err != nil {
		return false
	}
	return cmp.Equal(oldVal, newVal)
}

// Age returns how old the entry under key is. ok is false when absent or
// unreadable.
func (s *Store) Age(key string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return 0, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return 0, false
	}
	return s.now().Sub(env.Timestamp), true
}

// Delete removes the entry under key, if present.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot delete cache entry: %w", err)
	}
	return nil
}
