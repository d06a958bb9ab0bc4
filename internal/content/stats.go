package content

import "sync"

// Stats counts pipeline outcomes per dataset and strategy. Keys are
// "dataset" for dataset-level counters and "dataset/strategy" for
// per-strategy ones.
type Stats struct {
	mu           sync.Mutex
	attempts     map[string]int
	failures     map[string]int
	successes    map[string]int
	cacheHits    map[string]int
	placeholders map[string]int
}

func newStats() *Stats {
	return &Stats{
		attempts:     make(map[string]int),
		failures:     make(map[string]int),
		successes:    make(map[string]int),
		cacheHits:    make(map[string]int),
		placeholders: make(map[string]int),
	}
}

func (s *Stats) recordAttempt(key string) {
	s.mu.Lock()
	s.attempts[key]++
	s.mu.Unlock()
}

func (s *Stats) recordFailure(key string) {
	s.mu.Lock()
	s.failures[key]++
	s.mu.Unlock()
}

func (s *Stats) recordSuccess(key string) {
	s.mu.Lock()
	s.successes[key]++
	s.mu.Unlock()
}

func (s *Stats) recordCacheHit(dataset string) {
	s.mu.Lock()
	s.cacheHits[dataset]++
	s.mu.Unlock()
}

func (s *Stats) recordPlaceholder(dataset string) {
	s.mu.Lock()
	s.placeholders[dataset]++
	s.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Attempts     map[string]int `json:"attempts"`
	Failures     map[string]int `json:"failures"`
	Successes    map[string]int `json:"successes"`
	CacheHits    map[string]int `json:"cache_hits"`
	Placeholders map[string]int `json:"placeholders"`
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Attempts:     copyCounts(s.attempts),
		Failures:     copyCounts(s.failures),
		Successes:    copyCounts(s.successes),
		CacheHits:    copyCounts(s.cacheHits),
		Placeholders: copyCounts(s.placeholders),
	}
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
