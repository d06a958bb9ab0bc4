// Package fingerprint holds the static identity catalog: browser and crawler
// header profiles, device metadata, referrer pools, and the timing
// distributions used to pace requests. Everything here is data plus sampling;
// sessions own the mutable state.
package fingerprint

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
)

// Perlin parameters tuned for a slow wander: the drift value changes
// noticeably over tens of samples, not between adjacent ones.
const (
	perlinAlpha     = 2.0
	perlinBeta      = 2.0
	perlinIteration = 3

	driftAmplitude = 0.25
	driftStep      = 0.05
)

// Catalog serves weighted profile selection and delay sampling. Safe for
// concurrent use; the internal rand.Rand and Perlin cursor are guarded by mu.
type Catalog struct {
	mu        sync.Mutex
	rng       *rand.Rand
	browsers  []Weighted[Profile]
	crawlers  []Profile
	patterns  map[string]DelayPattern
	referrers []string
	noise     *perlin.Perlin
	noiseT    float64
}

// New builds a catalog over the built-in profile tables. A nil rng gets a
// time-seeded source; tests pass a fixed seed instead.
func New(rng *rand.Rand) *Catalog {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	browsers := make([]Weighted[Profile], len(browserProfiles))
	for i, p := range browserProfiles {
		browsers[i] = Weighted[Profile]{Item: p, Weight: p.Weight}
	}

	return &Catalog{
		rng:       rng,
		browsers:  browsers,
		crawlers:  crawlerProfiles,
		patterns:  defaultPatterns,
		referrers: referrerPool,
		noise:     perlin.NewPerlin(perlinAlpha, perlinBeta, perlinIteration, rng.Int63()),
	}
}

// SelectBrowserProfile returns one browser profile by weighted random draw.
func (c *Catalog) SelectBrowserProfile() Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Choose(c.rng, c.browsers)
}

// SelectCrawlerProfile returns a uniform random crawler profile whose
// affinity set contains kind, or the generic bot if none match.
func (c *Catalog) SelectCrawlerProfile(kind ContentKind) Profile {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matches []Profile
	for _, p := range c.crawlers {
		if p.HasAffinity(kind) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		// The last catalog entry is the catch-all bot.
		return c.crawlers[len(c.crawlers)-1]
	}
	return matches[c.rng.Intn(len(matches))]
}

// SampleDelay draws a delay from the named pattern, honoring its distribution
// and the [min,max] clamp. Unknown names fall back to the click pattern,
// which is short enough to never stall a caller.
func (c *Catalog) SampleDelay(patternName string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	pattern, ok := c.patterns[patternName]
	if !ok {
		pattern = c.patterns["click"]
	}

	drift := 0.0
	if pattern.Drift {
		c.noiseT += driftStep
		drift = c.noise.Noise1D(c.noiseT) * driftAmplitude
	}
	return pattern.sample(c.rng, drift)
}

// RandomReferrer draws from the referrer pool.
func (c *Catalog) RandomReferrer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.referrers[c.rng.Intn(len(c.referrers))]
}

// SampleNavigationPattern draws a navigation-pattern tag for a new session.
func (c *Catalog) SampleNavigationPattern() NavigationPattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Choose(c.rng, navigationPatterns)
}

// SampleSessionBehavior draws the visit-count and duration bounds for a new
// session.
func (c *Catalog) SampleSessionBehavior() SessionBehavior {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Choose(c.rng, sessionBehaviors)
}

// SampleDevice draws screen and GPU metadata for the device class.
func (c *Catalog) SampleDevice(mobile bool) (ScreenResolution, WebGLDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SampleScreen(c.rng, mobile), SampleWebGL(c.rng)
}
