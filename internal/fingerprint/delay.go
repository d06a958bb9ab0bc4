package fingerprint

import (
	"math"
	"math/rand"
	"time"
)

// Distribution names the shape of a delay pattern.
type Distribution string

const (
	DistUniform     Distribution = "uniform"
	DistNormal      Distribution = "normal"
	DistExponential Distribution = "exponential"
	DistMixture     Distribution = "mixture"
)

// MixtureBand is one uniform sub-range of a mixture distribution.
type MixtureBand struct {
	MinMs  float64
	MaxMs  float64
	Weight float64
}

// DelayPattern describes one named timing distribution. Whatever the shape,
// samples are clamped to [MinMs, MaxMs].
type DelayPattern struct {
	Name     string
	Dist     Distribution
	MinMs    float64
	MaxMs    float64
	MeanMs   float64
	StdDevMs float64
	// RatePerMs is the exponential rate λ, in events per millisecond.
	RatePerMs float64
	Bands     []MixtureBand
	// Drift blends in the low-frequency Perlin term so consecutive samples
	// correlate like a person settling into a browsing rhythm.
	Drift bool
}

var defaultPatterns = map[string]DelayPattern{
	"pageLoad": {
		Name:     "pageLoad",
		Dist:     DistNormal,
		MinMs:    800,
		MaxMs:    9000,
		MeanMs:   2600,
		StdDevMs: 1300,
		Drift:    true,
	},
	"click": {
		Name:  "click",
		Dist:  DistUniform,
		MinMs: 120,
		MaxMs: 650,
	},
	"readShort": {
		Name:      "readShort",
		Dist:      DistExponential,
		MinMs:     400,
		MaxMs:     6000,
		RatePerMs: 1.0 / 1500.0,
	},
	"readLong": {
		Name:  "readLong",
		Dist:  DistMixture,
		MinMs: 1000,
		MaxMs: 30000,
		Bands: []MixtureBand{
			{MinMs: 1000, MaxMs: 4000, Weight: 5},
			{MinMs: 4000, MaxMs: 12000, Weight: 3},
			{MinMs: 12000, MaxMs: 30000, Weight: 1},
		},
	},
	"apiCall": {
		Name:  "apiCall",
		Dist:  DistUniform,
		MinMs: 50,
		MaxMs: 350,
	},
}

// sample draws one value from the pattern. The drift factor, when non-zero,
// scales the draw before the final clamp.
func (p DelayPattern) sample(rng *rand.Rand, drift float64) time.Duration {
	var ms float64

	switch p.Dist {
	case DistNormal:
		ms = p.MeanMs + boxMuller(rng)*p.StdDevMs
	case DistExponential:
		rate := p.RatePerMs
		if rate <= 0 {
			rate = 1.0 / math.Max(p.MeanMs, 1)
		}
		ms = p.MinMs + expDraw(rng)/rate
	case DistMixture:
		if len(p.Bands) == 0 {
			ms = p.MinMs + rng.Float64()*(p.MaxMs-p.MinMs)
			break
		}
		items := make([]Weighted[MixtureBand], len(p.Bands))
		for i, b := range p.Bands {
			items[i] = Weighted[MixtureBand]{Item: b, Weight: b.Weight}
		}
		band := Choose(rng, items)
		ms = band.MinMs + rng.Float64()*(band.MaxMs-band.MinMs)
	default: // uniform
		ms = p.MinMs + rng.Float64()*(p.MaxMs-p.MinMs)
	}

	if p.Drift && drift != 0 {
		ms *= 1 + drift
	}

	ms = clamp(ms, p.MinMs, p.MaxMs)
	return time.Duration(ms * float64(time.Millisecond))
}

// boxMuller produces a standard normal variate from two uniform draws.
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// expDraw produces a unit-rate exponential variate.
func expDraw(rng *rand.Rand) float64 {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return -math.Log(u)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
