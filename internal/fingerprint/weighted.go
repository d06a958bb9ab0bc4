package fingerprint

import "math/rand"

// Weighted pairs an item with its selection weight. A weight of zero or less
// is treated as 1 so partially weighted catalogs still select sensibly.
type Weighted[T any] struct {
	Item   T
	Weight float64
}

func effectiveWeight(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}

// Choose performs a total-weight-normalized cumulative draw: r is uniform in
// [0, totalWeight) and the first item whose cumulative weight exceeds r wins.
// The same algorithm backs profile choice, navigation patterns and session
// behaviors.
func Choose[T any](rng *rand.Rand, items []Weighted[T]) T {
	var zero T
	if len(items) == 0 {
		return zero
	}

	total := 0.0
	for _, it := range items {
		total += effectiveWeight(it.Weight)
	}

	r := rng.Float64() * total
	cumulative := 0.0
	for _, it := range items {
		cumulative += effectiveWeight(it.Weight)
		if r < cumulative {
			return it.Item
		}
	}
	// Floating point drift can leave r a hair above the final cumulative sum.
	return items[len(items)-1].Item
}
