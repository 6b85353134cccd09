package detector

import "math/rand/v2"

// RandomSource is the randomness consumed by scoring and label selection.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// globalSource draws from the process-wide math/rand/v2 generator, which is
// safe for concurrent use.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// DefaultSource returns a concurrency-safe source backed by the global
// generator.
func DefaultSource() RandomSource {
	return globalSource{}
}

// NewSeededSource returns a deterministic source for reproducible runs.
// The returned source is not safe for concurrent use.
func NewSeededSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform draws from [lo, hi).
func uniform(rng RandomSource, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// shuffled returns a Fisher-Yates permutation of a copy of items.
func shuffled(items []string, rng RandomSource) []string {
	out := make([]string, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
