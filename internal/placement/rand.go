package placement

import "math/rand"

// weightedChoice picks an index in [0, len(weights)) with probability
// proportional to weights[i]. weights must already sum to ~1 (seedWeights
// normalizes). Mirrors Python's random.choices(weights=...).
func weightedChoice(rng *rand.Rand, weights []float64) int {
	r := rng.Float64()
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// sampleTwoDistinct returns two distinct indices in [0, n) without
// replacement, mirroring Python's random.sample(elites, 2).
func sampleTwoDistinct(rng *rand.Rand, n int) (int, int) {
	a := rng.Intn(n)
	b := rng.Intn(n)
	for b == a && n > 1 {
		b = rng.Intn(n)
	}
	return a, b
}
