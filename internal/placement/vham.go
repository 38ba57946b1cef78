package placement

import "sort"

// scoredHost is a Host augmented with its virtual capacities and VHAM
// score. The sorted slice of these is the stable index chromosomes
// reference (spec.md §4.3: "this ordering is used both to seed the
// initial population and as the stable index for chromosomes").
type scoredHost struct {
	Host
	cpuVirtual     float64
	ramVirtual     float64
	storageVirtual float64
	vham           float64
}

// scoreHosts computes virtual capacities and the weighted VHAM score for
// every host, then sorts descending by that score.
func scoreHosts(hosts []Host) []scoredHost {
	scored := make([]scoredHost, len(hosts))
	var maxCPUVirtual, maxPowerMax float64
	for i, h := range hosts {
		scored[i] = scoredHost{
			Host:           h,
			cpuVirtual:     h.CPUTotal * CPUOvercommit,
			ramVirtual:     h.RAMTotal * RAMOvercommit,
			storageVirtual: h.StorageTotal * StorageOvercommit,
		}
		if scored[i].cpuVirtual > maxCPUVirtual {
			maxCPUVirtual = scored[i].cpuVirtual
		}
		if h.PowerMax > maxPowerMax {
			maxPowerMax = h.PowerMax
		}
	}

	for i := range scored {
		cpuTerm := 0.0
		if maxCPUVirtual > 0 {
			cpuTerm = scored[i].cpuVirtual / maxCPUVirtual
		}
		powerTerm := 0.0
		if maxPowerMax > 0 {
			powerTerm = scored[i].PowerMax / maxPowerMax
		}
		scored[i].vham = 0.6*cpuTerm + 0.3*scored[i].Availability - 0.1*powerTerm
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].vham > scored[j].vham
	})

	return scored
}

// seedWeights turns VHAM scores into a sampling distribution: negative
// scores are clamped to a small epsilon first (spec.md §4.3 seeding note)
// so the weighted choice stays well-defined even when every host has a
// negative score (e.g. very high power_max relative to availability).
func seedWeights(hosts []scoredHost) []float64 {
	const epsilon = 1e-6

	weights := make([]float64, len(hosts))
	var sum float64
	for i, h := range hosts {
		w := h.vham
		if w <= 0 {
			w = epsilon
		}
		weights[i] = w
		sum += w
	}
	if sum <= 0 {
		// Every weight is at least epsilon, so this only runs for an
		// empty host list; it falls back to uniform.
		for i := range weights {
			weights[i] = 1
		}
		sum = float64(len(weights))
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}
