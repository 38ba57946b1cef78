package placement

import "math/rand"

// chromosome is a vector of length len(vms); gene i is the index into the
// sorted scoredHost slice that VM i is bound to. Representation is total:
// every VM is assigned, per spec.md §4.3.
type chromosome []int

// seedChromosome builds one chromosome by sampling, independently per VM,
// a host index weighted by VHAM score.
func seedChromosome(rng *rand.Rand, weights []float64, nVMs int) chromosome {
	c := make(chromosome, nVMs)
	for i := range c {
		c[i] = weightedChoice(rng, weights)
	}
	return c
}

// crossover performs the hierarchical single-point crossover of spec.md
// §4.3: point is drawn from [0, floor(nVMs/2)). When nVMs<2 the cluster
// size collapses to zero and the original Python's random.randint(0,-1)
// would raise; the spec resolves this as a no-op copy of parent1.
func crossover(rng *rand.Rand, p1, p2 chromosome) chromosome {
	nVMs := len(p1)
	clusterSize := nVMs / 2
	if clusterSize < 1 {
		child := make(chromosome, nVMs)
		copy(child, p1)
		return child
	}

	point := rng.Intn(clusterSize)
	child := make(chromosome, 0, nVMs)
	child = append(child, p1[:point]...)
	child = append(child, p2[point:]...)
	return child
}

// mutate flips each gene independently with probability MutationRate to a
// uniformly random host index.
func mutate(rng *rand.Rand, c chromosome, nHosts int) chromosome {
	for i := range c {
		if rng.Float64() < MutationRate {
			c[i] = rng.Intn(nHosts)
		}
	}
	return c
}
