package placement

import (
	"math"
	"math/rand"
	"sort"
)

// Engine runs the I-GA. Rand must be supplied by the caller (never the
// package-level global) so placement runs are reproducible under a fixed
// seed, per spec.md §9's determinism requirement.
type Engine struct {
	Rand *rand.Rand
}

func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{Rand: rng}
}

// Place runs the full GA and returns the best chromosome's placement and
// objective metrics. ErrNoHosts is returned for an empty host snapshot;
// the Deployment Controller falls back to round-robin on it.
func (e *Engine) Place(vms []VM, hosts []Host) (*Result, error) {
	if len(hosts) == 0 {
		return nil, ErrNoHosts
	}
	if len(vms) == 0 {
		return &Result{
			Hosts:             []HostUsage{},
			TotalEnergy:       0,
			TotalAvailability: 1,
			FitnessScore:      0,
			Assignment:        map[string]string{},
		}, nil
	}

	scored := scoreHosts(hosts)
	weights := seedWeights(scored)
	powerIdleMin := minPowerIdle(scored)

	population := make([]chromosome, PopulationSize)
	for i := range population {
		population[i] = seedChromosome(e.Rand, weights, len(vms))
	}

	for gen := 0; gen < Generations; gen++ {
		population = e.nextGeneration(population, scored, vms, powerIdleMin)
	}

	best := population[0]
	bestFitness := fitness(scored, vms, best, powerIdleMin)
	for _, c := range population[1:] {
		f := fitness(scored, vms, c, powerIdleMin)
		if f < bestFitness {
			best, bestFitness = c, f
		}
	}

	return buildResult(scored, vms, best, bestFitness), nil
}

type rankedChromosome struct {
	c       chromosome
	fitness float64
}

func (e *Engine) nextGeneration(population []chromosome, scored []scoredHost, vms []VM, powerIdleMin float64) []chromosome {
	ranked := make([]rankedChromosome, len(population))
	for i, c := range population {
		ranked[i] = rankedChromosome{c: c, fitness: fitness(scored, vms, c, powerIdleMin)}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].fitness < ranked[j].fitness })

	elites := make([]chromosome, 0, EliteSize)
	for i := 0; i < EliteSize && i < len(ranked); i++ {
		elites = append(elites, ranked[i].c)
	}

	next := make([]chromosome, 0, PopulationSize)
	next = append(next, elites...)
	for len(next) < PopulationSize {
		i1, i2 := sampleTwoDistinct(e.Rand, len(elites))
		child := crossover(e.Rand, elites[i1], elites[i2])
		child = mutate(e.Rand, child, len(scored))
		next = append(next, child)
	}
	return next
}

// fitness implements spec.md §4.3's equation (16): 1/G where
// G = 0.5*(E_min/E + availability), E the summed energy of active hosts,
// E_min the minimum power_idle across all candidate hosts (not just
// active ones). +Inf when no host is active.
func fitness(scored []scoredHost, vms []VM, c chromosome, powerIdleMin float64) float64 {
	cpuUsed := make([]float64, len(scored))
	for i, vm := range vms {
		cpuUsed[c[i]] += vm.CPU
	}

	var totalEnergy, availProduct float64 = 0, 1
	activeCount := 0
	for hi, h := range scored {
		if cpuUsed[hi] <= 0 {
			continue
		}
		ratio := cpuUsed[hi] / h.cpuVirtual
		totalEnergy += energyConsumption(ratio, h)
		availProduct *= h.Availability
		activeCount++
	}

	if activeCount == 0 {
		return math.Inf(1)
	}

	g := 0.5 * (powerIdleMin/totalEnergy + availProduct)
	return 1 / g
}

func energyConsumption(ratio float64, h scoredHost) float64 {
	return h.PowerIdle + (h.PowerMax-h.PowerIdle)*ratio*ratio*ratio
}

func minPowerIdle(scored []scoredHost) float64 {
	min := math.Inf(1)
	for _, h := range scored {
		if h.PowerIdle < min {
			min = h.PowerIdle
		}
	}
	return min
}

// buildResult reproduces the "usage_summary" shape of the original
// implementation: per-host energy/usage is reported for every host
// (including idle ones, whose ratio is zero and whose energy is simply
// power_idle), while total_availability mirrors the fitness calculation's
// availability term for the winning chromosome.
func buildResult(scored []scoredHost, vms []VM, best chromosome, bestFitness float64) *Result {
	cpuUsed := make([]float64, len(scored))
	assignedNames := make([][]string, len(scored))
	assignment := make(map[string]string, len(vms))

	for i, vm := range vms {
		hi := best[i]
		cpuUsed[hi] += vm.CPU
		assignedNames[hi] = append(assignedNames[hi], vm.Name)
		assignment[vm.Name] = scored[hi].ID
	}

	hostUsages := make([]HostUsage, len(scored))
	var totalEnergy, availProduct float64 = 0, 1
	for hi, h := range scored {
		ratio := 0.0
		if h.cpuVirtual > 0 {
			ratio = cpuUsed[hi] / h.cpuVirtual
		}
		energy := energyConsumption(ratio, h)
		totalEnergy += energy

		if cpuUsed[hi] > 0 {
			availProduct *= h.Availability
		}

		names := assignedNames[hi]
		if names == nil {
			names = []string{}
		}
		hostUsages[hi] = HostUsage{
			HostID:       h.ID,
			CPUUsage:     ratio,
			Energy:       energy,
			Availability: h.Availability,
			AssignedVMs:  names,
		}
	}

	return &Result{
		Hosts:             hostUsages,
		TotalEnergy:       totalEnergy,
		TotalAvailability: availProduct,
		FitnessScore:      bestFitness,
		Assignment:        assignment,
	}
}
