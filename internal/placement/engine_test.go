package placement

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func twoVMs() []VM {
	return []VM{
		{Name: "A", CPU: 2, RAM: 512, Storage: 5},
		{Name: "B", CPU: 2, RAM: 512, Storage: 5},
	}
}

func TestPlace_Deterministic(t *testing.T) {
	hosts := []Host{
		{ID: "host1", IP: "10.0.0.1", CPUTotal: 10, RAMTotal: 20, StorageTotal: 100, Availability: 0.99, PowerIdle: 100, PowerMax: 250},
		{ID: "host2", IP: "10.0.0.2", CPUTotal: 10, RAMTotal: 20, StorageTotal: 100, Availability: 0.90, PowerIdle: 100, PowerMax: 250},
	}
	vms := twoVMs()

	e1 := NewEngine(rand.New(rand.NewSource(42)))
	r1, err := e1.Place(vms, hosts)
	require.NoError(t, err)

	e2 := NewEngine(rand.New(rand.NewSource(42)))
	r2, err := e2.Place(vms, hosts)
	require.NoError(t, err)

	require.Equal(t, r1.Assignment, r2.Assignment)
	require.InDelta(t, r1.FitnessScore, r2.FitnessScore, 1e-9)
	require.InDelta(t, r1.TotalEnergy, r2.TotalEnergy, 1e-9)
}

func TestPlace_NoHosts(t *testing.T) {
	e := NewEngine(rand.New(rand.NewSource(1)))
	_, err := e.Place(twoVMs(), nil)
	require.ErrorIs(t, err, ErrNoHosts)
}

func TestPlace_NoVMs(t *testing.T) {
	e := NewEngine(rand.New(rand.NewSource(1)))
	hosts := []Host{{ID: "host1", CPUTotal: 10, RAMTotal: 20, StorageTotal: 100, Availability: 0.9, PowerIdle: 100, PowerMax: 250}}

	r, err := e.Place(nil, hosts)
	require.NoError(t, err)
	require.Empty(t, r.Assignment)
	require.Equal(t, 1.0, r.TotalAvailability)
	require.Equal(t, 0.0, r.FitnessScore)
}

func TestPlace_SingleHostDegenerate(t *testing.T) {
	e := NewEngine(rand.New(rand.NewSource(7)))
	hosts := []Host{{ID: "host1", CPUTotal: 10, RAMTotal: 20, StorageTotal: 100, Availability: 0.9, PowerIdle: 100, PowerMax: 250}}

	r, err := e.Place(twoVMs(), hosts)
	require.NoError(t, err)
	require.Len(t, r.Assignment, 2)
	require.Equal(t, "host1", r.Assignment["A"])
	require.Equal(t, "host1", r.Assignment["B"])
}

// TestFitnessMonotonicity is spec.md §8 scenario 6: packing identical VMs
// entirely onto the higher-availability host must score strictly lower
// (better) than packing them all onto the lower-availability one.
func TestFitnessMonotonicity(t *testing.T) {
	base := Host{CPUTotal: 10, RAMTotal: 20, StorageTotal: 100, PowerIdle: 100, PowerMax: 250}
	hostHigh := base
	hostHigh.ID = "high"
	hostHigh.Availability = 0.99
	hostLow := base
	hostLow.ID = "low"
	hostLow.Availability = 0.50

	vms := []VM{
		{Name: "A", CPU: 2, RAM: 512, Storage: 5},
		{Name: "B", CPU: 2, RAM: 512, Storage: 5},
		{Name: "C", CPU: 2, RAM: 512, Storage: 5},
	}

	scored := scoreHosts([]Host{hostHigh, hostLow})
	var hiIdx, loIdx int
	for i, h := range scored {
		if h.ID == "high" {
			hiIdx = i
		} else {
			loIdx = i
		}
	}
	powerIdleMin := minPowerIdle(scored)

	allHigh := make(chromosome, len(vms))
	allLow := make(chromosome, len(vms))
	for i := range vms {
		allHigh[i] = hiIdx
		allLow[i] = loIdx
	}

	fHigh := fitness(scored, vms, allHigh, powerIdleMin)
	fLow := fitness(scored, vms, allLow, powerIdleMin)

	require.Less(t, fHigh, fLow)
}

func TestCrossover_SingleVMNoOp(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p1 := chromosome{0}
	p2 := chromosome{1}
	child := crossover(rng, p1, p2)
	require.Equal(t, p1, child)
}
