package deployment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vhamcloud/orchestrator/internal/config"
	"github.com/vhamcloud/orchestrator/internal/database"
)

func TestVNCPortFor(t *testing.T) {
	// spec.md §8 scenario 5: worker 2, slice 5, vm 37 -> vnc_port = 20537.
	require.Equal(t, 20537, vncPortFor(2, 5, 37))
}

func TestVlansForVM(t *testing.T) {
	links := []database.Link{
		{ID: 1, VMA: 10, VMB: 11, VLANID: 100},
		{ID: 2, VMA: 11, VMB: 12, VLANID: 200},
		{ID: 3, VMA: 13, VMB: 14, VLANID: 300},
	}
	require.Equal(t, []int{100, 200}, vlansForVM(links, 11))
	require.Nil(t, vlansForVM(links, 99))
}

func TestResolveWorker(t *testing.T) {
	c := &Controller{
		workers: map[int]config.Worker{
			1: {ID: 1, Host: "10.20.12.151"},
			2: {ID: 2, Host: "10.20.12.154"},
		},
	}

	assignment := map[string]string{"vmA": "host154", "vmB": "worker1", "vmC": "host999"}

	require.Equal(t, 2, c.resolveWorker(assignment, "vmA", 0))
	require.Equal(t, 1, c.resolveWorker(assignment, "vmB", 1))
	// unresolvable host id falls back to worker 1, per spec.md §4.2 step 7.
	require.Equal(t, 1, c.resolveWorker(assignment, "vmC", 2))
}

func TestRoundRobinAssignment(t *testing.T) {
	c := &Controller{
		workers: map[int]config.Worker{1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}},
	}
	vms := []database.VM{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}

	assignment := c.roundRobinAssignment(vms)
	require.Equal(t, "worker1", assignment["a"])
	require.Equal(t, "worker2", assignment["b"])
	require.Equal(t, "worker3", assignment["c"])
	require.Equal(t, "worker1", assignment["d"])
}
