// Package deployment implements the Deployment Controller: the state
// machine that takes a slice from PENDING to DEPLOYED by asking the
// Placement Engine where each VM should land and then driving the Remote
// Executor to bring it up, grounded in the teacher's
// internal/manager/orchestration/deployment.go (DeploymentOrchestrator,
// same "load ready work, fan out per item, commit per item" shape).
package deployment

// VMResult is the per-VM outcome recorded in a DeployReport, the same
// partial-progress unit spec.md §4.2 commits one at a time.
type VMResult struct {
	VMID     int64  `json:"vm_id"`
	Name     string `json:"name"`
	WorkerID int    `json:"worker_id"`
	VNCPort  int    `json:"vnc_port"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// PlacementMetrics summarizes the I-GA run (or the round-robin fallback)
// that produced a DeployReport's assignment.
type PlacementMetrics struct {
	Algorithm         string  `json:"algorithm"`
	TotalEnergy       float64 `json:"total_energy"`
	TotalAvailability float64 `json:"total_availability"`
	FitnessScore      float64 `json:"fitness_score"`
}

// DeployReport is the return value of deploy(slice_id, token) per
// spec.md §4.2.
type DeployReport struct {
	SliceID int64            `json:"slice_id"`
	Status  string           `json:"status"`
	VMs     []VMResult       `json:"vms"`
	Metrics PlacementMetrics `json:"metrics"`
}

const (
	AlgorithmGA          = "I-GA (Improved Genetic Algorithm)"
	AlgorithmRoundRobin  = "Round-Robin (fallback)"
)
