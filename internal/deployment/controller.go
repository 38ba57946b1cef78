package deployment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/vhamcloud/orchestrator/internal/apierrors"
	"github.com/vhamcloud/orchestrator/internal/config"
	"github.com/vhamcloud/orchestrator/internal/database"
	"github.com/vhamcloud/orchestrator/internal/executor"
	"github.com/vhamcloud/orchestrator/internal/monitoring"
	"github.com/vhamcloud/orchestrator/internal/placement"
)

const bridge = "br-int"

// Controller runs deploy(slice_id) end to end: lock, placement, per-VM
// remote execution, commit. Grounded in the teacher's
// DeploymentOrchestrator, generalized from "schedule instances on
// database-tracked nodes" to "schedule VMs on SSH-reachable workers".
type Controller struct {
	db               *database.DB
	logger           *slog.Logger
	engine           *placement.Engine
	monitor          *monitoring.Adapter
	executor         *executor.Executor
	workers          map[int]config.Worker
	defaultImagePath string
}

func New(db *database.DB, logger *slog.Logger, engine *placement.Engine, monitor *monitoring.Adapter, exec *executor.Executor, workers map[int]config.Worker, defaultImagePath string) *Controller {
	return &Controller{
		db: db, logger: logger, engine: engine, monitor: monitor, executor: exec,
		workers: workers, defaultImagePath: defaultImagePath,
	}
}

// Deploy implements the eight-step algorithm of spec.md §4.2.
func (c *Controller) Deploy(ctx context.Context, sliceID, callerID int64) (*DeployReport, error) {
	slice, err := c.db.GetSlice(ctx, sliceID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apierrors.NewNotFound("slice")
		}
		return nil, err
	}
	if slice.OwnerID != callerID {
		return nil, apierrors.NewAuthz("not the owner of this slice")
	}

	lock, ok, err := database.TryAcquireSliceLock(ctx, c.db.Pool, sliceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierrors.NewState("a deploy for this slice is already in progress")
	}
	defer lock.Release(ctx)

	if slice.Status == database.SliceStatusPending {
		if err := c.renameSlice(ctx, slice); err != nil {
			return nil, err
		}
	}

	pending, err := c.db.ListPendingVMsBySlice(ctx, sliceID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &DeployReport{SliceID: sliceID, Status: slice.Status}, nil
	}

	if err := c.db.UpdateSliceStatus(ctx, sliceID, database.SliceStatusDeploying); err != nil {
		return nil, err
	}

	for i := range pending {
		if err := c.renameVM(ctx, &pending[i]); err != nil {
			_ = c.db.UpdateSliceStatus(ctx, sliceID, slice.Status)
			return nil, err
		}
	}

	links, err := c.db.ListLinksBySlice(ctx, sliceID)
	if err != nil {
		_ = c.db.UpdateSliceStatus(ctx, sliceID, slice.Status)
		return nil, err
	}

	assignment, metrics := c.placeVMs(ctx, pending)

	results := make([]VMResult, 0, len(pending))
	for i, vm := range pending {
		workerID := c.resolveWorker(assignment, vm.Name, i)
		worker, ok := c.workers[workerID]
		if !ok {
			c.logger.Warn("deploy: unknown worker id, substituting worker 1", "vm_id", vm.ID, "worker_id", workerID)
			workerID = 1
			worker = c.workers[1]
		}

		vncPort := vncPortFor(workerID, sliceID, vm.ID)
		imagePath := c.resolveImagePath(ctx, vm.ImageID)
		vlans := vlansForVM(links, vm.ID)

		res := c.executor.CreateVMMultiVLAN(ctx, worker.SSHPort, vm.Name, bridge, vlans,
			vncPort, vm.CPU, vm.RAM, vm.Disk, vm.NumInterfaces, imagePath)

		state := database.VMStateDeployed
		if !res.Success {
			state = database.VMStateError
		}
		if err := c.db.UpdateVMDeployResult(ctx, vm.ID, state, workerID, res.PID, vncPort); err != nil {
			return nil, err
		}

		result := VMResult{VMID: vm.ID, Name: vm.Name, WorkerID: workerID, VNCPort: vncPort, Success: res.Success}
		if !res.Success {
			result.Error = res.Stderr
		}
		results = append(results, result)

		level := "info"
		msg := fmt.Sprintf("vm %s deployed to worker %d", vm.Name, workerID)
		if !res.Success {
			level, msg = "error", fmt.Sprintf("vm %s failed on worker %d: %s", vm.Name, workerID, res.Stderr)
		}
		_ = c.db.InsertSliceEvent(ctx, sliceID, level, "deployment_controller", msg)
	}

	if err := c.db.UpdateSliceStatus(ctx, sliceID, database.SliceStatusDeployed); err != nil {
		return nil, err
	}

	return &DeployReport{SliceID: sliceID, Status: database.SliceStatusDeployed, VMs: results, Metrics: metrics}, nil
}

// placeVMs asks the I-GA for a placement and falls back to round-robin
// over the configured worker set on any placement failure, per spec.md
// §4.2 step 6.
func (c *Controller) placeVMs(ctx context.Context, vms []database.VM) (map[string]string, PlacementMetrics) {
	hosts := c.monitor.GetHosts(ctx)

	placementVMs := lo.Map(vms, func(v database.VM, _ int) placement.VM {
		return placement.VM{Name: v.Name, CPU: float64(v.CPU), RAM: float64(v.RAM), Storage: float64(v.Disk)}
	})

	result, err := c.engine.Place(placementVMs, hosts)
	if err != nil {
		c.logger.Warn("placement engine unavailable, falling back to round-robin", "error", err)
		return c.roundRobinAssignment(vms), PlacementMetrics{Algorithm: AlgorithmRoundRobin}
	}

	return result.Assignment, PlacementMetrics{
		Algorithm:         AlgorithmGA,
		TotalEnergy:       result.TotalEnergy,
		TotalAvailability: result.TotalAvailability,
		FitnessScore:      result.FitnessScore,
	}
}

// roundRobinAssignment maps the i-th VM in iteration order to worker
// (i mod W) + 1, keyed by a synthetic host id the same resolveWorker path
// understands ("workerN" rather than "hostN").
func (c *Controller) roundRobinAssignment(vms []database.VM) map[string]string {
	w := len(c.workers)
	assignment := make(map[string]string, len(vms))
	for i, vm := range vms {
		if w == 0 {
			continue
		}
		workerID := (i % w) + 1
		assignment[vm.Name] = fmt.Sprintf("worker%d", workerID)
	}
	return assignment
}

// resolveWorker turns a placement assignment's host id into a worker id,
// per spec.md §9's resolved ambiguity: explicit lookup against the
// worker table, never a hash of the id string. i is the VM's position in
// iteration order, used only when the assignment has no entry for vmName
// (the VM then goes to worker (i mod W) + 1).
func (c *Controller) resolveWorker(assignment map[string]string, vmName string, i int) int {
	hostID, ok := assignment[vmName]
	if !ok {
		return (i % max(len(c.workers), 1)) + 1
	}

	if id, ok := strings.CutPrefix(hostID, "worker"); ok {
		if n, err := strconv.Atoi(id); err == nil {
			return n
		}
	}

	if lastOctet, ok := strings.CutPrefix(hostID, "host"); ok {
		for workerID, w := range c.workers {
			if strings.HasSuffix(w.Host, "."+lastOctet) {
				return workerID
			}
		}
	}

	c.logger.Warn("deploy: could not resolve placement host id to a worker, substituting worker 1", "host_id", hostID)
	return 1
}

func (c *Controller) resolveImagePath(ctx context.Context, imageID *int64) string {
	if imageID != nil {
		if img, err := c.db.GetImage(ctx, *imageID); err == nil {
			return img.Path
		}
	}
	return c.defaultImagePath
}

// vncPortFor implements spec.md §8's injective VNC port formula:
// worker_id*10000 + (slice_id mod 100)*100 + (vm_id mod 100).
func vncPortFor(workerID int, sliceID, vmID int64) int {
	return workerID*10000 + int(sliceID%100)*100 + int(vmID%100)
}

func vlansForVM(links []database.Link, vmID int64) []int {
	var vlans []int
	for _, l := range links {
		if l.VMA == vmID || l.VMB == vmID {
			vlans = append(vlans, l.VLANID)
		}
	}
	return vlans
}

// renameSlice and renameVM implement the unique-name rule of spec.md
// §4.1: a suffix "-<N>" where N is the count of rows whose name starts
// with the same base string, purely cosmetic and never touching the id.
func (c *Controller) renameSlice(ctx context.Context, slice *database.Slice) error {
	count, err := c.db.CountSliceNameLike(ctx, slice.Name+"%")
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	newName := fmt.Sprintf("%s-%d", slice.Name, count)
	if err := c.db.UpdateSliceName(ctx, slice.ID, newName); err != nil {
		return err
	}
	slice.Name = newName
	return nil
}

func (c *Controller) renameVM(ctx context.Context, vm *database.VM) error {
	count, err := c.db.CountVMNameLike(ctx, vm.Name+"%")
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	newName := fmt.Sprintf("%s-%d", vm.Name, count)
	if err := c.db.UpdateVMName(ctx, vm.ID, newName); err != nil {
		return err
	}
	vm.Name = newName
	return nil
}
