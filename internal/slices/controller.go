package slices

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vhamcloud/orchestrator/internal/apierrors"
	"github.com/vhamcloud/orchestrator/internal/database"
	"github.com/vhamcloud/orchestrator/internal/executor"
)

// WorkerLookup resolves a worker id to the (gateway-relative) SSH port
// used to reach it, the same table the Deployment Controller consumes.
type WorkerLookup func(workerID int) (sshPort int, ok bool)

type Controller struct {
	db       *database.DB
	logger   *slog.Logger
	executor *executor.Executor
	workers  WorkerLookup
}

func New(db *database.DB, logger *slog.Logger, exec *executor.Executor, workers WorkerLookup) *Controller {
	return &Controller{db: db, logger: logger, executor: exec, workers: workers}
}

// Create inserts the slice, one VM per node, and one link per edge, with
// num_interfaces and vlan_id computed exactly as spec.md §4.1 describes.
func (c *Controller) Create(ctx context.Context, ownerID int64, topo Topology) (sliceID int64, linksCreated int, err error) {
	if topo.Name == "" {
		topo.Name = "SliceDemo"
	}

	degree := make(map[string]int, len(topo.Nodes))
	for _, l := range topo.Links {
		degree[l.FromVM]++
		degree[l.ToVM]++
	}

	nodeByLabel := make(map[string]Node, len(topo.Nodes))
	for _, n := range topo.Nodes {
		nodeByLabel[n.Label] = n
	}
	for _, l := range topo.Links {
		if _, ok := nodeByLabel[l.FromVM]; !ok {
			return 0, 0, apierrors.NewValidation(fmt.Sprintf("link references unknown node %q", l.FromVM), nil)
		}
		if _, ok := nodeByLabel[l.ToVM]; !ok {
			return 0, 0, apierrors.NewValidation(fmt.Sprintf("link references unknown node %q", l.ToVM), nil)
		}
	}

	template, err := json.Marshal(topo)
	if err != nil {
		return 0, 0, apierrors.NewInternal("failed to encode topology")
	}

	err = c.db.WithTx(ctx, func(q *database.Queries) error {
		id, err := q.CreateSlice(ctx, ownerID, topo.Name, template)
		if err != nil {
			return err
		}
		sliceID = id

		vmIDByLabel := make(map[string]int64, len(topo.Nodes))
		for _, n := range topo.Nodes {
			numIfaces := degree[n.Label]
			if numIfaces < 1 {
				numIfaces = 1
			}
			vmID, err := q.CreateVM(ctx, database.VM{
				SliceID:       sliceID,
				Name:          n.Label,
				ImageID:       n.ImageID,
				CPU:           n.CPU,
				RAM:           n.RAM,
				Disk:          n.Disk,
				NumInterfaces: numIfaces,
			})
			if err != nil {
				return err
			}
			vmIDByLabel[n.Label] = vmID
		}

		vlanID := 100
		for _, l := range topo.Links {
			vmA, vmB := vmIDByLabel[l.FromVM], vmIDByLabel[l.ToVM]
			if vmA == vmB {
				return apierrors.NewValidation("link cannot connect a node to itself", nil)
			}
			if _, err := q.CreateLink(ctx, sliceID, vmA, vmB, vlanID); err != nil {
				return err
			}
			vlanID += 100
			linksCreated++
		}

		return q.InsertSliceEvent(ctx, sliceID, "info", "slice_controller", "slice created")
	})
	if err != nil {
		return 0, 0, err
	}

	return sliceID, linksCreated, nil
}

// Get returns the slice with its embedded VM list, enforcing ownership.
func (c *Controller) Get(ctx context.Context, sliceID, callerID int64) (*SliceView, error) {
	s, err := c.db.GetSlice(ctx, sliceID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apierrors.NewNotFound("slice")
		}
		return nil, err
	}
	if s.OwnerID != callerID {
		return nil, apierrors.NewAuthz("not the owner of this slice")
	}

	vms, err := c.db.ListVMsBySlice(ctx, sliceID)
	if err != nil {
		return nil, err
	}

	view := &SliceView{
		ID: s.ID, Name: s.Name, Status: s.Status, Template: json.RawMessage(s.Template),
		CreatedAt: s.CreatedAt, OwnerID: s.OwnerID,
		VMs: make([]VMView, len(vms)),
	}
	for i, v := range vms {
		view.VMs[i] = toVMView(v)
	}
	return view, nil
}

// List returns every slice owned by ownerID, with VM ids only.
func (c *Controller) List(ctx context.Context, ownerID int64) ([]SliceSummary, error) {
	rows, err := c.db.ListSlicesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]SliceSummary, len(rows))
	for i, s := range rows {
		vms, err := c.db.ListVMsBySlice(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(vms))
		for j, v := range vms {
			ids[j] = v.ID
		}
		out[i] = SliceSummary{ID: s.ID, Name: s.Name, Status: s.Status, CreatedAt: s.CreatedAt, Template: s.Template, VMIDs: ids}
	}
	return out, nil
}

// Events returns the audit log for a slice, newest last.
func (c *Controller) Events(ctx context.Context, sliceID, callerID int64) ([]Event, error) {
	s, err := c.db.GetSlice(ctx, sliceID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apierrors.NewNotFound("slice")
		}
		return nil, err
	}
	if s.OwnerID != callerID {
		return nil, apierrors.NewAuthz("not the owner of this slice")
	}

	rows, err := c.db.ListSliceEvents(ctx, sliceID)
	if err != nil {
		return nil, err
	}
	out := make([]Event, len(rows))
	for i, e := range rows {
		out[i] = Event{ID: e.ID, Ts: e.Ts, Level: e.Level, Module: e.Module, Message: e.Message}
	}
	return out, nil
}

// Update replaces a slice's topology. Only legal from PENDING or ERROR,
// per spec.md §4.1.
func (c *Controller) Update(ctx context.Context, sliceID, callerID int64, topo Topology) error {
	s, err := c.db.GetSlice(ctx, sliceID)
	if err != nil {
		if database.IsNoRows(err) {
			return apierrors.NewNotFound("slice")
		}
		return err
	}
	if s.OwnerID != callerID {
		return apierrors.NewAuthz("not the owner of this slice")
	}
	if s.Status != database.SliceStatusPending && s.Status != database.SliceStatusError {
		return apierrors.NewState(fmt.Sprintf("cannot update slice in status %s", s.Status))
	}

	degree := make(map[string]int, len(topo.Nodes))
	for _, l := range topo.Links {
		degree[l.FromVM]++
		degree[l.ToVM]++
	}
	nodeByLabel := make(map[string]Node, len(topo.Nodes))
	for _, n := range topo.Nodes {
		nodeByLabel[n.Label] = n
	}
	for _, l := range topo.Links {
		if _, ok := nodeByLabel[l.FromVM]; !ok {
			return apierrors.NewValidation(fmt.Sprintf("link references unknown node %q", l.FromVM), nil)
		}
		if _, ok := nodeByLabel[l.ToVM]; !ok {
			return apierrors.NewValidation(fmt.Sprintf("link references unknown node %q", l.ToVM), nil)
		}
	}

	template, err := json.Marshal(topo)
	if err != nil {
		return apierrors.NewInternal("failed to encode topology")
	}

	return c.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.DeleteLinksBySlice(ctx, sliceID); err != nil {
			return err
		}
		if err := q.DeleteVMsBySlice(ctx, sliceID); err != nil {
			return err
		}
		if err := q.UpdateSliceTemplate(ctx, sliceID, topo.Name, template); err != nil {
			return err
		}

		vmIDByLabel := make(map[string]int64, len(topo.Nodes))
		for _, n := range topo.Nodes {
			numIfaces := degree[n.Label]
			if numIfaces < 1 {
				numIfaces = 1
			}
			vmID, err := q.CreateVM(ctx, database.VM{
				SliceID: sliceID, Name: n.Label, ImageID: n.ImageID,
				CPU: n.CPU, RAM: n.RAM, Disk: n.Disk, NumInterfaces: numIfaces,
			})
			if err != nil {
				return err
			}
			vmIDByLabel[n.Label] = vmID
		}

		vlanID := 100
		for _, l := range topo.Links {
			if _, err := q.CreateLink(ctx, sliceID, vmIDByLabel[l.FromVM], vmIDByLabel[l.ToVM], vlanID); err != nil {
				return err
			}
			vlanID += 100
		}

		return q.InsertSliceEvent(ctx, sliceID, "info", "slice_controller", "slice topology replaced")
	})
}

// Delete tears down deployed VMs best-effort, then cascades the delete.
// Idempotent: deleting an already-gone slice returns NotFound, never a
// partial state.
func (c *Controller) Delete(ctx context.Context, sliceID, callerID int64) error {
	s, err := c.db.GetSlice(ctx, sliceID)
	if err != nil {
		if database.IsNoRows(err) {
			return apierrors.NewNotFound("slice")
		}
		return err
	}
	if s.OwnerID != callerID {
		return apierrors.NewAuthz("not the owner of this slice")
	}

	vms, err := c.db.ListVMsBySlice(ctx, sliceID)
	if err != nil {
		return err
	}

	for _, v := range vms {
		if v.State != database.VMStateDeployed || v.WorkerID == nil {
			continue
		}
		sshPort, ok := c.workers(*v.WorkerID)
		if !ok {
			c.logger.Warn("delete: no ssh port for worker, skipping teardown", "vm_id", v.ID, "worker_id", *v.WorkerID)
			continue
		}
		res := c.executor.Teardown(ctx, sshPort, v.Name)
		if !res.Success {
			c.logger.Warn("teardown failed, continuing delete", "vm_id", v.ID, "stderr", res.Stderr)
		}
	}

	return c.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.DeleteLinksBySlice(ctx, sliceID); err != nil {
			return err
		}
		if err := q.DeleteVMsBySlice(ctx, sliceID); err != nil {
			return err
		}
		return q.DeleteSlice(ctx, sliceID)
	})
}

func toVMView(v database.VM) VMView {
	return VMView{
		ID: v.ID, Name: v.Name, ImageID: v.ImageID, CPU: v.CPU, RAM: v.RAM, Disk: v.Disk,
		NumInterfaces: v.NumInterfaces, State: v.State, WorkerID: v.WorkerID, PID: v.PID, VNCPort: v.VNCPort,
	}
}
