package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vhamcloud/orchestrator/internal/apierrors"
	"github.com/vhamcloud/orchestrator/internal/auth"
	slicepkg "github.com/vhamcloud/orchestrator/internal/slices"
)

// nodeRequest / linkRequest / createSliceRequest mirror spec.md §6's
// POST /slices/create body exactly.
type nodeRequest struct {
	Label   string `json:"label"`
	CPU     int    `json:"cpu"`
	RAM     int    `json:"ram"`
	Disk    int    `json:"disk"`
	ImageID *int64 `json:"image_id"`
}

type linkRequest struct {
	FromVM string `json:"from_vm"`
	ToVM   string `json:"to_vm"`
}

type createSliceRequest struct {
	Name  string        `json:"name"`
	Nodes []nodeRequest `json:"nodes"`
	Links []linkRequest `json:"links"`
}

func (req createSliceRequest) toTopology() slicepkg.Topology {
	nodes := make([]slicepkg.Node, len(req.Nodes))
	for i, n := range req.Nodes {
		nodes[i] = slicepkg.Node{Label: n.Label, CPU: n.CPU, RAM: n.RAM, Disk: n.Disk, ImageID: n.ImageID}
	}
	links := make([]slicepkg.LinkSpec, len(req.Links))
	for i, l := range req.Links {
		links[i] = slicepkg.LinkSpec{FromVM: l.FromVM, ToVM: l.ToVM}
	}
	return slicepkg.Topology{Name: req.Name, Nodes: nodes, Links: links}
}

func callerID(r *http.Request) (int64, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, apierrors.NewAuth("missing caller identity")
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, apierrors.NewValidation("invalid id in path", nil)
	}
	return id, nil
}

// handleCreateSlice implements POST /slices/create.
func (s *Service) handleCreateSlice(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	var req createSliceRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.HandleError(w, err)
		return
	}

	sliceID, linksCreated, err := s.slices.Create(r.Context(), owner, req.toTopology())
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slice_id":      sliceID,
		"message":       "slice created",
		"owner":         owner,
		"links_created": linksCreated,
	})
}

// handleGetSlice implements GET /slices/{id}.
func (s *Service) handleGetSlice(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	view, err := s.slices.Get(r.Context(), id, owner)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleListSlices implements GET /slices.
func (s *Service) handleListSlices(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	summaries, err := s.slices.List(r.Context(), owner)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	type sliceListItem struct {
		SliceID   int64           `json:"slice_id"`
		SliceName string          `json:"slice_name"`
		Status    string          `json:"status"`
		CreatedAt string          `json:"created_at"`
		Template  json.RawMessage `json:"template"`
		VMs       []int64         `json:"vms"`
	}

	out := make([]sliceListItem, len(summaries))
	for i, sm := range summaries {
		out[i] = sliceListItem{
			SliceID:   sm.ID,
			SliceName: sm.Name,
			Status:    sm.Status,
			CreatedAt: sm.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Template:  json.RawMessage(sm.Template),
			VMs:       sm.VMIDs,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": owner, "slices": out})
}

// handleSliceEvents implements the ambient GET /slices/{id}/events audit
// log, added in SPEC_FULL.md §4.1.
func (s *Service) handleSliceEvents(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	events, err := s.slices.Events(r.Context(), id, owner)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slice_id": id, "events": events})
}

// handleUpdateSlice implements POST /slices/update/{id}.
func (s *Service) handleUpdateSlice(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	var req createSliceRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.HandleError(w, err)
		return
	}

	if err := s.slices.Update(r.Context(), id, owner, req.toTopology()); err != nil {
		apierrors.HandleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "updated",
		"slice_id": id,
		"message":  "slice topology replaced",
	})
}

// handleDeploySlice implements POST /slices/deploy/{id}.
func (s *Service) handleDeploySlice(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	report, err := s.deploy.Deploy(r.Context(), id, owner)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleDeleteSlice implements DELETE /slices/delete/{id}.
func (s *Service) handleDeleteSlice(w http.ResponseWriter, r *http.Request) {
	owner, err := callerID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		apierrors.HandleError(w, err)
		return
	}

	if err := s.slices.Delete(r.Context(), id, owner); err != nil {
		apierrors.HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "slice_id": id})
}
