package api

import (
	"net/http"
	"strconv"

	"github.com/vhamcloud/orchestrator/internal/apierrors"
	"github.com/vhamcloud/orchestrator/internal/placement"
)

type placementVMRequest struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	CPU     float64 `json:"cpu"`
	RAM     float64 `json:"ram"`
	Disk    float64 `json:"disk"`
	Storage float64 `json:"storage"`
}

type placementRequest struct {
	VMs []placementVMRequest `json:"vms"`
}

// handlePlacementSlice implements POST /placement/slice/{id}: the VMs in
// the request body are scored against the live host snapshot and a
// placement is returned, without touching the slice's persisted state
// (that happens only through the Deployment Controller's own call into
// the same engine during an actual deploy).
func (s *Service) handlePlacementSlice(w http.ResponseWriter, r *http.Request) {
	if _, err := callerID(r); err != nil {
		apierrors.HandleError(w, err)
		return
	}
	if _, err := pathID(r); err != nil {
		apierrors.HandleError(w, err)
		return
	}

	var req placementRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.HandleError(w, err)
		return
	}

	s.runPlacement(w, r, req.VMs, func(v placementVMRequest) float64 { return v.Disk })
}

// handlePlacementCustom implements POST /placement/custom, the same
// engine invocation keyed on vm.storage rather than vm.disk — spec.md
// §6's two request bodies differ only in that field name.
func (s *Service) handlePlacementCustom(w http.ResponseWriter, r *http.Request) {
	if _, err := callerID(r); err != nil {
		apierrors.HandleError(w, err)
		return
	}

	var req placementRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.HandleError(w, err)
		return
	}

	s.runPlacement(w, r, req.VMs, func(v placementVMRequest) float64 { return v.Storage })
}

func (s *Service) runPlacement(w http.ResponseWriter, r *http.Request, reqVMs []placementVMRequest, storage func(placementVMRequest) float64) {
	vms := make([]placement.VM, len(reqVMs))
	for i, v := range reqVMs {
		name := v.Name
		if name == "" {
			name = strconv.FormatInt(v.ID, 10)
		}
		vms[i] = placement.VM{Name: name, CPU: v.CPU, RAM: v.RAM, Storage: storage(v)}
	}

	hosts := s.hostsFromMonitoring(r)

	result, err := s.engine.Place(vms, hosts)
	if err != nil {
		apierrors.HandleError(w, apierrors.NewDependency("placement engine has no candidate hosts", false))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"algorithm": "I-GA",
		"result":    result,
	})
}

// handleHosts implements GET /hosts, the read-only view of the same host
// snapshot the Placement Engine consumes.
func (s *Service) handleHosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"hosts": s.hostsFromMonitoring(r)})
}

