package api

import (
	"net/http"

	"github.com/vhamcloud/orchestrator/internal/apierrors"
)

// flavor is a fixed t-shirt-size CPU/RAM/disk tier. Not part of spec.md
// §3's data model (no Flavor entity is defined there), so GET /flavors
// serves a static catalog rather than a DB-backed CRUD surface — the
// core only needs flavors as a convenience the UI reads, never as an
// input the Slice Controller or Placement Engine consume directly.
type flavor struct {
	Name string `json:"name"`
	CPU  int    `json:"cpu"`
	RAM  int    `json:"ram"`
	Disk int    `json:"disk"`
}

var staticFlavors = []flavor{
	{Name: "small", CPU: 1, RAM: 512, Disk: 5},
	{Name: "medium", CPU: 2, RAM: 2048, Disk: 20},
	{Name: "large", CPU: 4, RAM: 4096, Disk: 40},
}

// handleListFlavors implements GET /flavors.
func (s *Service) handleListFlavors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"flavors": staticFlavors})
}

// handleListImages implements GET /images, reading the same Image rows
// the Deployment Controller resolves image paths from.
func (s *Service) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.db.ListImages(r.Context())
	if err != nil {
		apierrors.HandleError(w, apierrors.NewInternal("failed to list images"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": images})
}

// handleUploadImage is the explicitly out-of-scope image-upload surface
// (spec.md §1 Non-goals: "image upload to the head node" is external).
// The contract boundary is still visible on the wire rather than silently
// absent, per SPEC_FULL.md §6.
func (s *Service) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, map[string]any{
		"error":   "not_implemented",
		"message": "image upload to the head node is handled outside the orchestrator core",
	})
}
