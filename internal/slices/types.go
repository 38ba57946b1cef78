// Package slices implements the Slice Controller: topology ingestion,
// authorization, and the create/get/update/delete operations of
// spec.md §4.1. Deploy itself is delegated to internal/deployment.
package slices

import (
	"encoding/json"
	"time"
)

// Node is one VM spec in a submitted topology (spec.md §6's
// POST /slices/create body).
type Node struct {
	Label   string `json:"label"`
	CPU     int    `json:"cpu"`
	RAM     int    `json:"ram"`
	Disk    int    `json:"disk"`
	ImageID *int64 `json:"image_id,omitempty"`
}

// LinkSpec is one undirected edge in a submitted topology, referencing
// nodes by label rather than id (ids don't exist until VMs are inserted).
type LinkSpec struct {
	FromVM string `json:"from_vm"`
	ToVM   string `json:"to_vm"`
}

type Topology struct {
	Name  string     `json:"name"`
	Nodes []Node     `json:"nodes"`
	Links []LinkSpec `json:"links"`
}

// VMView is the VM shape returned embedded in a slice (spec.md §6's
// "slice with embedded VM list").
type VMView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ImageID       *int64 `json:"image_id,omitempty"`
	CPU           int    `json:"cpu"`
	RAM           int    `json:"ram"`
	Disk          int    `json:"disk"`
	NumInterfaces int    `json:"num_interfaces"`
	State         string `json:"state"`
	WorkerID      *int   `json:"worker_id,omitempty"`
	PID           *int   `json:"pid,omitempty"`
	VNCPort       *int   `json:"vnc_port,omitempty"`
}

type SliceView struct {
	ID        int64           `json:"slice_id"`
	Name      string          `json:"slice_name"`
	Status    string          `json:"status"`
	Template  json.RawMessage `json:"template"`
	CreatedAt time.Time       `json:"created_at"`
	OwnerID   int64           `json:"owner"`
	VMs       []VMView        `json:"vms"`
}

// SliceSummary is the row shape GET /slices returns per slice (vm ids
// only, not the full embedded view).
type SliceSummary struct {
	ID        int64
	Name      string
	Status    string
	CreatedAt time.Time
	Template  []byte
	VMIDs     []int64
}

type Event struct {
	ID      int64     `json:"id"`
	Ts      time.Time `json:"ts"`
	Level   string    `json:"level"`
	Module  string    `json:"module"`
	Message string    `json:"message"`
}
