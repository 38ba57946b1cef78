package database

import "time"

// Slice status values (spec.md §3).
const (
	SliceStatusPending   = "PENDING"
	SliceStatusDeploying = "DEPLOYING"
	SliceStatusDeployed  = "DEPLOYED"
	SliceStatusError     = "ERROR"
)

// VM state values (spec.md §3).
const (
	VMStatePending  = "PENDING"
	VMStateDeployed = "DEPLOYED"
	VMStateError    = "ERROR"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
}

type Image struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Path           string `json:"path"`
	SHA256         string `json:"sha256"`
	Size           int64  `json:"size"`
	ReferenceCount int64  `json:"reference_count"`
}

type Slice struct {
	ID        int64
	OwnerID   int64
	Name      string
	Status    string
	Template  []byte
	CreatedAt time.Time
}

type VM struct {
	ID            int64
	SliceID       int64
	Name          string
	ImageID       *int64
	CPU           int
	RAM           int
	Disk          int
	NumInterfaces int
	State         string
	WorkerID      *int
	PID           *int
	VNCPort       *int
}

type Link struct {
	ID      int64
	SliceID int64
	VMA     int64
	VMB     int64
	VLANID  int
}

type SliceEvent struct {
	ID      int64
	SliceID int64
	Ts      time.Time
	Level   string
	Module  string
	Message string
}
