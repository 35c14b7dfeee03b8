// Package backend holds the real-system implementations behind the
// interfaces the commands are built on, so every command stays testable
// against doubles.
package backend

import "gitlab.com/nvctl/gpu-undervolt/gpu"

// Utility abstracts process-level helpers needed by command preconditions
type Utility interface {
	Euid() int
}

// GPUReader provides live GPU readings to the status command
type GPUReader interface {
	Snapshot() ([]gpu.Reading, error)
}
