package gpu

import (
	"context"
	"io"

	"gitlab.com/nvctl/gpu-undervolt/internal/logger"
)

var zlog = logger.New("gpu")

// Device is one detected GPU. Devices are recomputed on every run from
// live query output; nothing about them is persisted.
type Device struct {
	Index   int // 0-based, matches vendor enumeration order
	Name    string
	Profile Profile
}

// Reading is a live snapshot of one GPU used by the status command.
type Reading struct {
	Index       int
	Name        string
	PowerDraw   float64 // watts
	Persistence bool
	Pstate      int
}

// Executer abstracts running the vendor utilities
type Executer interface {
	Execute(name string, arg ...string) Commander
	ExecuteEnv(env []string, name string, arg ...string) Commander
	ExecuteStream(ctx context.Context, name string, arg ...string) StreamCommander
}

type Commander interface {
	CombinedOutput() ([]byte, error)
}

// StreamCommander abstracts a long-running command whose output is
// consumed line by line while it runs.
type StreamCommander interface {
	StdoutPipe() (io.ReadCloser, error)
	Start() error
	Wait() error
}
