// Package xorg prepares and discovers the display-server pieces
// nvidia-settings depends on: the session credentials of the running X
// server and the two host configuration files that allow clock offset
// control without a full graphical session.
package xorg

import (
	"os"

	"gitlab.com/nvctl/gpu-undervolt/internal/logger"
)

var zlog = logger.New("xorg")

// FileSystem abstracts the host file operations so initialization can be
// exercised against an in-memory filesystem.
type FileSystem interface {
	ReadFile(filename string) ([]byte, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
	ReadDir(dirname string) ([]os.FileInfo, error)
}

// ProcessLister abstracts process table scans used for session discovery.
type ProcessLister interface {
	Cmdlines() ([]string, error)
}
