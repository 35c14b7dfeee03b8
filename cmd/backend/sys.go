package backend

import "os"

// Sys implements Utility against the local system.
type Sys struct{}

func (s *Sys) Euid() int {
	return os.Geteuid()
}
