package backend

import "github.com/shirou/gopsutil/process"

// Proc lists process command lines through gopsutil.
type Proc struct{}

func (p *Proc) Cmdlines() ([]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(procs))
	for _, proc := range procs {
		cmdline, err := proc.Cmdline()
		if err != nil {
			// processes may exit mid-scan
			continue
		}
		lines = append(lines, cmdline)
	}

	return lines, nil
}
