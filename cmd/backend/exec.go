package backend

import (
	"context"
	"os"
	"os/exec"

	"gitlab.com/nvctl/gpu-undervolt/gpu"
)

// CmdExecutor implements gpu.Executer on top of os/exec.
type CmdExecutor struct{}

func (c *CmdExecutor) Execute(name string, arg ...string) gpu.Commander {
	return &ExecCommand{cmd: exec.Command(name, arg...)}
}

// ExecuteEnv runs a command with extra variables appended to the current
// environment.
func (c *CmdExecutor) ExecuteEnv(env []string, name string, arg ...string) gpu.Commander {
	cmd := exec.Command(name, arg...)
	cmd.Env = append(os.Environ(), env...)
	return &ExecCommand{cmd: cmd}
}

func (c *CmdExecutor) ExecuteStream(ctx context.Context, name string, arg ...string) gpu.StreamCommander {
	return exec.CommandContext(ctx, name, arg...)
}

type ExecCommand struct {
	cmd *exec.Cmd
}

func (e *ExecCommand) CombinedOutput() ([]byte, error) {
	return e.cmd.CombinedOutput()
}
