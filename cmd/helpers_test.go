package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"gitlab.com/nvctl/gpu-undervolt/gpu"
)

// MockUtility implements the backend.Utility interface
type MockUtility struct {
	euid int
}

func (mu *MockUtility) Euid() int {
	return mu.euid
}

// MockExecuter implements the gpu.Executer interface
type MockExecuter struct {
	CommandMocks map[string]gpu.Commander
	Calls        []string
	Envs         map[string][]string
	Stream       gpu.StreamCommander
}

func (me *MockExecuter) Execute(name string, arg ...string) gpu.Commander {
	key := me.makeCommandKey(name, arg)
	me.Calls = append(me.Calls, key)

	cmd, ok := me.CommandMocks[key]
	if !ok {
		return &MockCommand{}
	}
	return cmd
}

func (me *MockExecuter) ExecuteEnv(env []string, name string, arg ...string) gpu.Commander {
	key := me.makeCommandKey(name, arg)
	me.Calls = append(me.Calls, key)
	me.Envs[key] = env

	cmd, ok := me.CommandMocks[key]
	if !ok {
		return &MockCommand{}
	}
	return cmd
}

func (me *MockExecuter) ExecuteStream(ctx context.Context, name string, arg ...string) gpu.StreamCommander {
	me.Calls = append(me.Calls, me.makeCommandKey(name, arg))
	return me.Stream
}

// Set output and error for given command based on key
func (me *MockExecuter) SetCommandOutput(name string, args []string, output []byte, err error) {
	key := me.makeCommandKey(name, args)
	me.CommandMocks[key] = &MockCommand{
		output: output,
		err:    err,
	}
}

// Concatenate name and args of command to use it as a key in CommandMocks map
func (me *MockExecuter) makeCommandKey(name string, args []string) string {
	return name + " " + strings.Join(args, " ")
}

// MockCommand implements the gpu.Commander interface
type MockCommand struct {
	output []byte
	err    error
}

func (mc *MockCommand) CombinedOutput() ([]byte, error) {
	return mc.output, mc.err
}

// MockStream implements the gpu.StreamCommander interface
type MockStream struct {
	lines string
}

func (ms *MockStream) StdoutPipe() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(ms.lines)), nil
}

func (ms *MockStream) Start() error { return nil }
func (ms *MockStream) Wait() error  { return nil }

// MockFS implements the xorg.FileSystem interface on an in-memory
// filesystem
type MockFS struct {
	fs afero.Fs
}

func (mf *MockFS) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(mf.fs, name)
}

func (mf *MockFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(mf.fs, name, data, perm)
}

func (mf *MockFS) Stat(name string) (os.FileInfo, error) {
	return mf.fs.Stat(name)
}

func (mf *MockFS) ReadDir(name string) ([]os.FileInfo, error) {
	return afero.ReadDir(mf.fs, name)
}

// MockProc implements the xorg.ProcessLister interface
type MockProc struct {
	lines []string
	err   error
}

func (mp *MockProc) Cmdlines() ([]string, error) {
	if mp.err != nil {
		return nil, mp.err
	}
	return mp.lines, nil
}

// MockReader implements the backend.GPUReader interface
type MockReader struct {
	readings []gpu.Reading
	err      error
}

func (mr *MockReader) Snapshot() ([]gpu.Reading, error) {
	if mr.err != nil {
		return nil, mr.err
	}
	return mr.readings, nil
}

func newMockExecuter() *MockExecuter {
	return &MockExecuter{
		CommandMocks: make(map[string]gpu.Commander),
		Envs:         make(map[string][]string),
		Stream:       &MockStream{},
	}
}

// initializedFS returns a filesystem already carrying the patched
// permission file, the Coolbits snippet and an X display socket
func initializedFS() *MockFS {
	memFS := afero.NewMemMapFs()

	wrapper := "#allowed_users=console\nallowed_users=anybody\nneeds_root_rights=yes\n"
	afero.WriteFile(memFS, "/etc/X11/Xwrapper.config", []byte(wrapper), 0644)
	afero.WriteFile(memFS, "/etc/X11/xorg.conf.d/10-nvidia.conf", []byte("Section \"OutputClass\"\n"), 0644)
	afero.WriteFile(memFS, "/tmp/.X11-unix/X1", nil, 0644)

	return &MockFS{fs: memFS}
}

func gdmProc() *MockProc {
	return &MockProc{lines: []string{
		"/usr/lib/systemd/systemd --user",
		"/usr/bin/Xwayland :1024 -auth /run/user/121/gdm/Xauthority -listenfd 4",
	}}
}

func setQueryOutput(mockExec *MockExecuter, names ...string) {
	output := strings.Join(names, "\n") + "\n"
	mockExec.SetCommandOutput("nvidia-smi", []string{"--query-gpu=gpu_name", "--format=csv,noheader"}, []byte(output), nil)
}
