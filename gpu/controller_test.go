package gpu

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// MockExecuter implements the Executer interface
type MockExecuter struct {
	CommandMocks map[string]Commander
	Calls        []string
	Envs         map[string][]string
	Stream       StreamCommander
}

func (me *MockExecuter) Execute(name string, arg ...string) Commander {
	key := me.makeCommandKey(name, arg)
	me.Calls = append(me.Calls, key)

	cmd, ok := me.CommandMocks[key]
	if !ok {
		return &MockCommand{}
	}
	return cmd
}

func (me *MockExecuter) ExecuteEnv(env []string, name string, arg ...string) Commander {
	key := me.makeCommandKey(name, arg)
	me.Calls = append(me.Calls, key)
	me.Envs[key] = env

	cmd, ok := me.CommandMocks[key]
	if !ok {
		return &MockCommand{}
	}
	return cmd
}

func (me *MockExecuter) ExecuteStream(ctx context.Context, name string, arg ...string) StreamCommander {
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

// MockCommand implements the Commander interface
type MockCommand struct {
	output []byte
	err    error
}

func (mc *MockCommand) CombinedOutput() ([]byte, error) {
	if mc.err != nil {
		return mc.output, mc.err
	}
	return mc.output, nil
}

// MockStream implements the StreamCommander interface
type MockStream struct {
	lines string
}

func (ms *MockStream) StdoutPipe() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(ms.lines)), nil
}

func (ms *MockStream) Start() error { return nil }
func (ms *MockStream) Wait() error  { return nil }

func newMockExecuter() *MockExecuter {
	return &MockExecuter{
		CommandMocks: make(map[string]Commander),
		Envs:         make(map[string][]string),
		Stream:       &MockStream{},
	}
}

var testEnv = []string{"DISPLAY=:1", "XAUTHORITY=/run/user/121/gdm/Xauthority"}

func setQueryOutput(mockExec *MockExecuter, names ...string) {
	output := strings.Join(names, "\n") + "\n"
	mockExec.SetCommandOutput("nvidia-smi", []string{"--query-gpu=gpu_name", "--format=csv,noheader"}, []byte(output), nil)
}

func Test_ControllerDetect(t *testing.T) {
	assert := assert.New(t)

	mockExec := newMockExecuter()
	setQueryOutput(mockExec, "NVIDIA GeForce RTX 3090", "NVIDIA GeForce RTX 2070 SUPER")

	ctrl := NewController(mockExec, testEnv)

	devices, err := ctrl.Detect()
	assert.NoError(err)
	assert.Len(devices, 2)

	assert.Equal(0, devices[0].Index)
	assert.Equal("NVIDIA GeForce RTX 3090", devices[0].Name)
	assert.Equal(200, devices[0].Profile.Offset)

	assert.Equal(1, devices[1].Index)
	assert.Equal("NVIDIA GeForce RTX 2070 SUPER", devices[1].Name)
	assert.Equal(100, devices[1].Profile.Offset)
}

func Test_ControllerDetectUnknownModel(t *testing.T) {
	assert := assert.New(t)

	mockExec := newMockExecuter()
	setQueryOutput(mockExec, "NVIDIA GeForce RTX 3090", "NVIDIA GeForce GT 710")

	ctrl := NewController(mockExec, testEnv)

	devices, err := ctrl.Detect()
	assert.Nil(devices)
	assert.ErrorContains(err, `gpu "NVIDIA GeForce GT 710" unknown`)

	// validation must not touch any hardware
	assert.Len(mockExec.Calls, 1)
	assert.Contains(mockExec.Calls[0], "--query-gpu=gpu_name")
}

func Test_ControllerDetectNoGPUs(t *testing.T) {
	assert := assert.New(t)

	mockExec := newMockExecuter()
	mockExec.SetCommandOutput("nvidia-smi", []string{"--query-gpu=gpu_name", "--format=csv,noheader"}, []byte("\n"), nil)

	ctrl := NewController(mockExec, testEnv)

	_, err := ctrl.Detect()
	assert.ErrorContains(err, "no GPUs found")
}

func Test_ControllerDetectQueryError(t *testing.T) {
	assert := assert.New(t)

	mockExec := newMockExecuter()
	mockExec.SetCommandOutput("nvidia-smi", []string{"--query-gpu=gpu_name", "--format=csv,noheader"}, nil, fmt.Errorf("exit status 9"))

	ctrl := NewController(mockExec, testEnv)

	_, err := ctrl.Detect()
	assert.ErrorContains(err, "cannot query GPU names")
}

func Test_ControllerEnable(t *testing.T) {
	assert := assert.New(t)

	mockExec := newMockExecuter()
	ctrl := NewController(mockExec, testEnv)

	device := Device{
		Index:   0,
		Name:    "NVIDIA GeForce RTX 3090",
		Profile: Profile{Core: 1395, Boost: 1695, Offset: 200, Threshold: 120},
	}

	err := ctrl.Enable(device)
	assert.NoError(err)

	assert.Equal([]string{
		"nvidia-smi -i 0 -pm 1",
		"nvidia-smi -i 0 -lgc 1195,1495",
		"nvidia-settings -a [gpu:0]/GPUPowerMizerMode=1 -a [gpu:0]/GPUGraphicsClockOffsetAllPerformanceLevels=200",
	}, mockExec.Calls)

	// nvidia-settings must receive the session environment
	env := mockExec.Envs["nvidia-settings -a [gpu:0]/GPUPowerMizerMode=1 -a [gpu:0]/GPUGraphicsClockOffsetAllPerformanceLevels=200"]
	assert.Contains(env, "DISPLAY=:1")
	assert.Contains(env, "XAUTHORITY=/run/user/121/gdm/Xauthority")
}

func Test_ControllerEnableCommandFailure(t *testing.T) {
	assert := assert.New(t)

	mockExec := newMockExecuter()
	mockExec.SetCommandOutput("nvidia-smi", []string{"-i", "0", "-pm", "1"}, []byte("insufficient permissions"), fmt.Errorf("exit status 4"))

	ctrl := NewController(mockExec, testEnv)

	err := ctrl.Enable(Device{Index: 0, Profile: Profile{Core: 1395, Boost: 1695, Offset: 200}})
	assert.ErrorContains(err, "cannot enable persistence mode on gpu 0")

	// the run stops at the first failed command
	assert.Len(mockExec.Calls, 1)
}

func Test_ControllerDisable(t *testing.T) {
	assert := assert.New(t)

	mockExec := newMockExecuter()
	ctrl := NewController(mockExec, testEnv)

	device := Device{
		Index:   1,
		Name:    "NVIDIA GeForce RTX 3080",
		Profile: Profile{Core: 1440, Boost: 1710, Offset: 200, Threshold: 110},
	}

	err := ctrl.Disable(device)
	assert.NoError(err)

	assert.Equal([]string{
		"nvidia-smi -i 1 -pm 0",
		"nvidia-smi -i 1 -rgc",
		"nvidia-settings -a [gpu:1]/GPUPowerMizerMode=0 -a [gpu:1]/GPUGraphicsClockOffsetAllPerformanceLevels=0",
	}, mockExec.Calls)
}
