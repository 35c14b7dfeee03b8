package gpu

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	smiCommand      = "nvidia-smi"
	settingsCommand = "nvidia-settings"
)

// Controller drives the vendor utilities for the local GPUs. The session
// environment (DISPLAY/XAUTHORITY) is injected into nvidia-settings since
// the undervolt usually runs outside a graphical session.
type Controller struct {
	exec     Executer
	env      []string
	profiles map[string]Profile
}

func NewController(exec Executer, env []string) *Controller {
	return &Controller{
		exec:     exec,
		env:      env,
		profiles: Profiles(),
	}
}

// Detect enumerates GPU names in vendor order and resolves each one
// against the model table. Every name must match before any hardware is
// touched, so a single unknown card leaves the whole machine untouched.
func (c *Controller) Detect() ([]Device, error) {
	output, err := c.exec.Execute(smiCommand, "--query-gpu=gpu_name", "--format=csv,noheader").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("cannot query GPU names: %w", err)
	}

	var devices []Device
	for i, name := range splitLines(string(output)) {
		profile, ok := c.profiles[name]
		if !ok {
			return nil, fmt.Errorf("gpu %q unknown: not in the model table", name)
		}

		devices = append(devices, Device{Index: i, Name: name, Profile: profile})
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no GPUs found")
	}

	return devices, nil
}

// Enable turns on persistence mode, locks the clock window and applies
// the graphics clock offset for one GPU.
func (c *Controller) Enable(d Device) error {
	min, max := d.Profile.LockRange()

	err := c.runSMI("-i", strconv.Itoa(d.Index), "-pm", "1")
	if err != nil {
		return fmt.Errorf("cannot enable persistence mode on gpu %d: %w", d.Index, err)
	}

	err = c.runSMI("-i", strconv.Itoa(d.Index), "-lgc", fmt.Sprintf("%d,%d", min, max))
	if err != nil {
		return fmt.Errorf("cannot lock clocks on gpu %d: %w", d.Index, err)
	}

	err = c.runSettings(
		"-a", fmt.Sprintf("[gpu:%d]/GPUPowerMizerMode=1", d.Index),
		"-a", fmt.Sprintf("[gpu:%d]/GPUGraphicsClockOffsetAllPerformanceLevels=%d", d.Index, d.Profile.Offset),
	)
	if err != nil {
		return fmt.Errorf("cannot set clock offset on gpu %d: %w", d.Index, err)
	}

	zlog.Sugar().Debugf("undervolt enabled on gpu %d (%s): lock %d-%d MHz, offset %d MHz", d.Index, d.Name, min, max, d.Profile.Offset)

	return nil
}

// Disable restores default clock behavior for one GPU: persistence mode
// off, locked range cleared, graphics clock offset back to zero.
func (c *Controller) Disable(d Device) error {
	err := c.runSMI("-i", strconv.Itoa(d.Index), "-pm", "0")
	if err != nil {
		return fmt.Errorf("cannot disable persistence mode on gpu %d: %w", d.Index, err)
	}

	err = c.runSMI("-i", strconv.Itoa(d.Index), "-rgc")
	if err != nil {
		return fmt.Errorf("cannot reset clocks on gpu %d: %w", d.Index, err)
	}

	err = c.runSettings(
		"-a", fmt.Sprintf("[gpu:%d]/GPUPowerMizerMode=0", d.Index),
		"-a", fmt.Sprintf("[gpu:%d]/GPUGraphicsClockOffsetAllPerformanceLevels=0", d.Index),
	)
	if err != nil {
		return fmt.Errorf("cannot reset clock offset on gpu %d: %w", d.Index, err)
	}

	zlog.Sugar().Debugf("undervolt disabled on gpu %d (%s)", d.Index, d.Name)

	return nil
}

func (c *Controller) runSMI(args ...string) error {
	output, err := c.exec.Execute(smiCommand, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s failed: %w: %s", smiCommand, strings.Join(args, " "), err, output)
	}

	return nil
}

func (c *Controller) runSettings(args ...string) error {
	output, err := c.exec.ExecuteEnv(c.env, settingsCommand, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s failed: %w: %s", settingsCommand, strings.Join(args, " "), err, output)
	}

	return nil
}

func splitLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}
