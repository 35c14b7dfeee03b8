package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"gitlab.com/nvctl/gpu-undervolt/cmd/backend"
	"gitlab.com/nvctl/gpu-undervolt/gpu"
	"gitlab.com/nvctl/gpu-undervolt/xorg"
)

func addGPUListFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("gpus", "i", "", "comma separated indices of GPUs to use")
}

// checkRoot ensures the command runs with administrative privileges,
// since both vendor utilities mutate hardware state
func checkRoot(util backend.Utility) error {
	if util.Euid() != 0 {
		return fmt.Errorf("please run as root")
	}

	return nil
}

// checkInitialized prevents clock commands from running before the host
// files were patched by the init command.
func checkInitialized(init *xorg.Initializer, w io.Writer) error {
	ok, err := init.Initialized()
	if err != nil {
		return fmt.Errorf("cannot check host initialization: %w", err)
	}

	if !ok {
		fmt.Fprintln(w, `please run "gpu-undervolt init" first`)
		fmt.Fprintln(w, "some modifications may weaken xorg security")
		return fmt.Errorf("host is not initialized")
	}

	return nil
}

// parseGPUList parses the -i flag into deduplicated, sorted indices.
// Empty input selects all GPUs.
func parseGPUList(arg string) ([]int, error) {
	if arg == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	var indices []int
	for _, field := range strings.Split(arg, ",") {
		index, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid GPU index %q", strings.TrimSpace(field))
		}

		if !seen[index] {
			seen[index] = true
			indices = append(indices, index)
		}
	}
	sort.Ints(indices)

	return indices, nil
}

// selectDevices restricts detected devices to the requested indices
func selectDevices(devices []gpu.Device, indices []int) ([]gpu.Device, error) {
	if indices == nil {
		return devices, nil
	}

	selected := make([]gpu.Device, 0, len(indices))
	for _, index := range indices {
		if index < 0 || index >= len(devices) {
			return nil, fmt.Errorf("no GPU with index %d (detected %d)", index, len(devices))
		}
		selected = append(selected, devices[index])
	}

	return selected, nil
}

// prepare runs the shared preconditions for enable/disable/daemon and
// returns the affected devices together with a ready controller. Every
// detected GPU is validated against the model table here, before any
// hardware-mutating command is issued.
func prepare(cmd *cobra.Command, util backend.Utility, executer gpu.Executer, fs xorg.FileSystem, procs xorg.ProcessLister) (*gpu.Controller, []gpu.Device, error) {
	err := checkRoot(util)
	if err != nil {
		return nil, nil, err
	}

	err = checkInitialized(xorg.NewInitializer(fs), cmd.OutOrStdout())
	if err != nil {
		return nil, nil, err
	}

	session, err := xorg.DiscoverSession(fs, procs)
	if err != nil {
		return nil, nil, err
	}

	ctrl := gpu.NewController(executer, session.Environ())

	devices, err := ctrl.Detect()
	if err != nil {
		return nil, nil, err
	}

	list, err := cmd.Flags().GetString("gpus")
	if err != nil {
		return nil, nil, err
	}

	indices, err := parseGPUList(list)
	if err != nil {
		return nil, nil, err
	}

	devices, err = selectDevices(devices, indices)
	if err != nil {
		return nil, nil, err
	}

	return ctrl, devices, nil
}

func runUndervolt(cmd *cobra.Command, util backend.Utility, executer gpu.Executer, fs xorg.FileSystem, procs xorg.ProcessLister, disable bool) error {
	ctrl, devices, err := prepare(cmd, util, executer, fs, procs)
	if err != nil {
		return err
	}

	for _, device := range devices {
		if disable {
			err := ctrl.Disable(device)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "gpu %d (%s): undervolt disabled\n", device.Index, device.Name)
			continue
		}

		err := ctrl.Enable(device)
		if err != nil {
			return err
		}

		min, max := device.Profile.LockRange()
		fmt.Fprintf(cmd.OutOrStdout(), "gpu %d (%s): clocks locked to %d-%d MHz, offset %d MHz\n", device.Index, device.Name, min, max, device.Profile.Offset)
	}

	return nil
}

func setupStatusTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetHeader([]string{"Index", "Model", "Supported", "Persistence", "Power", "Pstate", "Lock Range", "Offset"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)

	return table
}
