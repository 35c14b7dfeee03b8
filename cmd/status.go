package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gitlab.com/nvctl/gpu-undervolt/cmd/backend"
	"gitlab.com/nvctl/gpu-undervolt/gpu"
)

func NewStatusCmd(reader backend.GPUReader) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show detected GPUs and their undervolt profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			readings, err := reader.Snapshot()
			if err != nil {
				return fmt.Errorf("cannot read GPU state: %w", err)
			}

			if len(readings) == 0 {
				return fmt.Errorf("no GPUs found")
			}

			profiles := gpu.Profiles()

			table := setupStatusTable(cmd.OutOrStdout())
			for _, reading := range readings {
				supported, lock, offset := "no", "-", "-"
				if profile, ok := profiles[reading.Name]; ok {
					min, max := profile.LockRange()
					supported = "yes"
					lock = fmt.Sprintf("%d-%d MHz", min, max)
					offset = fmt.Sprintf("%d MHz", profile.Offset)
				}

				persistence := "off"
				if reading.Persistence {
					persistence = "on"
				}

				table.Append([]string{
					strconv.Itoa(reading.Index),
					reading.Name,
					supported,
					persistence,
					fmt.Sprintf("%.0f W", reading.PowerDraw),
					fmt.Sprintf("P%d", reading.Pstate),
					lock,
					offset,
				})
			}
			table.Render()

			return nil
		},
	}
}
