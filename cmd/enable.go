package cmd

import (
	"github.com/spf13/cobra"

	"gitlab.com/nvctl/gpu-undervolt/cmd/backend"
	"gitlab.com/nvctl/gpu-undervolt/gpu"
	"gitlab.com/nvctl/gpu-undervolt/xorg"
)

func NewEnableCmd(util backend.Utility, executer gpu.Executer, fs xorg.FileSystem, procs xorg.ProcessLister) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Apply the undervolt to all (or selected) GPUs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndervolt(cmd, util, executer, fs, procs, false)
		},
	}
	addGPUListFlag(cmd)

	return cmd
}
