package cmd

import (
	"github.com/spf13/cobra"

	"gitlab.com/nvctl/gpu-undervolt/cmd/backend"
	"gitlab.com/nvctl/gpu-undervolt/gpu"
	"gitlab.com/nvctl/gpu-undervolt/xorg"
)

func NewRootCmd(util backend.Utility, executer gpu.Executer, fs xorg.FileSystem, procs xorg.ProcessLister, reader backend.GPUReader) *cobra.Command {
	root := &cobra.Command{
		Use:   "gpu-undervolt",
		Short: "Undervolt NVIDIA GPUs on Linux",
		Long: `Lock GPU clock ranges and apply graphics clock offsets to make GPUs run
cooler and save energy. Running without a subcommand applies the
undervolt to all supported GPUs.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: false,
			HiddenDefaultCmd:  true,
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndervolt(cmd, util, executer, fs, procs, false)
		},
	}
	addGPUListFlag(root)

	root.AddCommand(NewInitCmd(util, fs))
	root.AddCommand(NewEnableCmd(util, executer, fs, procs))
	root.AddCommand(NewDisableCmd(util, executer, fs, procs))
	root.AddCommand(NewDaemonCmd(util, executer, fs, procs))
	root.AddCommand(NewStatusCmd(reader))

	return root
}

func Execute() {
	rootCmd := NewRootCmd(
		&backend.Sys{},
		&backend.CmdExecutor{},
		&backend.OS{},
		&backend.Proc{},
		&backend.NVML{},
	)

	// CheckErr prints formatted error message, if there is any, and exits
	cobra.CheckErr(rootCmd.Execute())
}
