package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/nvctl/gpu-undervolt/cmd/backend"
	"gitlab.com/nvctl/gpu-undervolt/gpu"
	"gitlab.com/nvctl/gpu-undervolt/internal/config"
	"gitlab.com/nvctl/gpu-undervolt/xorg"
)

func NewDaemonCmd(util backend.Utility, executer gpu.Executer, fs xorg.FileSystem, procs xorg.ProcessLister) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Monitor power draw and toggle the undervolt automatically",
		Long: `Locked clocks make an idle GPU consume more energy. The daemon watches
each card's power draw and keeps the undervolt on only while the draw is
above the profile threshold. Stopping the daemon restores default clocks
on all affected GPUs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, devices, err := prepare(cmd, util, executer, fs, procs)
			if err != nil {
				return err
			}

			cfg := config.GetConfig()
			poll := time.Duration(cfg.Daemon.PollIntervalMs) * time.Millisecond
			action := time.Duration(cfg.Daemon.ActionInterval) * time.Second

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return gpu.NewMonitor(ctrl, devices, poll, action).Run(ctx, cmd.OutOrStdout())
		},
	}
	addGPUListFlag(cmd)

	return cmd
}
