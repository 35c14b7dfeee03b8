package cmd

import (
	"github.com/spf13/cobra"

	"gitlab.com/nvctl/gpu-undervolt/cmd/backend"
	"gitlab.com/nvctl/gpu-undervolt/xorg"
)

func NewInitCmd(util backend.Utility, fs xorg.FileSystem) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Prepare the host for undervolting (requires reboot)",
		Long: `Patches the display-server permission file and installs the Coolbits
xorg snippet so nvidia-settings can run without a graphical session.
The permission file is backed up before its first modification.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := checkRoot(util)
			if err != nil {
				return err
			}

			_, err = xorg.NewInitializer(fs).Run(cmd.OutOrStdout())
			return err
		},
	}
}
