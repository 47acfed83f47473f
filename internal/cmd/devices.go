package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Gnarus-G/mcro/pkg/device"
)

var listDevices = func() ([]device.Info, error) {
	return device.NewFinder().List()
}

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List input devices and the names to put in the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := listDevices()
			if err != nil {
				return fmt.Errorf("list input devices: %w", err)
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No input devices found (see `mcro doctor`)")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tNAME")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\n", info.Path, info.Name)
			}
			return tw.Flush()
		},
	}
}
