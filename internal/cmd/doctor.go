package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Gnarus-G/mcro/pkg/device"
	"github.com/Gnarus-G/mcro/pkg/permissions"
	"github.com/Gnarus-G/mcro/pkg/uinput"
)

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check access to input devices and /dev/uinput",
		Long: `Probe whether the current user can read the evdev nodes and create
uinput devices. MCRO_INPUT and MCRO_UINPUT (granted, denied, unavailable)
override the probes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := device.DetectEnvironment(permissions.DefaultLookupEnv, device.DefaultInputDir, uinput.DefaultPath)
			printEnvironment(env, cmd.OutOrStdout())
			if !env.Available {
				return errors.New(env.Message)
			}
			return nil
		},
	}
}

func printEnvironment(env device.Environment, stdout io.Writer) {
	printProbe(stdout, "input", env.Input)
	printProbe(stdout, "uinput", env.Uinput)
	fmt.Fprintf(stdout, "Result: %s\n", env.Message)
}

func printProbe(stdout io.Writer, name string, probe permissions.ProbeResult) {
	fmt.Fprintf(stdout, "  %-7s %s", name+":", probe.StatusString())
	if probe.Message != "" {
		fmt.Fprintf(stdout, " (%s)", probe.Message)
	}
	fmt.Fprintln(stdout)
	if probe.Guidance != "" {
		fmt.Fprintf(stdout, "          hint: %s\n", probe.Guidance)
	}
}
