package cmd

import (
	"fmt"
	"io"
	"strings"

	evdev "github.com/holoplot/go-evdev"
	"github.com/spf13/cobra"

	"github.com/Gnarus-G/mcro/pkg/config"
	"github.com/Gnarus-G/mcro/pkg/device"
	"github.com/Gnarus-G/mcro/pkg/remap"
	"github.com/Gnarus-G/mcro/pkg/session"
	"github.com/Gnarus-G/mcro/pkg/uinput"
)

var (
	newDeviceFinder = func() session.Finder {
		finder := device.NewFinder()
		return session.FinderFunc(func(name string) (session.Device, error) {
			dev, err := finder.Find(name)
			if err != nil {
				return nil, err
			}
			return dev, nil
		})
	}
	newVirtualDevice = func(opts uinput.Options) (session.VirtualDevice, error) {
		dev, err := uinput.New(opts)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
)

func newRunCommand(rootOpts *RootOptions) *cobra.Command {
	var planOnly bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grab the configured devices and start remapping",
		Long: `Grab every configured device that is present and forward its events,
translated, to one virtual keyboard per device. Runs until every session
has ended.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemapCommand(cmd, rootOpts, planOnly)
		},
	}

	cmd.Flags().BoolVar(&planOnly, "plan-only", false, "print the resolved configuration without grabbing devices")

	return cmd
}

func runRemapCommand(cmd *cobra.Command, rootOpts *RootOptions, planOnly bool) error {
	ctx, err := rootOpts.ensureAppContext(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return runRemap(ctx, planOnly, cmd.OutOrStdout())
}

func runRemap(ctx *AppContext, planOnly bool, stdout io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	rules, err := ctx.Config.Rules.Resolve()
	if err != nil {
		return err
	}

	ctx.Logger.Info("run command invoked", "plan_only", planOnly, "config_source", ctx.Config.Source)

	if planOnly {
		printRunPlan(ctx.Config, rules, stdout)
		return nil
	}

	vd := ctx.Config.VirtualDevice
	sup, err := session.NewSupervisor(session.Options{
		Devices: ctx.Config.Devices,
		Rules:   rules,
		Finder:  newDeviceFinder(),
		NewSink: func() (session.VirtualDevice, error) {
			return newVirtualDevice(uinput.Options{
				Name: vd.Name,
				ID: evdev.InputID{
					BusType: uinput.BusUSB,
					Vendor:  vd.Vendor,
					Product: vd.Product,
				},
				Keys: uinput.AllKeys(),
			})
		},
		Logger: ctx.Logger,
	})
	if err != nil {
		return err
	}

	printSummary(sup.Run(), stdout)
	return nil
}

func printRunPlan(cfg config.Config, rules remap.Rules, stdout io.Writer) {
	fmt.Fprintf(stdout, "Resolved configuration (source: %s)\n", cfg.Source)
	fmt.Fprintf(stdout, "  devices: %s\n", strings.Join(quoted(cfg.Devices), ", "))
	fmt.Fprintf(stdout, "  virtual_device: %s (%04x:%04x)\n", cfg.VirtualDevice.Name, cfg.VirtualDevice.Vendor, cfg.VirtualDevice.Product)
	fmt.Fprintf(stdout, "  chord: %s -> %s\n", keyNames(rules.ChordTriggers, " | "), keyNames(rules.ChordKeys, " + "))
	fmt.Fprintf(stdout, "  remap: %s -> %s\n", keyName(rules.RemapTrigger), keyName(rules.RemapOutput))
	fmt.Fprintf(stdout, "  logging.level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(stdout, "  logging.format: %s\n", cfg.Logging.Format)
}

func printSummary(results []session.Result, stdout io.Writer) {
	fmt.Fprintln(stdout, "Session summary:")
	for _, res := range results {
		switch {
		case res.Skipped:
			fmt.Fprintf(stdout, "  - %s: skipped (not present)\n", res.Device)
		case res.Err != nil:
			fmt.Fprintf(stdout, "  - %s: ended (%v)\n", res.Device, res.Err)
		default:
			fmt.Fprintf(stdout, "  - %s: ended\n", res.Device)
		}
	}
}

func keyName(code remap.KeyCode) string {
	return evdev.CodeName(evdev.EV_KEY, code)
}

func keyNames(codes []remap.KeyCode, sep string) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = keyName(c)
	}
	return strings.Join(names, sep)
}

func quoted(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
