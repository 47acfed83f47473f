package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Gnarus-G/mcro/internal/buildinfo"
	"github.com/Gnarus-G/mcro/pkg/config"
	"github.com/Gnarus-G/mcro/pkg/logging"
)

const defaultEnvFile = ".env"

// AppContext exposes lazily initialised configuration and logging facilities.
type AppContext struct {
	Config config.Config
	Logger *slog.Logger
}

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	EnvFile    string

	appCtx *AppContext
}

// NewRootCommand builds the mcro command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mcro",
		Short: "mcro - input device remapper",
		Long: `Grab physical input devices, translate their key events through a fixed
set of rules and replay the result on a virtual uinput keyboard.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(opts.EnvFile)
		},
		// Bare `mcro` behaves like `mcro run`.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemapCommand(cmd, opts, false)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (default: ./mcro.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "override log output format (json, console)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file loaded before configuration (default: ./.env if present)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newDevicesCommand())
	cmd.AddCommand(newDoctorCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// loadDotEnv loads variables from a dotenv file. The implicit default may be
// absent; a file named on the command line must exist.
func loadDotEnv(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = defaultEnvFile
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

func (o *RootOptions) ensureAppContext(stderr io.Writer) (*AppContext, error) {
	if o.appCtx != nil {
		return o.appCtx, nil
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	if o.LogLevel != "" {
		lvl, err := config.NormalizeLogLevel(o.LogLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = lvl
	}
	if o.LogFormat != "" {
		format, err := config.NormalizeFormat(o.LogFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: stderr,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", "source", cfg.Source, "devices", len(cfg.Devices))

	o.appCtx = &AppContext{Config: cfg, Logger: logger}
	return o.appCtx, nil
}

func versionString() string {
	return fmt.Sprintf("%s (go%s/%s)", buildinfo.Version(), strings.TrimPrefix(runtimeVersion(), "go"), runtimeGOOS())
}

// runtimeVersion is extracted for testability.
var runtimeVersion = func() string { return runtime.Version() }

// runtimeGOOS is extracted for testability.
var runtimeGOOS = func() string { return runtime.GOOS }
