package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/circuitgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Mode selects what the process does once the app is built.
type Mode int

const (
	// Serve runs the background services until interrupted.
	Serve Mode = iota
	// Check annotates and checks every circuit once, then exits.
	Check
)

func (m Mode) String() string {
	if m == Check {
		return "check"
	}
	return "serve"
}

// Invocation is the parsed command line.
type Invocation struct {
	Mode   Mode
	Config *app.Config
}

type flags struct {
	configs    []string
	logLevel   string
	logFormat  string
	healthPort int
	dataDir    string
}

// Parse processes command-line arguments. It returns the parsed invocation,
// a boolean indicating if the program should exit cleanly (help was shown),
// or an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")
	var f flags
	var inv *Invocation

	run := func(mode Mode) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd, args)
			if err != nil {
				return err
			}
			inv = &Invocation{Mode: mode, Config: cfg}
			return nil
		}
	}

	root := &cobra.Command{
		Use:   "circuitd [CONFIG_PATH...]",
		Short: "circuitgrid - a concurrent circuit model service",
		Long: `circuitd keeps a design of circuits in memory, serves health, metrics and
circuit status over HTTP, snapshots modified circuits and relays structural
changes to a socket.io observer.

CONFIG_PATH is a .hcl, .yaml or .yml file, or a directory searched recursively.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run(Serve),
	}
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	pf := root.PersistentFlags()
	pf.StringSliceVarP(&f.configs, "config", "c", nil, "Configuration file or directory. May be repeated.")
	pf.StringVar(&f.logLevel, "log-level", "", "Logging level: 'debug', 'info', 'warn' or 'error'. Overrides the configuration.")
	pf.StringVar(&f.logFormat, "log-format", "", "Log output format: 'text' or 'json'. Overrides the configuration.")
	pf.IntVar(&f.healthPort, "health-port", 0, "Port for the health, metrics and status server. 0 disables it.")
	pf.StringVar(&f.dataDir, "data-dir", "", "Directory holding circuit snapshots.")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve [CONFIG_PATH...]",
			Short: "Run the service until interrupted (default)",
			Args:  cobra.ArbitraryArgs,
			RunE:  run(Serve),
		},
		&cobra.Command{
			Use:   "check [CONFIG_PATH...]",
			Short: "Annotate and check every circuit once, then exit",
			Args:  cobra.ArbitraryArgs,
			RunE:  run(Check),
		},
	)

	if err := root.Execute(); err != nil {
		var exitErr *ExitError
		if e, ok := err.(*ExitError); ok {
			exitErr = e
		} else {
			exitErr = &ExitError{Code: 2, Message: err.Error()}
		}
		return nil, false, exitErr
	}
	if inv == nil {
		slog.Debug("No command ran, exiting.")
		return nil, true, nil
	}
	slog.Debug("CLI parser finished successfully.", "mode", inv.Mode)
	return inv, false, nil
}

func (f *flags) config(cmd *cobra.Command, args []string) (*app.Config, error) {
	logFormat := strings.ToLower(f.logFormat)
	if logFormat != "" && logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(f.logLevel)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if f.healthPort < 0 || f.healthPort > 65535 {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid health-port: %d", f.healthPort)}
	}

	cfg := app.Config{
		ConfigPaths: append(append([]string(nil), f.configs...), args...),
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		DataDir:     f.dataDir,
	}
	if cmd.Flags().Changed("health-port") {
		port := f.healthPort
		cfg.HealthPort = &port
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, nil
}
