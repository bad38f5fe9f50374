// Package cli implements the cobra command tree for crosspose.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/andrewiankidd/crosspose-sub000/internal/config"
	"github.com/andrewiankidd/crosspose-sub000/internal/logging"
)

// ExitError carries the process exit code alongside the failure. Pipeline
// failures exit 1, usage and configuration mistakes exit 2.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}

	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	err := NewRootCommand().Execute()
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return 1
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "crosspose",
		Short: "Convert Kubernetes manifests into OS-partitioned compose projects",
		Long: `crosspose converts rendered Kubernetes workloads into docker-compose
projects split by container OS, so the same chart can run locally across a
native windows engine and a WSL-hosted linux engine at once.

Operator-authored translation rules scaffold supporting infrastructure
(databases, queues, emulators) and wire secrets and cross-host networking
into the generated services.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return initRun(cmd, cfgFile) },
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .crosspose.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand(),
		newConvertCommand(),
		newWatchCommand(),
		newCompletionCommand(),
	)

	return cmd
}

// initRun loads the configuration and attaches it, together with the
// configured logger, to the command context before any subcommand runs.
func initRun(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.Load(cmd, cfgFile)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	logger := logging.Setup(cfg)

	ctx := config.NewContext(cmd.Context(), cfg)
	cmd.SetContext(logging.NewContext(ctx, logger))

	logger.Debug("configuration loaded",
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat))

	return nil
}
