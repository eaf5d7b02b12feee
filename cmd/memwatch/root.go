package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/memwatch/internal/config"
	"github.com/Dicklesworthstone/memwatch/internal/engine"
	"github.com/Dicklesworthstone/memwatch/internal/logging"
	"github.com/Dicklesworthstone/memwatch/internal/sampler"
	"github.com/Dicklesworthstone/memwatch/internal/source"
)

var (
	flags config.Flags
	cfg   config.Config
)

var rootCmd = &cobra.Command{
	Use:   "memwatch",
	Short: "Watch system and per-process memory",
	Long: `memwatch scans memory every few seconds, shows the heaviest processes,
warns when usage crosses a threshold and writes timed logging sessions to text files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Resolve(cmd.Flags(), flags)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd.Context())
	},
}

func init() {
	flags.Register(rootCmd.PersistentFlags())
	rootCmd.AddCommand(monitorCmd, logCmd, reportCmd, inspectCmd, compareCmd, configCmd)
}

// newSource is the OS view every command reads; tests swap it for a fake.
var newSource = func() source.Source { return source.NewSystem() }

// consoleLogger writes human-readable diagnostics to stderr, or to the
// configured log file when one is set. The returned logger carries no
// component; callers tag it with logging.Component.
func consoleLogger() (zerolog.Logger, io.Closer, error) {
	if cfg.Output.LogFile != "" {
		return logging.OpenFile(cfg.Output.LogFile, cfg.Output.LogLevel, "")
	}
	return logging.NewConsole(os.Stderr, cfg.Output.LogLevel, ""), io.NopCloser(nil), nil
}

// newEngine wires the source, sampler and engine from cfg.
func newEngine(logger zerolog.Logger) *engine.Engine {
	smp := sampler.New(newSource())
	smp.SetLogger(logging.Component(logger, "sampler"))
	smp.ConfigureThreshold(cfg.Sampling.ThresholdPercent)
	return engine.New(smp,
		engine.WithPeriod(cfg.Interval()),
		engine.WithLogger(logging.Component(logger, "engine")),
	)
}
