package main

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/memwatch/internal/config"
	"github.com/Dicklesworthstone/memwatch/internal/logging"
	"github.com/Dicklesworthstone/memwatch/internal/report"
	"github.com/Dicklesworthstone/memwatch/internal/session"
	"github.com/Dicklesworthstone/memwatch/internal/ui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live view of memory usage (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd.Context())
	},
}

// runMonitor owns the terminal, so diagnostics only go to the log file.
func runMonitor(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	logger, closer, err := logging.OpenFile(cfg.Output.LogFile, cfg.Output.LogLevel, "")
	if err != nil {
		return err
	}
	defer closer.Close()

	eng := newEngine(logger)
	prog := ui.NewProgram(ctx, ui.New(eng, cfg, cancel))
	ui.Attach(eng, prog.Send)
	eng.OnLogComplete(func(res session.Result) error {
		path := filepath.Join(cfg.Output.Dir, res.Filename)
		if err := report.Save(path, res.Text); err != nil {
			return err
		}
		prog.Send(ui.Notice("log saved to " + path))
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return ui.Run(gctx, prog)
	})
	if path := flags.Path(); path != "" {
		g.Go(func() error { return watchThreshold(gctx, path, logger, eng.ConfigureThreshold) })
	}
	return g.Wait()
}

// watchThreshold re-applies the alert threshold whenever the config file
// changes. Other settings take effect on the next start.
func watchThreshold(ctx context.Context, path string, logger zerolog.Logger, apply func(int)) error {
	return config.Watch(ctx, path, logging.Component(logger, "config"), func(c config.Config) {
		apply(c.Sampling.ThresholdPercent)
	})
}
