package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/memwatch/internal/logging"
	"github.com/Dicklesworthstone/memwatch/internal/report"
	"github.com/Dicklesworthstone/memwatch/internal/session"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Run one logging session without the live view and save it",
	Long: `log samples every --log-interval seconds for --log-duration seconds and writes
the session to memory_log_<start>.txt in --dir. Repeat --pid to log only
those processes. Interrupting the session discards it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLog(cmd.Context())
	},
}

func runLog(parent context.Context) error {
	ctx, stopSignals := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger, closer, err := consoleLogger()
	if err != nil {
		return err
	}
	defer closer.Close()
	cli := logging.Component(logger, "log")

	saved := make(chan error, 1)
	eng := newEngine(logger)
	eng.OnLogComplete(func(res session.Result) error {
		path := filepath.Join(cfg.Output.Dir, res.Filename)
		err := report.Save(path, res.Text)
		if err == nil {
			cli.Info().Str("path", path).Int("samples", res.Samples).Msg("log saved")
			fmt.Println(path)
		}
		saved <- err
		return err
	})

	req := cfg.SessionRequest()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error {
		select {
		case <-eng.Ready():
		case <-gctx.Done():
			return gctx.Err()
		}
		if err := eng.StartLoggingSession(gctx, req); err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return err
		}
		select {
		case err := <-saved:
			cancel()
			return err
		case <-gctx.Done():
			return gctx.Err()
		}
	})
	return g.Wait()
}
