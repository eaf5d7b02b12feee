package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/memwatch/internal/logging"
	"github.com/Dicklesworthstone/memwatch/internal/report"
	"github.com/Dicklesworthstone/memwatch/internal/sampler"
)

var (
	reportOutput string
	reportSave   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Take one scan and print a memory report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closer, err := consoleLogger()
		if err != nil {
			return err
		}
		defer closer.Close()

		smp := sampler.New(newSource())
		smp.SetLogger(logging.Component(logger, "sampler"))
		snap, _, _ := smp.Scan(cmd.Context())
		if f := cfg.Sampling.Filter; f != "" {
			snap = snap.Filter(f)
		}

		path := reportOutput
		if path == "" && reportSave {
			path = filepath.Join(cfg.Output.Dir, report.DefaultReportName(time.Now()))
		}
		if path == "" {
			report.WriteSnapshot(os.Stdout, snap)
			return nil
		}
		if err := report.Save(path, report.SnapshotString(snap)); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write the report to this file instead of stdout")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "write the report to memory_report_<time>.txt in --dir")
}
