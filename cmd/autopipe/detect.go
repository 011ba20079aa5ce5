// detect.go implements 'autopipe detect': list every stack found in a tree.
package main

import (
	"github.com/spf13/cobra"

	"github.com/example/autopipe/internal/analyzer"
	"github.com/example/autopipe/internal/config"
	"github.com/example/autopipe/internal/detect"
	"github.com/example/autopipe/internal/fetch"
	"github.com/example/autopipe/internal/logging"
	"github.com/example/autopipe/internal/report"
)

func newDetectCommand() *cobra.Command {
	opts := config.NewOptions()
	cmd := &cobra.Command{
		Use:   "detect [PATH]",
		Short: "Detect every technology stack in a source tree",
		Long:  "Scans a local source tree with all ecosystem detectors and lists every project found, without choosing a primary one.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Source = args[0]
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			applyColorMode(opts.ColorMode)

			log, err := logging.New(opts.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			src, err := fetch.Fetch(opts.Source)
			if err != nil {
				return err
			}
			defer func() { _ = src.Cleanup() }()

			a := analyzer.NewWithPolicy(log, detect.ScanPolicy{MaxDepth: opts.MaxDepth})
			stacks, err := a.Analyze(cmd.Context(), src.Path, analyzer.Options{Recursive: opts.Recursive})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.JSONOutput {
				return report.WriteStacksJSON(out, stacks)
			}
			return report.PrintStacks(out, stacks)
		},
	}
	opts.AddScanFlags(cmd)
	return cmd
}
