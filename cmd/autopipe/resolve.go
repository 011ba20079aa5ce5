// resolve.go implements 'autopipe resolve': pick the primary stack of a tree.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/autopipe/internal/analyzer"
	"github.com/example/autopipe/internal/config"
	"github.com/example/autopipe/internal/detect"
	"github.com/example/autopipe/internal/fetch"
	"github.com/example/autopipe/internal/logging"
	"github.com/example/autopipe/internal/report"
	"github.com/example/autopipe/internal/resolve"
)

func newResolveCommand() *cobra.Command {
	opts := config.NewOptions()
	var all bool
	cmd := &cobra.Command{
		Use:   "resolve [PATH]",
		Short: "Resolve the primary technology stack of a source tree",
		Long:  "Detects every stack in a local source tree, scores them, and resolves the primary one. With --all, every detected project gets its own resolved context.",
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

			r := resolve.New(log)
			out := cmd.OutOrStdout()
			if all {
				contexts, err := r.ResolveAll(stacks, src.Path)
				if err != nil {
					return err
				}
				for i, projectCtx := range contexts {
					if i > 0 {
						fmt.Fprintln(out)
					}
					if err := report.PrintContext(out, projectCtx); err != nil {
						return err
					}
				}
				return nil
			}

			projectCtx, err := r.Resolve(stacks, src.Path)
			if err != nil {
				return err
			}
			if opts.Name != "" {
				projectCtx.Metadata.Name = opts.Name
			}

			result := &report.Report{
				ProjectName:   projectCtx.Metadata.Name,
				DetectedStack: projectCtx.Stack,
				Context:       projectCtx,
			}
			if opts.WriteFile {
				result.OutputDir = opts.OutputDir
				path, err := report.Write(opts.OutputDir, result)
				if err != nil {
					return err
				}
				log.Info("report written", zap.String("path", path))
			}
			if opts.JSONOutput {
				return report.WriteJSON(out, result)
			}
			return report.PrintContext(out, projectCtx)
		},
	}
	opts.AddFlags(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "Resolve every detected project instead of only the primary one")
	return cmd
}
