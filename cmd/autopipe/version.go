// version.go implements 'autopipe version'.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/autopipe/internal/buildinfo"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print autopipe version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "autopipe %s\n", buildinfo.Version)
			if buildinfo.GitCommit != "" {
				fmt.Fprintf(out, "commit: %s\n", buildinfo.GitCommit)
			}
			if buildinfo.BuildDate != "" {
				fmt.Fprintf(out, "built:  %s\n", buildinfo.BuildDate)
			}
			return nil
		},
	}
}
