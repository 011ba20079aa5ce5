// File: internal/config/config.go
// Brief: CLI options, flag binding, and validation shared by the commands.

// Package config defines the flag plumbing and runtime options shared by
// autopipe's commands, translating Cobra/Viper flag values into a strongly
// typed struct that the analyzer and resolver consume.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Options holds all CLI configuration used by the analysis commands.
type Options struct {
	Source     string
	OutputDir  string
	Name       string
	Recursive  bool
	MaxDepth   int
	JSONOutput bool
	WriteFile  bool
	ColorMode  string
	LogLevel   string
}

// NewOptions returns Options with defaults applied.
func NewOptions() *Options {
	return &Options{
		OutputDir: ".",
		Recursive: true,
		MaxDepth:  5,
		ColorMode: "auto",
		LogLevel:  "info",
	}
}

// AddFlags binds the full flag surface to the provided Cobra command.
func (o *Options) AddFlags(cmd *cobra.Command) {
	o.BindScanFlags(cmd.Flags())
	o.BindReportFlags(cmd.Flags())
}

// AddScanFlags binds only the scan flags, for commands that never write a
// report.
func (o *Options) AddScanFlags(cmd *cobra.Command) {
	o.BindScanFlags(cmd.Flags())
}

// BindScanFlags attaches the tree-scanning and output-format flags to an
// arbitrary FlagSet and returns the flag names for further customization.
func (o *Options) BindScanFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.BoolVarP(&o.Recursive, "recursive", "r", true, "Search subdirectories for nested projects")
	names = append(names, "recursive")
	fs.IntVar(&o.MaxDepth, "max-depth", 5, "Maximum directory depth for the recursive search")
	names = append(names, "max-depth")
	fs.BoolVarP(&o.JSONOutput, "json", "j", false, "Emit the result as JSON on stdout instead of a table")
	names = append(names, "json")
	fs.StringVarP(&o.ColorMode, "color", "m", "auto", "Force set color output. 'auto': colorize if tty attached, 'always': always colorize, 'never': never colorize")
	names = append(names, "color")
	fs.StringVar(&o.LogLevel, "log-level", "info", "Log verbosity: debug, info, warn, error")
	names = append(names, "log-level")
	return names
}

// BindReportFlags attaches the report-writing flags to an arbitrary FlagSet
// and returns the flag names for further customization.
func (o *Options) BindReportFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.StringVarP(&o.OutputDir, "output-dir", "o", ".", "Directory where the analysis report is written")
	names = append(names, "output-dir")
	fs.StringVar(&o.Name, "name", "", "Override the detected project name")
	names = append(names, "name")
	fs.BoolVar(&o.WriteFile, "write", false, "Also write the JSON report into the output directory")
	names = append(names, "write")
	return names
}

// Validate ensures provided options are coherent and normalizes them.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Source) == "" {
		o.Source = "."
	}
	if strings.TrimSpace(o.OutputDir) == "" {
		o.OutputDir = "."
	}
	if o.MaxDepth < 0 {
		return fmt.Errorf("--max-depth cannot be negative")
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = 5
	}
	switch strings.ToLower(o.ColorMode) {
	case "", "auto":
		o.ColorMode = "auto"
	case "always":
		o.ColorMode = "always"
	case "never":
		o.ColorMode = "never"
	default:
		return fmt.Errorf("invalid --color value %q (allowed: auto, always, never)", o.ColorMode)
	}
	switch strings.ToLower(o.LogLevel) {
	case "debug", "info", "warn", "error":
		o.LogLevel = strings.ToLower(o.LogLevel)
	default:
		return fmt.Errorf("invalid --log-level value %q (allowed: debug, info, warn, error)", o.LogLevel)
	}
	o.Name = strings.TrimSpace(o.Name)
	return nil
}
