// File: internal/report/report.go
// Brief: Analysis report rendering, both JSON artifact and terminal tables.

// Package report renders resolution results for humans and for machines. The
// JSON artifact is the stable downstream contract; the table output is for
// terminals and carries no compatibility promise.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/example/autopipe/internal/model"
)

// FileName is the JSON artifact written into the output directory.
const FileName = "autopipe_report.json"

// Report is the machine-readable result of one analysis run.
type Report struct {
	ProjectName   string                `json:"project_name"`
	DetectedStack *model.DetectedStack  `json:"detected_stack"`
	Context       *model.ProjectContext `json:"context,omitempty"`
	OutputDir     string                `json:"output_dir,omitempty"`
}

// Write persists the report into dir, creating it as needed. Returns the full
// path of the written artifact.
func Write(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	path := filepath.Join(dir, FileName)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode report")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// WriteJSON streams the report to w, for --json output on stdout.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r), "encode report")
}

// WriteStacksJSON streams a bare detection listing to w.
func WriteStacksJSON(w io.Writer, stacks []*model.DetectedStack) error {
	if stacks == nil {
		stacks = []*model.DetectedStack{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(stacks), "encode stacks")
}

// IsTerminalWriter reports whether w is an interactive terminal.
func IsTerminalWriter(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// PrintContext renders the resolved project context for a terminal.
func PrintContext(w io.Writer, ctx *model.ProjectContext) error {
	if ctx == nil || ctx.Stack == nil {
		fmt.Fprintln(w, "No project detected.")
		return nil
	}
	colorize := IsTerminalWriter(w) && !color.NoColor

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PROJECT\t%s\n", ctx.Metadata.Name)
	fmt.Fprintf(tw, "VERSION\t%s\n", ctx.Metadata.Version)
	fmt.Fprintf(tw, "ROOT\t%s\n", ctx.RootPath)
	if ctx.IsMonorepo {
		fmt.Fprintf(tw, "MONOREPO\tyes (%d projects)\n", len(ctx.DetectedProjects))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if err := printSelectedStack(w, ctx.Stack, colorize); err != nil {
		return err
	}
	if ctx.IsMonorepo {
		fmt.Fprintln(w, "\nAll detected projects:")
		return PrintStacks(w, ctx.DetectedProjects)
	}
	return nil
}

// PrintStacks renders a detection listing, one row per stack.
func PrintStacks(w io.Writer, stacks []*model.DetectedStack) error {
	if len(stacks) == 0 {
		fmt.Fprintln(w, "No technology stacks detected.")
		return nil
	}
	colorize := IsTerminalWriter(w) && !color.NoColor

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tVERSION\tFRAMEWORK\tBUILD\tROOT\tSIGNALS")
	for _, s := range stacks {
		lang := string(s.Language)
		if colorize {
			lang = color.New(color.FgHiCyan).Sprint(lang)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			lang,
			s.LanguageVersion,
			dashIfEmpty(frameworkLabel(s.Framework)),
			string(s.BuildTool),
			dashIfEmpty(s.ProjectRoot),
			dashIfEmpty(strings.Join(stackSignals(s), ",")),
		)
	}
	return tw.Flush()
}

func printSelectedStack(w io.Writer, s *model.DetectedStack, colorize bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	lang := string(s.Language)
	if colorize {
		lang = color.New(color.FgHiGreen).Sprint(lang)
	}
	fmt.Fprintf(tw, "SELECTED\t%s %s\n", lang, s.LanguageVersion)
	fmt.Fprintf(tw, "FRAMEWORK\t%s\n", dashIfEmpty(frameworkLabel(s.Framework)))
	fmt.Fprintf(tw, "BUILD TOOL\t%s\n", string(s.BuildTool))
	if s.ConfigFile != "" {
		fmt.Fprintf(tw, "CONFIG\t%s\n", s.ConfigFile)
	}
	if s.Entrypoint != "" {
		fmt.Fprintf(tw, "ENTRYPOINT\t%s\n", s.Entrypoint)
	}
	if s.SourceDir != "" {
		fmt.Fprintf(tw, "SOURCE\t%s\n", s.SourceDir)
	}
	if s.TestDir != "" {
		fmt.Fprintf(tw, "TESTS\t%s\n", s.TestDir)
	}
	if len(s.Dependencies) > 0 {
		fmt.Fprintf(tw, "DEPENDENCIES\t%d declared\n", len(s.Dependencies))
	}
	if signals := stackSignals(s); len(signals) > 0 {
		fmt.Fprintf(tw, "SIGNALS\t%s\n", strings.Join(signals, ", "))
	}
	return tw.Flush()
}

func stackSignals(s *model.DetectedStack) []string {
	var signals []string
	if s.HasDockerfile {
		signals = append(signals, "dockerfile")
	}
	if s.HasTests {
		if s.TestFramework != "" {
			signals = append(signals, "tests:"+s.TestFramework)
		} else {
			signals = append(signals, "tests")
		}
	}
	if s.IsMultiModule {
		signals = append(signals, "multi-module")
	}
	return signals
}

func frameworkLabel(f model.Framework) string {
	if f == model.FrameworkNone {
		return ""
	}
	return string(f)
}

func dashIfEmpty(val string) string {
	if val == "" {
		return "-"
	}
	return val
}
