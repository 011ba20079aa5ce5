// main.go bootstraps autopipe: it builds the root Cobra command, wires config
// overlays, and executes with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/autopipe/internal/buildinfo"
	"github.com/example/autopipe/internal/fetch"
	"github.com/example/autopipe/internal/resolve"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "autopipe",
		Short:         "Technology stack detection and resolution for source repositories",
		Long:          "autopipe inspects a source tree, detects every technology stack in it, and resolves the primary one for pipeline generation.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Version = buildinfo.Version

	detectCmd := newDetectCommand()
	resolveCmd := newResolveCommand()
	cmd.AddCommand(
		detectCmd,
		resolveCmd,
		newVersionCommand(),
	)
	cmd.Example = `  # Detect every stack in the current repository
  autopipe detect .

  # Resolve the primary stack of a monorepo and write the report
  autopipe resolve ./services --write --output-dir dist

  # Machine-readable output
  autopipe resolve . --json`
	bindViper(cmd, detectCmd, resolveCmd)
	return cmd
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("AUTOPIPE")
	v.AutomaticEnv()
	configFile := os.Getenv("AUTOPIPE_CONFIG")
	configureConfigFile(v, configFile)

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			cobra.CheckErr(err)
		}
		for _, cmd := range commands {
			flagSets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()}
			for _, fs := range flagSets {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val != "" {
						_ = f.Value.Set(val)
					}
				})
			}
		}
	})
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "autopipe"))
	}
	if home, err := homedir.Dir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "autopipe"))
		add(filepath.Join(home, ".autopipe"))
	}
	return dirs
}

func applyColorMode(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	switch {
	case errors.Is(err, resolve.ErrNoStacks):
		message = fmt.Sprintf("%s\nHint: run 'autopipe detect <path>' to see what was scanned, or point at the directory holding the project manifest.", err)
	case errors.Is(err, fetch.ErrRemoteSource):
		message = fmt.Sprintf("%s\nHint: clone the repository locally and pass the working copy path.", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
