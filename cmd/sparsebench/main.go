// Package main provides the CLI entry point for sparsebench, a benchmark
// of sparse array construction cost across sizes and densities.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiihann/sparsebench/config"
	"github.com/weiihann/sparsebench/harness"
	"github.com/weiihann/sparsebench/sweep"
)

func main() {
	app := &app{
		viper:  viper.New(),
		logger: newLogger(os.Stderr, slog.LevelInfo, "auto"),
	}

	root := newRootCmd(app)
	if err := root.Execute(); err != nil {
		app.logger.Error("sparsebench failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// app carries state resolved before any subcommand runs.
type app struct {
	viper    *viper.Viper
	cfgFile  string
	settings config.Settings
	logger   *slog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sparsebench",
		Short: "Sparse array construction benchmark",
		Long: `Sparsebench measures how long it takes to construct sparse arrays in
coordinate-list, compressed-row and compressed-column form, sweeping the array
size and the fraction of filled cells, and writes one delimited result file
per routine and suite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(a.viper, a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			a.settings = settings
			a.logger = newLogger(os.Stderr, settings.LogLevel, settings.LogFormat)

			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"Config file (default: ./sparsebench.yaml)")
	flags.String(config.KeyLogLevel, "info",
		"Log level: debug, info, warn, error")
	flags.String(config.KeyLogFormat, "auto",
		"Log format: auto, text, json")
	flags.String(config.KeyPlan, "",
		"YAML plan file defining custom suites")
	flags.StringSlice(config.KeySuites, nil,
		"Built-in suites to run (size_density, size_same_density)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newSweepCmd(a))
	root.AddCommand(newRoutinesCmd())

	return root
}

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Print the configurations of each suite without running them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			suites, err := selectSuites(a.settings)
			if err != nil {
				return err
			}

			return printSweep(cmd.OutOrStdout(), suites)
		},
	}
}

func newRoutinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routines",
		Short: "List the construction routines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defaults := harness.DefaultRoutines()

			for _, name := range harness.KnownRoutines() {
				marker := ""
				if slices.Contains(defaults, name) {
					marker = " (default)"
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", name, marker)
			}

			return nil
		},
	}
}

func printSweep(w io.Writer, suites []sweep.Suite) error {
	for _, s := range suites {
		fmt.Fprintf(w, "# %s (%d configurations)\n", s.Name, len(s.Configs))

		for i, c := range s.Configs {
			if _, err := fmt.Fprintf(w, "%d\t%d\t%d\n",
				i, c.AxisSize, c.CellsToFill); err != nil {
				return err
			}
		}
	}

	return nil
}

// newLogger picks a text handler for terminals and JSON otherwise, unless
// format forces one.
func newLogger(w *os.File, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" ||
		(format == "auto" && !isatty.IsTerminal(w.Fd()) && !isatty.IsCygwinTerminal(w.Fd())) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
