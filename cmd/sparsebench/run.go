package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/weiihann/sparsebench/config"
	"github.com/weiihann/sparsebench/harness"
	"github.com/weiihann/sparsebench/metrics"
	"github.com/weiihann/sparsebench/report"
	"github.com/weiihann/sparsebench/sink"
	"github.com/weiihann/sparsebench/sweep"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run construction benchmarks and write result files",
		Long: `Run every selected suite against every selected routine. Each
(routine, suite) pair writes construct_<routine>_init_<suite>_<timestamp>.<ext>
to the output directory. Any failure aborts the run; the pair that failed
writes no file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd.Context(), a.logger, a.settings, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String(config.KeyOutputDir, ".",
		"Directory for result files")
	flags.String(config.KeyDelimiter, "tab",
		"Field delimiter: tab, comma or a single character")
	flags.Int64(config.KeySeed, 1,
		"Seed for the triple generator")
	flags.Int(config.KeyRepeats, 8,
		"Timing trials per configuration")
	flags.Int(config.KeyNumber, 0,
		"Executions per trial (0 = calibrate)")
	flags.Duration(config.KeyMinDuration, 200*time.Millisecond,
		"Trial length calibration aims for")
	flags.StringSlice(config.KeyRoutines, nil,
		"Routines to run (default coo,csc,csr)")
	flags.Bool(config.KeyJSON, false,
		"Print the summary as JSON instead of a table")
	flags.String(config.KeyMetricsFile, "",
		"Write Prometheus metrics to this textfile")
	flags.String(config.KeyTraceFile, "",
		"Write OpenTelemetry spans to this file")

	return cmd
}

// selectSuites returns the plan's suites when a plan is configured, or the
// requested built-in suites, or all built-in suites.
func selectSuites(s config.Settings) ([]sweep.Suite, error) {
	if s.Plan != "" {
		f, err := os.Open(s.Plan)
		if err != nil {
			return nil, fmt.Errorf("open plan: %w", err)
		}
		defer f.Close()

		plan, err := sweep.LoadPlan(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Plan, err)
		}

		return plan.Expand()
	}

	if len(s.Suites) == 0 {
		return sweep.BuiltinSuites(), nil
	}

	suites := make([]sweep.Suite, 0, len(s.Suites))

	for _, name := range s.Suites {
		suite, ok := sweep.SuiteByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown suite %q", name)
		}

		suites = append(suites, suite)
	}

	return suites, nil
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	s config.Settings,
	stdout io.Writer,
) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	suites, err := selectSuites(s)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	if s.TraceFile != "" {
		shutdown, terr := startTracing(s.TraceFile)
		if terr != nil {
			return fmt.Errorf("setup tracing: %w", terr)
		}

		defer func() {
			err = errors.Join(err, shutdown(context.Background()))
		}()
	}

	m := metrics.New()
	if s.MetricsFile != "" {
		defer func() {
			if werr := m.WriteTextfile(s.MetricsFile); werr != nil {
				err = errors.Join(err, fmt.Errorf("write metrics: %w", werr))
			}
		}()
	}

	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	writer := &sink.Writer{Dir: s.OutputDir, Delimiter: s.Delimiter}

	logger.InfoContext(ctx, "starting benchmark",
		slog.Int("suites", len(suites)),
		slog.Uint64("seed", s.Seed),
		slog.String("output_dir", s.OutputDir),
	)

	var summaries []report.Summary

	for _, suite := range suites {
		names := suite.Routines
		if len(names) == 0 {
			names = s.Routines
		}
		if len(names) == 0 {
			names = harness.DefaultRoutines()
		}

		routines, err := harness.ResolveRoutines(names)
		if err != nil {
			return fmt.Errorf("suite %s: %w", suite.Name, err)
		}

		cfg := harness.RunConfig{
			Seed:        s.Seed,
			Repeats:     firstPositive(suite.Repeats, s.Repeats),
			Number:      firstPositive(suite.Number, s.Number),
			MinDuration: s.MinDuration,
		}

		for _, routine := range routines {
			summary, err := runSuite(ctx, logger, m, writer, routine, suite, cfg)
			if err != nil {
				return err
			}

			summaries = append(summaries, summary)
		}
	}

	if s.JSON {
		if err := report.GenerateJSON(stdout, runID, summaries); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(stdout, runID, summaries); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

func runSuite(
	ctx context.Context,
	logger *slog.Logger,
	m *metrics.Metrics,
	writer *sink.Writer,
	routine harness.Routine,
	suite sweep.Suite,
	cfg harness.RunConfig,
) (report.Summary, error) {
	stem := routine.FileStem(suite.Name)
	runner := harness.NewRunner(routine, cfg, logger, m)

	records, err := runner.Run(ctx, suite.Name, suite.Configs)
	if err != nil {
		return report.Summary{}, fmt.Errorf("%s: %w", stem, err)
	}

	path, err := writer.Write(stem, records)
	if err != nil {
		return report.Summary{}, fmt.Errorf("%s: %w", stem, err)
	}

	logger.InfoContext(ctx, "results written",
		slog.String("routine", routine.Name),
		slog.String("suite", suite.Name),
		slog.String("path", path),
		slog.Int("records", len(records)),
	)

	return report.Summarize(routine.Name, suite.Name, path, records), nil
}

// startTracing is replaced in tests.
var startTracing = setupTracing

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}

	return 0
}
