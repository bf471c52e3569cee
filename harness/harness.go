package harness

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weiihann/sparsebench/metrics"
	"github.com/weiihann/sparsebench/sweep"
	"github.com/weiihann/sparsebench/timing"
	"github.com/weiihann/sparsebench/workload"
)

const tracerName = "github.com/weiihann/sparsebench/harness"

// RunConfig holds the timing and data parameters shared by every
// configuration of a suite.
type RunConfig struct {
	Seed        uint64
	Repeats     int
	Number      int
	MinDuration time.Duration
}

// Runner benchmarks one construction routine.
type Runner struct {
	Routine Routine
	Config  RunConfig
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

// NewRunner creates a Runner for the routine. Metrics may be nil.
func NewRunner(
	routine Routine,
	cfg RunConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Runner {
	return &Runner{
		Routine: routine,
		Config:  cfg,
		Logger:  logger.With(slog.String("routine", routine.Name)),
		Metrics: m,
		Tracer:  otel.Tracer(tracerName),
	}
}

// Run benchmarks every configuration in order. The first failure aborts the
// suite and no records are returned.
func (r *Runner) Run(
	ctx context.Context,
	suite string,
	configs []sweep.Configuration,
) ([]Record, error) {
	ctx, span := r.Tracer.Start(ctx, "suite", trace.WithAttributes(
		attribute.String("routine", r.Routine.Name),
		attribute.String("suite", suite),
		attribute.Int("configurations", len(configs)),
	))
	defer span.End()

	r.Logger.InfoContext(ctx, "starting suite",
		slog.String("suite", suite),
		slog.String("stem", r.Routine.FileStem(suite)),
		slog.Int("configurations", len(configs)),
	)

	records := make([]Record, 0, len(configs))

	for i, cfg := range configs {
		record, err := r.RunConfiguration(ctx, suite, i, cfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "suite aborted")
			r.Metrics.ObserveSuite(r.Routine.Name, suite, "failed")

			return nil, fmt.Errorf("config %d (%s): %w", i, cfg, err)
		}

		records = append(records, record)
	}

	r.Metrics.ObserveSuite(r.Routine.Name, suite, "ok")

	return records, nil
}

// RunConfiguration constructs, describes and times one configuration.
func (r *Runner) RunConfiguration(
	ctx context.Context,
	suite string,
	index int,
	cfg sweep.Configuration,
) (Record, error) {
	ctx, span := r.Tracer.Start(ctx, "configuration", trace.WithAttributes(
		attribute.Int("index", index),
		attribute.Int("axis_size", cfg.AxisSize),
		attribute.Int("cells_to_fill", cfg.CellsToFill),
	))
	defer span.End()

	r.Logger.InfoContext(ctx, "configuration",
		slog.Int("config", index),
		slog.Int("axis_size", cfg.AxisSize),
		slog.Int("cells_to_fill", cfg.CellsToFill),
	)

	fail := func(stage string, err error) (Record, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		r.Metrics.ObserveFailure(r.Routine.Name, suite, stage)

		return Record{}, err
	}

	if err := cfg.Validate(); err != nil {
		return fail("validate", err)
	}

	desc, err := r.Analyze(cfg)
	if err != nil {
		return fail("analyze", err)
	}

	sample, err := r.Time(cfg)
	if err != nil {
		return fail("time", err)
	}

	if sample.Degenerate {
		r.Logger.WarnContext(ctx, "calibration never reached minimum duration",
			slog.Int("config", index),
			slog.Int("number", sample.Number),
		)
	}

	r.Logger.DebugContext(ctx, "configuration finished",
		slog.Int("config", index),
		slog.Int64("nbytes", desc.NBytes),
		slog.Int64("count_nonzero", desc.CountNonzero),
		slog.Int("number", sample.Number),
		slog.Float64("min_seconds", sample.Min()),
	)

	r.Metrics.ObserveConfiguration(
		r.Routine.Name, suite, desc.NBytes, sample.Number, sample.Timings,
	)

	return MergeRecord(desc, cfg, sample), nil
}

// Analyze builds the artifact for cfg once and describes it.
func (r *Runner) Analyze(cfg sweep.Configuration) (Descriptor, error) {
	triples, err := r.triples(cfg)
	if err != nil {
		return Descriptor{}, err
	}

	artifact, err := r.Routine.construct(triples, shape(cfg))
	if err != nil {
		return Descriptor{}, err
	}

	return Describe(artifact)
}

// Time measures construction of the artifact for cfg. Every trial
// regenerates its triples from the same seed outside the timed region, and
// each artifact is unreachable as soon as its execution returns.
func (r *Runner) Time(cfg sweep.Configuration) (timing.Sample, error) {
	timer := &timing.Timer{
		MinDuration:    r.Config.MinDuration,
		CollectGarbage: true,
		Setup: func() (timing.Statement, error) {
			triples, err := r.triples(cfg)
			if err != nil {
				return nil, err
			}

			return func() error {
				a, err := r.Routine.construct(triples, shape(cfg))
				if err != nil {
					return err
				}
				runtime.KeepAlive(a)

				return nil
			}, nil
		},
	}

	sample, err := timer.Measure(r.Config.Repeats, r.Config.Number)
	if err != nil {
		return timing.Sample{}, fmt.Errorf("time %s: %w", r.Routine.Name, err)
	}

	return sample, nil
}

func (r *Runner) triples(cfg sweep.Configuration) (workload.Triples, error) {
	t, err := workload.NewGenerator(workload.Config{
		AxisSize:    cfg.AxisSize,
		CellsToFill: cfg.CellsToFill,
		Seed:        r.Config.Seed,
	}).Generate()
	if err != nil {
		return workload.Triples{}, fmt.Errorf("generate triples: %w", err)
	}

	return t, nil
}

func shape(cfg sweep.Configuration) [2]int {
	return [2]int{cfg.AxisSize, cfg.AxisSize}
}
