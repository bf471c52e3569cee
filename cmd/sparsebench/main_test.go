package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyPlan = `suites:
  - name: tiny
    axes: [8, 16]
    densities: [0, 0.5]
    routines: [coo, csr]
    repeats: 2
    number: 2
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	a := &app{
		viper:  viper.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	var out bytes.Buffer

	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func writePlan(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tinyPlan), 0o644))

	return path
}

func TestRunWritesOneFilePerRoutine(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	plan := writePlan(t, dir)
	outDir := filepath.Join(dir, "results")
	metricsFile := filepath.Join(dir, "bench.prom")
	traceFile := filepath.Join(dir, "trace.json")

	out, err := execute(t, "run",
		"--log-level", "error",
		"--plan", plan,
		"--output-dir", outDir,
		"--metrics-file", metricsFile,
		"--trace-file", traceFile,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "## Benchmark Results")
	assert.Contains(t, out, "| tiny | coo |")
	assert.Contains(t, out, "| tiny | csr |")

	for _, routine := range []string{"coo", "csr"} {
		matches, err := filepath.Glob(filepath.Join(outDir,
			"construct_"+routine+"_init_tiny_*.tsv"))
		require.NoError(t, err)
		require.Len(t, matches, 1, routine)

		data, err := os.ReadFile(matches[0])
		require.NoError(t, err)

		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		require.Len(t, lines, 5, "header plus four configurations")
		assert.Equal(t,
			"shape\tsize\tnbytes\titemsize\tdtype\tcount_nonzero\taxis_size\t"+
				"cells_to_fill\tnumber_of_executions\tnumber_of_repeats\trun_00\trun_01",
			lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "(8, 8)\t64\t"), lines[1])
	}

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "sparsebench_configurations_total")

	info, err := os.Stat(traceFile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunJSONSummary(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := execute(t, "run",
		"--log-level", "error",
		"--plan", writePlan(t, dir),
		"--output-dir", dir,
		"--delimiter", "comma",
		"--json",
	)
	require.NoError(t, err)

	var got struct {
		RunID   string `json:"run_id"`
		Results []struct {
			Routine        string `json:"routine"`
			Suite          string `json:"suite"`
			Path           string `json:"path"`
			Configurations int    `json:"configurations"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.NotEmpty(t, got.RunID)
	require.Len(t, got.Results, 2)

	for _, r := range got.Results {
		assert.Equal(t, "tiny", r.Suite)
		assert.Equal(t, 4, r.Configurations)
		assert.Equal(t, ".csv", filepath.Ext(r.Path))
		assert.FileExists(t, r.Path)
	}
}

func TestRunUnknownRoutine(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	plan := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(plan, []byte(
		"suites:\n  - name: tiny\n    axes: [4]\n    count: 1\n    routines: [bsr]\n",
	), 0o644))

	_, err := execute(t, "run", "--log-level", "error", "--plan", plan, "--output-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown routine")

	matches, _ := filepath.Glob(filepath.Join(dir, "construct_*"))
	assert.Empty(t, matches)
}

func TestSweepBuiltinSuite(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "sweep", "--suite", "size_density")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 89)
	assert.Equal(t, "# size_density (88 configurations)", lines[0])
}

func TestSweepUnknownSuite(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "sweep", "--suite", "nope")
	require.Error(t, err)
}

func TestRoutinesListsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "routines")
	require.NoError(t, err)
	assert.Equal(t, "coo (default)\ncsc (default)\ncsr (default)\ndense\nlil\n", out)
}

func TestRunReportsTraceShutdownError(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	flushErr := errors.New("flush failed")

	orig := startTracing
	t.Cleanup(func() { startTracing = orig })

	startTracing = func(string) (func(context.Context) error, error) {
		return func(context.Context) error { return flushErr }, nil
	}

	_, err := execute(t, "run",
		"--log-level", "error",
		"--plan", writePlan(t, dir),
		"--output-dir", dir,
		"--trace-file", filepath.Join(dir, "trace.json"),
	)
	require.ErrorIs(t, err, flushErr)
}
