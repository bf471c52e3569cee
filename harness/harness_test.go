package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/sparsebench/metrics"
	"github.com/weiihann/sparsebench/sparse"
	"github.com/weiihann/sparsebench/sweep"
	"github.com/weiihann/sparsebench/timing"
	"github.com/weiihann/sparsebench/workload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRunner(t *testing.T, name string) *Runner {
	t.Helper()

	routine, err := ResolveRoutine(name)
	require.NoError(t, err)

	return NewRunner(routine, RunConfig{
		Seed:        1,
		Repeats:     3,
		MinDuration: time.Millisecond,
	}, testLogger(), metrics.New())
}

func TestDescribeSparseFormats(t *testing.T) {
	data := []float64{1, 2, 3}
	rows := []int32{0, 1, 1}
	cols := []int32{2, 0, 1}
	shape := [2]int{4, 3}

	coo, err := sparse.NewCOO(data, rows, cols, shape)
	require.NoError(t, err)
	csr, err := sparse.NewCSR(data, rows, cols, shape)
	require.NoError(t, err)
	csc, err := sparse.NewCSC(data, rows, cols, shape)
	require.NoError(t, err)
	dense, err := sparse.NewDense(data, rows, cols, shape)
	require.NoError(t, err)

	tests := []struct {
		name   string
		a      Artifact
		nbytes int64
	}{
		{"coo", coo, 3*8 + 3*4 + 3*4},
		{"csr", csr, 3*8 + 3*4 + 5*4},
		{"csc", csc, 3*8 + 3*4 + 4*4},
		{"dense", dense, 12 * 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Describe(tt.a)
			require.NoError(t, err)

			assert.Equal(t, []int{4, 3}, d.Shape)
			assert.Equal(t, int64(12), d.Size)
			assert.Equal(t, tt.nbytes, d.NBytes)
			assert.Equal(t, 8, d.ItemSize)
			assert.Equal(t, "float64", d.DType)
			assert.Equal(t, int64(3), d.CountNonzero)
		})
	}
}

type brokenArtifact struct {
	panicOn string
	size    int64
}

func (b brokenArtifact) Shape() []int { return []int{2, 2} }

func (b brokenArtifact) Size() int64 { return b.size }

func (b brokenArtifact) NBytes() int64 { return 0 }

func (b brokenArtifact) ItemSize() int { return 8 }

func (b brokenArtifact) DType() string { return "float64" }

func (b brokenArtifact) CountNonzero() int64 {
	if b.panicOn == "count_nonzero" {
		panic("not supported")
	}

	return 0
}

func TestDescribeErrors(t *testing.T) {
	_, err := Describe(nil)
	require.ErrorIs(t, err, ErrIntrospection)

	_, err = Describe(brokenArtifact{panicOn: "count_nonzero", size: 4})
	require.ErrorIs(t, err, ErrIntrospection)

	_, err = Describe(brokenArtifact{size: 5})
	require.ErrorIs(t, err, ErrIntrospection)
}

func TestDescribeDoesNotMutate(t *testing.T) {
	coo, err := sparse.NewCOO(
		[]float64{3, 1}, []int32{1, 0}, []int32{1, 0}, [2]int{2, 2},
	)
	require.NoError(t, err)

	first, err := Describe(coo)
	require.NoError(t, err)

	second, err := Describe(coo)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	assert.Equal(t, []float64{3, 1}, coo.Data)
	assert.Equal(t, []int32{1, 0}, coo.Row)
}

func TestMergeRecordOrder(t *testing.T) {
	r := MergeRecord(
		Descriptor{Shape: []int{8, 8}, Size: 64, NBytes: 16, ItemSize: 8, DType: "float64", CountNonzero: 1},
		sweep.Configuration{AxisSize: 8, CellsToFill: 1},
		timing.Sample{Number: 2, Repeats: 2, Timings: []float64{0.5, 0.25}},
	)

	assert.Equal(t, []string{
		"shape", "size", "nbytes", "itemsize", "dtype", "count_nonzero",
		"axis_size", "cells_to_fill",
		"number_of_executions", "number_of_repeats",
		"run_00", "run_01",
	}, r.Keys())

	v, ok := r.Get("run_01")
	require.True(t, ok)
	assert.Equal(t, 0.25, v)
}

func TestRecordSet(t *testing.T) {
	r := NewRecord(Field{"a", 1}, Field{"b", 2}, Field{"a", 3})

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, _ := r.Get("a")
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, r.Len())

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestResolveRoutine(t *testing.T) {
	for _, name := range KnownRoutines() {
		r, err := ResolveRoutine(name)
		require.NoError(t, err)
		assert.Equal(t, name, r.Name)
	}

	_, err := ResolveRoutine("bsr")
	require.ErrorIs(t, err, ErrUnknownRoutine)

	_, err = ResolveRoutines([]string{"coo", "bsr"})
	require.ErrorIs(t, err, ErrUnknownRoutine)

	r, err := ResolveRoutine("csr")
	require.NoError(t, err)
	assert.Equal(t, "construct_csr_init_size_density", r.FileStem("size_density"))
}

func TestRunSizeDensityCOO(t *testing.T) {
	configs, err := sweep.SizeDensity([]int{64}, []float64{0.0, 1.0})
	require.NoError(t, err)

	records, err := testRunner(t, "coo").Run(context.Background(), "test", configs)
	require.NoError(t, err)
	require.Len(t, records, 2)

	nnz, _ := records[0].Get("count_nonzero")
	assert.Equal(t, int64(0), nnz)

	nnz, _ = records[1].Get("count_nonzero")
	assert.LessOrEqual(t, nnz.(int64), int64(4096))

	size, _ := records[1].Get("size")
	assert.Equal(t, int64(4096), size)

	for _, rec := range records {
		n, _ := rec.Get("number_of_executions")
		assert.GreaterOrEqual(t, n.(int), timing.MinNumber)

		repeats, _ := rec.Get("number_of_repeats")
		assert.Equal(t, 3, repeats)

		for i := 0; i < 3; i++ {
			v, ok := rec.Get(TimingField(i))
			require.True(t, ok)
			assert.GreaterOrEqual(t, v.(float64), 0.0)
		}
	}
}

func TestAnalyzeEmptyAndFilled(t *testing.T) {
	for _, name := range KnownRoutines() {
		t.Run(name, func(t *testing.T) {
			r := testRunner(t, name)

			d, err := r.Analyze(sweep.Configuration{AxisSize: 32, CellsToFill: 0})
			require.NoError(t, err)
			assert.Equal(t, int64(0), d.CountNonzero)
			assert.Equal(t, int64(32*32), d.Size)

			d, err = r.Analyze(sweep.Configuration{AxisSize: 32, CellsToFill: 100})
			require.NoError(t, err)
			assert.LessOrEqual(t, d.CountNonzero, int64(100))
			assert.Positive(t, d.CountNonzero)
		})
	}
}

func TestRunTwiceGivesIdenticalDescriptors(t *testing.T) {
	configs, err := sweep.SizeDensity([]int{16, 48}, []float64{0, 0.3, 1})
	require.NoError(t, err)

	descriptorFields := []string{
		"shape", "size", "nbytes", "itemsize", "dtype", "count_nonzero",
	}

	for _, name := range []string{"coo", "csr", "csc"} {
		t.Run(name, func(t *testing.T) {
			first, err := testRunner(t, name).Run(context.Background(), "test", configs)
			require.NoError(t, err)

			second, err := testRunner(t, name).Run(context.Background(), "test", configs)
			require.NoError(t, err)

			require.Len(t, first, len(configs))
			require.Len(t, second, len(configs))

			for i := range first {
				for _, field := range descriptorFields {
					want, ok := first[i].Get(field)
					require.True(t, ok, field)

					got, ok := second[i].Get(field)
					require.True(t, ok, field)

					assert.Equal(t, want, got, "config %d field %s", i, field)
				}
			}
		})
	}
}

func TestRunAbortsOnConstructionError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	routine := Routine{
		Name: "flaky",
		Build: func(t workload.Triples, shape [2]int) (Artifact, error) {
			calls++
			if t.Len() > 0 {
				return nil, boom
			}

			return sparse.NewCOO(t.Values, t.Rows, t.Cols, shape)
		},
	}

	m := metrics.New()
	runner := NewRunner(routine, RunConfig{Seed: 1, Repeats: 1, Number: 2}, testLogger(), m)

	configs := []sweep.Configuration{{AxisSize: 4, CellsToFill: 0}, {AxisSize: 4, CellsToFill: 3}, {AxisSize: 4, CellsToFill: 0}}

	records, err := runner.Run(context.Background(), "test", configs)
	require.ErrorIs(t, err, ErrConstruction)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, records)

	// One analyze plus one trial of two executions for the first config,
	// then the failing analyze of the second. The third never runs.
	assert.Equal(t, 4, calls)
}

func TestRunRecoversConstructionPanic(t *testing.T) {
	routine := Routine{
		Name: "panicky",
		Build: func(workload.Triples, [2]int) (Artifact, error) {
			panic("index out of range")
		},
	}

	runner := NewRunner(routine, RunConfig{Seed: 1, Repeats: 1, Number: 2}, testLogger(), nil)

	_, err := runner.Run(context.Background(), "test", []sweep.Configuration{{AxisSize: 2, CellsToFill: 1}})
	require.ErrorIs(t, err, ErrConstruction)
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	runner := testRunner(t, "coo")

	_, err := runner.Run(context.Background(), "test", []sweep.Configuration{{AxisSize: 2, CellsToFill: 5}})
	require.ErrorIs(t, err, sweep.ErrInvalidConfiguration)
}

func TestTimeReleasesArtifacts(t *testing.T) {
	var built []weak.Pointer[sparse.COO]

	routine := Routine{
		Name: "tracked",
		Build: func(t workload.Triples, shape [2]int) (Artifact, error) {
			coo, err := sparse.NewCOO(t.Values, t.Rows, t.Cols, shape)
			if err != nil {
				return nil, err
			}

			built = append(built, weak.Make(coo))

			return coo, nil
		},
	}

	runner := NewRunner(routine, RunConfig{Seed: 1, Repeats: 3, Number: 2}, testLogger(), nil)

	_, err := runner.Time(sweep.Configuration{AxisSize: 64, CellsToFill: 500})
	require.NoError(t, err)
	require.Len(t, built, 6)

	runtime.GC()

	for i, p := range built {
		assert.Nil(t, p.Value(), "artifact %d still reachable", i)
	}
}
