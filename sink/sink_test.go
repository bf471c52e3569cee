package sink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/sparsebench/harness"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func TestWriteSingleRecord(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Now: fixedNow}

	path, err := w.Write("bench", []harness.Record{
		harness.NewRecord(harness.Field{Name: "a", Value: 1}, harness.Field{Name: "b", Value: 2}),
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "bench_2024-03-09_14-05-07.tsv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\tb\n1\t2\n", string(data))
}

func TestWriteEmpty(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Now: fixedNow}

	_, err := w.Write("bench", nil)
	require.ErrorIs(t, err, ErrEmptyResult)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Now: fixedNow}

	_, err := w.Write("bench", []harness.Record{
		harness.NewRecord(harness.Field{Name: "a", Value: 1}),
		harness.NewRecord(harness.Field{Name: "a", Value: 1}, harness.Field{Name: "b", Value: 2}),
	})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Now: fixedNow}
	records := []harness.Record{harness.NewRecord(harness.Field{Name: "a", Value: "first"})}

	path, err := w.Write("bench", records)
	require.NoError(t, err)

	_, err = w.Write("bench", []harness.Record{harness.NewRecord(harness.Field{Name: "a", Value: "second"})})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nfirst\n", string(data))
}

func TestWriteCSVQuotesShape(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Delimiter: ',', Now: fixedNow}

	d := harness.Descriptor{Shape: []int{4, 4}, Size: 16, NBytes: 8, ItemSize: 8, DType: "float64", CountNonzero: 1}
	rec := harness.NewRecord(
		harness.Field{Name: "shape", Value: d.Shape},
		harness.Field{Name: "dtype", Value: d.DType},
		harness.Field{Name: "run_00", Value: 0.125},
	)

	path, err := w.Write("bench", []harness.Record{rec})
	require.NoError(t, err)
	assert.Equal(t, ".csv", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "shape,dtype,run_00\n\"(4, 4)\",float64,0.125\n", string(data))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "tsv", Extension('\t'))
	assert.Equal(t, "csv", Extension(','))
	assert.Equal(t, "txt", Extension(';'))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{42, "42"},
		{int64(-7), "-7"},
		{uint64(9), "9"},
		{0.1, "0.1"},
		{1e-7, "1e-07"},
		{"float64", "float64"},
		{[]int{64, 64}, "(64, 64)"},
		{[]int{3}, "(3,)"},
		{true, "true"},
		{2 * time.Second, "2s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in), "%#v", tt.in)
	}
}
