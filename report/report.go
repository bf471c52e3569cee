// Package report formats suite summaries into comparison tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/weiihann/sparsebench/harness"
)

// Summary condenses the records of one routine over one suite.
type Summary struct {
	Routine        string  `json:"routine"`
	Suite          string  `json:"suite"`
	Path           string  `json:"path"`
	Configurations int     `json:"configurations"`
	CellsFilled    int64   `json:"cells_filled"`
	MaxNBytes      int64   `json:"max_nbytes"`
	TotalSeconds   float64 `json:"total_seconds"`
}

// Summarize builds a Summary. TotalSeconds adds up, over all
// configurations, the fastest trial divided by its execution count.
func Summarize(routine, suite, path string, records []harness.Record) Summary {
	s := Summary{
		Routine:        routine,
		Suite:          suite,
		Path:           path,
		Configurations: len(records),
	}

	for _, r := range records {
		s.CellsFilled += intField(r, "cells_to_fill")
		s.MaxNBytes = max(s.MaxNBytes, intField(r, "nbytes"))
		s.TotalSeconds += perExecution(r)
	}

	return s
}

func intField(r harness.Record, name string) int64 {
	v, _ := r.Get(name)

	switch x := v.(type) {
	case int:
		return int64(x)
	case int64:
		return x
	}

	return 0
}

func perExecution(r harness.Record) float64 {
	number := intField(r, "number_of_executions")
	if number <= 0 {
		return 0
	}

	fastest := math.Inf(1)

	for i := 0; ; i++ {
		v, ok := r.Get(harness.TimingField(i))
		if !ok {
			break
		}

		if f, ok := v.(float64); ok && f < fastest {
			fastest = f
		}
	}

	if math.IsInf(fastest, 1) {
		return 0
	}

	return fastest / float64(number)
}

// Generate writes a markdown comparison table for the given summaries.
func Generate(w io.Writer, runID string, summaries []Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastest := findFastest(summaries)

	// Header.
	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	if runID != "" {
		fmt.Fprintf(w, "Run: `%s`\n", runID)
		fmt.Fprintln(w)
	}

	// Table header.
	fmt.Fprintln(w, "| Suite | Routine | Configs | Cells | Max Size "+
		"| Construction | Slowdown |")
	fmt.Fprintln(w, "|-------|---------|---------|-------|----------"+
		"|--------------|----------|")

	for _, s := range summaries {
		slowdown := 1.0
		if best := fastest[s.Suite]; best > 0 && s.TotalSeconds > 0 {
			slowdown = s.TotalSeconds / best
		}

		fmt.Fprintf(w, "| %s | %s | %d | %s | %s | %s | %.2fx |\n",
			s.Suite,
			s.Routine,
			s.Configurations,
			humanize.Comma(s.CellsFilled),
			formatBytes(s.MaxNBytes),
			formatSeconds(s.TotalSeconds),
			slowdown,
		)
	}

	fmt.Fprintln(w)

	// Output files.
	fmt.Fprintln(w, "| Suite | Routine | File |")
	fmt.Fprintln(w, "|-------|---------|------|")

	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %s |\n", s.Suite, s.Routine, s.Path)
	}

	return nil
}

// GenerateJSON writes summaries as JSON to w.
func GenerateJSON(w io.Writer, runID string, summaries []Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(struct {
		RunID   string    `json:"run_id"`
		Results []Summary `json:"results"`
	}{RunID: runID, Results: summaries})
}

// findFastest returns the smallest positive TotalSeconds per suite.
func findFastest(summaries []Summary) map[string]float64 {
	fastest := make(map[string]float64)

	for _, s := range summaries {
		if s.TotalSeconds <= 0 {
			continue
		}

		if best, ok := fastest[s.Suite]; !ok || s.TotalSeconds < best {
			fastest[s.Suite] = s.TotalSeconds
		}
	}

	return fastest
}

func formatSeconds(s float64) string {
	switch {
	case s <= 0:
		return "-"
	case s < 1e-3:
		return fmt.Sprintf("%.1fµs", s*1e6)
	case s < 1:
		return fmt.Sprintf("%.2fms", s*1e3)
	}

	return fmt.Sprintf("%.2fs", s)
}

func formatBytes(b int64) string {
	if b <= 0 {
		return "-"
	}

	return humanize.IBytes(uint64(b))
}
