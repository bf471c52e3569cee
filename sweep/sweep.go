// Package sweep generates the ordered (axis size, cells to fill)
// configurations a benchmark suite runs through.
package sweep

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfiguration is returned for sweep axes that cannot produce a
// valid configuration.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Configuration is one point of a sweep: a square array of AxisSize×AxisSize
// cells of which CellsToFill hold a value.
type Configuration struct {
	AxisSize    int
	CellsToFill int
}

// Cells returns AxisSize².
func (c Configuration) Cells() uint64 {
	return uint64(c.AxisSize) * uint64(c.AxisSize)
}

// Validate checks 0 < AxisSize ≤ MaxInt32 and 0 ≤ CellsToFill ≤ AxisSize².
func (c Configuration) Validate() error {
	if c.AxisSize <= 0 || c.AxisSize > math.MaxInt32 {
		return fmt.Errorf("%w: axis size %d", ErrInvalidConfiguration, c.AxisSize)
	}

	if c.CellsToFill < 0 || uint64(c.CellsToFill) > c.Cells() {
		return fmt.Errorf("%w: %d cells to fill for axis size %d",
			ErrInvalidConfiguration, c.CellsToFill, c.AxisSize)
	}

	return nil
}

func (c Configuration) String() string {
	return fmt.Sprintf("%d, %d", c.AxisSize, c.CellsToFill)
}

// SizeDensity crosses every axis size with every density. Cells to fill is
// floor(axis² × density). The outer loop runs over axes.
func SizeDensity(axes []int, densities []float64) ([]Configuration, error) {
	for _, d := range densities {
		if math.IsNaN(d) || d < 0 || d > 1 {
			return nil, fmt.Errorf("%w: density %v outside [0, 1]",
				ErrInvalidConfiguration, d)
		}
	}

	configs := make([]Configuration, 0, len(axes)*len(densities))

	for _, axis := range axes {
		for _, d := range densities {
			c := Configuration{
				AxisSize:    axis,
				CellsToFill: int(math.Floor(float64(axis) * float64(axis) * d)),
			}
			if err := c.Validate(); err != nil {
				return nil, err
			}

			configs = append(configs, c)
		}
	}

	return configs, nil
}

// SizeCount pairs every axis size with the same number of cells to fill.
func SizeCount(axes []int, count int) ([]Configuration, error) {
	configs := make([]Configuration, 0, len(axes))

	for _, axis := range axes {
		c := Configuration{AxisSize: axis, CellsToFill: count}
		if err := c.Validate(); err != nil {
			return nil, err
		}

		configs = append(configs, c)
	}

	return configs, nil
}

// Range returns start, start+step, … up to but excluding stop.
func Range(start, stop, step int) []int {
	if step <= 0 || stop <= start {
		return nil
	}

	out := make([]int, 0, (stop-start+step-1)/step)
	for v := start; v < stop; v += step {
		out = append(out, v)
	}

	return out
}

// Steps returns start, start+step, … up to and including stop. Each value
// is computed from its index and rounded to 12 decimals, so Steps(0, 1, 0.1)
// yields exactly 0, 0.1, …, 1.
func Steps(start, stop, step float64) []float64 {
	if step <= 0 || stop < start {
		return nil
	}

	n := int(math.Floor((stop-start)/step+1e-9)) + 1
	out := make([]float64, n)

	for i := range out {
		out[i] = math.Round((start+float64(i)*step)*1e12) / 1e12
	}

	return out
}
