// Package sparse implements the two-dimensional array representations whose
// construction cost is benchmarked: coordinate-list (COO), compressed sparse
// row (CSR), compressed sparse column (CSC) and dense.
//
// Values are float64. Indices are stored as int32, so every axis and the
// number of stored entries must fit in 32 bits.
package sparse

import (
	"errors"
	"fmt"
	"math"
)

// DType is the element type tag reported by every representation.
const DType = "float64"

const (
	itemSize  = 8 // float64
	indexSize = 4 // int32
)

// ErrInvalidInput is returned when triples or a shape cannot form an array.
var ErrInvalidInput = errors.New("invalid sparse input")

func validateShape(shape [2]int) error {
	for i, d := range shape {
		if d <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrInvalidInput, i, d)
		}
		if d > math.MaxInt32 {
			return fmt.Errorf(
				"%w: dimension %d (%d) exceeds int32 index range",
				ErrInvalidInput, i, d,
			)
		}
	}

	return nil
}

func validateTriples(data []float64, rows, cols []int32, shape [2]int) error {
	if err := validateShape(shape); err != nil {
		return err
	}

	if len(rows) != len(data) || len(cols) != len(data) {
		return fmt.Errorf(
			"%w: length mismatch: data=%d rows=%d cols=%d",
			ErrInvalidInput, len(data), len(rows), len(cols),
		)
	}

	if len(data) > math.MaxInt32 {
		return fmt.Errorf("%w: %d entries exceed int32 index range",
			ErrInvalidInput, len(data))
	}

	for i := range rows {
		if rows[i] < 0 || int(rows[i]) >= shape[0] {
			return fmt.Errorf("%w: row index %d out of range [0, %d)",
				ErrInvalidInput, rows[i], shape[0])
		}
		if cols[i] < 0 || int(cols[i]) >= shape[1] {
			return fmt.Errorf("%w: column index %d out of range [0, %d)",
				ErrInvalidInput, cols[i], shape[1])
		}
	}

	return nil
}

func countNonzero(data []float64) int64 {
	var n int64
	for _, v := range data {
		if v != 0 {
			n++
		}
	}

	return n
}
