package sparse

import (
	"cmp"
	"slices"
)

// COO stores entries as parallel row, column and value slices. Duplicate
// coordinates are allowed and are summed when the array is compressed.
type COO struct {
	shape [2]int
	Row   []int32
	Col   []int32
	Data  []float64
}

// NewCOO builds a coordinate-list array from triples. The input slices are
// copied.
func NewCOO(data []float64, rows, cols []int32, shape [2]int) (*COO, error) {
	if err := validateTriples(data, rows, cols, shape); err != nil {
		return nil, err
	}

	return &COO{
		shape: shape,
		Row:   slices.Clone(rows),
		Col:   slices.Clone(cols),
		Data:  slices.Clone(data),
	}, nil
}

func (m *COO) Shape() []int { return []int{m.shape[0], m.shape[1]} }

func (m *COO) Size() int64 { return int64(m.shape[0]) * int64(m.shape[1]) }

// NBytes is the size of the data, row and column buffers.
func (m *COO) NBytes() int64 {
	return int64(len(m.Data))*itemSize +
		int64(len(m.Row))*indexSize +
		int64(len(m.Col))*indexSize
}

func (m *COO) ItemSize() int { return itemSize }

func (m *COO) DType() string { return DType }

// NNZ is the number of stored entries, including duplicates and explicit
// zeros.
func (m *COO) NNZ() int { return len(m.Data) }

// CountNonzero counts distinct coordinates whose summed value is nonzero.
// The array is left untouched.
func (m *COO) CountNonzero() int64 {
	type entry struct {
		key uint64
		val float64
	}

	entries := make([]entry, len(m.Data))
	ncols := uint64(m.shape[1])

	for i := range m.Data {
		entries[i] = entry{
			key: uint64(m.Row[i])*ncols + uint64(m.Col[i]),
			val: m.Data[i],
		}
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.key, b.key)
	})

	var n int64

	for i := 0; i < len(entries); {
		j := i
		sum := 0.0

		for ; j < len(entries) && entries[j].key == entries[i].key; j++ {
			sum += entries[j].val
		}

		if sum != 0 {
			n++
		}

		i = j
	}

	return n
}

// ToCSR converts to compressed sparse row form with sorted, summed entries.
func (m *COO) ToCSR() *CSR {
	indptr, indices, data := compress(m.Row, m.Col, m.Data, m.shape[0])

	return &CSR{
		shape:   m.shape,
		Indptr:  indptr,
		Indices: indices,
		Data:    data,
	}
}

// ToCSC converts to compressed sparse column form with sorted, summed
// entries.
func (m *COO) ToCSC() *CSC {
	indptr, indices, data := compress(m.Col, m.Row, m.Data, m.shape[1])

	return &CSC{
		shape:   m.shape,
		Indptr:  indptr,
		Indices: indices,
		Data:    data,
	}
}

// ToDense materializes every cell, summing duplicates.
func (m *COO) ToDense() *Dense {
	d := &Dense{
		rows: m.shape[0],
		cols: m.shape[1],
		Data: make([]float64, m.shape[0]*m.shape[1]),
	}

	for i, v := range m.Data {
		d.Data[int(m.Row[i])*d.cols+int(m.Col[i])] += v
	}

	return d
}
