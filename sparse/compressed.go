package sparse

import (
	"slices"
	"sort"
)

// CSR is a compressed sparse row array. Row r holds the entries
// Indices[Indptr[r]:Indptr[r+1]] with matching Data, sorted by column and
// free of duplicates.
type CSR struct {
	shape   [2]int
	Indptr  []int32
	Indices []int32
	Data    []float64
}

// CSC is the column-major counterpart of CSR.
type CSC struct {
	shape   [2]int
	Indptr  []int32
	Indices []int32
	Data    []float64
}

// NewCSR builds a compressed sparse row array from triples, summing
// duplicate coordinates.
func NewCSR(data []float64, rows, cols []int32, shape [2]int) (*CSR, error) {
	coo, err := NewCOO(data, rows, cols, shape)
	if err != nil {
		return nil, err
	}

	return coo.ToCSR(), nil
}

// NewCSC builds a compressed sparse column array from triples, summing
// duplicate coordinates.
func NewCSC(data []float64, rows, cols []int32, shape [2]int) (*CSC, error) {
	coo, err := NewCOO(data, rows, cols, shape)
	if err != nil {
		return nil, err
	}

	return coo.ToCSC(), nil
}

func (m *CSR) Shape() []int { return []int{m.shape[0], m.shape[1]} }

func (m *CSR) Size() int64 { return int64(m.shape[0]) * int64(m.shape[1]) }

// NBytes is the size of the data, indices and indptr buffers.
func (m *CSR) NBytes() int64 {
	return compressedBytes(m.Indptr, m.Indices, m.Data)
}

func (m *CSR) ItemSize() int { return itemSize }

func (m *CSR) DType() string { return DType }

func (m *CSR) CountNonzero() int64 { return countNonzero(m.Data) }

// At returns the value stored at (i, j).
func (m *CSR) At(i, j int) float64 {
	return lookup(m.Indptr, m.Indices, m.Data, i, j)
}

func (m *CSC) Shape() []int { return []int{m.shape[0], m.shape[1]} }

func (m *CSC) Size() int64 { return int64(m.shape[0]) * int64(m.shape[1]) }

// NBytes is the size of the data, indices and indptr buffers.
func (m *CSC) NBytes() int64 {
	return compressedBytes(m.Indptr, m.Indices, m.Data)
}

func (m *CSC) ItemSize() int { return itemSize }

func (m *CSC) DType() string { return DType }

func (m *CSC) CountNonzero() int64 { return countNonzero(m.Data) }

// At returns the value stored at (i, j).
func (m *CSC) At(i, j int) float64 {
	return lookup(m.Indptr, m.Indices, m.Data, j, i)
}

func compressedBytes(indptr, indices []int32, data []float64) int64 {
	return int64(len(data))*itemSize +
		int64(len(indices))*indexSize +
		int64(len(indptr))*indexSize
}

func lookup(indptr, indices []int32, data []float64, major, minor int) float64 {
	seg := indices[indptr[major]:indptr[major+1]]

	k, found := slices.BinarySearch(seg, int32(minor))
	if !found {
		return 0
	}

	return data[int(indptr[major])+k]
}

// compress groups entries by their major index, sorts each group by minor
// index and sums duplicates.
func compress(
	major, minor []int32,
	data []float64,
	nmajor int,
) ([]int32, []int32, []float64) {
	indptr := make([]int32, nmajor+1)
	for _, m := range major {
		indptr[m+1]++
	}

	for i := 0; i < nmajor; i++ {
		indptr[i+1] += indptr[i]
	}

	indices := make([]int32, len(data))
	values := make([]float64, len(data))
	next := slices.Clone(indptr[:nmajor])

	for i, m := range major {
		p := next[m]
		indices[p] = minor[i]
		values[p] = data[i]
		next[m]++
	}

	if len(data) == 0 {
		return indptr, indices, values
	}

	out := 0
	start := 0

	for r := 0; r < nmajor; r++ {
		end := int(indptr[r+1])

		if end-start > 1 {
			sort.Sort(segment{
				idx: indices[start:end],
				val: values[start:end],
			})
		}

		for k := start; k < end; k++ {
			if out > int(indptr[r]) && k > start && indices[out-1] == indices[k] {
				values[out-1] += values[k]

				continue
			}

			indices[out] = indices[k]
			values[out] = values[k]
			out++
		}

		indptr[r+1] = int32(out)
		start = end
	}

	return indptr, indices[:out:out], values[:out:out]
}

type segment struct {
	idx []int32
	val []float64
}

func (s segment) Len() int           { return len(s.idx) }
func (s segment) Less(i, j int) bool { return s.idx[i] < s.idx[j] }
func (s segment) Swap(i, j int) {
	s.idx[i], s.idx[j] = s.idx[j], s.idx[i]
	s.val[i], s.val[j] = s.val[j], s.val[i]
}
