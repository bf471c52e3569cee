package sparse

import "slices"

// LIL is a list-of-lists array: each row keeps its own column and value
// slices, sorted by column. It is built one element at a time.
type LIL struct {
	shape [2]int
	Cols  [][]int32
	Data  [][]float64
}

// NewLIL creates an empty list-of-lists array.
func NewLIL(shape [2]int) (*LIL, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	return &LIL{
		shape: shape,
		Cols:  make([][]int32, shape[0]),
		Data:  make([][]float64, shape[0]),
	}, nil
}

// NewLILFromTriples assigns every triple in order with Set. A repeated
// coordinate keeps the last value assigned to it.
func NewLILFromTriples(data []float64, rows, cols []int32, shape [2]int) (*LIL, error) {
	if err := validateTriples(data, rows, cols, shape); err != nil {
		return nil, err
	}

	m, err := NewLIL(shape)
	if err != nil {
		return nil, err
	}

	for i, v := range data {
		m.set(int(rows[i]), cols[i], v)
	}

	return m, nil
}

// Set stores v at (i, j), replacing any value already there.
func (m *LIL) Set(i, j int, v float64) error {
	if i < 0 || i >= m.shape[0] || j < 0 || j >= m.shape[1] {
		return ErrInvalidInput
	}

	m.set(i, int32(j), v)

	return nil
}

func (m *LIL) set(i int, j int32, v float64) {
	k, found := slices.BinarySearch(m.Cols[i], j)
	if found {
		m.Data[i][k] = v

		return
	}

	m.Cols[i] = slices.Insert(m.Cols[i], k, j)
	m.Data[i] = slices.Insert(m.Data[i], k, v)
}

// At returns the value at (i, j).
func (m *LIL) At(i, j int) float64 {
	k, found := slices.BinarySearch(m.Cols[i], int32(j))
	if !found {
		return 0
	}

	return m.Data[i][k]
}

func (m *LIL) Shape() []int { return []int{m.shape[0], m.shape[1]} }

func (m *LIL) Size() int64 { return int64(m.shape[0]) * int64(m.shape[1]) }

// NBytes is the size of the stored column indices and values. Slice headers
// are not counted.
func (m *LIL) NBytes() int64 {
	var n int64
	for i := range m.Cols {
		n += int64(len(m.Cols[i]))*indexSize + int64(len(m.Data[i]))*itemSize
	}

	return n
}

func (m *LIL) ItemSize() int { return itemSize }

func (m *LIL) DType() string { return DType }

func (m *LIL) CountNonzero() int64 {
	var n int64
	for _, row := range m.Data {
		n += countNonzero(row)
	}

	return n
}

// NNZ is the number of stored entries, including explicit zeros.
func (m *LIL) NNZ() int {
	n := 0
	for _, row := range m.Data {
		n += len(row)
	}

	return n
}
