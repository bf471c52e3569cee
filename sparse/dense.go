package sparse

// Dense is a row-major array holding every cell.
type Dense struct {
	rows int
	cols int
	Data []float64
}

// NewDense materializes triples into a dense array, summing duplicates.
func NewDense(data []float64, rows, cols []int32, shape [2]int) (*Dense, error) {
	if err := validateTriples(data, rows, cols, shape); err != nil {
		return nil, err
	}

	d := &Dense{
		rows: shape[0],
		cols: shape[1],
		Data: make([]float64, shape[0]*shape[1]),
	}

	for i, v := range data {
		d.Data[int(rows[i])*d.cols+int(cols[i])] += v
	}

	return d, nil
}

func (d *Dense) Shape() []int { return []int{d.rows, d.cols} }

func (d *Dense) Size() int64 { return int64(d.rows) * int64(d.cols) }

func (d *Dense) NBytes() int64 { return int64(len(d.Data)) * itemSize }

func (d *Dense) ItemSize() int { return itemSize }

func (d *Dense) DType() string { return DType }

func (d *Dense) CountNonzero() int64 { return countNonzero(d.Data) }

// At returns the value at (i, j).
func (d *Dense) At(i, j int) float64 { return d.Data[i*d.cols+j] }
