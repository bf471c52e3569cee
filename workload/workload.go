// Package workload generates deterministic (row, column, value) triples for
// sparse array construction benchmarks. Cells are drawn without replacement
// from the flattened axis×axis index space and values are uniform in [0, 1).
package workload

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Triples holds parallel coordinate and value slices.
type Triples struct {
	Rows   []int32
	Cols   []int32
	Values []float64
}

// Len returns the number of triples.
func (t Triples) Len() int { return len(t.Values) }

// Config controls triple generation.
type Config struct {
	AxisSize    int
	CellsToFill int
	Seed        uint64
}

// Validate checks that the configuration describes a square array whose
// cells can hold CellsToFill distinct entries.
func (c Config) Validate() error {
	if c.AxisSize <= 0 || c.AxisSize > math.MaxInt32 {
		return fmt.Errorf("axis size %d out of range (0, %d]",
			c.AxisSize, math.MaxInt32)
	}

	space := uint64(c.AxisSize) * uint64(c.AxisSize)
	if c.CellsToFill < 0 || uint64(c.CellsToFill) > space {
		return fmt.Errorf("cells to fill %d out of range [0, %d]",
			c.CellsToFill, space)
	}

	return nil
}

// Generator produces deterministic triples from a Config.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a Generator from the given Config. Two generators
// built from equal configs produce identical triples.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
	}
}

// Generate draws CellsToFill distinct cells and a value for each.
func (g *Generator) Generate() (Triples, error) {
	if err := g.cfg.Validate(); err != nil {
		return Triples{}, err
	}

	k := g.cfg.CellsToFill
	axis := uint64(g.cfg.AxisSize)

	t := Triples{
		Rows:   make([]int32, k),
		Cols:   make([]int32, k),
		Values: make([]float64, k),
	}

	if k == 0 {
		return t, nil
	}

	cells := g.sampleCells(axis*axis, uint64(k))

	for i, c := range cells {
		t.Rows[i] = int32(c / axis)
		t.Cols[i] = int32(c % axis)
	}

	for i := range t.Values {
		t.Values[i] = g.rng.Float64()
	}

	return t, nil
}

// sampleCells returns k distinct values from [0, space) in random order.
func (g *Generator) sampleCells(space, k uint64) []uint64 {
	var cells []uint64
	if k > space/2 {
		cells = g.selectionSample(space, k)
	} else {
		cells = g.floydSample(space, k)
	}

	g.rng.Shuffle(len(cells), func(i, j int) {
		cells[i], cells[j] = cells[j], cells[i]
	})

	return cells
}

// selectionSample walks the whole space once and keeps each cell with the
// probability needed to end with exactly k cells. Used for dense fills.
func (g *Generator) selectionSample(space, k uint64) []uint64 {
	cells := make([]uint64, 0, k)

	for c := uint64(0); c < space && uint64(len(cells)) < k; c++ {
		remaining := space - c
		needed := k - uint64(len(cells))

		if g.rng.Uint64N(remaining) < needed {
			cells = append(cells, c)
		}
	}

	return cells
}

// floydSample draws k cells using Floyd's algorithm. Used for sparse fills,
// where walking the space would dominate.
func (g *Generator) floydSample(space, k uint64) []uint64 {
	cells := make([]uint64, 0, k)
	seen := newCellSet(space, k)

	for j := space - k; j < space; j++ {
		c := g.rng.Uint64N(j + 1)
		if seen.has(c) {
			c = j
		}

		seen.add(c)
		cells = append(cells, c)
	}

	return cells
}

// bitsetLimit is the largest space tracked with a bitset (512 MiB).
const bitsetLimit = 1 << 32

type cellSet struct {
	bits []uint64
	m    map[uint64]struct{}
}

func newCellSet(space, k uint64) *cellSet {
	if space <= bitsetLimit {
		return &cellSet{bits: make([]uint64, (space+63)/64)}
	}

	return &cellSet{m: make(map[uint64]struct{}, k)}
}

func (s *cellSet) has(c uint64) bool {
	if s.bits != nil {
		return s.bits[c/64]&(1<<(c%64)) != 0
	}

	_, ok := s.m[c]

	return ok
}

func (s *cellSet) add(c uint64) {
	if s.bits != nil {
		s.bits[c/64] |= 1 << (c % 64)

		return
	}

	s.m[c] = struct{}{}
}
