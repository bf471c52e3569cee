package harness

import (
	"errors"
	"fmt"

	"github.com/weiihann/sparsebench/sparse"
	"github.com/weiihann/sparsebench/workload"
)

// ErrUnknownRoutine is returned for a routine name with no construction
// function.
var ErrUnknownRoutine = errors.New("unknown routine")

// ErrConstruction is returned when a routine fails to build its artifact.
var ErrConstruction = errors.New("construction failed")

// BuildFunc constructs an artifact from triples and a shape.
type BuildFunc func(t workload.Triples, shape [2]int) (Artifact, error)

// Routine is a named construction routine under test.
type Routine struct {
	Name  string
	Build BuildFunc
}

// KnownRoutines returns the list of supported routine names.
func KnownRoutines() []string {
	return []string{"coo", "csc", "csr", "dense", "lil"}
}

// DefaultRoutines returns the routines run when none are requested.
func DefaultRoutines() []string {
	return []string{"coo", "csc", "csr"}
}

// ResolveRoutine returns the construction routine for name.
func ResolveRoutine(name string) (Routine, error) {
	var build BuildFunc

	switch name {
	case "coo":
		build = func(t workload.Triples, shape [2]int) (Artifact, error) {
			return sparse.NewCOO(t.Values, t.Rows, t.Cols, shape)
		}
	case "csc":
		build = func(t workload.Triples, shape [2]int) (Artifact, error) {
			return sparse.NewCSC(t.Values, t.Rows, t.Cols, shape)
		}
	case "csr":
		build = func(t workload.Triples, shape [2]int) (Artifact, error) {
			return sparse.NewCSR(t.Values, t.Rows, t.Cols, shape)
		}
	case "dense":
		build = func(t workload.Triples, shape [2]int) (Artifact, error) {
			return sparse.NewDense(t.Values, t.Rows, t.Cols, shape)
		}
	case "lil":
		build = func(t workload.Triples, shape [2]int) (Artifact, error) {
			return sparse.NewLILFromTriples(t.Values, t.Rows, t.Cols, shape)
		}
	default:
		return Routine{}, fmt.Errorf("%w %q", ErrUnknownRoutine, name)
	}

	return Routine{Name: name, Build: build}, nil
}

// ResolveRoutines resolves every name, failing on the first unknown one.
func ResolveRoutines(names []string) ([]Routine, error) {
	routines := make([]Routine, 0, len(names))

	for _, name := range names {
		r, err := ResolveRoutine(name)
		if err != nil {
			return nil, err
		}

		routines = append(routines, r)
	}

	return routines, nil
}

// FileStem returns the output file base name for a suite, e.g.
// construct_coo_init_size_density.
func (r Routine) FileStem(suite string) string {
	return fmt.Sprintf("construct_%s_init_%s", r.Name, suite)
}

// construct runs the routine and turns errors, panics and nil artifacts
// into ErrConstruction.
func (r Routine) construct(t workload.Triples, shape [2]int) (a Artifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			a = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrConstruction, r.Name, p)
		}
	}()

	a, err = r.Build(t, shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConstruction, r.Name, err)
	}

	if a == nil {
		return nil, fmt.Errorf("%w: %s: nil artifact", ErrConstruction, r.Name)
	}

	return a, nil
}
