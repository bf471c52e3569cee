package harness

import (
	"errors"
	"fmt"
	"slices"
)

// ErrIntrospection is returned when an artifact cannot report one of the
// descriptor facts, or reports facts that contradict each other.
var ErrIntrospection = errors.New("introspection failed")

// Artifact is a constructed array that can describe itself.
type Artifact interface {
	Shape() []int
	Size() int64
	NBytes() int64
	ItemSize() int
	DType() string
	CountNonzero() int64
}

// Descriptor is the uniform summary of an Artifact. NBytes and ItemSize
// are reported independently; sparse formats do not satisfy
// NBytes == Size*ItemSize.
type Descriptor struct {
	Shape        []int
	Size         int64
	NBytes       int64
	ItemSize     int
	DType        string
	CountNonzero int64
}

// Equal reports whether two descriptors hold the same facts.
func (d Descriptor) Equal(o Descriptor) bool {
	return slices.Equal(d.Shape, o.Shape) &&
		d.Size == o.Size &&
		d.NBytes == o.NBytes &&
		d.ItemSize == o.ItemSize &&
		d.DType == o.DType &&
		d.CountNonzero == o.CountNonzero
}

// Describe queries the six facts of a. It does not modify a.
func Describe(a Artifact) (d Descriptor, err error) {
	if a == nil {
		return Descriptor{}, fmt.Errorf("%w: nil artifact", ErrIntrospection)
	}

	defer func() {
		if r := recover(); r != nil {
			d = Descriptor{}
			err = fmt.Errorf("%w: %T: %v", ErrIntrospection, a, r)
		}
	}()

	d = Descriptor{
		Shape:        slices.Clone(a.Shape()),
		Size:         a.Size(),
		NBytes:       a.NBytes(),
		ItemSize:     a.ItemSize(),
		DType:        a.DType(),
		CountNonzero: a.CountNonzero(),
	}

	if err := d.validate(); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %T: %w", ErrIntrospection, a, err)
	}

	return d, nil
}

func (d Descriptor) validate() error {
	if len(d.Shape) == 0 {
		return errors.New("empty shape")
	}

	size := int64(1)
	for _, dim := range d.Shape {
		if dim <= 0 {
			return fmt.Errorf("non-positive dimension in shape %v", d.Shape)
		}
		size *= int64(dim)
	}

	if size != d.Size {
		return fmt.Errorf("size %d is not the product of shape %v", d.Size, d.Shape)
	}

	if d.NBytes < 0 {
		return fmt.Errorf("negative nbytes %d", d.NBytes)
	}

	if d.ItemSize <= 0 {
		return fmt.Errorf("non-positive itemsize %d", d.ItemSize)
	}

	if d.DType == "" {
		return errors.New("empty dtype")
	}

	if d.CountNonzero < 0 || d.CountNonzero > d.Size {
		return fmt.Errorf("count_nonzero %d outside [0, %d]", d.CountNonzero, d.Size)
	}

	return nil
}
