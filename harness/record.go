// Package harness runs construction routines over sweep configurations,
// describes what they build, times them, and flattens everything into
// records.
package harness

import (
	"fmt"

	"github.com/weiihann/sparsebench/sweep"
	"github.com/weiihann/sparsebench/timing"
)

// Field is one named value of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered set of fields. Field order is the column order of the
// persisted file.
type Record struct {
	fields []Field
}

// NewRecord builds a record from fields. A repeated name keeps its first
// position and takes the last value.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}

	return r
}

// Set replaces the value of name, or appends it.
func (r *Record) Set(name string, value any) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value

			return
		}
	}

	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value of name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}

	return nil, false
}

// Keys returns field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}

	return keys
}

// Fields returns a copy of the fields in order.
func (r Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// TimingField names the column holding trial i.
func TimingField(i int) string {
	return fmt.Sprintf("run_%02d", i)
}

// MergeRecord flattens a descriptor, its configuration and its timings into
// one record: descriptor fields first, then configuration, then timings.
func MergeRecord(
	d Descriptor,
	cfg sweep.Configuration,
	s timing.Sample,
) Record {
	r := NewRecord(
		Field{"shape", d.Shape},
		Field{"size", d.Size},
		Field{"nbytes", d.NBytes},
		Field{"itemsize", d.ItemSize},
		Field{"dtype", d.DType},
		Field{"count_nonzero", d.CountNonzero},
		Field{"axis_size", cfg.AxisSize},
		Field{"cells_to_fill", cfg.CellsToFill},
		Field{"number_of_executions", s.Number},
		Field{"number_of_repeats", s.Repeats},
	)

	for i, v := range s.Timings {
		r.Set(TimingField(i), v)
	}

	return r
}
