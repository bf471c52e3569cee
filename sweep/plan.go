package sweep

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Plan is a YAML document describing custom suites:
//
//	suites:
//	  - name: small
//	    axes: [64, 128]                # or {start: 64, stop: 257, step: 64}
//	    densities: [0.0, 0.5, 1.0]     # or {start: 0, stop: 1, step: 0.1}
//	    routines: [coo, csr]
//	    repeats: 4
//	  - name: blowup
//	    axes: {start: 1024, stop: 8193, step: 1024}
//	    count: 4096
type Plan struct {
	Suites []PlanSuite `yaml:"suites"`
}

// PlanSuite is one suite entry of a Plan. Exactly one of Densities and Count
// must be set.
type PlanSuite struct {
	Name      string     `yaml:"name"`
	Axes      IntAxis    `yaml:"axes"`
	Densities *FloatAxis `yaml:"densities"`
	Count     *int       `yaml:"count"`
	Routines  []string   `yaml:"routines"`
	Repeats   int        `yaml:"repeats"`
	Number    int        `yaml:"number"`
}

// IntAxis accepts either an explicit list or a half-open {start, stop, step}
// range.
type IntAxis []int

func (a *IntAxis) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var values []int
		if err := node.Decode(&values); err != nil {
			return err
		}
		*a = values

		return nil

	case yaml.MappingNode:
		var r struct {
			Start int `yaml:"start"`
			Stop  int `yaml:"stop"`
			Step  int `yaml:"step"`
		}
		if err := decodeStrict(node, &r); err != nil {
			return err
		}
		if r.Step <= 0 {
			return fmt.Errorf("line %d: axis step must be positive", node.Line)
		}
		*a = Range(r.Start, r.Stop, r.Step)

		return nil
	}

	return fmt.Errorf("line %d: axes must be a list or a range", node.Line)
}

// FloatAxis accepts either an explicit list or an inclusive
// {start, stop, step} range.
type FloatAxis []float64

func (a *FloatAxis) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var values []float64
		if err := node.Decode(&values); err != nil {
			return err
		}
		*a = values

		return nil

	case yaml.MappingNode:
		var r struct {
			Start float64 `yaml:"start"`
			Stop  float64 `yaml:"stop"`
			Step  float64 `yaml:"step"`
		}
		if err := decodeStrict(node, &r); err != nil {
			return err
		}
		if r.Step <= 0 {
			return fmt.Errorf("line %d: density step must be positive", node.Line)
		}
		*a = Steps(r.Start, r.Stop, r.Step)

		return nil
	}

	return fmt.Errorf("line %d: densities must be a list or a range", node.Line)
}

// decodeStrict decodes a mapping node, rejecting keys other than those of
// the target struct.
func decodeStrict(node *yaml.Node, out any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	return dec.Decode(out)
}

// LoadPlan parses a plan document. Unknown fields are rejected.
func LoadPlan(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var plan Plan
	if err := dec.Decode(&plan); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("plan is empty")
		}

		return nil, fmt.Errorf("decode plan: %w", err)
	}

	if len(plan.Suites) == 0 {
		return nil, fmt.Errorf("plan defines no suites")
	}

	return &plan, nil
}

// Expand expands the plan into suites, in document order.
func (p *Plan) Expand() ([]Suite, error) {
	suites := make([]Suite, 0, len(p.Suites))
	seen := make(map[string]bool, len(p.Suites))

	for i, ps := range p.Suites {
		if ps.Name == "" {
			return nil, fmt.Errorf("suite %d: name is required", i)
		}
		if seen[ps.Name] {
			return nil, fmt.Errorf("suite %q defined twice", ps.Name)
		}
		seen[ps.Name] = true

		s, err := ps.expand()
		if err != nil {
			return nil, fmt.Errorf("suite %q: %w", ps.Name, err)
		}

		suites = append(suites, s)
	}

	return suites, nil
}

func (ps PlanSuite) expand() (Suite, error) {
	if len(ps.Axes) == 0 {
		return Suite{}, fmt.Errorf("%w: no axes", ErrInvalidConfiguration)
	}

	var (
		configs []Configuration
		err     error
	)

	switch {
	case ps.Densities != nil && ps.Count != nil:
		return Suite{}, fmt.Errorf(
			"%w: densities and count are mutually exclusive",
			ErrInvalidConfiguration,
		)
	case ps.Densities != nil:
		configs, err = SizeDensity(ps.Axes, *ps.Densities)
	case ps.Count != nil:
		configs, err = SizeCount(ps.Axes, *ps.Count)
	default:
		return Suite{}, fmt.Errorf(
			"%w: one of densities or count is required",
			ErrInvalidConfiguration,
		)
	}

	if err != nil {
		return Suite{}, err
	}

	if ps.Repeats < 0 || ps.Number < 0 {
		return Suite{}, fmt.Errorf("%w: repeats and number must not be negative",
			ErrInvalidConfiguration)
	}

	return Suite{
		Name:     ps.Name,
		Configs:  configs,
		Routines: ps.Routines,
		Repeats:  ps.Repeats,
		Number:   ps.Number,
	}, nil
}
