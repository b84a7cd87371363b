package optimization

import (
	"fmt"

	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

// Objective names an objective-space dimension and its direction.
type Objective struct {
	Name     string `json:"name" yaml:"name" msgpack:"name"`
	Minimize bool   `json:"minimize" yaml:"minimize" msgpack:"minimize"`
}

// Better reports whether a beats b under the objective's direction.
func (o Objective) Better(a, b float64) bool {
	if o.Minimize {
		return a < b
	}
	return a > b
}

// OptimizationProblem ties together the parameter, objective and optional
// context spaces.
type OptimizationProblem struct {
	ParameterSpace *space.Hypergrid
	ObjectiveSpace *space.Hypergrid
	ContextSpace   *space.Hypergrid
	Objectives     []Objective
}

// NewProblem builds and validates a problem.
func NewProblem(parameters, objectives *space.Hypergrid, context *space.Hypergrid, obj ...Objective) (*OptimizationProblem, error) {
	p := &OptimizationProblem{
		ParameterSpace: parameters,
		ObjectiveSpace: objectives,
		ContextSpace:   context,
		Objectives:     obj,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the structural invariants of the problem.
func (p *OptimizationProblem) Validate() error {
	const op = "OptimizationProblem.Validate"
	fail := func(format string, args ...any) error {
		return WrapErrorf(ErrInvalidArgument, format, args...).WithOperation(op)
	}

	if p.ParameterSpace == nil || p.SearchWidth() == 0 {
		return fail("parameter space must have at least one dimension")
	}
	if !p.ParameterSpace.Bounded() {
		return fail("parameter space must be bounded")
	}
	if p.ContextSpace != nil && !p.ContextSpace.Bounded() {
		return fail("context space must be bounded")
	}
	if p.ObjectiveSpace == nil {
		return fail("objective space is required")
	}
	if len(p.Objectives) == 0 {
		return fail("at least one objective is required")
	}
	seen := make(map[string]struct{}, len(p.Objectives))
	for _, o := range p.Objectives {
		d, ok := p.ObjectiveSpace.Dimension(o.Name)
		if !ok {
			return fail("objective %q is not a dimension of the objective space", o.Name)
		}
		if d.Kind() != space.Continuous {
			return fail("objective %q must be continuous", o.Name)
		}
		if _, dup := seen[o.Name]; dup {
			return fail("objective %q listed twice", o.Name)
		}
		seen[o.Name] = struct{}{}
	}
	return nil
}

// SearchWidth is the number of parameter dimensions.
func (p *OptimizationProblem) SearchWidth() int {
	if p.ParameterSpace == nil {
		return 0
	}
	return p.ParameterSpace.SearchDimensions()
}

// HasContext reports whether the problem has a context space.
func (p *OptimizationProblem) HasContext() bool {
	return p.ContextSpace != nil
}

// MultiObjective reports whether more than one objective is optimized.
func (p *OptimizationProblem) MultiObjective() bool {
	return len(p.Objectives) > 1
}

// Objective looks up an objective by name.
func (p *OptimizationProblem) Objective(name string) (Objective, bool) {
	for _, o := range p.Objectives {
		if o.Name == name {
			return o, true
		}
	}
	return Objective{}, false
}

// FeatureWidth is the width of the vectors produced by Features.
func (p *OptimizationProblem) FeatureWidth() int {
	n := p.ParameterSpace.FeatureWidth()
	if p.ContextSpace != nil {
		n += p.ContextSpace.FeatureWidth()
	}
	return n
}

// Features encodes a parameter point and its context into a model input row.
func (p *OptimizationProblem) Features(params, context space.Point) []float64 {
	row := make([]float64, 0, p.FeatureWidth())
	row = p.ParameterSpace.Features(params, row)
	if p.ContextSpace != nil {
		row = p.ContextSpace.Features(context, row)
	}
	return row
}

// ProblemSpec is the serializable description of an OptimizationProblem.
type ProblemSpec struct {
	ParameterSpace space.GridSpec  `json:"parameter_space" yaml:"parameter_space" msgpack:"parameter_space"`
	ObjectiveSpace space.GridSpec  `json:"objective_space" yaml:"objective_space" msgpack:"objective_space"`
	ContextSpace   *space.GridSpec `json:"context_space,omitempty" yaml:"context_space,omitempty" msgpack:"context_space,omitempty"`
	Objectives     []Objective     `json:"objectives" yaml:"objectives" msgpack:"objectives"`
}

// Spec returns the serializable description of p.
func (p *OptimizationProblem) Spec() ProblemSpec {
	s := ProblemSpec{
		ParameterSpace: p.ParameterSpace.Spec(),
		ObjectiveSpace: p.ObjectiveSpace.Spec(),
		Objectives:     append([]Objective(nil), p.Objectives...),
	}
	if p.ContextSpace != nil {
		cs := p.ContextSpace.Spec()
		s.ContextSpace = &cs
	}
	return s
}

// Build reconstructs and validates the problem described by s.
func (s ProblemSpec) Build() (*OptimizationProblem, error) {
	params, err := space.FromSpec(s.ParameterSpace)
	if err != nil {
		return nil, WrapError(ErrInvalidArgument, fmt.Sprintf("parameter space: %v", err))
	}
	objectives, err := space.FromSpec(s.ObjectiveSpace)
	if err != nil {
		return nil, WrapError(ErrInvalidArgument, fmt.Sprintf("objective space: %v", err))
	}
	var context *space.Hypergrid
	if s.ContextSpace != nil {
		if context, err = space.FromSpec(*s.ContextSpace); err != nil {
			return nil, WrapError(ErrInvalidArgument, fmt.Sprintf("context space: %v", err))
		}
	}
	return NewProblem(params, objectives, context, s.Objectives...)
}
