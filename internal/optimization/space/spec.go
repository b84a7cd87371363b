package space

import (
	"fmt"
	"math"
)

// DimensionSpec is the serializable description of a dimension. A nil bound
// is unbounded.
type DimensionSpec struct {
	Name   string   `json:"name" yaml:"name" msgpack:"name"`
	Kind   string   `json:"kind" yaml:"kind" msgpack:"kind"`
	Min    *float64 `json:"min,omitempty" yaml:"min,omitempty" msgpack:"min,omitempty"`
	Max    *float64 `json:"max,omitempty" yaml:"max,omitempty" msgpack:"max,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty" msgpack:"values,omitempty"`
}

// JoinSpec describes a subgrid gated by a pivot dimension.
type JoinSpec struct {
	Pivot  string   `json:"pivot" yaml:"pivot" msgpack:"pivot"`
	Values []string `json:"values" yaml:"values" msgpack:"values"`
	Grid   GridSpec `json:"grid" yaml:"grid" msgpack:"grid"`
}

// GridSpec is the serializable description of a Hypergrid.
type GridSpec struct {
	Name       string          `json:"name" yaml:"name" msgpack:"name"`
	Dimensions []DimensionSpec `json:"dimensions" yaml:"dimensions" msgpack:"dimensions"`
	Joins      []JoinSpec      `json:"joins,omitempty" yaml:"joins,omitempty" msgpack:"joins,omitempty"`
}

// Spec returns the serializable description of g.
func (g *Hypergrid) Spec() GridSpec {
	s := GridSpec{Name: g.name}
	for _, d := range g.dims {
		s.Dimensions = append(s.Dimensions, d.Spec())
	}
	for _, j := range g.joins {
		s.Joins = append(s.Joins, JoinSpec{
			Pivot:  j.pivot,
			Values: append([]string(nil), j.values...),
			Grid:   j.subgrid.Spec(),
		})
	}
	return s
}

// Build constructs the dimension described by s.
func (s DimensionSpec) Build() (Dimension, error) {
	kind, err := ParseKind(s.Kind)
	if err != nil {
		return nil, fmt.Errorf("dimension %s: %w", s.Name, err)
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	if s.Min != nil {
		lo = *s.Min
	}
	if s.Max != nil {
		hi = *s.Max
	}
	switch kind {
	case Continuous:
		if lo > hi || math.IsNaN(lo) || math.IsNaN(hi) {
			return nil, fmt.Errorf("dimension %s: invalid bounds [%v, %v]", s.Name, lo, hi)
		}
		return NewContinuous(s.Name, lo, hi), nil
	case Discrete:
		if s.Min == nil || s.Max == nil {
			return nil, fmt.Errorf("dimension %s: discrete dimensions need both bounds", s.Name)
		}
		if lo != math.Trunc(lo) || hi != math.Trunc(hi) || lo > hi {
			return nil, fmt.Errorf("dimension %s: invalid integer bounds [%v, %v]", s.Name, lo, hi)
		}
		return NewDiscrete(s.Name, int64(lo), int64(hi)), nil
	default:
		if len(s.Values) == 0 {
			return nil, fmt.Errorf("dimension %s: categorical dimensions need values", s.Name)
		}
		return NewCategorical(s.Name, s.Values...), nil
	}
}

// FromSpec builds a Hypergrid from its serializable description.
func FromSpec(s GridSpec) (*Hypergrid, error) {
	dims := make([]Dimension, 0, len(s.Dimensions))
	for _, ds := range s.Dimensions {
		d, err := ds.Build()
		if err != nil {
			return nil, fmt.Errorf("hypergrid %s: %w", s.Name, err)
		}
		dims = append(dims, d)
	}
	g, err := NewHypergrid(s.Name, dims...)
	if err != nil {
		return nil, err
	}
	for _, js := range s.Joins {
		sub, err := FromSpec(js.Grid)
		if err != nil {
			return nil, err
		}
		if err := g.Join(sub, js.Pivot, js.Values...); err != nil {
			return nil, err
		}
	}
	return g, nil
}
