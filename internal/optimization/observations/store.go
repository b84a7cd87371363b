// Package observations holds the append-only history of registered
// (parameters, targets, context) triples.
package observations

import (
	"fmt"
	"sync"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

const component = "observations"

// Row is one registered observation. Targets holds only objective-space
// columns; a missing key is a null.
type Row struct {
	Parameters space.Point
	Targets    map[string]float64
	Context    space.Point
}

// Store is an append-only observation table. It is safe for concurrent use:
// Register is serialized and readers always see whole registrations.
type Store struct {
	problem *optimization.OptimizationProblem

	mu   sync.RWMutex
	rows []Row
}

// NewStore creates an empty store for problem.
func NewStore(problem *optimization.OptimizationProblem) *Store {
	return &Store{problem: problem}
}

func fail(sentinel error, format string, args ...any) error {
	return optimization.WrapErrorf(sentinel, format, args...).
		WithOperation("Store.Register").
		WithComponent(component)
}

// Validate checks a registration without storing it and returns the
// canonical rows that Register would append.
func (s *Store) Validate(parameters, targets, contextValues *space.Table) ([]Row, error) {
	if contextValues != nil && contextValues.Len() == 0 && len(contextValues.Columns) == 0 {
		contextValues = nil
	}
	n := parameters.Len()
	if n == 0 {
		return nil, fail(optimization.ErrInvalidObservation, "at least one parameter row is required")
	}
	if targets.Len() != n {
		return nil, fail(optimization.ErrIncompatibleShape, "incompatible shape of parameters (%d rows) and targets (%d rows)", n, targets.Len())
	}

	switch {
	case s.problem.HasContext() && contextValues == nil:
		return nil, fail(optimization.ErrContextRequired, "context required")
	case !s.problem.HasContext() && contextValues != nil:
		return nil, fail(optimization.ErrContextNotSupported, "context supplied but the problem has no context space")
	case contextValues != nil && contextValues.Len() != n:
		return nil, fail(optimization.ErrIncompatibleShape, "incompatible shape of parameters (%d rows) and context (%d rows)", n, contextValues.Len())
	}

	objectives := make(map[string]bool)
	for _, name := range s.problem.ObjectiveSpace.DimensionNames() {
		objectives[name] = true
	}
	valid := 0
	for _, c := range targets.Columns {
		if objectives[c] {
			valid++
		}
	}
	if valid == 0 {
		return nil, fail(optimization.ErrInvalidObservation, "none of the target columns %v is in the objective space", targets.Columns)
	}

	out := make([]Row, n)
	for i := 0; i < n; i++ {
		params, err := s.problem.ParameterSpace.Canonicalize(parameters.Rows[i])
		if err != nil {
			return nil, fail(optimization.ErrInvalidObservation, "parameter row %d: %v", i, err)
		}
		if !s.problem.ParameterSpace.Contains(params) {
			return nil, fail(optimization.ErrInvalidObservation, "parameter row %d is not in the parameter space", i)
		}

		row := Row{Parameters: params, Targets: make(map[string]float64)}
		for name, v := range targets.Rows[i] {
			if !objectives[name] || v == nil {
				continue
			}
			d, _ := s.problem.ObjectiveSpace.Dimension(name)
			c, err := d.Canonicalize(v)
			if err != nil {
				return nil, fail(optimization.ErrInvalidObservation, "target row %d: %v", i, err)
			}
			if !d.Contains(c) {
				return nil, fail(optimization.ErrInvalidObservation, "target row %d: %s=%v outside the objective space", i, name, v)
			}
			row.Targets[name] = c.(float64)
		}
		if len(row.Targets) == 0 {
			return nil, fail(optimization.ErrInvalidObservation, "target row %d has no valid objective values", i)
		}

		if contextValues != nil {
			ctx, err := s.problem.ContextSpace.Canonicalize(contextValues.Rows[i])
			if err != nil {
				return nil, fail(optimization.ErrInvalidObservation, "context row %d: %v", i, err)
			}
			if !s.problem.ContextSpace.Contains(ctx) {
				return nil, fail(optimization.ErrInvalidObservation, "context row %d is not in the context space", i)
			}
			row.Context = ctx
		}
		out[i] = row
	}
	return out, nil
}

// Register validates and appends observations. Nothing is stored unless
// every row is valid. It returns the number of stored observations.
func (s *Store) Register(parameters, targets, contextValues *space.Table) (int, error) {
	rows, err := s.Validate(parameters, targets, contextValues)
	if err != nil {
		return 0, err
	}
	return s.Append(rows), nil
}

// Append stores rows that were produced by Validate.
func (s *Store) Append(rows []Row) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return len(s.rows)
}

// Len returns the number of stored observations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Rows returns a copy of the first n observations, or all of them when n is
// negative or larger than the store.
func (s *Store) Rows(n int) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 0 || n > len(s.rows) {
		n = len(s.rows)
	}
	out := make([]Row, n)
	for i, r := range s.rows[:n] {
		targets := make(map[string]float64, len(r.Targets))
		for k, v := range r.Targets {
			targets[k] = v
		}
		out[i] = Row{Parameters: r.Parameters.Clone(), Targets: targets, Context: r.Context.Clone()}
	}
	return out
}

// All returns the three row-aligned tables of the history in registration
// order. The targets table has every objective-space column, with nulls for
// unobserved values; the context table is empty for context-free problems.
func (s *Store) All() *optimization.Observations {
	rows := s.Rows(-1)

	objectiveCols := s.problem.ObjectiveSpace.DimensionNames()
	out := &optimization.Observations{
		Parameters: space.NewTable(s.problem.ParameterSpace.DimensionNames()),
		Targets:    space.NewTable(objectiveCols),
		Context:    space.NewTable(nil),
	}
	if s.problem.HasContext() {
		out.Context.Columns = s.problem.ContextSpace.DimensionNames()
	}
	for _, r := range rows {
		out.Parameters.Rows = append(out.Parameters.Rows, r.Parameters)
		t := make(space.Point, len(r.Targets))
		for k, v := range r.Targets {
			t[k] = v
		}
		out.Targets.Rows = append(out.Targets.Rows, t)
		if s.problem.HasContext() {
			out.Context.Rows = append(out.Context.Rows, r.Context)
		}
	}
	return out
}

// Dataset is the model-ready view of the observations for one objective.
type Dataset struct {
	Objective string
	X         [][]float64
	Y         []float64
	// Index maps dataset rows back to store rows.
	Index []int
}

// Dataset returns the features and values of the first n observations that
// have a value for objective.
func (s *Store) Dataset(objective string, n int) (*Dataset, error) {
	if _, ok := s.problem.Objective(objective); !ok {
		return nil, fmt.Errorf("%s: unknown objective %q", component, objective)
	}
	ds := &Dataset{Objective: objective}
	for i, r := range s.Rows(n) {
		y, ok := r.Targets[objective]
		if !ok {
			continue
		}
		ds.X = append(ds.X, s.problem.Features(r.Parameters, r.Context))
		ds.Y = append(ds.Y, y)
		ds.Index = append(ds.Index, i)
	}
	return ds, nil
}
