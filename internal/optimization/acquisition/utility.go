// Package acquisition implements utility functions that score surrogate
// model predictions. Every utility is oriented so that higher is better,
// whatever the objective directions.
package acquisition

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/pareto"
)

// Utility scores candidate predictions. preds holds one Prediction per
// objective, each with one value per candidate; the result has one score
// per candidate.
type Utility interface {
	Name() string
	Score(preds optimization.MultiObjectivePrediction) []float64
}

// Registry tags.
const (
	ExpectedImprovementName                    = "expected_improvement"
	ProbabilityOfImprovementName               = "probability_of_improvement"
	ConfidenceBoundName                        = "confidence_bound"
	MultiObjectiveProbabilityOfImprovementName = "multi_objective_probability_of_improvement"
)

// Params carries everything a utility factory may need. Fields that a given
// utility does not use are ignored.
type Params struct {
	Objectives []optimization.Objective
	// Incumbent is the best observed value of the first objective.
	Incumbent float64
	// Xi is the improvement margin of EI and PI.
	Xi float64
	// Alpha is the significance level of the confidence bound.
	Alpha float64
	// Frontier is the current Pareto frontier, for multi-objective utilities.
	Frontier *pareto.Frontier
	// NumMonteCarloSamples is the per-candidate sample count of Monte Carlo
	// utilities.
	NumMonteCarloSamples int
	Rand                 *rand.Rand
}

// Factory builds a utility from Params.
type Factory func(p Params) (Utility, error)

var registry = map[string]Factory{
	ExpectedImprovementName: func(p Params) (Utility, error) {
		return NewExpectedImprovementFor(p.Objectives[0], p.Incumbent, p.Xi), nil
	},
	ProbabilityOfImprovementName: func(p Params) (Utility, error) {
		return NewProbabilityOfImprovement(p.Objectives[0], p.Incumbent, p.Xi), nil
	},
	ConfidenceBoundName: func(p Params) (Utility, error) {
		return NewConfidenceBound(p.Objectives[0], p.Alpha)
	},
	MultiObjectiveProbabilityOfImprovementName: func(p Params) (Utility, error) {
		return NewMultiObjectiveProbabilityOfImprovement(p.Frontier, p.NumMonteCarloSamples, p.Rand)
	},
}

// New builds the utility registered under name.
func New(name string, p Params) (Utility, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown utility function %q, expected one of %v", name, Names())
	}
	if len(p.Objectives) == 0 {
		return nil, fmt.Errorf("utility function %q needs at least one objective", name)
	}
	return f(p)
}

// Names lists the registered utility tags.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
