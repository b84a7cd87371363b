package optimization

import (
	"context"
	"fmt"

	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

// Optimizer is the façade shared by the in-process and the RPC-proxied
// optimizers. The contextValue(s) arguments carry the optimization context
// (exogenous variables); ctx only carries deadlines and tracing.
type Optimizer interface {
	// Problem returns the problem being optimized.
	Problem() *OptimizationProblem

	// Register appends observations. It is all-or-nothing: on error the
	// observation history is unchanged.
	Register(ctx context.Context, parameters, targets, contextValues *space.Table) error

	// Suggest returns the next configuration to evaluate.
	Suggest(ctx context.Context, contextValue space.Point) (space.Point, error)

	// Predict queries the surrogate model for every row of parameters.
	Predict(ctx context.Context, parameters, contextValues *space.Table) (MultiObjectivePrediction, error)

	// Optimum answers a best-configuration query.
	Optimum(ctx context.Context, q OptimumQuery) (*Optimum, error)

	// AllObservations returns the registration history.
	AllObservations(ctx context.Context) (*Observations, error)

	// GoodnessOfFit returns one entry per objective model that has been fit.
	GoodnessOfFit(ctx context.Context) ([]GoodnessOfFitMetrics, error)

	// Trained reports whether every objective model has been fit.
	Trained(ctx context.Context) (bool, error)
}

// Observations is the row-aligned observation history.
type Observations struct {
	Parameters *space.Table `json:"parameters"`
	Targets    *space.Table `json:"targets"`
	Context    *space.Table `json:"context"`
}

// Len returns the number of observations.
func (o *Observations) Len() int {
	if o == nil {
		return 0
	}
	return o.Parameters.Len()
}

// OptimumDefinition selects how Optimum interprets "best".
type OptimumDefinition string

const (
	BestObservation                 OptimumDefinition = "best_observation"
	PredictedValueForObservedConfig OptimumDefinition = "predicted_value_for_observed_config"
	UpperConfidenceBoundForObserved OptimumDefinition = "upper_confidence_bound_for_observed_config"
	LowerConfidenceBoundForObserved OptimumDefinition = "lower_confidence_bound_for_observed_config"
	BestSpeculativeWithinContext    OptimumDefinition = "best_speculative_within_context"
)

// DefaultConfidenceBoundAlpha is used when an OptimumQuery leaves Alpha unset.
const DefaultConfidenceBoundAlpha = 0.1

// ParseOptimumDefinition validates a definition name.
func ParseOptimumDefinition(s string) (OptimumDefinition, error) {
	d := OptimumDefinition(s)
	switch d {
	case BestObservation, PredictedValueForObservedConfig, UpperConfidenceBoundForObserved,
		LowerConfidenceBoundForObserved, BestSpeculativeWithinContext:
		return d, nil
	}
	return "", WrapErrorf(ErrInvalidArgument, "unknown optimum definition %q", s)
}

// ObservedConfig reports whether the definition ranks registered configs.
func (d OptimumDefinition) ObservedConfig() bool {
	return d != BestSpeculativeWithinContext
}

// UsesConfidenceBound reports whether the definition takes alpha.
func (d OptimumDefinition) UsesConfidenceBound() bool {
	return d == UpperConfidenceBoundForObserved || d == LowerConfidenceBoundForObserved
}

// OptimumQuery is the argument of Optimizer.Optimum. A zero Alpha means
// DefaultConfidenceBoundAlpha.
type OptimumQuery struct {
	Definition   OptimumDefinition `json:"definition"`
	Alpha        float64           `json:"alpha,omitempty"`
	ContextValue space.Point       `json:"context,omitempty"`
}

// EffectiveAlpha returns Alpha, or the default when unset.
func (q OptimumQuery) EffectiveAlpha() float64 {
	if q.Alpha == 0 {
		return DefaultConfidenceBoundAlpha
	}
	return q.Alpha
}

// Optimum is a configuration with the value that made it best.
type Optimum struct {
	Definition OptimumDefinition `json:"definition"`
	Objective  string            `json:"objective"`
	Config     space.Point       `json:"config"`
	// Value is the ranked quantity: the observed target, the predicted
	// value or the confidence bound depending on Definition.
	Value float64 `json:"value"`
	// Prediction is set for every definition that consults the model.
	Prediction *PredictedValue `json:"prediction,omitempty"`
}

func (o *Optimum) String() string {
	return fmt.Sprintf("%s %s=%g at %v", o.Definition, o.Objective, o.Value, o.Config)
}
