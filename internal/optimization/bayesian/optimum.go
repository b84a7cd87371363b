package bayesian

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/designer"
	"github.com/copyleftdev/bayesopt/internal/optimization/observations"
)

// Optimum answers a best-configuration query for the first objective.
// Observed-config definitions rank registered configurations and keep the
// first registered one on ties; they are not available on problems with a
// context space. BestSpeculativeWithinContext searches the parameter space
// at a fixed context.
func (o *Optimizer) Optimum(ctx context.Context, q optimization.OptimumQuery) (opt *optimization.Optimum, err error) {
	ctx, span := o.start(ctx, "Optimizer.Optimum")
	defer func() { finish(span, err) }()
	span.SetAttributes(attribute.String("optimum.definition", string(q.Definition)))

	const op = "Optimizer.Optimum"
	fail := func(sentinel error, msg string) error {
		return optimization.WrapError(sentinel, msg).WithOperation(op).WithComponent(component)
	}

	def, err := optimization.ParseOptimumDefinition(string(q.Definition))
	if err != nil {
		return nil, err
	}
	if def.UsesConfidenceBound() {
		if alpha := q.EffectiveAlpha(); !(alpha > 0 && alpha < 1) {
			return nil, optimization.WrapErrorf(optimization.ErrInvalidArgument, "alpha must be in (0, 1), got %v", alpha).WithOperation(op)
		}
	}

	if def == optimization.BestSpeculativeWithinContext {
		if q.ContextValue == nil {
			return nil, fail(optimization.ErrContextRequired, "best speculative within context requires context to be not nil")
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.speculate(ctx, q)
	}

	if q.ContextValue != nil || o.problem.HasContext() {
		return nil, fail(optimization.ErrUnsupportedQuery, string(def)+" is not supported if context is provided")
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	rows := o.store.Rows(-1)
	objective := o.problem.Objectives[0]
	if def == optimization.BestObservation {
		return bestObservation(objective, rows, fail)
	}

	if len(rows) == 0 {
		return nil, fail(optimization.ErrNoObservations, "no observations have been registered")
	}
	if !o.model.Trained() {
		return nil, fail(optimization.ErrModelNotFitted, "surrogate model has not been fit")
	}

	X := make([][]float64, len(rows))
	for i, r := range rows {
		X[i] = o.problem.Features(r.Parameters, r.Context)
	}
	preds, err := o.model.Predict(X)
	if err != nil {
		return nil, err
	}
	values := preds[0].Values

	var (
		best      *optimization.Optimum
		bestValue float64
	)
	for i, v := range values {
		rank := v.Value
		switch def {
		case optimization.UpperConfidenceBoundForObserved, optimization.LowerConfidenceBoundForObserved:
			ci, err := v.ConfidenceInterval(q.EffectiveAlpha())
			if err != nil {
				// Zero degrees of freedom: this row cannot be bounded.
				continue
			}
			rank = ci.Lower
			if def == optimization.UpperConfidenceBoundForObserved {
				rank = ci.Upper
			}
		}
		if best == nil || objective.Better(rank, bestValue) {
			pv := v
			bestValue = rank
			best = &optimization.Optimum{
				Definition: def,
				Objective:  objective.Name,
				Config:     rows[i].Parameters,
				Value:      rank,
				Prediction: &pv,
			}
		}
	}
	if best == nil {
		return nil, fail(optimization.ErrInsufficientDegreesOfFreedom, "no prediction has enough degrees of freedom for a confidence bound")
	}
	return best, nil
}

func bestObservation(objective optimization.Objective, rows []observations.Row, fail func(error, string) error) (*optimization.Optimum, error) {
	var best *optimization.Optimum
	for _, r := range rows {
		v, ok := r.Targets[objective.Name]
		if !ok {
			continue
		}
		if best == nil || objective.Better(v, best.Value) {
			best = &optimization.Optimum{
				Definition: optimization.BestObservation,
				Objective:  objective.Name,
				Config:     r.Parameters,
				Value:      v,
			}
		}
	}
	if best == nil {
		return nil, fail(optimization.ErrNoObservations, "no observation of "+objective.Name+" has been registered")
	}
	return best, nil
}

func (o *Optimizer) speculate(ctx context.Context, q optimization.OptimumQuery) (*optimization.Optimum, error) {
	if _, err := designer.CheckContext(o.problem, q.ContextValue); err != nil {
		return nil, err
	}
	s, err := o.designer.Speculate(ctx, o.model, o.store, q.ContextValue, o.rng)
	if err != nil {
		return nil, err
	}
	pv := s.Prediction
	return &optimization.Optimum{
		Definition: optimization.BestSpeculativeWithinContext,
		Objective:  o.problem.Objectives[0].Name,
		Config:     s.Point,
		Value:      pv.Value,
		Prediction: &pv,
	}, nil
}
