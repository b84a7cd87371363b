package bayesian

import (
	"context"
	"math/rand"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/pareto"
)

// ParetoFrontier returns the non-dominated set of the observations that have
// a value for every objective.
func (o *Optimizer) ParetoFrontier(ctx context.Context) (*pareto.Frontier, error) {
	_, span := o.start(ctx, "Optimizer.ParetoFrontier")
	defer span.End()

	o.mu.RLock()
	defer o.mu.RUnlock()
	f, _ := o.frontier()
	return f, nil
}

// ParetoVolume estimates the hypervolume dominated by the frontier with
// numSamples Monte Carlo draws. The draws come from a source derived from
// the seed and the observation count, so the estimate is reproducible and
// does not disturb the suggestion sequence.
func (o *Optimizer) ParetoVolume(ctx context.Context, numSamples int) (*pareto.VolumeEstimator, error) {
	_, span := o.start(ctx, "Optimizer.ParetoVolume")
	defer span.End()

	if !o.problem.MultiObjective() {
		return nil, optimization.WrapError(optimization.ErrUnsupportedQuery, "pareto volume needs at least two objectives").
			WithOperation("Optimizer.ParetoVolume").WithComponent(component)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	f, values := o.frontier()
	box := pareto.ReferenceBox(o.problem.ObjectiveSpace, o.problem.Objectives, values)
	rng := rand.New(rand.NewSource(o.src.seed + int64(o.store.Len())))
	return pareto.ApproximateVolume(f, box, numSamples, rng)
}

func (o *Optimizer) frontier() (*pareto.Frontier, [][]float64) {
	var values [][]float64
	for _, r := range o.store.Rows(-1) {
		v := make([]float64, len(o.problem.Objectives))
		complete := true
		for i, obj := range o.problem.Objectives {
			x, ok := r.Targets[obj.Name]
			if !ok {
				complete = false
				break
			}
			v[i] = x
		}
		if complete {
			values = append(values, v)
		}
	}
	return pareto.NewFrontier(o.problem.Objectives, values), values
}
