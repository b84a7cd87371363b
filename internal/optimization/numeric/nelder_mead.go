package numeric

import (
	"context"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// NelderMead runs derivative-free simplex searches from several starting
// points: the best incumbent followed by uniform random points.
type NelderMead struct {
	cfg NelderMeadConfig
}

func (n *NelderMead) Name() string { return NelderMeadName }

func (n *NelderMead) Maximize(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	starts := make([][]float64, 0, n.cfg.NumStarts)
	if len(req.Incumbents) > 0 {
		starts = append(starts, clampUnit(req.Incumbents[0]))
	}
	starts = append(starts, Uniform(n.cfg.NumStarts-len(starts), req.Dims, req.Rand)...)

	var (
		t       tracker
		evalErr error
	)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			// x belongs to the optimizer and must not be modified.
			candidate := clampUnit(x)
			values, err := evaluate(ctx, req.Objective, [][]float64{candidate})
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			t.observe([][]float64{candidate}, values)
			if math.IsNaN(values[0]) {
				return math.Inf(1)
			}
			// Negate because we're minimizing
			return -values[0]
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: n.cfg.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Relative:   1e-6,
			Iterations: 100,
		},
	}

	for _, start := range starts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		method := &optimize.NelderMead{
			Reflection:  1.0,
			Expansion:   2.0,
			Contraction: 0.5,
			Shrink:      0.5,
			SimplexSize: n.cfg.SimplexSize,
		}
		// Budget exhaustion is reported as an error; the tracker already
		// holds every evaluated point.
		_, _ = optimize.Minimize(problem, start, settings, method)
		if evalErr != nil {
			return nil, evalErr
		}
	}
	return t.result()
}
