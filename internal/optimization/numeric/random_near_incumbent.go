package numeric

import (
	"context"
	"math"
)

// RandomNearIncumbent is a local random search. It starts from the
// incumbents (topped up with the best of a random sample) and repeatedly
// moves each start to its best Gaussian neighbor, shrinking the step size
// every iteration.
type RandomNearIncumbent struct {
	cfg RandomNearIncumbentConfig
}

func (r *RandomNearIncumbent) Name() string { return RandomNearIncumbentName }

func (r *RandomNearIncumbent) Maximize(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var t tracker
	starts, values, err := r.startingPoints(ctx, req, &t)
	if err != nil {
		return nil, err
	}

	stdev := r.cfg.InitialStdev
	for iter := 0; iter < r.cfg.NumIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		neighbors := make([][]float64, 0, len(starts)*r.cfg.NumNeighbors)
		for _, s := range starts {
			for k := 0; k < r.cfg.NumNeighbors; k++ {
				n := make([]float64, req.Dims)
				for i := range n {
					n[i] = s[i] + stdev*req.Rand.NormFloat64()
				}
				neighbors = append(neighbors, clampUnit(n))
			}
		}
		scores, err := evaluate(ctx, req.Objective, neighbors)
		if err != nil {
			return nil, err
		}
		t.observe(neighbors, scores)

		for j := range starts {
			for k := 0; k < r.cfg.NumNeighbors; k++ {
				idx := j*r.cfg.NumNeighbors + k
				if scores[idx] > values[j] {
					starts[j], values[j] = neighbors[idx], scores[idx]
				}
			}
		}
		stdev *= r.cfg.StdevDecay
	}
	return t.result()
}

// startingPoints returns up to NumStartingPoints starts with their scores.
func (r *RandomNearIncumbent) startingPoints(ctx context.Context, req Request, t *tracker) ([][]float64, []float64, error) {
	var starts [][]float64
	for _, inc := range req.Incumbents {
		if len(starts) == r.cfg.NumStartingPoints {
			break
		}
		starts = append(starts, clampUnit(inc))
	}
	nIncumbents := len(starts)

	pool := Uniform(max(r.cfg.NumRandomCandidates, r.cfg.NumStartingPoints-nIncumbents), req.Dims, req.Rand)
	candidates := make([][]float64, 0, nIncumbents+len(pool))
	candidates = append(candidates, starts...)
	candidates = append(candidates, pool...)
	scores, err := evaluate(ctx, req.Objective, candidates)
	if err != nil {
		return nil, nil, err
	}
	t.observe(candidates, scores)

	values := append([]float64(nil), scores[:nIncumbents]...)
	poolScores := scores[nIncumbents:]

	// Top up with the best random candidates.
	used := make([]bool, len(pool))
	for len(starts) < r.cfg.NumStartingPoints {
		best, bestScore := -1, math.Inf(-1)
		for i, s := range poolScores {
			if used[i] {
				continue
			}
			if best < 0 || s > bestScore {
				best, bestScore = i, s
			}
		}
		used[best] = true
		starts = append(starts, pool[best])
		values = append(values, bestScore)
	}
	return starts, values, nil
}
