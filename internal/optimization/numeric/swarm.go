package numeric

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/cwbudde/mayfly"
)

// Swarm maximizes with the Mayfly swarm algorithm. The population is seeded
// from the request's random source so runs are reproducible. The best
// incumbent is scored as well.
type Swarm struct {
	cfg SwarmConfig
}

func (s *Swarm) Name() string { return SwarmName }

func (s *Swarm) Maximize(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		t       tracker
		evalErr error
	)
	score := func(x []float64) float64 {
		mu.Lock()
		defer mu.Unlock()
		if evalErr != nil {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			evalErr = err
			return math.Inf(1)
		}
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
		return -values[0]
	}

	if len(req.Incumbents) > 0 {
		score(req.Incumbents[0])
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = score
	config.ProblemSize = req.Dims
	config.MaxIterations = s.cfg.Iterations
	config.NPop = s.cfg.Population
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(req.Rand.Int63()))

	_, err := mayfly.Optimize(config)
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		return nil, err
	}
	return t.result()
}
