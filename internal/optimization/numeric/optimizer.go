// Package numeric maximizes black-box functions over the unit hypercube.
// The experiment designer uses it to find the configuration with the best
// utility; candidates are decoded into parameter space by the caller.
package numeric

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

// Registry tags of the numeric optimizers.
const (
	RandomSearchName        = "random_search"
	RandomNearIncumbentName = "random_near_incumbent"
	NelderMeadName          = "nelder_mead"
	SwarmName               = "swarm"
)

// Objective scores a batch of candidates in [0,1]^d. Larger is better.
type Objective func(ctx context.Context, candidates [][]float64) ([]float64, error)

// Request describes one maximization.
type Request struct {
	Dims      int
	Objective Objective
	// Incumbents are unit-cube encodings of the best known points, best
	// first. Optimizers that search locally start from them.
	Incumbents [][]float64
	Rand       *rand.Rand
}

func (r Request) validate() error {
	if r.Dims < 1 {
		return fmt.Errorf("%w: search space must have at least one dimension", optimization.ErrInvalidArgument)
	}
	if r.Objective == nil || r.Rand == nil {
		return fmt.Errorf("%w: objective and random source are required", optimization.ErrInvalidArgument)
	}
	return nil
}

// Result is the best candidate found.
type Result struct {
	X           []float64
	Value       float64
	Evaluations int
}

// Optimizer maximizes an Objective over the unit hypercube.
type Optimizer interface {
	Name() string
	Maximize(ctx context.Context, req Request) (*Result, error)
}

// Factory builds an optimizer from its configuration.
type Factory func(cfg Config) Optimizer

var registry = map[string]Factory{
	RandomSearchName:        func(cfg Config) Optimizer { return &RandomSearch{cfg: cfg.RandomSearch} },
	RandomNearIncumbentName: func(cfg Config) Optimizer { return &RandomNearIncumbent{cfg: cfg.RandomNearIncumbent} },
	NelderMeadName:          func(cfg Config) Optimizer { return &NelderMead{cfg: cfg.NelderMead} },
	SwarmName:               func(cfg Config) Optimizer { return &Swarm{cfg: cfg.Swarm} },
}

// New builds the optimizer selected by cfg.Implementation.
func New(cfg Config) (Optimizer, error) {
	f, ok := registry[cfg.Implementation]
	if !ok {
		return nil, fmt.Errorf("unknown numeric optimizer %q, expected one of %v", cfg.Implementation, Names())
	}
	return f(cfg), nil
}

// Names lists the registered numeric optimizer tags.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// tracker keeps the best candidate seen across batches.
type tracker struct {
	best        []float64
	value       float64
	evaluations int
}

func (t *tracker) observe(candidates [][]float64, values []float64) {
	for i, v := range values {
		t.evaluations++
		if v != v { // NaN
			continue
		}
		// Strict comparison keeps the first of equal candidates.
		if t.best == nil || v > t.value {
			t.best = append([]float64(nil), candidates[i]...)
			t.value = v
		}
	}
}

func (t *tracker) result() (*Result, error) {
	if t.best == nil {
		return nil, errors.New("no candidate produced a finite objective value")
	}
	return &Result{X: t.best, Value: t.value, Evaluations: t.evaluations}, nil
}

// evaluate runs the objective on a batch and checks its output length.
func evaluate(ctx context.Context, obj Objective, candidates [][]float64) ([]float64, error) {
	values, err := obj(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(values) != len(candidates) {
		return nil, fmt.Errorf("objective returned %d values for %d candidates", len(values), len(candidates))
	}
	return values, nil
}

// clampUnit returns a copy of x clamped into [0,1]^d.
func clampUnit(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v != v {
			v = 0.5
		}
		out[i] = space.Clamp(v, 0.0, 1.0)
	}
	return out
}

// LatinHypercube draws n stratified samples from [0,1]^d: every dimension
// has exactly one sample in each of its n equal-width strata.
func LatinHypercube(n, d int, rng *rand.Rand) [][]float64 {
	samples := make([][]float64, n)
	for j := range samples {
		samples[j] = make([]float64, d)
	}

	strata := make([]float64, n)
	for i := 0; i < d; i++ {
		// Generate stratified random samples
		for j := 0; j < n; j++ {
			strata[j] = (float64(j) + rng.Float64()) / float64(n)
		}
		rng.Shuffle(n, func(k, l int) {
			strata[k], strata[l] = strata[l], strata[k]
		})
		for j := 0; j < n; j++ {
			samples[j][i] = strata[j]
		}
	}
	return samples
}

// Uniform draws n independent uniform samples from [0,1]^d.
func Uniform(n, d int, rng *rand.Rand) [][]float64 {
	samples := make([][]float64, n)
	for j := range samples {
		samples[j] = make([]float64, d)
		for i := range samples[j] {
			samples[j][i] = rng.Float64()
		}
	}
	return samples
}
