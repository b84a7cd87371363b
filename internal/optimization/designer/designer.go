// Package designer chooses the next configuration to evaluate.
package designer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/acquisition"
	"github.com/copyleftdev/bayesopt/internal/optimization/numeric"
	"github.com/copyleftdev/bayesopt/internal/optimization/observations"
	"github.com/copyleftdev/bayesopt/internal/optimization/pareto"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

// predictChunk is the number of candidates predicted per goroutine.
const predictChunk = 64

// Model is the view of the surrogate model the designer needs.
type Model interface {
	Trained() bool
	Predict(X [][]float64) (optimization.MultiObjectivePrediction, error)
}

// Suggestion is a suggested configuration and how it was produced.
type Suggestion struct {
	Point space.Point
	// Random is set when the point was sampled uniformly.
	Random bool
	// Utility is the utility of a guided suggestion.
	Utility float64
}

// Speculation is the configuration with the best predicted value at a
// fixed context.
type Speculation struct {
	Point      space.Point
	Prediction optimization.PredictedValue
}

// Designer is stateless apart from its configuration. All randomness comes
// from the caller's source.
type Designer struct {
	problem *optimization.OptimizationProblem
	cfg     Config
	numeric numeric.Optimizer
	logger  *zap.Logger
}

// New builds a designer for problem.
func New(problem *optimization.OptimizationProblem, cfg Config, logger *zap.Logger) (*Designer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, optimization.WrapError(err, "invalid experiment designer config").WithComponent("designer")
	}
	opt, err := numeric.New(cfg.NumericOptimizer)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Designer{problem: problem, cfg: cfg, numeric: opt, logger: logger.Named("designer")}, nil
}

// CheckContext validates a context value against the problem and returns
// its canonical form.
func CheckContext(problem *optimization.OptimizationProblem, contextValue space.Point) (space.Point, error) {
	if !problem.HasContext() {
		if contextValue != nil {
			return nil, optimization.ErrContextNotSupported
		}
		return nil, nil
	}
	if contextValue == nil {
		return nil, optimization.ErrContextRequired
	}
	canonical, err := problem.ContextSpace.Canonicalize(contextValue)
	if err != nil || !problem.ContextSpace.Contains(canonical) {
		return nil, fmt.Errorf("%w: context %v is not a member of the context space", optimization.ErrInvalidArgument, contextValue)
	}
	return canonical, nil
}

// Suggest returns the next configuration to evaluate. Suggestions are
// random below the guided-design sample threshold, with probability
// FractionRandomSuggestions, or when the model is not trained; otherwise
// the utility function is maximized over the parameter space.
func (d *Designer) Suggest(ctx context.Context, model Model, store *observations.Store, contextValue space.Point, rng *rand.Rand) (*Suggestion, error) {
	contextValue, err := CheckContext(d.problem, contextValue)
	if err != nil {
		return nil, err
	}

	n := store.Len()
	switch {
	case n < d.cfg.MinSamplesRequiredForGuidedDesign:
		return d.random(rng), nil
	case rng.Float64() < d.cfg.FractionRandomSuggestions:
		return d.random(rng), nil
	case !model.Trained():
		d.logger.Debug("Model not trained, suggesting at random", zap.Int("observations", n))
		return d.random(rng), nil
	}

	rows := store.Rows(n)
	utility, err := d.utility(rows, rng)
	if err != nil {
		return nil, err
	}

	res, err := d.numeric.Maximize(ctx, numeric.Request{
		Dims:       d.problem.ParameterSpace.SearchDimensions(),
		Objective:  d.scorer(model, contextValue, utility.Score),
		Incumbents: d.incumbents(rows),
		Rand:       rng,
	})
	if err != nil {
		return nil, optimization.WrapError(err, "maximizing utility").WithOperation("Designer.Suggest").WithComponent("designer")
	}

	point := d.problem.ParameterSpace.DecodeSearch(res.X)
	d.logger.Debug("Guided suggestion",
		zap.String("utility", utility.Name()),
		zap.String("numeric_optimizer", d.numeric.Name()),
		zap.Float64("value", res.Value),
		zap.Int("evaluations", res.Evaluations),
	)
	return &Suggestion{Point: point, Utility: res.Value}, nil
}

// Speculate maximizes the direction-aware predicted value of the first
// objective at a fixed context.
func (d *Designer) Speculate(ctx context.Context, model Model, store *observations.Store, contextValue space.Point, rng *rand.Rand) (*Speculation, error) {
	if contextValue == nil {
		return nil, optimization.ErrContextRequired
	}
	contextValue, err := CheckContext(d.problem, contextValue)
	if err != nil {
		return nil, err
	}
	if !model.Trained() {
		return nil, optimization.ErrModelNotFitted
	}

	objective := d.problem.Objectives[0]
	predicted := func(preds optimization.MultiObjectivePrediction) []float64 {
		out := make([]float64, len(preds[0].Values))
		for i, v := range preds[0].Values {
			out[i] = v.Value
			if objective.Minimize {
				out[i] = -v.Value
			}
		}
		return out
	}

	res, err := d.numeric.Maximize(ctx, numeric.Request{
		Dims:       d.problem.ParameterSpace.SearchDimensions(),
		Objective:  d.scorer(model, contextValue, predicted),
		Incumbents: d.incumbents(store.Rows(store.Len())),
		Rand:       rng,
	})
	if err != nil {
		return nil, optimization.WrapError(err, "maximizing predicted value").WithOperation("Designer.Speculate").WithComponent("designer")
	}

	point := d.problem.ParameterSpace.DecodeSearch(res.X)
	preds, err := model.Predict([][]float64{d.problem.Features(point, contextValue)})
	if err != nil {
		return nil, err
	}
	return &Speculation{Point: point, Prediction: preds[0].Values[0]}, nil
}

func (d *Designer) random(rng *rand.Rand) *Suggestion {
	return &Suggestion{Point: d.problem.ParameterSpace.Random(rng), Random: true}
}

// scorer adapts the model and a score function into a numeric objective
// over the parameter search cube. Batches are predicted in parallel chunks.
func (d *Designer) scorer(model Model, contextValue space.Point, score func(optimization.MultiObjectivePrediction) []float64) numeric.Objective {
	return func(ctx context.Context, candidates [][]float64) ([]float64, error) {
		if len(candidates) == 0 {
			return nil, nil
		}
		features := make([][]float64, len(candidates))
		for i, c := range candidates {
			features[i] = d.problem.Features(d.problem.ParameterSpace.DecodeSearch(c), contextValue)
		}

		chunks := make([]optimization.MultiObjectivePrediction, (len(features)+predictChunk-1)/predictChunk)
		p := pool.New().WithErrors().WithContext(ctx)
		for i := range chunks {
			lo, hi := i*predictChunk, min((i+1)*predictChunk, len(features))
			p.Go(func(context.Context) error {
				preds, err := model.Predict(features[lo:hi])
				if err != nil {
					return err
				}
				chunks[i] = preds
				return nil
			})
		}
		if err := p.Wait(); err != nil {
			return nil, err
		}
		return score(mergeChunks(chunks)), nil
	}
}

func mergeChunks(chunks []optimization.MultiObjectivePrediction) optimization.MultiObjectivePrediction {
	if len(chunks) == 1 {
		return chunks[0]
	}
	merged := make(optimization.MultiObjectivePrediction, len(chunks[0]))
	for j, pred := range chunks[0] {
		merged[j] = &optimization.Prediction{Objective: pred.Objective}
	}
	for _, chunk := range chunks {
		for j, pred := range chunk {
			merged[j].Values = append(merged[j].Values, pred.Values...)
		}
	}
	return merged
}

// utility builds the configured utility from the current observations.
func (d *Designer) utility(rows []observations.Row, rng *rand.Rand) (acquisition.Utility, error) {
	objectives := d.problem.Objectives
	u := d.cfg.UtilityFunction

	incumbent, _ := bestValue(objectives[0], rows)
	var complete [][]float64
	for _, r := range rows {
		if v, ok := targetVector(objectives, r); ok {
			complete = append(complete, v)
		}
	}

	return acquisition.New(u.Implementation, acquisition.Params{
		Objectives:           objectives,
		Incumbent:            incumbent,
		Xi:                   u.Xi,
		Alpha:                u.Alpha,
		Frontier:             pareto.NewFrontier(objectives, complete),
		NumMonteCarloSamples: u.NumMonteCarloSamples,
		Rand:                 rng,
	})
}

// incumbents encodes the NumIncumbents best observed configurations of the
// first objective, best first. Ties keep registration order.
func (d *Designer) incumbents(rows []observations.Row) [][]float64 {
	objective := d.problem.Objectives[0]
	idx := make([]int, 0, len(rows))
	for i, r := range rows {
		if _, ok := r.Targets[objective.Name]; ok {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return objective.Better(rows[idx[a]].Targets[objective.Name], rows[idx[b]].Targets[objective.Name])
	})
	if len(idx) > d.cfg.NumIncumbents {
		idx = idx[:d.cfg.NumIncumbents]
	}
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = d.problem.ParameterSpace.EncodeSearch(rows[j].Parameters)
	}
	return out
}

// bestValue returns the best observed value of objective, first registered
// on ties.
func bestValue(objective optimization.Objective, rows []observations.Row) (float64, bool) {
	var best float64
	found := false
	for _, r := range rows {
		v, ok := r.Targets[objective.Name]
		if !ok {
			continue
		}
		if !found || objective.Better(v, best) {
			best, found = v, true
		}
	}
	return best, found
}

// targetVector returns the values of all objectives, in order, when the row
// has every one of them.
func targetVector(objectives []optimization.Objective, r observations.Row) ([]float64, bool) {
	v := make([]float64, len(objectives))
	for i, o := range objectives {
		x, ok := r.Targets[o.Name]
		if !ok {
			return nil, false
		}
		v[i] = x
	}
	return v, true
}
