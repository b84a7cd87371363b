// Package regression holds the surrogate models fitted to observations and
// the bookkeeping that decides when they are refit.
package regression

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/bayesopt/internal/optimization"
)

// Regressor is a single-output regression model over feature vectors.
type Regressor interface {
	// Fit replaces the model state with one trained on X (n_samples,
	// n_features) and y.
	Fit(X *mat.Dense, y []float64) error

	// Predict returns one PredictedValue per row of X.
	Predict(X *mat.Dense) ([]optimization.PredictedValue, error)
}

// Factory builds an unfitted regressor from the model configuration.
type Factory func(cfg Config, logger *zap.Logger) (Regressor, error)

var registry = map[string]Factory{
	GaussianProcessName: func(cfg Config, logger *zap.Logger) (Regressor, error) {
		return NewGaussianProcess(cfg.GaussianProcess, logger)
	},
	PolynomialRegressionName: func(cfg Config, logger *zap.Logger) (Regressor, error) {
		return NewPolynomialRegression(cfg.PolynomialRegression)
	},
}

// New builds the regressor selected by cfg.Implementation.
func New(cfg Config, logger *zap.Logger) (Regressor, error) {
	f, ok := registry[cfg.Implementation]
	if !ok {
		return nil, fmt.Errorf("unknown surrogate model %q, expected one of %v", cfg.Implementation, Names())
	}
	return f(cfg, logger)
}

// Names lists the registered surrogate model tags.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RefitPolicy decides when a surrogate is refit.
type RefitPolicy struct {
	MinSamplesToFit       int
	NewSamplesBeforeRefit int
}

// ShouldRefit reports whether a model last fit on fittedOn samples should be
// refit now that available samples exist. fittedOn is 0 for an unfitted model.
func (p RefitPolicy) ShouldRefit(available, fittedOn int) bool {
	if available < p.MinSamplesToFit {
		return false
	}
	if fittedOn == 0 {
		return true
	}
	return available-fittedOn >= p.NewSamplesBeforeRefit
}

// Surrogate is the model of one objective together with its refit history.
type Surrogate struct {
	objective string
	cfg       Config
	policy    RefitPolicy
	model     Regressor
	fittedOn  int
	iteration int
	gof       optimization.GoodnessOfFitMetrics
	logger    *zap.Logger
}

// NewSurrogate returns an unfitted surrogate for objective.
func NewSurrogate(objective string, cfg Config, logger *zap.Logger) (*Surrogate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, optimization.WrapError(err, "invalid surrogate model config").WithComponent("regression")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Surrogate{
		objective: objective,
		cfg:       cfg,
		policy: RefitPolicy{
			MinSamplesToFit:       cfg.MinSamplesToFit,
			NewSamplesBeforeRefit: cfg.NewSamplesBeforeRefit,
		},
		logger: logger.With(zap.String("objective", objective)),
	}, nil
}

// Objective returns the name of the modeled objective.
func (s *Surrogate) Objective() string { return s.objective }

// Fitted reports whether the surrogate has been fit at least once.
func (s *Surrogate) Fitted() bool { return s.model != nil }

// LastRefitIteration is the observation count at the last successful refit.
func (s *Surrogate) LastRefitIteration() int { return s.iteration }

// ShouldRefit applies the refit policy to n available samples.
func (s *Surrogate) ShouldRefit(n int) bool {
	return s.policy.ShouldRefit(n, s.fittedOn)
}

// Refit trains a fresh model on X and y. iteration is the total number of
// registered observations and is recorded in the goodness of fit metrics.
// On failure the previous model stays in place.
func (s *Surrogate) Refit(X [][]float64, y []float64, iteration int) error {
	const op = "Surrogate.Refit"

	if len(X) == 0 || len(X) != len(y) {
		return optimization.NewErrorf("cannot fit %d rows against %d targets", len(X), len(y)).
			WithOperation(op).WithComponent("regression")
	}
	available := len(X)
	if limit := s.cfg.MaxTrainingSamples; limit > 0 && len(X) > limit {
		X, y = X[len(X)-limit:], y[len(y)-limit:]
	}

	features := toDense(X)
	model, err := New(s.cfg, s.logger)
	if err != nil {
		return optimization.WrapError(err, "building model").WithOperation(op).WithComponent("regression")
	}
	if err := model.Fit(features, y); err != nil {
		return optimization.WrapError(err, "fitting model").WithOperation(op).WithComponent("regression")
	}
	preds, err := model.Predict(features)
	if err != nil {
		return optimization.WrapError(err, "in-sample prediction").WithOperation(op).WithComponent("regression")
	}

	s.model = model
	s.fittedOn = available
	s.iteration = iteration
	s.gof = GoodnessOfFit(s.objective, y, preds, iteration)

	s.logger.Debug("Refit surrogate model",
		zap.String("model", s.cfg.Implementation),
		zap.Int("samples", len(y)),
		zap.Int("iteration", iteration),
		zap.Float64("r2", s.gof.CoefficientOfDetermination),
	)
	return nil
}

// Predict evaluates the surrogate at feature rows X.
func (s *Surrogate) Predict(X [][]float64) ([]optimization.PredictedValue, error) {
	if s.model == nil {
		return nil, fmt.Errorf("objective %q: %w", s.objective, optimization.ErrModelNotFitted)
	}
	if len(X) == 0 {
		return nil, nil
	}
	return s.model.Predict(toDense(X))
}

// GoodnessOfFit returns the in-sample metrics of the last refit.
func (s *Surrogate) GoodnessOfFit() (optimization.GoodnessOfFitMetrics, bool) {
	return s.gof, s.model != nil
}

func toDense(X [][]float64) *mat.Dense {
	n, d := len(X), len(X[0])
	data := make([]float64, 0, n*d)
	for _, row := range X {
		data = append(data, row...)
	}
	return mat.NewDense(n, d, data)
}
