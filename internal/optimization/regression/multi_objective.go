package regression

import (
	"fmt"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/observations"
)

// MultiObjectiveModel holds one independent surrogate per objective.
type MultiObjectiveModel struct {
	problem    *optimization.OptimizationProblem
	surrogates []*Surrogate
	logger     *zap.Logger
}

// NewMultiObjectiveModel creates unfitted surrogates for every objective of
// problem.
func NewMultiObjectiveModel(problem *optimization.OptimizationProblem, cfg Config, logger *zap.Logger) (*MultiObjectiveModel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MultiObjectiveModel{problem: problem, logger: logger}
	for _, obj := range problem.Objectives {
		s, err := NewSurrogate(obj.Name, cfg, logger)
		if err != nil {
			return nil, err
		}
		m.surrogates = append(m.surrogates, s)
	}
	return m, nil
}

// Surrogates returns the per-objective surrogates in objective order.
func (m *MultiObjectiveModel) Surrogates() []*Surrogate { return m.surrogates }

// Refit refits, in parallel, every surrogate whose refit policy fires
// given the first n observations in store. It returns the names of the
// objectives that were refit. A failing objective keeps its previous model.
func (m *MultiObjectiveModel) Refit(store *observations.Store, n int) ([]string, error) {
	return m.refit(store, n, func(s *Surrogate, ds *observations.Dataset) bool {
		return s.ShouldRefit(len(ds.Y))
	})
}

// RefitAt refits every surrogate on exactly the first iterations[i]
// observations, skipping zero entries. It rebuilds models from a snapshot.
func (m *MultiObjectiveModel) RefitAt(store *observations.Store, iterations []int) error {
	if len(iterations) != len(m.surrogates) {
		return fmt.Errorf("expected %d refit iterations, got %d", len(m.surrogates), len(iterations))
	}
	p := pool.New().WithErrors().WithMaxGoroutines(len(m.surrogates))
	for i, s := range m.surrogates {
		n := iterations[i]
		if n == 0 {
			continue
		}
		p.Go(func() error {
			ds, err := store.Dataset(s.Objective(), n)
			if err != nil {
				return err
			}
			if len(ds.Y) == 0 {
				return nil
			}
			return s.Refit(ds.X, ds.Y, n)
		})
	}
	return p.Wait()
}

func (m *MultiObjectiveModel) refit(store *observations.Store, n int, should func(*Surrogate, *observations.Dataset) bool) ([]string, error) {
	datasets := make([]*observations.Dataset, len(m.surrogates))
	for i, s := range m.surrogates {
		ds, err := store.Dataset(s.Objective(), n)
		if err != nil {
			return nil, err
		}
		datasets[i] = ds
	}

	refit := make([]bool, len(m.surrogates))
	p := pool.New().WithErrors().WithMaxGoroutines(len(m.surrogates))
	for i, s := range m.surrogates {
		ds := datasets[i]
		if !should(s, ds) {
			continue
		}
		p.Go(func() error {
			if err := s.Refit(ds.X, ds.Y, n); err != nil {
				m.logger.Warn("Surrogate refit failed",
					zap.String("objective", s.Objective()),
					zap.Int("samples", len(ds.Y)),
					zap.Error(err),
				)
				return err
			}
			refit[i] = true
			return nil
		})
	}
	err := p.Wait()

	var names []string
	for i, ok := range refit {
		if ok {
			names = append(names, m.surrogates[i].Objective())
		}
	}
	return names, err
}

// Trained reports whether every objective's surrogate is fitted.
func (m *MultiObjectiveModel) Trained() bool {
	for _, s := range m.surrogates {
		if !s.Fitted() {
			return false
		}
	}
	return true
}

// LastRefitIterations returns, per objective, the observation count at the
// last refit (0 when unfitted).
func (m *MultiObjectiveModel) LastRefitIterations() []int {
	out := make([]int, len(m.surrogates))
	for i, s := range m.surrogates {
		out[i] = s.LastRefitIteration()
	}
	return out
}

// Predict evaluates every surrogate at the feature rows X.
func (m *MultiObjectiveModel) Predict(X [][]float64) (optimization.MultiObjectivePrediction, error) {
	out := make(optimization.MultiObjectivePrediction, 0, len(m.surrogates))
	for _, s := range m.surrogates {
		values, err := s.Predict(X)
		if err != nil {
			return nil, err
		}
		out = append(out, &optimization.Prediction{Objective: s.Objective(), Values: values})
	}
	return out, nil
}

// GoodnessOfFit returns the metrics of every fitted surrogate.
func (m *MultiObjectiveModel) GoodnessOfFit() []optimization.GoodnessOfFitMetrics {
	var out []optimization.GoodnessOfFitMetrics
	for _, s := range m.surrogates {
		if gof, ok := s.GoodnessOfFit(); ok {
			out = append(out, gof)
		}
	}
	return out
}
