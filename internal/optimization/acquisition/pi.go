package acquisition

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/pareto"
)

// ProbabilityOfImprovement scores the probability that a candidate beats
// the incumbent by at least xi.
type ProbabilityOfImprovement struct {
	objective optimization.Objective
	incumbent float64
	xi        float64
}

// NewProbabilityOfImprovement creates a PI utility for objective.
func NewProbabilityOfImprovement(objective optimization.Objective, incumbent, xi float64) *ProbabilityOfImprovement {
	return &ProbabilityOfImprovement{objective: objective, incumbent: incumbent, xi: xi}
}

func (pi *ProbabilityOfImprovement) Name() string { return ProbabilityOfImprovementName }

// Compute returns P(improvement > 0) for a normal prediction.
func (pi *ProbabilityOfImprovement) Compute(mu, sigma float64) float64 {
	improvement := mu - pi.incumbent - pi.xi
	if pi.objective.Minimize {
		improvement = pi.incumbent - mu - pi.xi
	}
	if sigma <= 1e-10 {
		if improvement > 0 {
			return 1
		}
		return 0
	}
	return distuv.UnitNormal.CDF(improvement / sigma)
}

func (pi *ProbabilityOfImprovement) Score(preds optimization.MultiObjectivePrediction) []float64 {
	values := preds[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = pi.Compute(v.Value, math.Sqrt(math.Max(v.Variance, 0)))
	}
	return out
}

// ConfidenceBound scores the optimistic confidence bound of a prediction:
// the lower bound when minimizing and the upper bound when maximizing.
type ConfidenceBound struct {
	objective optimization.Objective
	alpha     float64
}

// NewConfidenceBound creates a confidence-bound utility at significance alpha.
func NewConfidenceBound(objective optimization.Objective, alpha float64) (*ConfidenceBound, error) {
	if !(alpha > 0 && alpha < 1) {
		return nil, fmt.Errorf("confidence bound alpha must be in (0, 1), got %v", alpha)
	}
	return &ConfidenceBound{objective: objective, alpha: alpha}, nil
}

func (cb *ConfidenceBound) Name() string { return ConfidenceBoundName }

func (cb *ConfidenceBound) Score(preds optimization.MultiObjectivePrediction) []float64 {
	values := preds[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		// Zero degrees of freedom cannot yield a t quantile; the normal
		// quantile still ranks candidates sensibly.
		q := distuv.UnitNormal.Quantile(1 - cb.alpha/2)
		if v.DegreesOfFreedom > 0 {
			q = optimization.TQuantile(1-cb.alpha/2, v.DegreesOfFreedom)
		}
		half := q * math.Sqrt(math.Max(v.Variance, 0))
		if cb.objective.Minimize {
			out[i] = -(v.Value - half)
		} else {
			out[i] = v.Value + half
		}
	}
	return out
}

// MultiObjectiveProbabilityOfImprovement estimates, by Monte Carlo, the
// probability that a candidate's outcome is not dominated by the current
// Pareto frontier.
type MultiObjectiveProbabilityOfImprovement struct {
	frontier   *pareto.Frontier
	numSamples int
	rng        *rand.Rand
}

// NewMultiObjectiveProbabilityOfImprovement creates the utility. rng is
// consumed by Score, which is therefore not safe for concurrent use.
func NewMultiObjectiveProbabilityOfImprovement(frontier *pareto.Frontier, numSamples int, rng *rand.Rand) (*MultiObjectiveProbabilityOfImprovement, error) {
	if frontier == nil {
		return nil, fmt.Errorf("multi-objective probability of improvement needs a frontier")
	}
	if numSamples <= 0 {
		return nil, fmt.Errorf("num_monte_carlo_samples must be positive, got %d", numSamples)
	}
	if rng == nil {
		return nil, fmt.Errorf("multi-objective probability of improvement needs a random source")
	}
	return &MultiObjectiveProbabilityOfImprovement{frontier: frontier, numSamples: numSamples, rng: rng}, nil
}

func (m *MultiObjectiveProbabilityOfImprovement) Name() string {
	return MultiObjectiveProbabilityOfImprovementName
}

func (m *MultiObjectiveProbabilityOfImprovement) Score(preds optimization.MultiObjectivePrediction) []float64 {
	n := len(preds[0].Values)
	out := make([]float64, n)
	if m.frontier.Len() == 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}

	sample := make([]float64, len(preds))
	for i := 0; i < n; i++ {
		hits := 0
		for s := 0; s < m.numSamples; s++ {
			for j, p := range preds {
				v := p.Values[i]
				sample[j] = v.Value + m.rng.NormFloat64()*math.Sqrt(math.Max(v.Variance, 0))
			}
			if !m.frontier.DominatedBy(sample) {
				hits++
			}
		}
		out[i] = float64(hits) / float64(m.numSamples)
	}
	return out
}
