package acquisition

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/bayesopt/internal/optimization"
)

// ExpectedImprovement implements the Expected Improvement acquisition function
type ExpectedImprovement struct {
	// Best observed value so far
	bestObserved float64
	// Exploration-exploitation trade-off parameter (xi)
	xi float64
	// Whether we're minimizing (true) or maximizing (false)
	minimize bool
}

// NewExpectedImprovement creates a new ExpectedImprovement acquisition function
// By default, it assumes we're minimizing (lower values are better)
func NewExpectedImprovement(bestObserved, xi float64) *ExpectedImprovement {
	return &ExpectedImprovement{
		bestObserved: bestObserved,
		xi:           xi,
		minimize:     true,
	}
}

// NewExpectedImprovementFor creates an ExpectedImprovement for objective.
func NewExpectedImprovementFor(objective optimization.Objective, bestObserved, xi float64) *ExpectedImprovement {
	ei := NewExpectedImprovement(bestObserved, xi)
	ei.minimize = objective.Minimize
	return ei
}

func (ei *ExpectedImprovement) Name() string { return ExpectedImprovementName }

func (ei *ExpectedImprovement) improvement(mu float64) float64 {
	if ei.minimize {
		return ei.bestObserved - mu - ei.xi
	}
	return mu - ei.bestObserved - ei.xi
}

// Compute computes the Expected Improvement at point x
// mu: mean prediction at x
// sigma: standard deviation of prediction at x
// Returns the expected improvement value (always non-negative)
func (ei *ExpectedImprovement) Compute(mu, sigma float64) float64 {
	improvement := ei.improvement(mu)

	// Certain prediction: the improvement is realized exactly.
	if sigma <= 1e-10 {
		return math.Max(improvement, 0)
	}

	// EI = improvement * Φ(z) + sigma * φ(z)
	z := improvement / sigma
	return math.Max(improvement*distuv.UnitNormal.CDF(z)+sigma*distuv.UnitNormal.Prob(z), 0)
}

// Gradient computes the gradient of the Expected Improvement
// dmu: derivative of mu with respect to the parameter
// dsigma: derivative of sigma with respect to the parameter
func (ei *ExpectedImprovement) Gradient(mu, dmu float64, sigma, dsigma float64) float64 {
	improvement := ei.improvement(mu)
	if sigma <= 1e-10 {
		switch {
		case improvement <= 0:
			return 0
		case ei.minimize:
			return -dmu
		default:
			return dmu
		}
	}

	z := improvement / sigma
	pdf := distuv.UnitNormal.Prob(z)
	cdf := distuv.UnitNormal.CDF(z)

	// dEI/dmu is -cdf when minimizing and +cdf when maximizing; dEI/dsigma is pdf.
	if ei.minimize {
		return -cdf*dmu + pdf*dsigma
	}
	return cdf*dmu + pdf*dsigma
}

// Score evaluates EI for every candidate of the first objective.
func (ei *ExpectedImprovement) Score(preds optimization.MultiObjectivePrediction) []float64 {
	values := preds[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = ei.Compute(v.Value, math.Sqrt(math.Max(v.Variance, 0)))
	}
	return out
}

// UpdateBest updates the best observed value
func (ei *ExpectedImprovement) UpdateBest(best float64) {
	ei.bestObserved = best
}

// SetXi sets the exploration-exploitation trade-off parameter
func (ei *ExpectedImprovement) SetXi(xi float64) {
	ei.xi = xi
}

// BestObserved returns the best observed value
func (ei *ExpectedImprovement) BestObserved() float64 {
	return ei.bestObserved
}
