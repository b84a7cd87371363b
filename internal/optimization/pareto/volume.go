package pareto

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

// Bounds is a closed interval along one objective.
type Bounds struct {
	Lower, Upper float64
}

// ReferenceBox returns the box the dominated volume is measured in. Finite
// objective-space bounds are used as-is; infinite ones fall back to the range
// of observed values.
func ReferenceBox(objectiveSpace *space.Hypergrid, objectives []optimization.Objective, observed [][]float64) []Bounds {
	box := make([]Bounds, len(objectives))
	for i, o := range objectives {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range observed {
			lo = math.Min(lo, v[i])
			hi = math.Max(hi, v[i])
		}
		if d, ok := objectiveSpace.Dimension(o.Name); ok {
			if c, ok := d.(*space.ContinuousDimension); ok {
				if !math.IsInf(c.Min(), 0) {
					lo = c.Min()
				}
				if !math.IsInf(c.Max(), 0) {
					hi = c.Max()
				}
			}
		}
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			lo, hi = 0, 0
		}
		box[i] = Bounds{Lower: lo, Upper: hi}
	}
	return box
}

// VolumeEstimator is a Monte Carlo estimate of the hypervolume dominated by
// a frontier within a reference box.
type VolumeEstimator struct {
	NumSamples   int     `json:"num_samples"`
	NumDominated int     `json:"num_dominated"`
	BoxVolume    float64 `json:"box_volume"`
}

// ApproximateVolume samples numSamples points uniformly from box and counts
// those covered by the frontier.
func ApproximateVolume(f *Frontier, box []Bounds, numSamples int, rng *rand.Rand) (*VolumeEstimator, error) {
	const op = "pareto.ApproximateVolume"
	if numSamples <= 0 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidArgument, "num_samples must be positive, got %d", numSamples).WithOperation(op)
	}
	if len(box) != len(f.Objectives) {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidArgument, "box has %d dimensions for %d objectives", len(box), len(f.Objectives)).WithOperation(op)
	}

	est := &VolumeEstimator{NumSamples: numSamples, BoxVolume: 1}
	for _, b := range box {
		est.BoxVolume *= b.Upper - b.Lower
	}
	if f.Len() == 0 {
		return est, nil
	}

	sample := make([]float64, len(box))
	for n := 0; n < numSamples; n++ {
		for i, b := range box {
			sample[i] = b.Lower + rng.Float64()*(b.Upper-b.Lower)
		}
		if f.Covers(sample) {
			est.NumDominated++
		}
	}
	return est, nil
}

// Fraction is the estimated share of the box that is dominated.
func (v *VolumeEstimator) Fraction() float64 {
	return float64(v.NumDominated) / float64(v.NumSamples)
}

// Estimate is the point estimate of the dominated volume.
func (v *VolumeEstimator) Estimate() float64 {
	return v.Fraction() * v.BoxVolume
}

// TwoSidedConfidenceInterval bounds the dominated volume at significance
// alpha with the Clopper-Pearson interval of the dominated fraction. The
// interval stays non-degenerate when no sample, or every sample, is dominated.
func (v *VolumeEstimator) TwoSidedConfidenceInterval(alpha float64) (optimization.Interval, error) {
	if !(alpha > 0 && alpha < 1) {
		return optimization.Interval{}, optimization.WrapErrorf(optimization.ErrInvalidArgument, "alpha must be in (0, 1), got %v", alpha).
			WithOperation("VolumeEstimator.TwoSidedConfidenceInterval")
	}
	k, n := float64(v.NumDominated), float64(v.NumSamples)

	lower, upper := 0.0, 1.0
	if v.NumDominated > 0 {
		lower = distuv.Beta{Alpha: k, Beta: n - k + 1}.Quantile(alpha / 2)
	}
	if v.NumDominated < v.NumSamples {
		upper = distuv.Beta{Alpha: k + 1, Beta: n - k}.Quantile(1 - alpha/2)
	}
	return optimization.Interval{
		Lower: lower * v.BoxVolume,
		Upper: upper * v.BoxVolume,
	}, nil
}
