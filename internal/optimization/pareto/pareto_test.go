package pareto

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

var maxBoth = []optimization.Objective{{Name: "y1"}, {Name: "y2"}}

func TestDominates(t *testing.T) {
	mixed := []optimization.Objective{{Name: "cost", Minimize: true}, {Name: "quality"}}

	tests := []struct {
		name       string
		objectives []optimization.Objective
		a, b       []float64
		want       bool
	}{
		{"better everywhere", maxBoth, []float64{2, 2}, []float64{1, 1}, true},
		{"better on one equal on other", maxBoth, []float64{2, 1}, []float64{1, 1}, true},
		{"identical", maxBoth, []float64{1, 1}, []float64{1, 1}, false},
		{"trade-off", maxBoth, []float64{2, 0}, []float64{1, 1}, false},
		{"minimize direction", mixed, []float64{1, 5}, []float64{2, 5}, true},
		{"minimize direction reversed", mixed, []float64{2, 5}, []float64{1, 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dominates(tt.objectives, tt.a, tt.b))
		})
	}
}

func TestNewFrontier(t *testing.T) {
	values := [][]float64{
		{1, 5},
		{2, 4},
		{1, 1}, // dominated
		{3, 3},
		{2, 4}, // duplicate
		{5, 0},
		{2.5, 2.5}, // dominated by {3,3}
	}

	f := NewFrontier(maxBoth, values)
	assert.Equal(t, []int{0, 1, 3, 5}, f.Index)
	assert.Equal(t, 4, f.Len())

	for i, v := range values {
		inFrontier := false
		for _, idx := range f.Index {
			inFrontier = inFrontier || idx == i
		}
		if !inFrontier {
			assert.True(t, f.Covers(v), "row %d must be covered", i)
		}
	}

	assert.True(t, f.DominatedBy([]float64{0.5, 0.5}))
	assert.False(t, f.DominatedBy([]float64{6, 6}))
}

func TestApproximateVolumeOfSingleCorner(t *testing.T) {
	// The point (0.5, 0.5) maximized in the unit square dominates a quarter.
	f := NewFrontier(maxBoth, [][]float64{{0.5, 0.5}})
	box := []Bounds{{0, 1}, {0, 1}}

	est, err := ApproximateVolume(f, box, 100000, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, est.Estimate(), 0.01)

	ci, err := est.TwoSidedConfidenceInterval(0.05)
	require.NoError(t, err)
	assert.LessOrEqual(t, ci.Lower, est.Estimate())
	assert.GreaterOrEqual(t, ci.Upper, est.Estimate())

	wide, err := est.TwoSidedConfidenceInterval(0.001)
	require.NoError(t, err)
	assert.LessOrEqual(t, wide.Lower, ci.Lower)
	assert.GreaterOrEqual(t, wide.Upper, ci.Upper)
	assert.True(t, wide.Contains(0.25), "interval %+v should contain the true volume", wide)

	_, err = est.TwoSidedConfidenceInterval(1.5)
	assert.ErrorIs(t, err, optimization.ErrInvalidArgument)
}

func TestConfidenceIntervalAtExtremeFractions(t *testing.T) {
	// With n samples and none (or all) dominated, the exact interval has a
	// closed form: the open end is 1-(alpha/2)^(1/n) away from the observed
	// fraction.
	edge := 1 - math.Pow(0.025, 1.0/10)

	tests := []struct {
		name         string
		dominated    int
		lower, upper float64
	}{
		{"nothing dominated", 0, 0, edge},
		{"everything dominated", 10, 1 - edge, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := &VolumeEstimator{NumSamples: 10, NumDominated: tt.dominated, BoxVolume: 4}
			ci, err := est.TwoSidedConfidenceInterval(0.05)
			require.NoError(t, err)
			assert.InDelta(t, 4*tt.lower, ci.Lower, 1e-7)
			assert.InDelta(t, 4*tt.upper, ci.Upper, 1e-7)
			assert.Greater(t, ci.Upper-ci.Lower, 0.0)
			assert.True(t, ci.Contains(est.Estimate()))
		})
	}

	// An interior fraction is bracketed and narrows with more samples.
	few := &VolumeEstimator{NumSamples: 20, NumDominated: 5, BoxVolume: 1}
	many := &VolumeEstimator{NumSamples: 2000, NumDominated: 500, BoxVolume: 1}
	a, err := few.TwoSidedConfidenceInterval(0.05)
	require.NoError(t, err)
	b, err := many.TwoSidedConfidenceInterval(0.05)
	require.NoError(t, err)
	assert.True(t, a.Contains(0.25))
	assert.True(t, b.Contains(0.25))
	assert.Less(t, b.Upper-b.Lower, a.Upper-a.Lower)
}

func TestVolumeGrowsWithFrontier(t *testing.T) {
	box := []Bounds{{0, 10}, {0, 10}}
	small := NewFrontier(maxBoth, [][]float64{{5, 5}})
	large := NewFrontier(maxBoth, [][]float64{{5, 5}, {8, 2}, {2, 8}})

	a, err := ApproximateVolume(small, box, 50000, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	b, err := ApproximateVolume(large, box, 50000, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.Greater(t, b.Estimate(), a.Estimate())
}

func TestReferenceBox(t *testing.T) {
	objectives := space.MustHypergrid("objectives",
		space.NewContinuous("y1", 0, 10),
		space.NewContinuous("y2", math.Inf(-1), math.Inf(1)),
	)
	box := ReferenceBox(objectives, maxBoth, [][]float64{{1, -3}, {4, 7}})
	assert.Equal(t, []Bounds{{0, 10}, {-3, 7}}, box)

	empty := ReferenceBox(objectives, maxBoth, nil)
	assert.Equal(t, Bounds{0, 0}, empty[1])
}

func TestApproximateVolumeValidation(t *testing.T) {
	f := NewFrontier(maxBoth, nil)
	_, err := ApproximateVolume(f, []Bounds{{0, 1}, {0, 1}}, 0, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, optimization.ErrInvalidArgument)

	_, err = ApproximateVolume(f, []Bounds{{0, 1}}, 10, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, optimization.ErrInvalidArgument)

	est, err := ApproximateVolume(f, []Bounds{{0, 1}, {0, 1}}, 10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Zero(t, est.Estimate())
}
