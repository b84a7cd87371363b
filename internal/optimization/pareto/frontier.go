// Package pareto computes non-dominated sets of multi-objective observations
// and Monte Carlo estimates of the hypervolume they dominate.
package pareto

import (
	"github.com/copyleftdev/bayesopt/internal/optimization"
)

// Dominates reports whether a dominates b: a is at least as good as b on
// every objective and strictly better on at least one.
func Dominates(objectives []optimization.Objective, a, b []float64) bool {
	strictly := false
	for i, o := range objectives {
		if o.Better(b[i], a[i]) {
			return false
		}
		if o.Better(a[i], b[i]) {
			strictly = true
		}
	}
	return strictly
}

// weaklyDominates reports whether a is at least as good as b everywhere.
func weaklyDominates(objectives []optimization.Objective, a, b []float64) bool {
	for i, o := range objectives {
		if o.Better(b[i], a[i]) {
			return false
		}
	}
	return true
}

// Frontier is the non-dominated subset of a set of objective vectors.
type Frontier struct {
	Objectives []optimization.Objective
	// Points holds the objective vectors on the frontier, ordered as in
	// the input.
	Points [][]float64
	// Index maps each frontier point back to its input row.
	Index []int
}

// NewFrontier computes the non-dominated subset of values. Of several
// identical vectors only the first is kept.
//
// O(n^2) dominance check, fine for observation histories of this size.
func NewFrontier(objectives []optimization.Objective, values [][]float64) *Frontier {
	f := &Frontier{Objectives: objectives}
	for i, v := range values {
		dominated := false
		for j, w := range values {
			if i == j {
				continue
			}
			if Dominates(objectives, w, v) || (j < i && equal(w, v)) {
				dominated = true
				break
			}
		}
		if !dominated {
			f.Points = append(f.Points, v)
			f.Index = append(f.Index, i)
		}
	}
	return f
}

// Len returns the number of frontier points.
func (f *Frontier) Len() int { return len(f.Points) }

// Covers reports whether some frontier point is at least as good as v on
// every objective, i.e. whether v lies in the dominated region.
func (f *Frontier) Covers(v []float64) bool {
	for _, p := range f.Points {
		if weaklyDominates(f.Objectives, p, v) {
			return true
		}
	}
	return false
}

// DominatedBy reports whether some frontier point strictly dominates v.
func (f *Frontier) DominatedBy(v []float64) bool {
	for _, p := range f.Points {
		if Dominates(f.Objectives, p, v) {
			return true
		}
	}
	return false
}

func equal(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
