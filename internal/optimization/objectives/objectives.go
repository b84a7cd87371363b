// Package objectives provides synthetic objective functions with known
// optima. They drive the optimization loop in tests and in the bayesctl
// demo command.
package objectives

import (
	"fmt"
	"math"
	"sort"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

// Function is a synthetic objective together with the problem it defines.
type Function struct {
	Name    string
	Problem *optimization.OptimizationProblem
	// Evaluate returns the objective values at params. context is nil for
	// problems without a context space.
	Evaluate func(params, context space.Point) space.Point
}

// EvaluateTable evaluates every row of params (and the aligned context rows).
func (f *Function) EvaluateTable(params, context *space.Table) *space.Table {
	rows := make([]space.Point, params.Len())
	for i := range rows {
		var c space.Point
		if context != nil && !context.Empty() {
			c = context.Rows[i]
		}
		rows[i] = f.Evaluate(params.Rows[i], c)
	}
	return space.TableFromPoints(rows...)
}

var registry = map[string]func() *Function{
	"quadratic":             Quadratic,
	"three_level_quadratic": ThreeLevelQuadratic,
	"context_blob":          ContextBlob,
	"hypersphere":           func() *Function { return Hypersphere(10) },
}

// New returns the function registered under name.
func New(name string) (*Function, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown objective function %q, expected one of %v", name, Names())
	}
	return f(), nil
}

// Names lists the registered objective functions.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func mustProblem(params, objectives, context *space.Hypergrid, obj ...optimization.Objective) *optimization.OptimizationProblem {
	p, err := optimization.NewProblem(params, objectives, context, obj...)
	if err != nil {
		panic(err)
	}
	return p
}

func unbounded(name string) *space.ContinuousDimension {
	return space.NewContinuous(name, math.Inf(-1), math.Inf(1))
}

// Quadratic is y = x1^2 + x2^2 on [-100,100]^2, minimized at the origin.
func Quadratic() *Function {
	params := space.MustHypergrid("input",
		space.NewContinuous("x_1", -100, 100),
		space.NewContinuous("x_2", -100, 100),
	)
	out := space.MustHypergrid("output", unbounded("y"))
	return &Function{
		Name:    "quadratic",
		Problem: mustProblem(params, out, nil, optimization.Objective{Name: "y", Minimize: true}),
		Evaluate: func(p, _ space.Point) space.Point {
			x1, _ := p.Float("x_1")
			x2, _ := p.Float("x_2")
			return space.Point{"y": x1*x1 + x2*x2}
		},
	}
}

// vertexHeights offsets each branch of ThreeLevelQuadratic.
var vertexHeights = map[string]float64{"low": -50, "medium": 0, "high": 50}

// ThreeLevelQuadratic is a hierarchical space: a categorical vertex height
// selects which of three shifted paraboloids is active. The global minimum
// is -50 on the "low" branch at (5, 5).
func ThreeLevelQuadratic() *Function {
	root := space.MustHypergrid("three_level_quadratic",
		space.NewCategorical("vertex_height", "low", "medium", "high"),
	)
	for _, level := range []string{"low", "medium", "high"} {
		sub := space.MustHypergrid(level+"_quadratic_params",
			space.NewContinuous("x_1", -50, 50),
			space.NewContinuous("x_2", -50, 50),
		)
		if err := root.Join(sub, "vertex_height", level); err != nil {
			panic(err)
		}
	}
	out := space.MustHypergrid("output", unbounded("y"))
	return &Function{
		Name:    "three_level_quadratic",
		Problem: mustProblem(root, out, nil, optimization.Objective{Name: "y", Minimize: true}),
		Evaluate: func(p, _ space.Point) space.Point {
			level, _ := p.String("vertex_height")
			prefix := level + "_quadratic_params."
			x1, _ := p.Float(prefix + "x_1")
			x2, _ := p.Float(prefix + "x_2")
			return space.Point{"y": vertexHeights[level] + (x1-5)*(x1-5) + (x2-5)*(x2-5)}
		},
	}
}

// ContextBlob is a narrow Gaussian well in x whose position moves with the
// context variable y: f = -exp(-50 (x - 0.5y - 0.5)^2). For a given y the
// minimum is at x = 0.5y + 0.5.
func ContextBlob() *Function {
	params := space.MustHypergrid("input", space.NewContinuous("x", 0, 1))
	out := space.MustHypergrid("objective", space.NewContinuous("function_value", -10, 10))
	ctx := space.MustHypergrid("context", space.NewContinuous("y", -1, 1))
	return &Function{
		Name:    "context_blob",
		Problem: mustProblem(params, out, ctx, optimization.Objective{Name: "function_value", Minimize: true}),
		Evaluate: func(p, c space.Point) space.Point {
			x, _ := p.Float("x")
			y, _ := c.Float("y")
			d := x - 0.5*y - 0.5
			return space.Point{"function_value": -math.Exp(-50 * d * d)}
		},
	}
}

// Hypersphere maps polar coordinates (radius, angle) onto two objectives
// y0 = r cos(theta), y1 = r sin(theta), both maximized. The Pareto frontier
// is the quarter circle of the given radius.
func Hypersphere(radius float64) *Function {
	params := space.MustHypergrid("hypersphere",
		space.NewContinuous("radius", 0, radius),
		space.NewContinuous("theta", 0, math.Pi/2),
	)
	out := space.MustHypergrid("objectives",
		space.NewContinuous("y0", 0, radius),
		space.NewContinuous("y1", 0, radius),
	)
	return &Function{
		Name: "hypersphere",
		Problem: mustProblem(params, out, nil,
			optimization.Objective{Name: "y0"},
			optimization.Objective{Name: "y1"},
		),
		Evaluate: func(p, _ space.Point) space.Point {
			r, _ := p.Float("radius")
			theta, _ := p.Float("theta")
			return space.Point{
				"y0": space.Clamp(r*math.Cos(theta), 0, radius),
				"y1": space.Clamp(r*math.Sin(theta), 0, radius),
			}
		},
	}
}
