package objectives

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		f, err := New(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, f.Name)
		require.NoError(t, f.Problem.Validate())
	}

	_, err := New("rosenbrock")
	assert.Error(t, err)
}

func TestEvaluationsStayInObjectiveSpace(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, name := range Names() {
		f, err := New(name)
		require.NoError(t, err)
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				p := f.Problem.ParameterSpace.Random(rng)
				require.True(t, f.Problem.ParameterSpace.Contains(p))
				var c space.Point
				if f.Problem.HasContext() {
					c = f.Problem.ContextSpace.Random(rng)
				}
				require.True(t, f.Problem.ObjectiveSpace.Contains(f.Evaluate(p, c)), "%v -> %v", p, f.Evaluate(p, c))
			}
		})
	}
}

func TestKnownOptima(t *testing.T) {
	q := Quadratic()
	assert.Equal(t, 0.0, q.Evaluate(space.Point{"x_1": 0.0, "x_2": 0.0}, nil)["y"])
	assert.Equal(t, 25.0, q.Evaluate(space.Point{"x_1": 3.0, "x_2": -4.0}, nil)["y"])

	h := ThreeLevelQuadratic()
	best := space.Point{
		"vertex_height":            "low",
		"low_quadratic_params.x_1": 5.0,
		"low_quadratic_params.x_2": 5.0,
	}
	require.True(t, h.Problem.ParameterSpace.Contains(best))
	assert.Equal(t, -50.0, h.Evaluate(best, nil)["y"])

	blob := ContextBlob()
	for _, y := range []float64{-1, 0, 1} {
		x := 0.5*y + 0.5
		assert.InDelta(t, -1.0, blob.Evaluate(space.Point{"x": x}, space.Point{"y": y})["function_value"], 1e-12)
	}
	assert.Greater(t, blob.Evaluate(space.Point{"x": 0.0}, space.Point{"y": 1.0})["function_value"], -0.01)

	s := Hypersphere(10)
	v := s.Evaluate(space.Point{"radius": 10.0, "theta": math.Pi / 4}, nil)
	assert.InDelta(t, 10.0, math.Hypot(v["y0"].(float64), v["y1"].(float64)), 1e-9)
}

func TestEvaluateTable(t *testing.T) {
	blob := ContextBlob()
	params := space.TableFromPoints(space.Point{"x": 0.0}, space.Point{"x": 1.0})
	ctx := space.TableFromPoints(space.Point{"y": -1.0}, space.Point{"y": 1.0})

	out := blob.EvaluateTable(params, ctx)
	require.Equal(t, 2, out.Len())
	for _, r := range out.Rows {
		assert.InDelta(t, -1.0, r["function_value"], 1e-12)
	}
}
