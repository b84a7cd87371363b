package space

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeLevelGrid is a root with a categorical pivot choosing between two
// subgrids, one of which carries a nested subgrid of its own.
func threeLevelGrid(t *testing.T) *Hypergrid {
	t.Helper()

	root, err := NewHypergrid("root", NewCategorical("vertex", "low", "high"))
	require.NoError(t, err)

	low, err := NewHypergrid("low_quadrant", NewContinuous("x", -5, 0), NewCategorical("flavor", "a", "b"))
	require.NoError(t, err)
	nested, err := NewHypergrid("nested", NewDiscrete("k", 1, 4))
	require.NoError(t, err)
	require.NoError(t, low.Join(nested, "flavor", "b"))

	high, err := NewHypergrid("high_quadrant", NewContinuous("x", 0, 5))
	require.NoError(t, err)

	require.NoError(t, root.Join(low, "vertex", "low"))
	require.NoError(t, root.Join(high, "vertex", "high"))
	return root
}

func TestHypergridContains(t *testing.T) {
	g := threeLevelGrid(t)

	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{
			name:  "high branch",
			point: Point{"vertex": "high", "high_quadrant.x": 2.5},
			want:  true,
		},
		{
			name:  "low branch without nested",
			point: Point{"vertex": "low", "low_quadrant.x": -1.0, "low_quadrant.flavor": "a"},
			want:  true,
		},
		{
			name:  "low branch with nested",
			point: Point{"vertex": "low", "low_quadrant.x": -1.0, "low_quadrant.flavor": "b", "low_quadrant.nested.k": int64(3)},
			want:  true,
		},
		{
			name:  "nested dimension missing",
			point: Point{"vertex": "low", "low_quadrant.x": -1.0, "low_quadrant.flavor": "b"},
			want:  false,
		},
		{
			name:  "inactive dimension present",
			point: Point{"vertex": "high", "high_quadrant.x": 2.5, "low_quadrant.x": -1.0},
			want:  false,
		},
		{
			name:  "out of range",
			point: Point{"vertex": "high", "high_quadrant.x": 7.0},
			want:  false,
		},
		{
			name:  "wrong type",
			point: Point{"vertex": "high", "high_quadrant.x": "2.5"},
			want:  false,
		},
		{
			name:  "unknown pivot value",
			point: Point{"vertex": "middle"},
			want:  false,
		},
		{
			name:  "nil point",
			point: nil,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Contains(tt.point))
		})
	}
}

func TestHypergridRandomIsMember(t *testing.T) {
	g := threeLevelGrid(t)
	rng := rand.New(rand.NewSource(7))

	seenBranches := map[string]bool{}
	for i := 0; i < 500; i++ {
		p := g.Random(rng)
		require.True(t, g.Contains(p), "random point %v is not a member", p)
		seenBranches[p["vertex"].(string)] = true
	}
	assert.Len(t, seenBranches, 2)
}

func TestHypergridSearchRoundTrip(t *testing.T) {
	g := threeLevelGrid(t)
	rng := rand.New(rand.NewSource(11))

	assert.Equal(t, 5, g.SearchDimensions())

	for i := 0; i < 200; i++ {
		u := make([]float64, g.SearchDimensions())
		for j := range u {
			u[j] = rng.Float64()*1.4 - 0.2
		}
		p := g.DecodeSearch(u)
		require.True(t, g.Contains(p), "decoded point %v is not a member", p)

		again := g.DecodeSearch(g.EncodeSearch(p))
		assert.Equal(t, p["vertex"], again["vertex"])
	}
}

func TestHypergridFeatures(t *testing.T) {
	g := threeLevelGrid(t)

	// vertex(2) + low.x(1) + low.flavor(2) + nested.k(1) + high.x(1)
	require.Equal(t, 7, g.FeatureWidth())

	f := g.Features(Point{"vertex": "high", "high_quadrant.x": 5.0}, nil)
	assert.Equal(t, []float64{0, 1, 0, 0, 0, 0, 1}, f)

	f = g.Features(Point{"vertex": "low", "low_quadrant.x": -5.0, "low_quadrant.flavor": "b", "low_quadrant.nested.k": int64(4)}, nil)
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 1, 0}, f)
}

func TestHypergridCanonicalize(t *testing.T) {
	g := threeLevelGrid(t)

	p, err := g.Canonicalize(Point{"vertex": "low", "low_quadrant.x": -2, "low_quadrant.flavor": "b", "low_quadrant.nested.k": 2.0})
	require.NoError(t, err)
	assert.Equal(t, -2.0, p["low_quadrant.x"])
	assert.Equal(t, int64(2), p["low_quadrant.nested.k"])
	assert.True(t, g.Contains(p))

	_, err = g.Canonicalize(Point{"low_quadrant.nested.k": 2.5})
	assert.Error(t, err)

	_, err = g.Canonicalize(Point{"unknown": 1.0})
	assert.Error(t, err)
}

func TestHypergridJoinValidation(t *testing.T) {
	root := MustHypergrid("root", NewCategorical("c", "a", "b"), NewContinuous("x", 0, 1))
	sub := MustHypergrid("sub", NewContinuous("y", 0, 1))

	assert.Error(t, root.Join(sub, "missing", "a"))
	assert.Error(t, root.Join(sub, "x", "a"))
	assert.Error(t, root.Join(sub, "c", "z"))
	assert.Error(t, root.Join(sub, "c"))
	assert.NoError(t, root.Join(sub, "c", "a"))

	_, err := NewHypergrid("dup", NewContinuous("x", 0, 1), NewContinuous("x", 0, 1))
	assert.Error(t, err)
}

func TestGridSpecRoundTrip(t *testing.T) {
	g := threeLevelGrid(t)

	data, err := json.Marshal(g.Spec())
	require.NoError(t, err)

	var spec GridSpec
	require.NoError(t, json.Unmarshal(data, &spec))

	rebuilt, err := FromSpec(spec)
	require.NoError(t, err)
	assert.Equal(t, g.DimensionNames(), rebuilt.DimensionNames())

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		assert.True(t, rebuilt.Contains(g.Random(rng)))
	}
}

func TestUnboundedDimensionSpec(t *testing.T) {
	objectives := MustHypergrid("objectives", NewContinuous("y", math.Inf(-1), math.Inf(1)))
	assert.False(t, objectives.Bounded())

	spec := objectives.Spec()
	assert.Nil(t, spec.Dimensions[0].Min)
	assert.Nil(t, spec.Dimensions[0].Max)

	rebuilt, err := FromSpec(spec)
	require.NoError(t, err)
	assert.True(t, rebuilt.Contains(Point{"y": -1e300}))
}

func TestTableJSON(t *testing.T) {
	table := NewTable([]string{"a", "b"}, Point{"a": 1.0, "b": "x"}, Point{"a": 2.0})

	data, err := json.Marshal(table)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["a","b"],"rows":[[1,"x"],[2,null]]}`, string(data))

	var decoded Table
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, 2, decoded.Len())
	_, hasB := decoded.Rows[1]["b"]
	assert.False(t, hasB)

	assert.Error(t, json.Unmarshal([]byte(`{"columns":["a"],"rows":[[1,2]]}`), &decoded))
}

func TestLinspaceAndClamp(t *testing.T) {
	assert.Equal(t, []float64{-100, -50, 0, 50, 100}, Linspace(-100, 100, 5))
	assert.Len(t, Linspace(0, 1, 21), 21)
	assert.Nil(t, Linspace(0, 1, 0))

	assert.Equal(t, 3, Clamp(5, 0, 3))
	assert.Equal(t, int64(-2), Clamp(int64(-9), -2, 2))
	assert.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
}
