package observations

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

func twoObjectiveProblem(t *testing.T, withContext bool) *optimization.OptimizationProblem {
	t.Helper()

	params := space.MustHypergrid("params", space.NewContinuous("x", -10, 10), space.NewDiscrete("n", 1, 5))
	objectives := space.MustHypergrid("objectives",
		space.NewContinuous("y1", math.Inf(-1), math.Inf(1)),
		space.NewContinuous("y2", math.Inf(-1), math.Inf(1)),
	)
	var ctx *space.Hypergrid
	if withContext {
		ctx = space.MustHypergrid("context", space.NewContinuous("c", -1, 1))
	}
	p, err := optimization.NewProblem(params, objectives, ctx,
		optimization.Objective{Name: "y1", Minimize: true},
		optimization.Objective{Name: "y2", Minimize: false},
	)
	require.NoError(t, err)
	return p
}

func params(rows ...space.Point) *space.Table {
	return space.TableFromPoints(rows...)
}

func table(cols []string, rows ...space.Point) *space.Table {
	return space.NewTable(cols, rows...)
}

func TestRegisterPartialTargets(t *testing.T) {
	store := NewStore(twoObjectiveProblem(t, false))

	tests := []struct {
		name    string
		targets *space.Table
		wantErr error
		want    space.Point
	}{
		{
			name:    "no valid columns",
			targets: table([]string{"unknown"}, space.Point{"unknown": 1.0}),
			wantErr: optimization.ErrInvalidObservation,
		},
		{
			name:    "valid and unknown column",
			targets: table([]string{"y1", "unknown"}, space.Point{"y1": 1.5, "unknown": 7.0}),
			want:    space.Point{"y1": 1.5},
		},
		{
			name:    "one objective missing",
			targets: table([]string{"y1", "y2"}, space.Point{"y2": 4.0}),
			want:    space.Point{"y2": 4.0},
		},
		{
			name:    "row with only nulls",
			targets: table([]string{"y1", "y2"}, space.Point{}),
			wantErr: optimization.ErrInvalidObservation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := store.Len()
			_, err := store.Register(params(space.Point{"x": 1.0, "n": int64(2)}), tt.targets, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, store.Len())
				return
			}
			require.NoError(t, err)

			all := store.All()
			assert.Equal(t, []string{"y1", "y2"}, all.Targets.Columns)
			assert.Equal(t, tt.want, all.Targets.Rows[all.Len()-1])
			assert.NotContains(t, all.Targets.Columns, "unknown")
		})
	}
}

func TestRegisterIsAtomic(t *testing.T) {
	store := NewStore(twoObjectiveProblem(t, false))

	_, err := store.Register(
		params(space.Point{"x": 1.0, "n": int64(2)}, space.Point{"x": 11.0, "n": int64(2)}),
		table([]string{"y1"}, space.Point{"y1": 1.0}, space.Point{"y1": 2.0}),
		nil,
	)
	require.ErrorIs(t, err, optimization.ErrInvalidObservation)
	assert.Zero(t, store.Len())

	_, err = store.Register(
		params(space.Point{"x": 1.0, "n": int64(2)}, space.Point{"x": 2.0, "n": int64(3)}),
		table([]string{"y1"}, space.Point{"y1": 1.0}),
		nil,
	)
	require.ErrorIs(t, err, optimization.ErrIncompatibleShape)
	assert.Zero(t, store.Len())
}

func TestRegisterContextContract(t *testing.T) {
	store := NewStore(twoObjectiveProblem(t, true))
	p := params(space.Point{"x": 1.0, "n": int64(2)})
	y := table([]string{"y1"}, space.Point{"y1": 1.0})

	_, err := store.Register(p, y, nil)
	assert.ErrorIs(t, err, optimization.ErrContextRequired)

	_, err = store.Register(p, y, table([]string{"c"}, space.Point{"c": 0.1}, space.Point{"c": 0.2}))
	assert.ErrorIs(t, err, optimization.ErrIncompatibleShape)
	assert.ErrorIs(t, err, optimization.ErrInvalidObservation)

	_, err = store.Register(p, y, table([]string{"c"}, space.Point{"c": 3.0}))
	assert.ErrorIs(t, err, optimization.ErrInvalidObservation)

	n, err := store.Register(p, y, table([]string{"c"}, space.Point{"c": 0.5}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all := store.All()
	assert.Equal(t, []string{"c"}, all.Context.Columns)
	assert.Equal(t, space.Point{"c": 0.5}, all.Context.Rows[0])

	free := NewStore(twoObjectiveProblem(t, false))
	_, err = free.Register(p, y, table([]string{"c"}, space.Point{"c": 0.5}))
	assert.ErrorIs(t, err, optimization.ErrContextNotSupported)
}

func TestAllReturnsCopies(t *testing.T) {
	store := NewStore(twoObjectiveProblem(t, false))
	_, err := store.Register(params(space.Point{"x": 1.0, "n": int64(2)}), table([]string{"y1"}, space.Point{"y1": 1.0}), nil)
	require.NoError(t, err)

	all := store.All()
	all.Parameters.Rows[0]["x"] = 99.0
	all.Targets.Rows[0]["y1"] = 99.0

	again := store.All()
	assert.Equal(t, 1.0, again.Parameters.Rows[0]["x"])
	assert.Equal(t, 1.0, again.Targets.Rows[0]["y1"])
}

func TestDatasetSkipsNulls(t *testing.T) {
	store := NewStore(twoObjectiveProblem(t, false))
	_, err := store.Register(
		params(space.Point{"x": -10.0, "n": int64(1)}, space.Point{"x": 10.0, "n": int64(5)}, space.Point{"x": 0.0, "n": int64(3)}),
		table([]string{"y1", "y2"}, space.Point{"y1": 1.0}, space.Point{"y2": 2.0}, space.Point{"y1": 3.0, "y2": 4.0}),
		nil,
	)
	require.NoError(t, err)

	ds, err := store.Dataset("y1", -1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, ds.Y)
	assert.Equal(t, []int{0, 2}, ds.Index)
	assert.Equal(t, [][]float64{{0, 0}, {0.5, 0.5}}, ds.X)

	ds, err = store.Dataset("y2", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, ds.Y)

	_, err = store.Dataset("nope", -1)
	assert.Error(t, err)
}

func TestConcurrentRegisterAndRead(t *testing.T) {
	store := NewStore(twoObjectiveProblem(t, false))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := store.Register(
					params(space.Point{"x": float64(w), "n": int64(1)}, space.Point{"x": float64(-w), "n": int64(2)}),
					table([]string{"y1"}, space.Point{"y1": float64(i)}, space.Point{"y1": float64(i)}),
					nil,
				)
				assert.NoError(t, err)
				all := store.All()
				assert.Equal(t, 0, all.Len()%2, "torn registration observed")
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 400, store.Len())
}
