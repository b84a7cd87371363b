package space

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
)

// Kind identifies the value domain of a dimension.
type Kind int

const (
	// Continuous dimensions hold float64 values in a closed interval.
	Continuous Kind = iota
	// Discrete dimensions hold int64 values in a closed interval.
	Discrete
	// Categorical dimensions hold one of a fixed set of strings.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "continuous":
		return Continuous, nil
	case "discrete":
		return Discrete, nil
	case "categorical":
		return Categorical, nil
	default:
		return 0, fmt.Errorf("unknown dimension kind %q", s)
	}
}

// Dimension is a single named axis of a Hypergrid.
//
// Values handed to Contains, Encode and Features must already be canonical
// (see Canonicalize): float64 for continuous, int64 for discrete and string
// for categorical dimensions.
type Dimension interface {
	Name() string
	Kind() Kind
	Contains(v any) bool
	Canonicalize(v any) (any, error)
	Random(rng *rand.Rand) any

	// Encode maps a value into [0, 1]; Decode maps any u in [0, 1] back to a
	// member value.
	Encode(v any) float64
	Decode(u float64) any

	// FeatureWidth is the number of model features the dimension occupies.
	FeatureWidth() int
	Features(v any, dst []float64)

	Bounded() bool
	Spec() DimensionSpec
}

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ContinuousDimension is a closed real interval. Either bound may be infinite,
// which is only meaningful for objective spaces.
type ContinuousDimension struct {
	name     string
	min, max float64
}

// NewContinuous creates a continuous dimension over [min, max].
func NewContinuous(name string, min, max float64) *ContinuousDimension {
	return &ContinuousDimension{name: name, min: min, max: max}
}

func (d *ContinuousDimension) Name() string { return d.name }
func (d *ContinuousDimension) Kind() Kind   { return Continuous }
func (d *ContinuousDimension) Min() float64 { return d.min }
func (d *ContinuousDimension) Max() float64 { return d.max }

func (d *ContinuousDimension) Bounded() bool {
	return !math.IsInf(d.min, 0) && !math.IsInf(d.max, 0)
}

func (d *ContinuousDimension) Contains(v any) bool {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return false
	}
	return f >= d.min && f <= d.max
}

func (d *ContinuousDimension) Canonicalize(v any) (any, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, fmt.Errorf("dimension %s: %w", d.name, err)
	}
	return f, nil
}

func (d *ContinuousDimension) Random(rng *rand.Rand) any {
	return d.Decode(rng.Float64())
}

func (d *ContinuousDimension) Encode(v any) float64 {
	f, _ := v.(float64)
	if !d.Bounded() || d.max == d.min {
		return 0.5
	}
	return Clamp((f-d.min)/(d.max-d.min), 0, 1)
}

func (d *ContinuousDimension) Decode(u float64) any {
	return Clamp(d.min+Clamp(u, 0, 1)*(d.max-d.min), d.min, d.max)
}

func (d *ContinuousDimension) FeatureWidth() int { return 1 }

func (d *ContinuousDimension) Features(v any, dst []float64) {
	dst[0] = d.Encode(v)
}

func (d *ContinuousDimension) Spec() DimensionSpec {
	return DimensionSpec{Name: d.name, Kind: Continuous.String(), Min: bound(d.min), Max: bound(d.max)}
}

// DiscreteDimension is a closed integer interval.
type DiscreteDimension struct {
	name     string
	min, max int64
}

// NewDiscrete creates a discrete dimension over [min, max].
func NewDiscrete(name string, min, max int64) *DiscreteDimension {
	return &DiscreteDimension{name: name, min: min, max: max}
}

func (d *DiscreteDimension) Name() string  { return d.name }
func (d *DiscreteDimension) Kind() Kind    { return Discrete }
func (d *DiscreteDimension) Bounded() bool { return true }
func (d *DiscreteDimension) Min() int64    { return d.min }
func (d *DiscreteDimension) Max() int64    { return d.max }

func (d *DiscreteDimension) Contains(v any) bool {
	i, ok := v.(int64)
	return ok && i >= d.min && i <= d.max
}

func (d *DiscreteDimension) Canonicalize(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, fmt.Errorf("dimension %s: %w", d.name, err)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("dimension %s: %v is not an integer", d.name, v)
	}
	return int64(f), nil
}

func (d *DiscreteDimension) Random(rng *rand.Rand) any {
	return d.min + rng.Int63n(d.max-d.min+1)
}

func (d *DiscreteDimension) width() float64 { return float64(d.max-d.min) + 1 }

func (d *DiscreteDimension) Encode(v any) float64 {
	i, _ := v.(int64)
	return Clamp((float64(i-d.min)+0.5)/d.width(), 0, 1)
}

func (d *DiscreteDimension) Decode(u float64) any {
	return Clamp(d.min+int64(math.Floor(Clamp(u, 0, 1)*d.width())), d.min, d.max)
}

func (d *DiscreteDimension) FeatureWidth() int { return 1 }

func (d *DiscreteDimension) Features(v any, dst []float64) {
	i, _ := v.(int64)
	if d.max == d.min {
		dst[0] = 0
		return
	}
	dst[0] = float64(i-d.min) / float64(d.max-d.min)
}

func (d *DiscreteDimension) Spec() DimensionSpec {
	return DimensionSpec{Name: d.name, Kind: Discrete.String(), Min: bound(float64(d.min)), Max: bound(float64(d.max))}
}

// CategoricalDimension holds one of an ordered set of string values.
type CategoricalDimension struct {
	name   string
	values []string
	index  map[string]int
}

// NewCategorical creates a categorical dimension. Duplicate values are ignored.
func NewCategorical(name string, values ...string) *CategoricalDimension {
	d := &CategoricalDimension{name: name, index: make(map[string]int, len(values))}
	for _, v := range values {
		if _, dup := d.index[v]; dup {
			continue
		}
		d.index[v] = len(d.values)
		d.values = append(d.values, v)
	}
	return d
}

func (d *CategoricalDimension) Name() string  { return d.name }
func (d *CategoricalDimension) Kind() Kind    { return Categorical }
func (d *CategoricalDimension) Bounded() bool { return true }

// Values returns a copy of the allowed values.
func (d *CategoricalDimension) Values() []string {
	return append([]string(nil), d.values...)
}

func (d *CategoricalDimension) Contains(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, ok = d.index[s]
	return ok
}

func (d *CategoricalDimension) Canonicalize(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("dimension %s: expected string, got %T", d.name, v)
	}
	return s, nil
}

func (d *CategoricalDimension) Random(rng *rand.Rand) any {
	return d.values[rng.Intn(len(d.values))]
}

func (d *CategoricalDimension) Encode(v any) float64 {
	s, _ := v.(string)
	i, ok := d.index[s]
	if !ok {
		return 0.5
	}
	return (float64(i) + 0.5) / float64(len(d.values))
}

func (d *CategoricalDimension) Decode(u float64) any {
	i := Clamp(int(math.Floor(Clamp(u, 0, 1)*float64(len(d.values)))), 0, len(d.values)-1)
	return d.values[i]
}

func (d *CategoricalDimension) FeatureWidth() int { return len(d.values) }

func (d *CategoricalDimension) Features(v any, dst []float64) {
	for i := range dst[:len(d.values)] {
		dst[i] = 0
	}
	if s, ok := v.(string); ok {
		if i, ok := d.index[s]; ok {
			dst[i] = 1
		}
	}
}

func (d *CategoricalDimension) Spec() DimensionSpec {
	return DimensionSpec{Name: d.name, Kind: Categorical.String(), Values: d.Values()}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func bound(f float64) *float64 {
	if math.IsInf(f, 0) {
		return nil
	}
	return &f
}
