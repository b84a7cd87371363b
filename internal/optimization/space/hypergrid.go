package space

import (
	"fmt"
	"math/rand"
)

// Hypergrid is a named set of dimensions, optionally extended with subgrids
// that are active only while a categorical pivot takes particular values.
// Subgrid dimensions appear in points under the flattened name
// "<subgrid>.<dimension>".
//
// A Hypergrid must be fully assembled before it is shared; it is read-only
// afterwards and safe for concurrent use.
type Hypergrid struct {
	name   string
	dims   []Dimension
	byName map[string]Dimension
	joins  []*join
}

type join struct {
	subgrid *Hypergrid
	pivot   string
	values  []string
	active  map[string]struct{}
}

// FlatDimension is a dimension together with its flattened name.
type FlatDimension struct {
	Name string
	Dimension
}

// NewHypergrid creates a hypergrid from dimensions with unique names.
func NewHypergrid(name string, dims ...Dimension) (*Hypergrid, error) {
	g := &Hypergrid{name: name, byName: make(map[string]Dimension, len(dims))}
	for _, d := range dims {
		if d.Name() == "" {
			return nil, fmt.Errorf("hypergrid %s: dimension without a name", name)
		}
		if _, dup := g.byName[d.Name()]; dup {
			return nil, fmt.Errorf("hypergrid %s: duplicate dimension %q", name, d.Name())
		}
		if c, ok := d.(*CategoricalDimension); ok && len(c.values) == 0 {
			return nil, fmt.Errorf("hypergrid %s: categorical dimension %q has no values", name, d.Name())
		}
		g.byName[d.Name()] = d
		g.dims = append(g.dims, d)
	}
	return g, nil
}

// MustHypergrid is NewHypergrid that panics on error. It is meant for
// package-level declarations of fixed spaces.
func MustHypergrid(name string, dims ...Dimension) *Hypergrid {
	g, err := NewHypergrid(name, dims...)
	if err != nil {
		panic(err)
	}
	return g
}

// Join attaches subgrid to g, active while the categorical pivot dimension
// of g takes one of values.
func (g *Hypergrid) Join(subgrid *Hypergrid, pivot string, values ...string) error {
	d, ok := g.byName[pivot]
	if !ok {
		return fmt.Errorf("hypergrid %s: unknown pivot dimension %q", g.name, pivot)
	}
	cat, ok := d.(*CategoricalDimension)
	if !ok {
		return fmt.Errorf("hypergrid %s: pivot %q must be categorical", g.name, pivot)
	}
	if subgrid == nil || subgrid.name == "" {
		return fmt.Errorf("hypergrid %s: subgrid must be named", g.name)
	}
	if _, clash := g.byName[subgrid.name]; clash {
		return fmt.Errorf("hypergrid %s: subgrid name %q clashes with a dimension", g.name, subgrid.name)
	}
	if len(values) == 0 {
		return fmt.Errorf("hypergrid %s: join on %q needs at least one pivot value", g.name, pivot)
	}
	j := &join{subgrid: subgrid, pivot: pivot, active: make(map[string]struct{}, len(values))}
	for _, v := range values {
		if !cat.Contains(v) {
			return fmt.Errorf("hypergrid %s: %q is not a value of %q", g.name, v, pivot)
		}
		j.values = append(j.values, v)
		j.active[v] = struct{}{}
	}
	g.joins = append(g.joins, j)
	return nil
}

// Name returns the grid name.
func (g *Hypergrid) Name() string { return g.name }

// Dimensions returns every dimension, including those of subgrids, under
// their flattened names in a stable order.
func (g *Hypergrid) Dimensions() []FlatDimension {
	var out []FlatDimension
	g.flatten("", &out)
	return out
}

func (g *Hypergrid) flatten(prefix string, out *[]FlatDimension) {
	for _, d := range g.dims {
		*out = append(*out, FlatDimension{Name: prefix + d.Name(), Dimension: d})
	}
	for _, j := range g.joins {
		j.subgrid.flatten(prefix+j.subgrid.name+".", out)
	}
}

// DimensionNames returns the flattened names of all dimensions.
func (g *Hypergrid) DimensionNames() []string {
	dims := g.Dimensions()
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.Name
	}
	return names
}

// Dimension looks up a dimension by flattened name.
func (g *Hypergrid) Dimension(name string) (Dimension, bool) {
	for _, d := range g.Dimensions() {
		if d.Name == name {
			return d.Dimension, true
		}
	}
	return nil, false
}

// Bounded reports whether every dimension has finite bounds.
func (g *Hypergrid) Bounded() bool {
	for _, d := range g.Dimensions() {
		if !d.Bounded() {
			return false
		}
	}
	return true
}

// Contains reports whether p is a member of the grid: every active dimension
// is present with a legal canonical value, and no other keys are present.
func (g *Hypergrid) Contains(p Point) bool {
	if p == nil {
		return false
	}
	seen := 0
	return g.contains(p, "", &seen) && seen == len(p)
}

func (g *Hypergrid) contains(p Point, prefix string, seen *int) bool {
	for _, d := range g.dims {
		v, ok := p[prefix+d.Name()]
		if !ok || !d.Contains(v) {
			return false
		}
		*seen++
	}
	for _, j := range g.joins {
		pv, _ := p[prefix+j.pivot].(string)
		if _, active := j.active[pv]; !active {
			continue
		}
		if !j.subgrid.contains(p, prefix+j.subgrid.name+".", seen) {
			return false
		}
	}
	return true
}

// Canonicalize converts the values of p to their canonical types. Unknown
// keys are an error. Membership is not checked.
func (g *Hypergrid) Canonicalize(p Point) (Point, error) {
	index := make(map[string]Dimension)
	for _, d := range g.Dimensions() {
		index[d.Name] = d.Dimension
	}
	out := make(Point, len(p))
	for k, v := range p {
		if v == nil {
			continue
		}
		d, ok := index[k]
		if !ok {
			return nil, fmt.Errorf("hypergrid %s: unknown dimension %q", g.name, k)
		}
		c, err := d.Canonicalize(v)
		if err != nil {
			return nil, err
		}
		out[k] = c
	}
	return out, nil
}

// Random draws a uniformly distributed member of the grid.
func (g *Hypergrid) Random(rng *rand.Rand) Point {
	p := make(Point)
	g.random(rng, "", p)
	return p
}

func (g *Hypergrid) random(rng *rand.Rand, prefix string, p Point) {
	for _, d := range g.dims {
		p[prefix+d.Name()] = d.Random(rng)
	}
	for _, j := range g.joins {
		if _, active := j.active[p[prefix+j.pivot].(string)]; active {
			j.subgrid.random(rng, prefix+j.subgrid.name+".", p)
		}
	}
}

// SearchDimensions is the dimensionality of the unit cube used by
// EncodeSearch and DecodeSearch.
func (g *Hypergrid) SearchDimensions() int {
	return len(g.Dimensions())
}

// EncodeSearch maps p into the unit cube. Inactive dimensions encode as 0.5.
func (g *Hypergrid) EncodeSearch(p Point) []float64 {
	dims := g.Dimensions()
	u := make([]float64, len(dims))
	for i, d := range dims {
		v, ok := p[d.Name]
		if !ok {
			u[i] = 0.5
			continue
		}
		u[i] = d.Encode(v)
	}
	return u
}

// DecodeSearch maps a unit-cube vector to a member of the grid. Coordinates
// outside [0, 1] are clamped.
func (g *Hypergrid) DecodeSearch(u []float64) Point {
	p := make(Point)
	offset := 0
	g.decode(u, &offset, "", true, p)
	return p
}

func (g *Hypergrid) decode(u []float64, offset *int, prefix string, active bool, p Point) {
	for _, d := range g.dims {
		x := 0.5
		if *offset < len(u) {
			x = u[*offset]
		}
		*offset++
		if active {
			p[prefix+d.Name()] = d.Decode(x)
		}
	}
	for _, j := range g.joins {
		on := false
		if active {
			_, on = j.active[p[prefix+j.pivot].(string)]
		}
		j.subgrid.decode(u, offset, prefix+j.subgrid.name+".", on, p)
	}
}

// FeatureWidth is the length of the vectors produced by Features.
func (g *Hypergrid) FeatureWidth() int {
	n := 0
	for _, d := range g.Dimensions() {
		n += d.FeatureWidth()
	}
	return n
}

// Features appends the model feature encoding of p to dst. Numeric values are
// scaled to [0, 1], categoricals are one-hot and inactive dimensions are 0.
func (g *Hypergrid) Features(p Point, dst []float64) []float64 {
	for _, d := range g.Dimensions() {
		start := len(dst)
		for i := 0; i < d.FeatureWidth(); i++ {
			dst = append(dst, 0)
		}
		if v, ok := p[d.Name]; ok {
			d.Features(v, dst[start:])
		}
	}
	return dst
}
