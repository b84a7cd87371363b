package space

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Point maps flattened dimension names to canonical values. A Point is only
// meaningful relative to a Hypergrid.
type Point map[string]any

// Clone returns a shallow copy of p. Values are immutable scalars.
func (p Point) Clone() Point {
	if p == nil {
		return nil
	}
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the sorted keys of p.
func (p Point) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float returns the numeric value at name as a float64.
func (p Point) Float(name string) (float64, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return 0, false
	}
	f, err := toFloat(v)
	return f, err == nil
}

// String returns the categorical value at name.
func (p Point) String(name string) (string, bool) {
	s, ok := p[name].(string)
	return s, ok
}

// Table is a row-aligned collection of points with a fixed column order.
// A missing key in a row is a null.
type Table struct {
	Columns []string
	Rows    []Point
}

// NewTable creates a table with the given columns and rows.
func NewTable(columns []string, rows ...Point) *Table {
	return &Table{Columns: append([]string(nil), columns...), Rows: rows}
}

// TableFromPoints creates a table whose columns are the sorted union of the
// keys of points.
func TableFromPoints(points ...Point) *Table {
	seen := make(map[string]struct{})
	var cols []string
	for _, p := range points {
		for k := range p {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return &Table{Columns: cols, Rows: points}
}

// Len returns the number of rows; a nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Row returns a copy of row i.
func (t *Table) Row(i int) Point { return t.Rows[i].Clone() }

// Column returns the values of column name, nil where the row has no value.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	rows := make([]Point, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Clone()
	}
	return &Table{Columns: append([]string(nil), t.Columns...), Rows: rows}
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the table column-wise, with null for missing values.
func (t Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Columns: t.Columns, Rows: make([][]any, len(t.Rows))}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for i, r := range t.Rows {
		row := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = r[c]
		}
		out.Rows[i] = row
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON. Values are left in
// their JSON types and must be canonicalized against a grid before use.
func (t *Table) UnmarshalJSON(data []byte) error {
	var in tableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.Columns = in.Columns
	t.Rows = make([]Point, len(in.Rows))
	for i, row := range in.Rows {
		if len(row) != len(in.Columns) {
			return fmt.Errorf("table row %d has %d values for %d columns", i, len(row), len(in.Columns))
		}
		p := make(Point, len(row))
		for j, v := range row {
			if v != nil {
				p[in.Columns[j]] = v
			}
		}
		t.Rows[i] = p
	}
	return nil
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
