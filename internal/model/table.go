package model

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Table is the compiled output shape: rows keyed by a tuple of index values,
// with one float column per value column (usually one per case).
//
// Rows created implicitly are zero-filled. NaN marks a value the solver
// reported as missing; sums skip it.
type Table struct {
	Name    string
	Index   []string
	Columns []string

	rows []Row
	pos  map[string]int
	cols map[string]int
}

// Row is one keyed row of a Table.
type Row struct {
	Key    []string
	Values []float64
}

func NewTable(name string, index, columns []string) *Table {
	t := &Table{
		Name:    name,
		Index:   append([]string(nil), index...),
		Columns: append([]string(nil), columns...),
		pos:     map[string]int{},
		cols:    make(map[string]int, len(columns)),
	}
	for i, c := range t.Columns {
		t.cols[c] = i
	}
	return t
}

func joinKey(key []string) string { return strings.Join(key, "\x1f") }

func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows in table order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = Row{
			Key:    append([]string(nil), r.Key...),
			Values: append([]float64(nil), r.Values...),
		}
	}
	return out
}

// Col returns the position of a value column or -1.
func (t *Table) Col(name string) int {
	if i, ok := t.cols[name]; ok {
		return i
	}
	return -1
}

// IndexPos returns the position of an index level or -1.
func (t *Table) IndexPos(name string) int {
	for i, n := range t.Index {
		if n == name {
			return i
		}
	}
	return -1
}

func (t *Table) Has(key ...string) bool {
	_, ok := t.pos[joinKey(key)]
	return ok
}

// Value returns the cell at (key, col), or NaN when either is absent.
func (t *Table) Value(col string, key ...string) float64 {
	c := t.Col(col)
	i, ok := t.pos[joinKey(key)]
	if c < 0 || !ok {
		return math.NaN()
	}
	return t.rows[i].Values[c]
}

func (t *Table) row(key []string) (*Row, error) {
	if len(key) != len(t.Index) {
		return nil, fmt.Errorf("table %s: key %v has %d levels, want %d", t.Name, key, len(key), len(t.Index))
	}
	k := joinKey(key)
	if i, ok := t.pos[k]; ok {
		return &t.rows[i], nil
	}
	t.rows = append(t.rows, Row{
		Key:    append([]string(nil), key...),
		Values: make([]float64, len(t.Columns)),
	})
	t.pos[k] = len(t.rows) - 1
	return &t.rows[len(t.rows)-1], nil
}

// Set writes a cell, creating the row if needed.
func (t *Table) Set(col string, v float64, key ...string) error {
	c := t.Col(col)
	if c < 0 {
		return fmt.Errorf("table %s: unknown column %q", t.Name, col)
	}
	r, err := t.row(key)
	if err != nil {
		return err
	}
	r.Values[c] = v
	return nil
}

// Add accumulates v into a cell. NaN inputs are skipped and a NaN cell is
// treated as zero.
func (t *Table) Add(col string, v float64, key ...string) error {
	c := t.Col(col)
	if c < 0 {
		return fmt.Errorf("table %s: unknown column %q", t.Name, col)
	}
	r, err := t.row(key)
	if err != nil {
		return err
	}
	if math.IsNaN(v) {
		return nil
	}
	if math.IsNaN(r.Values[c]) {
		r.Values[c] = 0
	}
	r.Values[c] += v
	return nil
}

// AddColumn appends a zero-filled value column. Existing columns are kept.
func (t *Table) AddColumn(name string) {
	if t.Col(name) >= 0 {
		return
	}
	t.Columns = append(t.Columns, name)
	t.cols[name] = len(t.Columns) - 1
	for i := range t.rows {
		t.rows[i].Values = append(t.rows[i].Values, 0)
	}
}

// Apply rewrites every value of col in place.
func (t *Table) Apply(col string, fn func(key []string, v float64) float64) {
	c := t.Col(col)
	if c < 0 {
		return
	}
	for i := range t.rows {
		t.rows[i].Values[c] = fn(t.rows[i].Key, t.rows[i].Values[c])
	}
}

// ColumnSum sums a value column, skipping NaN.
func (t *Table) ColumnSum(col string) float64 {
	c := t.Col(col)
	if c < 0 {
		return 0
	}
	total := 0.0
	for _, r := range t.rows {
		if !math.IsNaN(r.Values[c]) {
			total += r.Values[c]
		}
	}
	return total
}

// GroupSum groups rows by the kept index levels and sums every value column.
// Group keys are sorted.
func (t *Table) GroupSum(name string, keep ...string) (*Table, error) {
	positions := make([]int, len(keep))
	for i, k := range keep {
		p := t.IndexPos(k)
		if p < 0 {
			return nil, fmt.Errorf("table %s: unknown index level %q", t.Name, k)
		}
		positions[i] = p
	}
	out := NewTable(name, keep, t.Columns)
	for _, r := range t.rows {
		key := make([]string, len(positions))
		for i, p := range positions {
			key[i] = r.Key[p]
		}
		for c, col := range t.Columns {
			if err := out.Add(col, r.Values[c], key...); err != nil {
				return nil, err
			}
		}
	}
	out.SortRows()
	return out, nil
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(name string, keep func(Row) bool) *Table {
	out := NewTable(name, t.Index, t.Columns)
	for _, r := range t.rows {
		if keep(r) {
			nr, _ := out.row(r.Key)
			copy(nr.Values, r.Values)
		}
	}
	return out
}

// Clone deep-copies the table under a new name.
func (t *Table) Clone(name string) *Table {
	return t.Filter(name, func(Row) bool { return true })
}

// SortRows orders rows lexicographically by key.
func (t *Table) SortRows() {
	sort.SliceStable(t.rows, func(i, j int) bool {
		a, b := t.rows[i].Key, t.rows[j].Key
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	for i, r := range t.rows {
		t.pos[joinKey(r.Key)] = i
	}
}

// Round rounds every finite value to places decimals, ties to even.
func (t *Table) Round(places int32) {
	for i := range t.rows {
		for c, v := range t.rows[i].Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			t.rows[i].Values[c] = decimal.NewFromFloat(v).RoundBank(places).InexactFloat64()
		}
	}
}

// SetSum rewrites dst in every row as the decimal sum of cols, skipping NaN.
// Run it after Round so dst equals the sum of the values as emitted.
func (t *Table) SetSum(dst string, cols ...string) {
	d := t.Col(dst)
	if d < 0 {
		return
	}
	idx := make([]int, 0, len(cols))
	for _, c := range cols {
		if i := t.Col(c); i >= 0 {
			idx = append(idx, i)
		}
	}
	for i := range t.rows {
		sum := decimal.Zero
		for _, c := range idx {
			v := t.rows[i].Values[c]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			sum = sum.Add(decimal.NewFromFloat(v))
		}
		t.rows[i].Values[d] = sum.InexactFloat64()
	}
}
