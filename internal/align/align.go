// Package align combines per-case tables into cross-case comparison tables
// whose case columns follow a caller-supplied order.
package align

import (
	"fmt"
	"math"

	"genx-compile/internal/model"
)

// Frame is one case's contribution to a comparison table.
type Frame struct {
	Case  string
	Table *model.Table
}

// CheckOrder verifies that order is a permutation of the frames' cases: no
// case dropped, duplicated or invented.
func CheckOrder(order []string, frames []Frame) error {
	present := make(map[string]int, len(frames))
	for _, f := range frames {
		present[f.Case]++
		if present[f.Case] > 1 {
			return fmt.Errorf("%w: case %q loaded twice", model.ErrCaseOrder, f.Case)
		}
	}
	seen := make(map[string]bool, len(order))
	for _, c := range order {
		if seen[c] {
			return fmt.Errorf("%w: case %q listed twice", model.ErrCaseOrder, c)
		}
		seen[c] = true
		if present[c] == 0 {
			return fmt.Errorf("%w: case %q not loaded", model.ErrCaseOrder, c)
		}
	}
	for _, f := range frames {
		if !seen[f.Case] {
			return fmt.Errorf("%w: case %q missing from order", model.ErrCaseOrder, f.Case)
		}
	}
	return nil
}

func byCase(frames []Frame) map[string]*model.Table {
	out := make(map[string]*model.Table, len(frames))
	for _, f := range frames {
		out[f.Case] = f.Table
	}
	return out
}

// touch creates key with every column NaN; cells a case never reports stay
// missing rather than reading as zero.
func touch(t *model.Table, key []string) {
	if t.Has(key...) {
		return
	}
	for _, c := range t.Columns {
		_ = t.Set(c, math.NaN(), key...)
	}
}

// Column widens one value column of every frame into a table with one column
// per case, in order. Frames share their index levels.
func Column(name string, order []string, frames []Frame, col string) (*model.Table, error) {
	if err := CheckOrder(order, frames); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return model.NewTable(name, nil, order), nil
	}
	out := model.NewTable(name, frames[0].Table.Index, order)
	tables := byCase(frames)
	for _, c := range order {
		t := tables[c]
		ci := t.Col(col)
		if ci < 0 {
			return nil, fmt.Errorf("%s: case %q has no column %q", name, c, col)
		}
		if len(t.Index) != len(out.Index) {
			return nil, fmt.Errorf("%s: case %q has index %v, want %v", name, c, t.Index, out.Index)
		}
		for _, r := range t.Rows() {
			touch(out, r.Key)
			if err := out.Set(c, r.Values[ci], r.Key...); err != nil {
				return nil, err
			}
		}
	}
	out.SortRows()
	return out, nil
}

// Pivot turns per-case measure columns into a level of the index. The new
// level is inserted after the first index level, so a frame indexed by
// (Region, Resource) with measure columns yields (Region, level, Resource)
// rows with one column per case. Retired measures are negated.
func Pivot(name string, order []string, frames []Frame, level string) (*model.Table, error) {
	if err := CheckOrder(order, frames); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return model.NewTable(name, []string{level}, order), nil
	}
	first := frames[0].Table.Index
	if len(first) == 0 {
		return nil, fmt.Errorf("%s: frames need at least one index level", name)
	}
	index := append([]string{first[0], level}, first[1:]...)
	out := model.NewTable(name, index, order)
	tables := byCase(frames)
	for _, c := range order {
		t := tables[c]
		if len(t.Index) != len(first) {
			return nil, fmt.Errorf("%s: case %q has index %v, want %v", name, c, t.Index, first)
		}
		for _, r := range t.Rows() {
			for mi, measure := range t.Columns {
				v := r.Values[mi]
				if math.IsNaN(v) {
					continue
				}
				key := append([]string{r.Key[0], measure}, r.Key[1:]...)
				touch(out, key)
				if err := out.Set(c, v, key...); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, c := range order {
		out.Apply(c, func(key []string, v float64) float64 {
			if model.IsRetiredMeasure(key[1]) && !math.IsNaN(v) && v != 0 {
				return -v
			}
			return v
		})
	}
	out.SortRows()
	return out, nil
}

// Stack concatenates frames into one long table with a "Case" level
// prepended to the index, cases in order. Value columns are the union of
// the frames' columns in first-seen order.
func Stack(name string, order []string, frames []Frame) (*model.Table, error) {
	if err := CheckOrder(order, frames); err != nil {
		return nil, err
	}
	tables := byCase(frames)
	var index, columns []string
	seen := map[string]bool{}
	for _, c := range order {
		t := tables[c]
		if index == nil {
			index = append([]string{"Case"}, t.Index...)
		} else if len(t.Index)+1 != len(index) {
			return nil, fmt.Errorf("%s: case %q has index %v, want %v", name, c, t.Index, index[1:])
		}
		for _, col := range t.Columns {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	if index == nil {
		index = []string{"Case"}
	}
	out := model.NewTable(name, index, columns)
	for _, c := range order {
		t := tables[c]
		for _, r := range t.Rows() {
			key := append([]string{c}, r.Key...)
			touch(out, key)
			for ci, col := range t.Columns {
				if err := out.Set(col, r.Values[ci], key...); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// Totals drops index levels by summing over them, keeping the named ones.
func Totals(t *model.Table, name string, keep ...string) (*model.Table, error) {
	return t.GroupSum(name, keep...)
}
