package compile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"genx-compile/internal/model"
)

// Years lists the planning periods under root: directories whose name is an
// integer, ascending.
func Years(root string) ([]int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read root %s: %w", root, err)
	}
	var years []int
	for _, e := range entries {
		if !e.IsDir() || strings.Contains(e.Name(), "__") || strings.Contains(e.Name(), ".") {
			continue
		}
		y, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

// Cases lists every case folder of a period: any folder below
// <root>/<year> holding a Results directory, sorted by path.
func Cases(root string, year int) ([]model.Case, error) {
	return scanCases(root, year, "Results")
}

// InputCases lists the case folders of a period that hold solver inputs,
// whether or not the solver has run yet.
func InputCases(root string, year int) ([]model.Case, error) {
	return scanCases(root, year, "Inputs")
}

func scanCases(root string, year int, marker string) ([]model.Case, error) {
	dir := filepath.Join(root, strconv.Itoa(year))
	var dirs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == marker {
			dirs = append(dirs, filepath.Dir(path))
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan period %d: %w", year, err)
	}
	sort.Strings(dirs)

	cases := make([]model.Case, 0, len(dirs))
	labels := map[string]string{}
	for _, d := range dirs {
		c, err := model.ParseCase(d)
		if err != nil {
			return nil, err
		}
		if c.Year == 0 {
			c.Year = year
		}
		if other, dup := labels[c.Label]; dup {
			return nil, fmt.Errorf("%w: %s and %s share label %q", model.ErrCaseOrder, other, d, c.Label)
		}
		labels[c.Label] = d
		cases = append(cases, c)
	}
	return cases, nil
}

// Order arranges cases for display: those named in preferred first (by
// label or id, in that order), then the rest in folder order. Preferred
// entries with no case are ignored.
func Order(preferred []string, cases []model.Case) []model.Case {
	out := make([]model.Case, 0, len(cases))
	used := make([]bool, len(cases))
	for _, ref := range preferred {
		for i, c := range cases {
			if !used[i] && c.Matches(ref) {
				used[i] = true
				out = append(out, c)
				break
			}
		}
	}
	for i, c := range cases {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out
}
