package chain

import (
	"fmt"

	"genx-compile/internal/model"
)

// ForcedRetirement overrides the alternate cases' start and retired capacity
// of one category with the baseline case's start capacity, modelling a
// policy that retires what the unconstrained run kept.
type ForcedRetirement struct {
	Period   int
	Baseline string
	Cases    []string
	Category model.ResourceCategory
}

// Applies reports whether the rule is configured for year.
func (f ForcedRetirement) Applies(year int) bool {
	return f.Period == year && f.Baseline != "" && len(f.Cases) > 0
}

// Apply rewrites the aligned capacity table in place. The table is indexed
// by (Region, Category, Resource Name) with one column per case label.
// Retired values are written negative, matching the aligned sign convention.
// cases resolves configured references (label or id) to column names.
func (f ForcedRetirement) Apply(capacity *model.Table, cases []model.Case) error {
	baseline, ok := model.FindCase(cases, f.Baseline)
	if !ok {
		return fmt.Errorf("forced retirement baseline %q: %w", f.Baseline, model.ErrMissingCaseFolder)
	}
	if capacity.Col(baseline.Label) < 0 {
		return fmt.Errorf("forced retirement baseline %q: not in table %s", baseline.Label, capacity.Name)
	}
	if capacity.IndexPos("Region") != 0 || capacity.IndexPos("Category") != 1 || len(capacity.Index) != 3 {
		return fmt.Errorf("forced retirement: table %s has index %v", capacity.Name, capacity.Index)
	}

	var targets []string
	for _, ref := range f.Cases {
		c, ok := model.FindCase(cases, ref)
		if !ok {
			return fmt.Errorf("forced retirement case %q: %w", ref, model.ErrMissingCaseFolder)
		}
		targets = append(targets, c.Label)
	}

	category := string(f.Category)
	for _, r := range capacity.Rows() {
		if r.Key[1] != model.StartCapacity || r.Key[2] != category {
			continue
		}
		region := r.Key[0]
		start := capacity.Value(baseline.Label, region, model.StartCapacity, category)
		for _, t := range targets {
			if err := capacity.Set(t, start, region, model.StartCapacity, category); err != nil {
				return err
			}
			if err := capacity.Set(t, -start, region, model.RetiredCapacity, category); err != nil {
				return err
			}
		}
	}
	return nil
}
