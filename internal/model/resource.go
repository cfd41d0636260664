package model

import "strings"

// ResourceCategory is the display taxonomy for generation and storage resources.
type ResourceCategory string

const (
	CategoryCoal            ResourceCategory = "Coal"
	CategoryCCS             ResourceCategory = "CCS"
	CategoryNGCT            ResourceCategory = "NGCT"
	CategoryNGCC            ResourceCategory = "NGCC"
	CategoryOnshoreWind     ResourceCategory = "Onshore Wind"
	CategoryOffshoreWind    ResourceCategory = "Offshore Wind"
	CategorySolar           ResourceCategory = "Solar"
	CategoryHydro           ResourceCategory = "Hydro"
	CategoryBattery         ResourceCategory = "Battery"
	CategoryNuclear         ResourceCategory = "Nuclear"
	CategoryOtherRenewables ResourceCategory = "Other Renewables"
	CategoryPumpedHydro     ResourceCategory = "Pumped Hydro"
)

// ResourceOrder is the stacking order used by charts, bottom first.
var ResourceOrder = []ResourceCategory{
	CategoryCoal,
	CategoryNGCC,
	CategoryNGCT,
	CategoryOtherRenewables,
	CategoryNuclear,
	CategoryCCS,
	CategoryHydro,
	CategoryPumpedHydro,
	CategoryBattery,
	CategorySolar,
	CategoryOnshoreWind,
	CategoryOffshoreWind,
}

// ClassificationRule maps a substring of a raw resource label to a category.
type ClassificationRule struct {
	Key      string
	Category ResourceCategory
}

// DefaultClassificationRules mirrors the solver's resource naming.
func DefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		{"coal", CategoryCoal},
		{"ccs", CategoryCCS},
		{"turbine", CategoryNGCT},
		{"combined_cycle", CategoryNGCC},
		{"ccavg", CategoryNGCC},
		{"ctavg", CategoryNGCT},
		{"landbasedwind", CategoryOnshoreWind},
		{"onshore_wind", CategoryOnshoreWind},
		{"offshorewind", CategoryOffshoreWind},
		{"utilitypv", CategorySolar},
		{"solar", CategorySolar},
		{"conventional_hydro", CategoryHydro},
		{"battery", CategoryBattery},
		{"nuclear", CategoryNuclear},
		{"biomass", CategoryOtherRenewables},
		{"geothermal", CategoryOtherRenewables},
		{"small_hydroelectric", CategoryOtherRenewables},
		{"pumped_hydro", CategoryPumpedHydro},
	}
}

// Classifier assigns raw resource labels to categories by ordered substring
// rules. Several keys may point at the same category; a label whose matching
// keys disagree on the category is a conflict, never resolved by rule order.
//
// Labels containing an exclusion key (flexible demand such as EV load
// shifting) classify to the empty category and are left out of category
// tables.
type Classifier struct {
	rules   []ClassificationRule
	exclude []string
}

func NewClassifier(rules []ClassificationRule) *Classifier {
	cp := make([]ClassificationRule, len(rules))
	copy(cp, rules)
	return &Classifier{rules: cp}
}

// WithExclusions returns a copy of c that excludes labels containing any key.
func (c *Classifier) WithExclusions(keys ...string) *Classifier {
	out := NewClassifier(c.rules)
	for _, k := range keys {
		if k != "" {
			out.exclude = append(out.exclude, k)
		}
	}
	return out
}

func (c *Classifier) Rules() []ClassificationRule {
	out := make([]ClassificationRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify returns the label's category or a *ClassificationError. Excluded
// labels return "" and no error.
func (c *Classifier) Classify(label string) (ResourceCategory, error) {
	for _, k := range c.exclude {
		if strings.Contains(label, k) {
			return "", nil
		}
	}
	var matched []ResourceCategory
	for _, r := range c.rules {
		if r.Key == "" || !strings.Contains(label, r.Key) {
			continue
		}
		if !containsCategory(matched, r.Category) {
			matched = append(matched, r.Category)
		}
	}
	if len(matched) != 1 {
		return "", &ClassificationError{Label: label, Categories: matched}
	}
	return matched[0], nil
}

func containsCategory(list []ResourceCategory, c ResourceCategory) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
