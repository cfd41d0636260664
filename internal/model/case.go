package model

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Case is one solver run for a policy/sensitivity scenario in one planning year.
//
// Case folders are named <runid>_<year>_<description...>, e.g.
// "p3_2030_WRA_CES_with_RPS". Results live under <Dir>/Results and solver
// inputs under <Dir>/Inputs.
type Case struct {
	ID    string
	Year  int
	Label string
	Dir   string
}

func (c Case) ResultsDir() string { return filepath.Join(c.Dir, "Results") }
func (c Case) InputsDir() string  { return filepath.Join(c.Dir, "Inputs") }

// Matches reports whether ref names this case by ID or label.
func (c Case) Matches(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref != "" && (ref == c.ID || ref == c.Label)
}

// CaseLabel turns a case folder name into its display label: the first two
// underscore-delimited tokens are dropped, the rest joined with spaces,
// "with" replaced by "w/" and the result trimmed.
//
//	CaseLabel("p3_2030_WRA_CES_with_RPS") == "WRA CES w/ RPS"
//
// The transformation is total; names with fewer than three tokens yield "".
func CaseLabel(folder string) string {
	parts := strings.Split(folder, "_")
	if len(parts) <= 2 {
		return ""
	}
	label := strings.Join(parts[2:], " ")
	label = strings.ReplaceAll(label, "with", "w/")
	return strings.TrimSpace(label)
}

// ParseCase builds a Case from its folder path. The year token is optional in
// the sense that a non-numeric token yields Year 0; callers that need the
// year check it themselves.
func ParseCase(dir string) (Case, error) {
	name := filepath.Base(filepath.Clean(dir))
	parts := strings.Split(name, "_")
	if len(parts) == 0 || parts[0] == "" {
		return Case{}, fmt.Errorf("case folder %q: empty run id", dir)
	}
	c := Case{
		ID:    parts[0],
		Label: CaseLabel(name),
		Dir:   dir,
	}
	if len(parts) > 1 {
		if y, err := strconv.Atoi(parts[1]); err == nil {
			c.Year = y
		}
	}
	if c.Label == "" {
		c.Label = c.ID
	}
	return c, nil
}

// CaseLabels returns labels in slice order.
func CaseLabels(cases []Case) []string {
	out := make([]string, 0, len(cases))
	for _, c := range cases {
		out = append(out, c.Label)
	}
	return out
}

// FindCase returns the first case matching ref by ID or label.
func FindCase(cases []Case, ref string) (Case, bool) {
	for _, c := range cases {
		if c.Matches(ref) {
			return c, true
		}
	}
	return Case{}, false
}
