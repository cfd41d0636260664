package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"genx-compile/internal/model"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Root is the compilation root holding one folder per planning year.
	Root string `yaml:"root"`

	// Optional: load classification rules from a separate YAML file.
	// Rules listed inline in Resources take precedence over ResourcesFile.
	ResourcesFile string         `yaml:"resources_file"`
	Resources     []ResourceRule `yaml:"resources"`
	// ExcludeResources lists label substrings kept out of category tables.
	ExcludeResources []string           `yaml:"exclude_resources"`
	Zones            map[int]string     `yaml:"zones"`
	CaseOrder        []string           `yaml:"case_order"`
	Presentation     PresentationConfig `yaml:"presentation"`
	SpurLine         SpurLineConfig     `yaml:"spur_line"`
	Chain            ChainConfig        `yaml:"chain"`
	Attribution      AttributionConfig  `yaml:"attribution"`
	Compile          CompileConfig      `yaml:"compile"`
	Output           OutputConfig       `yaml:"output"`
	Database         DatabaseConfig     `yaml:"database"`
}

type ResourceRule struct {
	Key      string `yaml:"key"`
	Category string `yaml:"category"`
}

// PresentationConfig holds the display orderings used by charts.
type PresentationConfig struct {
	Policy      []string `yaml:"policy"`
	Sensitivity []string `yaml:"sensitivity"`
}

// Orderings returns the named chart orderings that are set.
func (p PresentationConfig) Orderings() map[string][]string {
	out := map[string][]string{}
	if len(p.Policy) > 0 {
		out["policy"] = p.Policy
	}
	if len(p.Sensitivity) > 0 {
		out["sensitivity"] = p.Sensitivity
	}
	return out
}

type SpurLineConfig struct {
	WACC          float64 `yaml:"wacc"`
	RecoveryYears int     `yaml:"recovery_years"`
}

type ChainConfig struct {
	// PeriodMatches maps, per year, a case id to the id of the previous
	// period's case it continues. Unlisted cases continue the same id.
	PeriodMatches    map[int]map[string]string `yaml:"period_matches"`
	ForcedRetirement ForcedRetirementConfig    `yaml:"forced_retirement"`
}

type ForcedRetirementConfig struct {
	Period   int      `yaml:"period"`
	Baseline string   `yaml:"baseline"`
	Cases    []string `yaml:"cases"`
	Category string   `yaml:"category"`
}

type AttributionConfig struct {
	// Regions limits attribution to the named regions. Empty means all zones.
	Regions []string `yaml:"regions"`
}

type CompileConfig struct {
	Workers int `yaml:"workers"`
}

type OutputConfig struct {
	Dir            string `yaml:"dir"`
	TotalWorkbook  string `yaml:"total_workbook"`
	RegionWorkbook string `yaml:"region_workbook"`
	AttributionCSV string `yaml:"attribution_csv"`
	Charts         *bool  `yaml:"charts"`
}

// ChartsEnabled defaults to true when charts is unset.
func (o OutputConfig) ChartsEnabled() bool {
	return o.Charts == nil || *o.Charts
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// Default returns the built-in configuration for the WECC study layout.
func Default() *Config {
	rules := model.DefaultClassificationRules()
	resources := make([]ResourceRule, len(rules))
	for i, r := range rules {
		resources[i] = ResourceRule{Key: r.Key, Category: string(r.Category)}
	}
	return &Config{
		Root:             ".",
		Resources:        resources,
		ExcludeResources: []string{"ev_load_shifting"},
		Zones: map[int]string{
			1: "CA_N",
			2: "CA_S",
			3: "WECC_AZ",
			4: "WECC_CO",
			5: "WECC_NM",
			6: "WECC_NW",
			7: "WECC_SNV",
		},
		Presentation: PresentationConfig{
			Policy: []string{
				"No Policy",
				"Emissions Cap w/ RPS",
				"WRA CES w/ RPS",
				"Tech CES w/ RPS",
				"RPS only",
				"Emissions Cap",
				"WRA CES",
				"Tech CES",
			},
			Sensitivity: []string{
				"No Policy",
				"WRA CES",
				"WRA CES w/ RPS",
				"Coal Phaseout",
				"Coal Phaseout No New Gas",
				"No New Gas",
				"Slower AZ load growth",
				"Half WECC load growth",
				"Limits transmission",
				"High EV penetration",
				"Low cost nuclear",
				"Low gas prices",
				"Low cost CCS",
				"High cost CCS",
				"Low cost renewables",
			},
		},
		SpurLine: SpurLineConfig{WACC: 0.069, RecoveryYears: 60},
		Chain: ChainConfig{
			PeriodMatches: map[int]map[string]string{
				2045: {"p3": "p1"},
			},
			ForcedRetirement: ForcedRetirementConfig{
				Period:   2030,
				Baseline: "No Policy",
				Cases:    []string{"Coal Phaseout", "Coal Phaseout No New Gas"},
				Category: string(model.CategoryCoal),
			},
		},
		Compile: CompileConfig{Workers: 4},
		Output: OutputConfig{
			Dir:            ".",
			TotalWorkbook:  "WECC results.xlsx",
			RegionWorkbook: "Regional results.xlsx",
			AttributionCSV: "Zone specific costs.csv",
		},
	}
}

// Load returns the defaults overlaid with the file at path (if any), validated.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// Rules from resources_file apply unless the config lists its own.
	if c.ResourcesFile != "" && len(c.Resources) == 0 {
		rulesPath := c.ResourcesFile
		if !filepath.IsAbs(rulesPath) {
			// Prefer interpreting relative paths as relative to the config file directory,
			// but fall back to the provided path (relative to cwd) if that doesn't exist.
			cand := filepath.Join(filepath.Dir(path), rulesPath)
			if _, err := os.Stat(cand); err == nil {
				rulesPath = cand
			}
		}
		rules, err := loadResourcesFile(rulesPath)
		if err != nil {
			return nil, err
		}
		c.Resources = rules
	}
	merged := Merge(*base, c)
	return &merged, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("root is required")
	}
	if _, err := c.ZoneMap(); err != nil {
		return fmt.Errorf("zones invalid: %w", err)
	}
	if len(c.Resources) == 0 {
		return errors.New("resources: at least one classification rule is required")
	}
	for i, r := range c.Resources {
		if strings.TrimSpace(r.Key) == "" || strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("resources[%d]: key and category are required", i)
		}
	}
	if c.SpurLine.WACC < 0 {
		return errors.New("spur_line.wacc must be >= 0")
	}
	if c.SpurLine.RecoveryYears <= 0 {
		return errors.New("spur_line.recovery_years must be > 0")
	}
	if c.Compile.Workers < 0 {
		return errors.New("compile.workers must be >= 0")
	}
	if err := checkUnique("case_order", c.CaseOrder); err != nil {
		return err
	}
	fr := c.Chain.ForcedRetirement
	if len(fr.Cases) > 0 && (fr.Baseline == "" || fr.Period == 0 || fr.Category == "") {
		return errors.New("chain.forced_retirement: period, baseline and category are required when cases are set")
	}
	return nil
}

func checkUnique(field string, list []string) error {
	seen := make(map[string]bool, len(list))
	for _, v := range list {
		if seen[v] {
			return fmt.Errorf("%s: duplicate entry %q", field, v)
		}
		seen[v] = true
	}
	return nil
}

// ZoneMap builds the immutable zone lookup.
func (c *Config) ZoneMap() (model.ZoneMap, error) {
	if len(c.Zones) == 0 {
		return model.ZoneMap{}, errors.New("no zones configured")
	}
	return model.NewZoneMap(c.Zones)
}

// Classifier builds the ordered resource classifier.
func (c *Config) Classifier() *model.Classifier {
	rules := make([]model.ClassificationRule, len(c.Resources))
	for i, r := range c.Resources {
		rules[i] = model.ClassificationRule{Key: r.Key, Category: model.ResourceCategory(r.Category)}
	}
	return model.NewClassifier(rules).WithExclusions(c.ExcludeResources...)
}

type resourcesFileWrapper struct {
	Resources []ResourceRule `yaml:"resources"`
}

func loadResourcesFile(path string) ([]ResourceRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w resourcesFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return w.Resources, nil
}

// Merge overlays non-zero fields from override onto base.
// Lists and maps replace rather than append.
func Merge(base, override Config) Config {
	out := base
	if override.Root != "" {
		out.Root = override.Root
	}
	out.ResourcesFile = override.ResourcesFile
	if len(override.Resources) > 0 {
		out.Resources = override.Resources
	}
	if len(override.ExcludeResources) > 0 {
		out.ExcludeResources = override.ExcludeResources
	}
	if len(override.Zones) > 0 {
		out.Zones = override.Zones
	}
	if len(override.CaseOrder) > 0 {
		out.CaseOrder = override.CaseOrder
	}
	if len(override.Presentation.Policy) > 0 {
		out.Presentation.Policy = override.Presentation.Policy
	}
	if len(override.Presentation.Sensitivity) > 0 {
		out.Presentation.Sensitivity = override.Presentation.Sensitivity
	}
	if override.SpurLine.WACC != 0 {
		out.SpurLine.WACC = override.SpurLine.WACC
	}
	if override.SpurLine.RecoveryYears != 0 {
		out.SpurLine.RecoveryYears = override.SpurLine.RecoveryYears
	}
	if override.Chain.PeriodMatches != nil {
		out.Chain.PeriodMatches = override.Chain.PeriodMatches
	}
	// A forced_retirement block replaces the default one wholesale; an empty
	// cases list in the file disables the override.
	if fr := override.Chain.ForcedRetirement; fr.Period != 0 || fr.Baseline != "" || fr.Cases != nil {
		out.Chain.ForcedRetirement = fr
		if out.Chain.ForcedRetirement.Category == "" {
			out.Chain.ForcedRetirement.Category = string(model.CategoryCoal)
		}
	}
	if len(override.Attribution.Regions) > 0 {
		out.Attribution.Regions = override.Attribution.Regions
	}
	if override.Compile.Workers != 0 {
		out.Compile.Workers = override.Compile.Workers
	}
	if override.Output.Dir != "" {
		out.Output.Dir = override.Output.Dir
	}
	if override.Output.TotalWorkbook != "" {
		out.Output.TotalWorkbook = override.Output.TotalWorkbook
	}
	if override.Output.RegionWorkbook != "" {
		out.Output.RegionWorkbook = override.Output.RegionWorkbook
	}
	if override.Output.AttributionCSV != "" {
		out.Output.AttributionCSV = override.Output.AttributionCSV
	}
	if override.Output.Charts != nil {
		v := *override.Output.Charts
		out.Output.Charts = &v
	}
	if override.Database.URL != "" {
		out.Database.URL = override.Database.URL
	}
	return out
}
