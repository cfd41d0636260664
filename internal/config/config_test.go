package config

import (
	"os"
	"path/filepath"
	"testing"

	"genx-compile/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 0.069, c.SpurLine.WACC)
	assert.Equal(t, 60, c.SpurLine.RecoveryYears)
	assert.True(t, c.Output.ChartsEnabled())
	assert.Equal(t, "p1", c.Chain.PeriodMatches[2045]["p3"])

	zones, err := c.ZoneMap()
	require.NoError(t, err)
	assert.Equal(t, 7, zones.Len())

	cat, err := c.Classifier().Classify("CA_N_ev_load_shifting")
	require.NoError(t, err)
	assert.Empty(t, cat)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "genx.yaml", `
root: /data/study
zones:
  1: North
  2: South
case_order: [p2, p1]
spur_line:
  wacc: 0.05
chain:
  forced_retirement:
    cases: []
output:
  charts: false
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/study", c.Root)
	assert.Equal(t, map[int]string{1: "North", 2: "South"}, c.Zones)
	assert.Equal(t, []string{"p2", "p1"}, c.CaseOrder)
	assert.Equal(t, 0.05, c.SpurLine.WACC)
	assert.Equal(t, 60, c.SpurLine.RecoveryYears)
	assert.Empty(t, c.Chain.ForcedRetirement.Cases)
	assert.False(t, c.Output.ChartsEnabled())
	assert.Equal(t, "WECC results.xlsx", c.Output.TotalWorkbook)
}

func TestLoadResourcesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "resources.yaml", `
resources:
  - {key: solar, category: Solar}
  - {key: wind, category: Onshore Wind}
`)
	path := writeConfig(t, dir, "genx.yaml", "resources_file: resources.yaml\n")
	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Resources, 2)

	cat, err := c.Classifier().Classify("AZ_wind_1")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryOnshoreWind, cat)
}

func TestValidateNamesField(t *testing.T) {
	cases := map[string]func(*Config){
		"root is required":           func(c *Config) { c.Root = "" },
		"zones invalid":              func(c *Config) { c.Zones = map[int]string{1: "A", 2: "A"} },
		"resources[0]":               func(c *Config) { c.Resources[0].Category = "" },
		"spur_line.recovery_years":   func(c *Config) { c.SpurLine.RecoveryYears = 0 },
		"case_order":                 func(c *Config) { c.CaseOrder = []string{"p1", "p1"} },
		"chain.forced_retirement":    func(c *Config) { c.Chain.ForcedRetirement.Baseline = "" },
		"compile.workers must be >=": func(c *Config) { c.Compile.Workers = -1 },
	}
	for want, mutate := range cases {
		c := Default()
		mutate(c)
		err := c.Validate()
		require.Error(t, err, want)
		assert.Contains(t, err.Error(), want)
	}
}

func TestOrderings(t *testing.T) {
	p := PresentationConfig{Policy: []string{"No Policy"}}
	assert.Equal(t, map[string][]string{"policy": {"No Policy"}}, p.Orderings())
	assert.Len(t, Default().Presentation.Orderings(), 2)
}
