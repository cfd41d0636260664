package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"genx-compile/internal/genxtest"
	"genx-compile/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader(t *testing.T) *Loader {
	t.Helper()
	zones, err := model.NewZoneMap(map[int]string{1: "North", 2: "South"})
	require.NoError(t, err)
	classifier := model.NewClassifier(model.DefaultClassificationRules()).WithExclusions("ev_load_shifting")
	return New(zones, classifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func twoZoneCase() genxtest.Case {
	return genxtest.Case{
		Folder: "p1_2030_No_Policy",
		Resources: []genxtest.Resource{
			{Name: "North_coal_1", Zone: 1, StartCap: 500, RetCap: 200, EndCap: 300, Gen: 1000},
			{Name: "South_utilitypv_1", Zone: 2, NewCap: 100, EndCap: 100, Gen: 400, RPS: 1, CES: 1, SpurMiles: 10, SpurCapex: 2000},
			{Name: "South_ev_load_shifting", Zone: 2, DR: 1},
		},
		Lines: []genxtest.Line{
			{PathName: "North_to_South", Directions: map[int]float64{1: 1, 2: -1}, MaxFlow: 1000, NewCap: 50, Cost: 7000, Flow: []float64{10, -5}},
		},
		Zones: []genxtest.Zone{
			{ID: 1, RPS: 0.5, Price: []float64{20, 30}, Load: []float64{100, 200}, Emissions: 12, Fix: 10, Var: 5, NSE: 0, Start: 1},
			{ID: 2, RPS: 0.4, CES: 0.6, RPSPrice: 15, Price: []float64{25, 35}, Load: []float64{50, 50}, Emissions: 3, Fix: 20},
		},
		Weights:       []float64{2, 3},
		RPSAdjustment: 5,
	}
}

func TestLoadCase(t *testing.T) {
	l := testLoader(t)
	dir := genxtest.Write(t, t.TempDir(), twoZoneCase())
	c, err := model.ParseCase(dir)
	require.NoError(t, err)

	res, err := l.LoadCase(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, res.Capacity, 3)
	coal := res.Capacity[0]
	assert.Equal(t, 1, coal.RID)
	assert.Equal(t, "North", coal.Region)
	assert.Equal(t, model.CategoryCoal, coal.Category)
	assert.Equal(t, 200.0, coal.Values[model.RetiredCapacity])
	assert.Equal(t, model.ResourceCategory(""), res.Capacity[2].Category)

	require.Len(t, res.Power, 3)
	assert.Equal(t, 400.0, res.Power[1].Sum)
	assert.Equal(t, "South", res.Power[1].Region)

	require.Len(t, res.Emissions, 2)
	assert.Equal(t, 12.0, res.Emissions[0].Sum)

	require.Len(t, res.Costs, 2)
	assert.Equal(t, 10.0, res.Costs[0].Components[model.CostFix])
	assert.True(t, math.IsNaN(res.Costs[0].Components["cUnmetRsv"]))

	require.Len(t, res.Prices, 2)
	assert.Equal(t, 15.0, res.Prices[1].RPSPrice)

	require.Len(t, res.Expansion, 1)
	assert.Equal(t, 7000.0, res.Expansion[0].Cost)

	flow, ok := res.Flow.Column("1")
	require.True(t, ok)
	assert.Equal(t, []float64{10, -5}, flow)
	price, ok := res.ZonePrice.At("2", "t2")
	require.True(t, ok)
	assert.Equal(t, 35.0, price)

	net := res.Inputs.Network
	require.Len(t, net.Lines, 1)
	assert.Equal(t, "North to South", net.Lines[0].PathName)
	assert.Equal(t, -1.0, net.Lines[0].Directions[2])
	assert.Equal(t, 0.6, net.Zones[2].CES)

	require.Len(t, res.Inputs.Generators, 3)
	assert.Equal(t, 2000.0, res.Inputs.Generators[1].SpurCapex)
	assert.False(t, res.Inputs.Generators[2].CountsTowardRequirement())

	assert.Equal(t, []float64{2, 3}, res.Inputs.Demand.Weights)
	assert.Equal(t, []float64{100, 200}, res.Inputs.Demand.Load[1])
	assert.Equal(t, 5.0, res.Inputs.Settings.RPSAdjustment)
	assert.Equal(t, 0.0, res.Inputs.Settings.CESAdjustment)
}

func TestLoadCaseSubWeights(t *testing.T) {
	l := testLoader(t)
	fixture := twoZoneCase()
	fixture.SubWeights = true
	dir := genxtest.Write(t, t.TempDir(), fixture)
	c, err := model.ParseCase(dir)
	require.NoError(t, err)

	res, err := l.LoadCase(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 2.5}, res.Inputs.Demand.Weights)
}

func TestLoadCaseWithoutPolicyPrices(t *testing.T) {
	l := testLoader(t)
	fixture := twoZoneCase()
	fixture.NoPolicyPrices = true
	dir := genxtest.Write(t, t.TempDir(), fixture)
	c, err := model.ParseCase(dir)
	require.NoError(t, err)

	res, err := l.LoadCase(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, res.Prices)
}

func TestLoadCaseMissingColumn(t *testing.T) {
	l := testLoader(t)
	dir := genxtest.Write(t, t.TempDir(), twoZoneCase())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Results", "capacity.csv"),
		[]byte("Resource,Zone,StartCap,RetCap,EndCap\nNorth_coal_1,1,500,200,300\n"), 0o644))
	c, err := model.ParseCase(dir)
	require.NoError(t, err)

	_, err = l.LoadCase(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSchemaViolation))
	var se *model.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "NewCap", se.Field)
}

func TestLoadCaseUnmappedZone(t *testing.T) {
	l := testLoader(t)
	fixture := twoZoneCase()
	fixture.Resources[0].Zone = 9
	dir := genxtest.Write(t, t.TempDir(), fixture)
	c, err := model.ParseCase(dir)
	require.NoError(t, err)

	_, err = l.LoadCase(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnmappedZone))
}

func TestLoadCaseClassificationConflict(t *testing.T) {
	l := testLoader(t)
	fixture := twoZoneCase()
	fixture.Resources[0].Name = "North_solar_battery"
	dir := genxtest.Write(t, t.TempDir(), fixture)
	c, err := model.ParseCase(dir)
	require.NoError(t, err)

	_, err = l.LoadCase(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrResourceClassificationConflict))
}

func TestLoadCaseMisalignedGenerators(t *testing.T) {
	l := testLoader(t)
	dir := genxtest.Write(t, t.TempDir(), twoZoneCase())
	path := filepath.Join(dir, "Inputs", "Generators_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Resource,R_ID,zone,RPS,CES,STOR,DR\n"+
			"South_utilitypv_1,1,1,0,0,0,0\n"+
			"North_coal_1,2,2,1,1,0,0\n"+
			"South_ev_load_shifting,3,2,0,0,0,1\n"), 0o644))
	c, err := model.ParseCase(dir)
	require.NoError(t, err)

	_, err = l.LoadCase(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSchemaViolation))
}

func TestLoadCaseCanceled(t *testing.T) {
	l := testLoader(t)
	dir := genxtest.Write(t, t.TempDir(), twoZoneCase())
	c, err := model.ParseCase(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.LoadCase(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveFileIgnoresCase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Power.csv"), []byte("x\n"), 0o644))
	path, err := ResolveFile(dir, "power.csv")
	require.NoError(t, err)
	assert.Equal(t, "Power.csv", filepath.Base(path))
}

func TestParseValue(t *testing.T) {
	v, ok := parseValue("-")
	assert.True(t, ok)
	assert.True(t, math.IsNaN(v))
	v, ok = parseValue(" 12.5 ")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)
	_, ok = parseValue("abc")
	assert.False(t, ok)
}
