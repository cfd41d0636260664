package attribution

import (
	"testing"

	"genx-compile/internal/loader"
	"genx-compile/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(steps []string, cols map[string][]float64) *model.TimeSeries {
	names := make([]string, 0, len(cols))
	for c := range cols {
		names = append(names, c)
	}
	ts := model.NewTimeSeries(steps, names)
	for c, vals := range cols {
		for i, v := range vals {
			ts.Set(c, i, v)
		}
	}
	return ts
}

func twoLineNetwork() model.Network {
	return model.Network{
		Lines: []model.NetworkLine{
			{Line: 1, PathName: "A to B", Directions: map[int]float64{1: 1, 2: -1}},
			{Line: 2, PathName: "C to A", Directions: map[int]float64{1: -1, 3: 1}},
		},
		Zones: map[int]model.ZonePolicy{
			1: {Zone: 1, RPS: 0.5, CES: 0.8},
		},
	}
}

func TestImportExportTwoLines(t *testing.T) {
	steps := []string{"t1"}
	flow := series(steps, map[string][]float64{"1": {-5}, "2": {-5}})
	prices := series(steps, map[string][]float64{"1": {20}})

	trade := ImportExport(1, twoLineNetwork(), flow, prices)

	assert.Equal(t, 100.0, trade.ImportCosts)
	assert.Equal(t, -100.0, trade.ExportRevenues)
	assert.Equal(t, 0.0, trade.Net())
}

func TestImportExportZeroFlow(t *testing.T) {
	steps := []string{"t1", "t2", "t3"}
	flow := series(steps, map[string][]float64{"1": {0, 0, 0}, "2": {0, 0, 0}})
	prices := series(steps, map[string][]float64{"1": {20, 50, 80}})

	trade := ImportExport(1, twoLineNetwork(), flow, prices)

	assert.Equal(t, Trade{}, trade)
	assert.Zero(t, model.WholeDollars(trade.Net()))
}

func TestImportExportSkipsMissingPrice(t *testing.T) {
	flow := series([]string{"t1", "t2", "Sum"}, map[string][]float64{"1": {-1, -2, -3}})
	prices := series([]string{"t1", "t2"}, map[string][]float64{"1": {10, 10}})

	trade := ImportExport(1, twoLineNetwork(), flow, prices)

	assert.Equal(t, 30.0, trade.ImportCosts)
	assert.Equal(t, 0.0, trade.ExportRevenues)
}

func TestImportExportNetSeller(t *testing.T) {
	flow := series([]string{"t1"}, map[string][]float64{"1": {10}})
	prices := series([]string{"t1"}, map[string][]float64{"1": {20}})

	trade := ImportExport(1, twoLineNetwork(), flow, prices)

	assert.Equal(t, 0.0, trade.ImportCosts)
	assert.Equal(t, -200.0, trade.ExportRevenues)
}

func policyInputs() ([]model.Generator, []model.PowerColumn) {
	gens := []model.Generator{
		{RID: 1, Zone: 1, RPS: 1, CES: 1},
		{RID: 2, Zone: 1, RPS: 0, CES: 1},
		{RID: 3, Zone: 1, RPS: 0.5, CES: 0.5, STOR: 1},
		{RID: 4, Zone: 2, RPS: 1, CES: 1},
	}
	power := []model.PowerColumn{
		{Position: 0, Zone: 1, Sum: 400},
		{Position: 1, Zone: 1, Sum: 600},
		{Position: 2, Zone: 1, Sum: 100},
		{Position: 3, Zone: 2, Sum: 900},
	}
	return gens, power
}

func TestObligations(t *testing.T) {
	gens, power := policyInputs()
	rps, ces := Obligations(1, gens, power, twoLineNetwork(), model.Settings{RPSAdjustment: 50, CESAdjustment: 20})

	assert.Equal(t, 450.0, rps.Credits)
	assert.Equal(t, 1000.0, rps.Qualifying)
	assert.Equal(t, 450.0, rps.Requirement)
	assert.Equal(t, 0.0, rps.Shortfall())

	assert.Equal(t, 1050.0, ces.Credits)
	assert.Equal(t, 780.0, ces.Requirement)
	assert.Equal(t, -270.0, ces.Shortfall())
}

func TestPolicyShortfallFullCoverageIsZero(t *testing.T) {
	gens, power := policyInputs()
	prices := []model.PolicyPrice{{Zone: 1, RPSPrice: 35, CESPrice: 10}}

	got := PolicyShortfall(1, gens, power, twoLineNetwork(), model.Settings{RPSAdjustment: 50, CESAdjustment: 20}, prices)

	assert.Equal(t, 0.0, got.RPSCosts)
	assert.Equal(t, -2700.0, got.CESCosts)
}

func TestPolicyShortfallNoPrices(t *testing.T) {
	gens, power := policyInputs()
	got := PolicyShortfall(1, gens, power, twoLineNetwork(), model.Settings{}, nil)
	assert.Equal(t, Policy{}, got)
}

func TestAttributeTruncates(t *testing.T) {
	steps := []string{"t1"}
	gens, power := policyInputs()
	res := &loader.CaseResults{
		Case:      model.Case{ID: "p1", Label: "No Policy"},
		Power:     power,
		Prices:    []model.PolicyPrice{{Zone: 1, RPSPrice: 0.75, CESPrice: 0}},
		Flow:      series(steps, map[string][]float64{"1": {-1.5}, "2": {-1.5}}),
		ZonePrice: series(steps, map[string][]float64{"1": {1.5}}),
		Inputs: model.CaseInputs{
			Network:    twoLineNetwork(),
			Generators: gens,
			Settings:   model.Settings{RPSAdjustment: 49, CESAdjustment: 20},
		},
	}

	rec := Attribute(2030, 1, "North", res)

	assert.Equal(t, 2030, rec.Year)
	assert.Equal(t, "No Policy", rec.Case)
	assert.Equal(t, int64(2), rec.ImportCosts)
	assert.Equal(t, int64(-2), rec.ExportRevenues)
	assert.Equal(t, int64(0), rec.NetTradeCosts)
	assert.Equal(t, int64(0), rec.RPSCosts)
	assert.Equal(t, rec.NetTradeCosts+rec.RPSCosts+rec.CESCosts, rec.TotalExtraCosts())
}

func TestRegions(t *testing.T) {
	zones, err := model.NewZoneMap(map[int]string{1: "North", 2: "South"})
	require.NoError(t, err)
	gens, power := policyInputs()
	res := &loader.CaseResults{
		Case:   model.Case{Label: "A"},
		Power:  power,
		Inputs: model.CaseInputs{Network: twoLineNetwork(), Generators: gens},
	}

	declared, err := Regions(2030, zones, nil, []*loader.CaseResults{res})
	require.NoError(t, err)
	require.Len(t, declared, 1)
	assert.Equal(t, "North", declared[0].Region)

	other := *res
	other.Case = model.Case{Label: "B"}
	other.Inputs.Network.Zones = map[int]model.ZonePolicy{1: {Zone: 1}, 2: {Zone: 2}}
	both, err := Regions(2030, zones, nil, []*loader.CaseResults{res, &other})
	require.NoError(t, err)
	require.Len(t, both, 3)
	assert.Equal(t, []string{"A", "B", "B"}, []string{both[0].Case, both[1].Case, both[2].Case})
	assert.Equal(t, "South", both[2].Region)

	one, err := Regions(2030, zones, []string{"South"}, []*loader.CaseResults{res})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "South", one[0].Region)

	_, err = Regions(2030, zones, []string{"Nowhere"}, []*loader.CaseResults{res})
	assert.ErrorIs(t, err, model.ErrUnmappedZone)
}
