package chain

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"testing"

	"genx-compile/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietResolver(matches map[int]map[string]string) *Resolver {
	return New(matches, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func zoneCosts(region string, fix, vr, nse, start float64) model.ZoneCosts {
	return model.ZoneCosts{
		Region: region,
		Components: map[string]float64{
			model.CostFix:   fix,
			model.CostVar:   vr,
			model.CostNSE:   nse,
			model.CostStart: start,
		},
	}
}

func period(year int, ids ...string) Period {
	p := Period{Year: year}
	for i, id := range ids {
		c := model.Case{ID: id, Year: year, Label: "Case " + id}
		p.Cases = append(p.Cases, CaseCosts{
			Case:         c,
			Zones:        []model.ZoneCosts{zoneCosts("North", 10, 20, 0, 1), zoneCosts("South", 5, math.NaN(), 2, 0)},
			SpurLine:     []model.SpurLineRecord{{Case: c.Label, Region: "North", InvestmentCost: float64(100 * (i + 1))}},
			Transmission: float64(1000 * (i + 1)),
			Extras:       []model.TradeAttributionRecord{{Region: "South", NetTradeCosts: 7, RPSCosts: 3, CESCosts: -1}},
		})
	}
	return p
}

func TestFirstPeriodHasZeroCarryForward(t *testing.T) {
	res := quietResolver(nil).Chain([]Period{period(2030, "p1", "p2")})
	require.Len(t, res, 1)
	for _, r := range res[0].Regions {
		assert.Zero(t, r.PrevSpurLine)
		assert.Zero(t, r.PrevTransmission)
	}
	for _, tot := range res[0].Totals {
		assert.Zero(t, tot.PrevSpurLine)
		assert.Zero(t, tot.PrevTransmission)
	}
}

func TestCarryForwardMatchesPreviousPeriod(t *testing.T) {
	res := quietResolver(nil).Chain([]Period{period(2030, "p1", "p2"), period(2045, "p1", "p2")})
	require.Len(t, res, 2)

	current := map[string]float64{}
	for _, tot := range res[0].Totals {
		current[tot.Case] = tot.CurrentTransmission
	}
	for _, tot := range res[1].Totals {
		assert.Equal(t, current[tot.Case], tot.PrevTransmission, tot.Case)
	}

	for _, r := range res[1].Regions {
		switch {
		case r.Case == "Case p2" && r.Region == "North":
			assert.Equal(t, 200.0, r.PrevSpurLine)
		case r.Region == "North":
			assert.Equal(t, 100.0, r.PrevSpurLine)
		default:
			assert.Zero(t, r.PrevSpurLine)
		}
	}
}

func TestPeriodMatchesOverrideCorrespondence(t *testing.T) {
	r := quietResolver(map[int]map[string]string{2045: {"p3": "p1"}})
	res := r.Chain([]Period{period(2030, "p1"), period(2045, "p3")})
	require.Len(t, res[1].Totals, 1)
	assert.Equal(t, 1000.0, res[1].Totals[0].PrevTransmission)
}

func TestMissingPredecessorIsLoggedAndZero(t *testing.T) {
	var buf bytes.Buffer
	r := New(nil, slog.New(slog.NewTextHandler(&buf, nil)))
	res := r.Chain([]Period{period(2030, "p1"), period(2045, "p9")})

	assert.Zero(t, res[1].Totals[0].PrevTransmission)
	assert.Contains(t, buf.String(), model.ErrMissingCaseFolder.Error())
}

func TestMissingPriorPeriodIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := New(nil, slog.New(slog.NewTextHandler(&buf, nil)))
	res := r.Resolve(period(2045, "p1"), nil)

	assert.Zero(t, res.Totals[0].PrevTransmission)
	assert.Contains(t, buf.String(), model.ErrMissingPriorPeriod.Error())
}

func TestTotalsEqualComponentSums(t *testing.T) {
	res := quietResolver(nil).Chain([]Period{period(2030, "p1", "p2"), period(2045, "p1", "p2")})
	for _, pr := range res {
		for _, r := range pr.Regions {
			want := model.NaNSum(r.Fix, r.Var, r.NSE, r.Start, r.PrevSpurLine, r.PrevTransmission, r.ExtraCosts)
			assert.Equal(t, want, r.Total())
		}
		for _, tot := range pr.Totals {
			want := model.NaNSum(tot.Fix, tot.Var, tot.NSE, tot.Start, tot.PrevSpurLine, tot.PrevTransmission, tot.CurrentTransmission)
			assert.Equal(t, want, tot.Total())
		}
	}

	south := res[0].Regions[1]
	require.Equal(t, "South", south.Region)
	assert.Equal(t, 9.0, south.ExtraCosts)
	assert.Equal(t, 16.0, south.Total())

	tot := res[0].Totals[0]
	assert.Equal(t, 15.0, tot.Fix)
	assert.Equal(t, 20.0, tot.Var)
	assert.Equal(t, 15.0+20+2+1+1000, tot.Total())
}

func TestResolveDoesNotMutateCarryForward(t *testing.T) {
	prev := &CarryForward{
		Year:         2030,
		SpurLine:     map[CaseRegion]float64{{Case: "p1", Region: "North"}: 5},
		Transmission: map[string]float64{"p1": 9},
	}
	quietResolver(nil).Resolve(period(2045, "p1"), prev)
	assert.Equal(t, 5.0, prev.SpurLine[CaseRegion{Case: "p1", Region: "North"}])
	assert.Equal(t, 9.0, prev.Transmission["p1"])
	assert.Len(t, prev.SpurLine, 1)
}

func capacityTable(t *testing.T) (*model.Table, []model.Case) {
	t.Helper()
	cases := []model.Case{
		{ID: "p1", Label: "No Policy"},
		{ID: "p2", Label: "Coal Phaseout"},
		{ID: "p3", Label: "RPS only"},
	}
	tbl := model.NewTable("capacity", []string{"Region", "Category", "Resource Name"}, model.CaseLabels(cases))
	set := func(c string, v float64, key ...string) { require.NoError(t, tbl.Set(c, v, key...)) }
	set("No Policy", 500, "North", model.StartCapacity, "Coal")
	set("No Policy", -100, "North", model.RetiredCapacity, "Coal")
	set("Coal Phaseout", 300, "North", model.StartCapacity, "Coal")
	set("Coal Phaseout", -50, "North", model.RetiredCapacity, "Coal")
	set("RPS only", 450, "North", model.StartCapacity, "Coal")
	set("No Policy", 80, "North", model.StartCapacity, "Solar")
	set("Coal Phaseout", 70, "North", model.StartCapacity, "Solar")
	return tbl, cases
}

func TestForcedRetirement(t *testing.T) {
	tbl, cases := capacityTable(t)
	rule := ForcedRetirement{Period: 2030, Baseline: "No Policy", Cases: []string{"Coal Phaseout"}, Category: model.CategoryCoal}

	require.True(t, rule.Applies(2030))
	assert.False(t, rule.Applies(2045))
	require.NoError(t, rule.Apply(tbl, cases))

	assert.Equal(t, 500.0, tbl.Value("Coal Phaseout", "North", model.StartCapacity, "Coal"))
	assert.Equal(t, -500.0, tbl.Value("Coal Phaseout", "North", model.RetiredCapacity, "Coal"))
	assert.Equal(t, 70.0, tbl.Value("Coal Phaseout", "North", model.StartCapacity, "Solar"))
	assert.Equal(t, 450.0, tbl.Value("RPS only", "North", model.StartCapacity, "Coal"))
	assert.Equal(t, -100.0, tbl.Value("No Policy", "North", model.RetiredCapacity, "Coal"))
}

func TestForcedRetirementUnknownCase(t *testing.T) {
	tbl, cases := capacityTable(t)
	rule := ForcedRetirement{Period: 2030, Baseline: "No Policy", Cases: []string{"Nope"}, Category: model.CategoryCoal}
	assert.ErrorIs(t, rule.Apply(tbl, cases), model.ErrMissingCaseFolder)
}

func TestSpurLines(t *testing.T) {
	c := model.Case{ID: "p1", Label: "No Policy"}
	capacity := []model.CapacityRecord{
		{RID: 1, Resource: "North_solar", Region: "North", Category: model.CategorySolar, Values: map[string]float64{model.NewCapacity: 100}},
		{RID: 2, Resource: "North_ev_load_shifting", Region: "North", Values: map[string]float64{model.NewCapacity: 5}},
	}
	gens := []model.Generator{{RID: 1, SpurMiles: 10, SpurCapex: 2000}, {RID: 2}}

	got := SpurLines(c, capacity, gens, 0.069, 60)

	require.Len(t, got, 1)
	assert.Equal(t, 1000.0, got[0].MWMiles)
	assert.Equal(t, 200000.0, got[0].Capex)
	assert.InDelta(t, 200000*0.069/(1-math.Pow(1.069, -60)), got[0].InvestmentCost, 1e-6)
}

func TestDemandAndEnergyCosts(t *testing.T) {
	zones, err := model.NewZoneMap(map[int]string{1: "North", 2: "South"})
	require.NoError(t, err)
	c := model.Case{ID: "p1", Label: "No Policy"}
	demand, err := Demand(c, zones, model.DemandInputs{
		Weights: []float64{2, 3},
		Load:    map[int][]float64{1: {100, 200}, 2: {50, 50}},
	})
	require.NoError(t, err)
	require.Len(t, demand, 2)
	assert.Equal(t, 800.0, demand[0].TotalDemand)
	assert.Equal(t, 250.0, demand[1].TotalDemand)

	regions := []model.CostRecord{{Case: "No Policy", Region: "North", Fix: 1000}, {Case: "No Policy", Region: "South", Fix: 100}}
	totals := []model.TotalCostRecord{{Case: "No Policy", Fix: 1100, CurrentTransmission: 5}}

	region, total := EnergyCosts(regions, totals, demand)
	require.Len(t, region, 2)
	assert.Equal(t, 1.25, region[0].CostPerMWh)
	assert.Equal(t, 0.4, region[1].CostPerMWh)
	require.Len(t, total, 1)
	assert.Equal(t, 1050.0, total[0].TotalDemand)
	assert.Equal(t, 1.05, total[0].CostPerMWh)
}
