package chain

import (
	"math"

	"genx-compile/internal/model"

	"github.com/shopspring/decimal"
)

// SpurLines prices the spur line behind each resource's new capacity.
// Generators are matched to capacity rows by R_ID.
func SpurLines(c model.Case, capacity []model.CapacityRecord, gens []model.Generator, wacc float64, years int) []model.SpurLineRecord {
	byRID := make(map[int]model.Generator, len(gens))
	for _, g := range gens {
		byRID[g.RID] = g
	}
	out := make([]model.SpurLineRecord, 0, len(capacity))
	for _, r := range capacity {
		if r.Category == "" {
			continue
		}
		newCap := r.Values[model.NewCapacity]
		g := byRID[r.RID]
		capex := newCap * g.SpurCapex
		out = append(out, model.SpurLineRecord{
			Case:           c.Label,
			Region:         r.Region,
			Category:       r.Category,
			Resource:       r.Resource,
			RID:            r.RID,
			NewCapacity:    newCap,
			MWMiles:        newCap * g.SpurMiles,
			Capex:          capex,
			InvestmentCost: model.InvestmentCost(capex, wacc, years),
		})
	}
	return out
}

// EnergyCosts divides total cost by total demand at region and system level,
// rounded to cents. Regions without demand are left out.
func EnergyCosts(regions []model.CostRecord, totals []model.TotalCostRecord, demand []model.DemandRecord) (region, total []model.EnergyCostRecord) {
	type key struct{ c, r string }
	regionDemand := map[key]float64{}
	caseDemand := map[string]float64{}
	for _, d := range demand {
		if math.IsNaN(d.TotalDemand) {
			continue
		}
		regionDemand[key{d.Case, d.Region}] += d.TotalDemand
		caseDemand[d.Case] += d.TotalDemand
	}
	for _, r := range regions {
		d, ok := regionDemand[key{r.Case, r.Region}]
		if !ok {
			continue
		}
		region = append(region, energyCost(r.Case, r.Region, r.Total(), d))
	}
	for _, t := range totals {
		d, ok := caseDemand[t.Case]
		if !ok {
			continue
		}
		total = append(total, energyCost(t.Case, "", t.Total(), d))
	}
	return region, total
}

func energyCost(c, region string, cost, demand float64) model.EnergyCostRecord {
	rec := model.EnergyCostRecord{Case: c, Region: region, TotalCost: cost, TotalDemand: demand, CostPerMWh: math.NaN()}
	if demand != 0 {
		rec.CostPerMWh = decimal.NewFromFloat(cost / demand).RoundBank(2).InexactFloat64()
	}
	return rec
}

// Demand weights each zone's load profile by timestep duration.
func Demand(c model.Case, zones model.ZoneMap, d model.DemandInputs) ([]model.DemandRecord, error) {
	out := make([]model.DemandRecord, 0, len(d.Load))
	for _, z := range zones.Zones() {
		load, ok := d.Load[z]
		if !ok {
			continue
		}
		region, err := zones.Region(z)
		if err != nil {
			return nil, err
		}
		total := 0.0
		for i, v := range load {
			if i < len(d.Weights) {
				total += v * d.Weights[i]
			}
		}
		out = append(out, model.DemandRecord{Case: c.Label, Region: region, TotalDemand: total})
	}
	return out, nil
}
