package compile

import (
	"math"
	"sort"
	"strconv"

	"genx-compile/internal/loader"
	"genx-compile/internal/model"
)

// Column names of the long tables.
const (
	colSum           = "Sum"
	colNewTrans      = "New_Trans_Capacity"
	colCostTrans     = "Cost_Trans_Capacity"
	colRPSPrice      = "RPS_Price"
	colCESPrice      = "CES_Price"
	colTotalDemand   = "Total Demand"
	colMTCO2         = "MT CO2"
	colNewCapacity   = "New Capacity"
	colSpurMWMiles   = "Spur Line MW-Miles"
	colSpurCapex     = "Spur Line Capex"
	colSpurInvCost   = "Spur Line Inv Cost"
	colPrevSpur      = "prev_period_spur_line"
	colPrevTrans     = "prev_period_transmission"
	colCurrentTrans  = "current_period_transmission"
	colImportCosts   = "Import Costs"
	colExportRevenue = "Export Revenues"
	colNetTrade      = "Net Trade Costs"
	colRPSCosts      = "RPS Costs"
	colCESCosts      = "CES Costs"
	colExtraCosts    = "Total Extra Costs"
	colTotalCost     = "Total Cost"
	colCTotal        = "cTotal"
	colCostPerMWh    = "Total Cost ($/MWh)"
)

const (
	idxRegion   = "Region"
	idxResource = "Resource Name"
	idxCategory = "Category"
	idxCase     = "Case"
	idxPath     = "Path Name"
	idxLabel    = "Resource"
	idxRID      = "R_ID"
)

// capacityFrame sums each measure by region and category. Excluded
// resources are left out.
func capacityFrame(res *loader.CaseResults) *model.Table {
	var measures []string
	present := map[string]bool{}
	for _, r := range res.Capacity {
		for name := range r.Values {
			present[name] = true
		}
	}
	for _, m := range model.CapacityMeasures {
		if present[m.Name] {
			measures = append(measures, m.Name)
		}
	}
	t := model.NewTable(res.Case.Label, []string{idxRegion, idxResource}, measures)
	for _, r := range res.Capacity {
		if r.Category == "" {
			continue
		}
		for _, m := range measures {
			_ = t.Add(m, r.Values[m], r.Region, string(r.Category))
		}
	}
	return t
}

func energyFrame(res *loader.CaseResults) *model.Table {
	t := model.NewTable(res.Case.Label, []string{idxRegion, idxResource}, []string{colSum})
	for _, p := range res.Power {
		if p.Category == "" {
			continue
		}
		_ = t.Add(colSum, p.Sum, p.Region, string(p.Category))
	}
	return t
}

func emissionsFrame(res *loader.CaseResults) *model.Table {
	t := model.NewTable(res.Case.Label, []string{idxRegion}, []string{colSum})
	for _, e := range res.Emissions {
		_ = t.Add(colSum, e.Sum, e.Region)
	}
	return t
}

func pricesFrame(res *loader.CaseResults) *model.Table {
	t := model.NewTable(res.Case.Label, []string{idxRegion}, []string{colRPSPrice, colCESPrice})
	for _, p := range res.Prices {
		_ = t.Set(colRPSPrice, p.RPSPrice, p.Region)
		_ = t.Set(colCESPrice, p.CESPrice, p.Region)
	}
	return t
}

// networkFrame names each expanded line by its path. Lines missing from
// Network.csv keep their number.
func networkFrame(res *loader.CaseResults) *model.Table {
	names := res.Inputs.Network.PathNames()
	t := model.NewTable(res.Case.Label, []string{idxPath}, []string{colNewTrans, colCostTrans})
	for _, e := range res.Expansion {
		name, ok := names[e.Line]
		if !ok || name == "" {
			name = strconv.Itoa(e.Line)
		}
		_ = t.Add(colNewTrans, e.NewCapacity, name)
		_ = t.Add(colCostTrans, e.Cost, name)
	}
	return t
}

func transmissionCost(res *loader.CaseResults) float64 {
	total := 0.0
	for _, e := range res.Expansion {
		if !math.IsNaN(e.Cost) {
			total += e.Cost
		}
	}
	return total
}

func spurFrame(label string, records []model.SpurLineRecord) *model.Table {
	t := model.NewTable(label, []string{idxRegion, idxResource, idxLabel, idxRID},
		[]string{colNewCapacity, colSpurMWMiles, colSpurCapex, colSpurInvCost})
	for _, s := range records {
		key := []string{s.Region, string(s.Category), s.Resource, strconv.Itoa(s.RID)}
		_ = t.Set(colNewCapacity, s.NewCapacity, key...)
		_ = t.Set(colSpurMWMiles, s.MWMiles, key...)
		_ = t.Set(colSpurCapex, s.Capex, key...)
		_ = t.Set(colSpurInvCost, s.InvestmentCost, key...)
	}
	return t
}

func demandFrame(label string, records []model.DemandRecord) *model.Table {
	t := model.NewTable(label, []string{idxRegion}, []string{colTotalDemand})
	for _, d := range records {
		_ = t.Add(colTotalDemand, d.TotalDemand, d.Region)
	}
	return t
}

// regionCostComponents are the region cost columns that add up to Total Cost.
var regionCostComponents = []string{
	model.CostFix, model.CostVar, model.CostNSE, model.CostStart,
	colPrevSpur, colPrevTrans, colExtraCosts,
}

// regionCostTable lays out finalized region costs, one row per case and
// region, with the attributed extras beside the solver components.
func regionCostTable(order []string, costs []model.CostRecord, extras []model.TradeAttributionRecord) *model.Table {
	t := model.NewTable(MetricCosts, []string{idxCase, idxRegion}, []string{
		model.CostFix, model.CostVar, model.CostNSE, model.CostStart,
		colPrevSpur, colPrevTrans,
		colImportCosts, colExportRevenue, colNetTrade, colRPSCosts, colCESCosts, colExtraCosts,
		colTotalCost,
	})
	type key struct{ c, r string }
	byKey := map[key]model.TradeAttributionRecord{}
	for _, e := range extras {
		k := key{e.Case, e.Region}
		acc := byKey[k]
		acc.ImportCosts += e.ImportCosts
		acc.ExportRevenues += e.ExportRevenues
		acc.NetTradeCosts += e.NetTradeCosts
		acc.RPSCosts += e.RPSCosts
		acc.CESCosts += e.CESCosts
		byKey[k] = acc
	}
	rank := rankOf(order)
	sorted := append([]model.CostRecord(nil), costs...)
	sort.SliceStable(sorted, func(i, j int) bool { return rank[sorted[i].Case] < rank[sorted[j].Case] })
	for _, c := range sorted {
		k := []string{c.Case, c.Region}
		e := byKey[key{c.Case, c.Region}]
		_ = t.Set(model.CostFix, c.Fix, k...)
		_ = t.Set(model.CostVar, c.Var, k...)
		_ = t.Set(model.CostNSE, c.NSE, k...)
		_ = t.Set(model.CostStart, c.Start, k...)
		_ = t.Set(colPrevSpur, c.PrevSpurLine, k...)
		_ = t.Set(colPrevTrans, c.PrevTransmission, k...)
		_ = t.Set(colImportCosts, float64(e.ImportCosts), k...)
		_ = t.Set(colExportRevenue, float64(e.ExportRevenues), k...)
		_ = t.Set(colNetTrade, float64(e.NetTradeCosts), k...)
		_ = t.Set(colRPSCosts, float64(e.RPSCosts), k...)
		_ = t.Set(colCESCosts, float64(e.CESCosts), k...)
		_ = t.Set(colExtraCosts, c.ExtraCosts, k...)
		_ = t.Set(colTotalCost, c.Total(), k...)
	}
	return t
}

func totalCostTable(order []string, costs []model.TotalCostRecord) *model.Table {
	t := model.NewTable(MetricCosts, []string{idxCase}, []string{
		model.CostFix, model.CostVar, model.CostNSE, model.CostStart,
		colPrevSpur, colPrevTrans, colCurrentTrans, colCTotal,
	})
	rank := rankOf(order)
	sorted := append([]model.TotalCostRecord(nil), costs...)
	sort.SliceStable(sorted, func(i, j int) bool { return rank[sorted[i].Case] < rank[sorted[j].Case] })
	for _, c := range sorted {
		_ = t.Set(model.CostFix, c.Fix, c.Case)
		_ = t.Set(model.CostVar, c.Var, c.Case)
		_ = t.Set(model.CostNSE, c.NSE, c.Case)
		_ = t.Set(model.CostStart, c.Start, c.Case)
		_ = t.Set(colPrevSpur, c.PrevSpurLine, c.Case)
		_ = t.Set(colPrevTrans, c.PrevTransmission, c.Case)
		_ = t.Set(colCurrentTrans, c.CurrentTransmission, c.Case)
		_ = t.Set(colCTotal, c.Total(), c.Case)
	}
	return t
}

func energyCostTable(index []string, records []model.EnergyCostRecord) *model.Table {
	t := model.NewTable(MetricEnergyCost, index, []string{colTotalCost, colTotalDemand, colCostPerMWh})
	for _, r := range records {
		key := []string{r.Case}
		if len(index) == 2 {
			key = append(key, r.Region)
		}
		_ = t.Set(colTotalCost, r.TotalCost, key...)
		_ = t.Set(colTotalDemand, r.TotalDemand, key...)
		_ = t.Set(colCostPerMWh, r.CostPerMWh, key...)
	}
	return t
}

// emissionsTotal sums each case column into one "MT CO2" row per case.
func emissionsTotal(order []string, regional *model.Table) *model.Table {
	t := model.NewTable(MetricEmissions, []string{idxCase}, []string{colMTCO2})
	for _, c := range order {
		_ = t.Set(colMTCO2, regional.ColumnSum(c), c)
	}
	return t
}

func rankOf(order []string) map[string]int {
	out := make(map[string]int, len(order))
	for i, c := range order {
		out[c] = i
	}
	return out
}
