// Package attribution computes the region-specific costs the solver does not
// report: the cost of trade with neighbouring regions and the cost of
// meeting RPS/CES obligations with out-of-region credits.
package attribution

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"genx-compile/internal/loader"
	"genx-compile/internal/model"
)

// Trade is one region's import cost and export revenue for a case, before
// rounding. Export revenue is negative for a net seller.
type Trade struct {
	ImportCosts    float64
	ExportRevenues float64
}

// Net is the region's net trade cost.
func (t Trade) Net() float64 { return t.ImportCosts + t.ExportRevenues }

// ImportExport sums, over every line incident to zone, the value of the
// energy crossing the zone boundary priced at the zone's own price.
//
// For a line with direction d, timesteps where d*flow < 0 are imports and
// timesteps where d*flow > 0 are exports. Both sums use the same formula,
// -d * Σ(flow × price); the timestep filter alone gives each its sign.
// Timesteps missing a flow or a price are skipped.
func ImportExport(zone int, net model.Network, flow, prices *model.TimeSeries) Trade {
	var out Trade
	if flow == nil || prices == nil {
		return out
	}
	priceCol := strconv.Itoa(zone)
	for _, line := range net.IncidentLines(zone) {
		d := line.Directions[zone]
		lineCol := strconv.Itoa(line.Line)
		series, ok := flow.Column(lineCol)
		if !ok {
			continue
		}
		var imports, exports float64
		for i, f := range series {
			if math.IsNaN(f) {
				continue
			}
			p, ok := prices.At(priceCol, flow.Steps[i])
			if !ok || math.IsNaN(p) {
				continue
			}
			switch {
			case d*f < 0:
				imports += f * p
			case d*f > 0:
				exports += f * p
			}
		}
		out.ImportCosts += -d * imports
		out.ExportRevenues += -d * exports
	}
	return out
}

// Policy is one region's RPS and CES shortfall cost for a case, before
// rounding. Negative values are over-delivery credits.
type Policy struct {
	RPSCosts float64
	CESCosts float64
}

// Obligation is the intermediate state of a shortfall calculation.
type Obligation struct {
	Credits     float64
	Qualifying  float64
	Requirement float64
}

// Shortfall is requirement minus in-region credits.
func (o Obligation) Shortfall() float64 { return o.Requirement - o.Credits }

// Obligations computes the RPS and CES credit balance of zone.
//
// generators and power are aligned by position. Credits are each in-zone
// resource's weighted generation times its eligibility fraction. The
// requirement base counts in-zone generation that is not storage, demand
// response or heating electrification.
func Obligations(zone int, gens []model.Generator, power []model.PowerColumn, net model.Network, settings model.Settings) (rps, ces Obligation) {
	for i, g := range gens {
		if g.Zone != zone || i >= len(power) {
			continue
		}
		gen := power[i].Sum
		if math.IsNaN(gen) {
			continue
		}
		rps.Credits += gen * g.RPS
		ces.Credits += gen * g.CES
		if g.CountsTowardRequirement() {
			rps.Qualifying += gen
			ces.Qualifying += gen
		}
	}
	zp := net.Zones[zone]
	rps.Requirement = zp.RPS*rps.Qualifying - settings.RPSAdjustment
	ces.Requirement = zp.CES*ces.Qualifying - settings.CESAdjustment
	return rps, ces
}

// PolicyShortfall prices the RPS/CES shortfalls at the zone's clearing
// prices. A zone without prices costs nothing.
func PolicyShortfall(zone int, gens []model.Generator, power []model.PowerColumn, net model.Network, settings model.Settings, prices []model.PolicyPrice) Policy {
	rps, ces := Obligations(zone, gens, power, net, settings)
	var rpsPrice, cesPrice float64
	for _, p := range prices {
		if p.Zone == zone {
			rpsPrice, cesPrice = p.RPSPrice, p.CESPrice
			break
		}
	}
	out := Policy{
		RPSCosts: rps.Shortfall() * rpsPrice,
		CESCosts: ces.Shortfall() * cesPrice,
	}
	if math.IsNaN(out.RPSCosts) {
		out.RPSCosts = 0
	}
	if math.IsNaN(out.CESCosts) {
		out.CESCosts = 0
	}
	return out
}

// Attribute builds the whole-dollar attribution record for one region of a
// loaded case. Net trade cost is truncated from the unrounded sum.
func Attribute(year, zone int, region string, res *loader.CaseResults) model.TradeAttributionRecord {
	in := res.Inputs
	trade := ImportExport(zone, in.Network, res.Flow, res.ZonePrice)
	policy := PolicyShortfall(zone, in.Generators, res.Power, in.Network, in.Settings, res.Prices)
	return model.TradeAttributionRecord{
		Year:           year,
		Case:           res.Case.Label,
		Region:         region,
		ImportCosts:    model.WholeDollars(trade.ImportCosts),
		ExportRevenues: model.WholeDollars(trade.ExportRevenues),
		NetTradeCosts:  model.WholeDollars(trade.Net()),
		RPSCosts:       model.WholeDollars(policy.RPSCosts),
		CESCosts:       model.WholeDollars(policy.CESCosts),
	}
}

// Regions attributes every requested region of every case. An empty
// regions list means the zones each case declares in its Network.csv.
func Regions(year int, zones model.ZoneMap, regions []string, cases []*loader.CaseResults) ([]model.TradeAttributionRecord, error) {
	explicit := len(regions) > 0
	var ids []int
	if explicit {
		ids = make([]int, 0, len(regions))
		for _, r := range regions {
			z, ok := zones.Zone(r)
			if !ok {
				return nil, fmt.Errorf("attribution region %q: %w", r, model.ErrUnmappedZone)
			}
			ids = append(ids, z)
		}
	} else {
		seen := map[int]bool{}
		for _, c := range cases {
			for z := range c.Inputs.Network.Zones {
				if !seen[z] {
					seen[z] = true
					ids = append(ids, z)
				}
			}
		}
		sort.Ints(ids)
	}
	out := make([]model.TradeAttributionRecord, 0, len(ids)*len(cases))
	for _, z := range ids {
		region, err := zones.Region(z)
		if err != nil {
			return nil, err
		}
		for _, c := range cases {
			if _, ok := c.Inputs.Network.Zones[z]; !explicit && !ok {
				continue
			}
			out = append(out, Attribute(year, z, region, c))
		}
	}
	return out, nil
}
