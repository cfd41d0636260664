// Package chain finalizes a period's costs from its own results plus the
// capital costs carried forward from the preceding period.
package chain

import (
	"log/slog"
	"math"
	"sort"

	"genx-compile/internal/model"
)

// CaseRegion keys carried spur-line cost by case id and region.
type CaseRegion struct {
	Case   string
	Region string
}

// CarryForward is the capital cost one period hands to the next. It is a
// value: Resolve never mutates the bundle it receives.
type CarryForward struct {
	Year         int
	SpurLine     map[CaseRegion]float64
	Transmission map[string]float64
}

func (c *CarryForward) spur(caseID, region string) float64 {
	if c == nil {
		return 0
	}
	return c.SpurLine[CaseRegion{Case: caseID, Region: region}]
}

func (c *CarryForward) transmission(caseID string) float64 {
	if c == nil {
		return 0
	}
	return c.Transmission[caseID]
}

func (c *CarryForward) hasCase(caseID string) bool {
	if c == nil {
		return false
	}
	if _, ok := c.Transmission[caseID]; ok {
		return true
	}
	for k := range c.SpurLine {
		if k.Case == caseID {
			return true
		}
	}
	return false
}

// CaseCosts is one case's cost inputs for a period.
type CaseCosts struct {
	Case         model.Case
	Zones        []model.ZoneCosts
	SpurLine     []model.SpurLineRecord
	Transmission float64
	Extras       []model.TradeAttributionRecord
}

// Period is everything the resolver needs for one planning year.
type Period struct {
	Year  int
	First bool
	Cases []CaseCosts
}

// Result is a finalized period.
type Result struct {
	Year    int
	Regions []model.CostRecord
	Totals  []model.TotalCostRecord
	Next    CarryForward
}

// Resolver threads carry-forward bundles between periods.
type Resolver struct {
	// Matches maps, per year, a case id to its predecessor's id.
	Matches map[int]map[string]string
	Logger  *slog.Logger
}

func New(matches map[int]map[string]string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Matches: matches, Logger: logger}
}

// Predecessor returns the id of the case in the previous period that c
// continues.
func (r *Resolver) Predecessor(year int, c model.Case) string {
	if m, ok := r.Matches[year]; ok {
		if prev, ok := m[c.ID]; ok {
			return prev
		}
	}
	return c.ID
}

// Resolve finalizes p. prev is nil for the first period; a nil prev for a
// later period is logged as a broken chain and treated as zero.
func (r *Resolver) Resolve(p Period, prev *CarryForward) Result {
	if prev == nil && !p.First {
		r.Logger.Warn("period has no carry-forward, using zero",
			"year", p.Year,
			"error", model.ErrMissingPriorPeriod,
		)
	}

	res := Result{
		Year: p.Year,
		Next: CarryForward{
			Year:         p.Year,
			SpurLine:     map[CaseRegion]float64{},
			Transmission: map[string]float64{},
		},
	}
	for _, cc := range p.Cases {
		pred := r.Predecessor(p.Year, cc.Case)
		if prev != nil && !prev.hasCase(pred) {
			r.Logger.Warn("no predecessor case, using zero carry-forward",
				"year", p.Year,
				"case", cc.Case.Label,
				"predecessor", pred,
				"error", model.ErrMissingCaseFolder,
			)
		}

		extras := map[string]float64{}
		for _, e := range cc.Extras {
			extras[e.Region] += float64(e.TotalExtraCosts())
		}

		total := model.TotalCostRecord{
			Case:                cc.Case.Label,
			PrevTransmission:    prev.transmission(pred),
			CurrentTransmission: cc.Transmission,
		}
		for _, z := range sortedZones(cc.Zones) {
			rec := model.CostRecord{
				Case:         cc.Case.Label,
				Region:       z.Region,
				Fix:          z.Components[model.CostFix],
				Var:          z.Components[model.CostVar],
				NSE:          z.Components[model.CostNSE],
				Start:        z.Components[model.CostStart],
				PrevSpurLine: prev.spur(pred, z.Region),
				ExtraCosts:   extras[z.Region],
			}
			res.Regions = append(res.Regions, rec)
			total.Fix = model.NaNSum(total.Fix, rec.Fix)
			total.Var = model.NaNSum(total.Var, rec.Var)
			total.NSE = model.NaNSum(total.NSE, rec.NSE)
			total.Start = model.NaNSum(total.Start, rec.Start)
			total.PrevSpurLine += rec.PrevSpurLine
		}
		res.Totals = append(res.Totals, total)

		for _, s := range cc.SpurLine {
			if math.IsNaN(s.InvestmentCost) {
				continue
			}
			res.Next.SpurLine[CaseRegion{Case: cc.Case.ID, Region: s.Region}] += s.InvestmentCost
		}
		res.Next.Transmission[cc.Case.ID] = cc.Transmission
	}
	return res
}

// Chain resolves periods in order, each from its predecessor's bundle.
func (r *Resolver) Chain(periods []Period) []Result {
	out := make([]Result, 0, len(periods))
	var prev *CarryForward
	for i, p := range periods {
		p.First = i == 0
		res := r.Resolve(p, prev)
		next := res.Next
		prev = &next
		out = append(out, res)
	}
	return out
}

func sortedZones(zones []model.ZoneCosts) []model.ZoneCosts {
	out := append([]model.ZoneCosts(nil), zones...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}
