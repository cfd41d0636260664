package compile

import (
	"time"

	"genx-compile/internal/chain"
	"genx-compile/internal/model"
)

// Metric names; each becomes one sheet per period.
const (
	MetricCapacity   = "capacity"
	MetricEnergy     = "energy"
	MetricEmissions  = "emissions"
	MetricNetwork    = "network"
	MetricSpurLine   = "spur_line"
	MetricCosts      = "costs"
	MetricPrices     = "rps_ces_prices"
	MetricDemand     = "demand"
	MetricEnergyCost = "energy_cost"
)

// Levels of a compiled bundle.
const (
	LevelRegion = "region"
	LevelTotal  = "total"
)

// Bundle is an ordered set of metric tables.
type Bundle struct {
	Metrics []string
	Tables  map[string]*model.Table
}

func newBundle() Bundle {
	return Bundle{Tables: map[string]*model.Table{}}
}

func (b *Bundle) put(metric string, t *model.Table) {
	if _, ok := b.Tables[metric]; !ok {
		b.Metrics = append(b.Metrics, metric)
	}
	t.Name = metric
	b.Tables[metric] = t
}

// Table returns the table for metric.
func (b Bundle) Table(metric string) (*model.Table, bool) {
	t, ok := b.Tables[metric]
	return t, ok
}

// PeriodResult is one compiled planning year.
type PeriodResult struct {
	Year         int
	Cases        []model.Case
	Region       Bundle
	Total        Bundle
	Costs        []model.CostRecord
	TotalCosts   []model.TotalCostRecord
	EnergyCosts  []model.EnergyCostRecord
	Attribution  []model.TradeAttributionRecord
	CarryForward chain.CarryForward
}

// Level returns the bundle for a level name.
func (p *PeriodResult) Level(level string) (Bundle, bool) {
	switch level {
	case LevelRegion:
		return p.Region, true
	case LevelTotal:
		return p.Total, true
	}
	return Bundle{}, false
}

// Result is a whole compilation run.
type Result struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Root        string
	Periods     []PeriodResult
	Attribution []model.TradeAttributionRecord
}

// Period returns the compiled year.
func (r *Result) Period(year int) (*PeriodResult, bool) {
	for i := range r.Periods {
		if r.Periods[i].Year == year {
			return &r.Periods[i], true
		}
	}
	return nil, false
}

// Years lists the compiled periods in order.
func (r *Result) Years() []int {
	out := make([]int, len(r.Periods))
	for i, p := range r.Periods {
		out[i] = p.Year
	}
	return out
}
