// Package compile runs a whole compilation: it discovers planning periods
// and cases, loads every case, aligns the per-case tables, attributes
// region-specific costs and resolves the period chain.
package compile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"genx-compile/internal/align"
	"genx-compile/internal/attribution"
	"genx-compile/internal/chain"
	"genx-compile/internal/config"
	"genx-compile/internal/loader"
	"genx-compile/internal/model"
	"genx-compile/internal/observability/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Compiler holds the immutable lookups of a run.
type Compiler struct {
	cfg      *config.Config
	zones    model.ZoneMap
	loader   *loader.Loader
	resolver *chain.Resolver
	forced   chain.ForcedRetirement
	logger   *slog.Logger
}

// New validates cfg and builds a compiler.
func New(cfg *config.Config, logger *slog.Logger) (*Compiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	zones, err := cfg.ZoneMap()
	if err != nil {
		return nil, err
	}
	fr := cfg.Chain.ForcedRetirement
	return &Compiler{
		cfg:      cfg,
		zones:    zones,
		loader:   loader.New(zones, cfg.Classifier(), logger),
		resolver: chain.New(cfg.Chain.PeriodMatches, logger),
		forced: chain.ForcedRetirement{
			Period:   fr.Period,
			Baseline: fr.Baseline,
			Cases:    fr.Cases,
			Category: model.ResourceCategory(fr.Category),
		},
		logger: logger,
	}, nil
}

// Loader exposes the case loader for single-case commands.
func (c *Compiler) Loader() *loader.Loader { return c.loader }

// Resolver exposes the period chain's case matching.
func (c *Compiler) Resolver() *chain.Resolver { return c.resolver }

// Run compiles every period under the configured root in chronological
// order. Any load or schema error aborts the run.
func (c *Compiler) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Root:      c.cfg.Root,
	}
	years, err := Years(c.cfg.Root)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("no planning periods under %s", c.cfg.Root)
	}
	c.logger.Info("compilation started", "run_id", res.RunID, "root", c.cfg.Root, "periods", years)

	var prev *chain.CarryForward
	for i, year := range years {
		start := time.Now()
		p, err := c.Period(ctx, year, i == 0, prev)
		metrics.ObservePeriodCompile(metrics.Result(err), time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", year, err)
		}
		next := p.CarryForward
		prev = &next
		res.Periods = append(res.Periods, *p)
		res.Attribution = append(res.Attribution, p.Attribution...)
		c.logger.Info("period compiled", "year", year, "cases", len(p.Cases), "duration", time.Since(start))
	}
	res.FinishedAt = time.Now().UTC()
	return res, nil
}

// Period compiles one planning year given the previous period's bundle.
func (c *Compiler) Period(ctx context.Context, year int, first bool, prev *chain.CarryForward) (*PeriodResult, error) {
	found, err := Cases(c.cfg.Root, year)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no case folders for %d", year)
	}
	cases := Order(c.cfg.CaseOrder, found)
	loaded, err := c.LoadCases(ctx, cases)
	if err != nil {
		return nil, err
	}
	return c.build(year, first, cases, loaded, prev)
}

// LoadCases reads cases concurrently. Results keep the order of cases.
func (c *Compiler) LoadCases(ctx context.Context, cases []model.Case) ([]*loader.CaseResults, error) {
	out := make([]*loader.CaseResults, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.Compile.Workers > 0 {
		g.SetLimit(c.cfg.Compile.Workers)
	}
	for i, cs := range cases {
		g.Go(func() error {
			start := time.Now()
			r, err := c.loader.LoadCase(gctx, cs)
			metrics.ObserveCaseLoad(metrics.Result(err), time.Since(start))
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Compiler) build(year int, first bool, cases []model.Case, loaded []*loader.CaseResults, prev *chain.CarryForward) (*PeriodResult, error) {
	order := model.CaseLabels(cases)
	p := &PeriodResult{
		Year:   year,
		Cases:  cases,
		Region: newBundle(),
		Total:  newBundle(),
	}

	var (
		capacity, energy, emissions, prices, network, spur, demand []align.Frame
		demandRecords                                              []model.DemandRecord
		costInputs                                                 []chain.CaseCosts
	)
	for _, r := range loaded {
		label := r.Case.Label
		spurRecords := chain.SpurLines(r.Case, r.Capacity, r.Inputs.Generators, c.cfg.SpurLine.WACC, c.cfg.SpurLine.RecoveryYears)
		d, err := chain.Demand(r.Case, c.zones, r.Inputs.Demand)
		if err != nil {
			return nil, fmt.Errorf("case %s: demand: %w", label, err)
		}
		demandRecords = append(demandRecords, d...)

		capacity = append(capacity, align.Frame{Case: label, Table: capacityFrame(r)})
		energy = append(energy, align.Frame{Case: label, Table: energyFrame(r)})
		emissions = append(emissions, align.Frame{Case: label, Table: emissionsFrame(r)})
		prices = append(prices, align.Frame{Case: label, Table: pricesFrame(r)})
		network = append(network, align.Frame{Case: label, Table: networkFrame(r)})
		spur = append(spur, align.Frame{Case: label, Table: spurFrame(label, spurRecords)})
		demand = append(demand, align.Frame{Case: label, Table: demandFrame(label, d)})

		costInputs = append(costInputs, chain.CaseCosts{
			Case:         r.Case,
			Zones:        r.Costs,
			SpurLine:     spurRecords,
			Transmission: transmissionCost(r),
		})
	}

	capTable, err := align.Pivot(MetricCapacity, order, capacity, idxCategory)
	if err != nil {
		return nil, err
	}
	if c.forced.Applies(year) {
		if err := c.forced.Apply(capTable, cases); err != nil {
			if !errors.Is(err, model.ErrMissingCaseFolder) {
				return nil, err
			}
			c.logger.Warn("forced retirement skipped", "year", year, "error", err)
		}
	}
	energyTable, err := align.Column(MetricEnergy, order, energy, colSum)
	if err != nil {
		return nil, err
	}
	emissionsTable, err := align.Column(MetricEmissions, order, emissions, colSum)
	if err != nil {
		return nil, err
	}
	pricesTable, err := align.Stack(MetricPrices, order, prices)
	if err != nil {
		return nil, err
	}
	networkTable, err := align.Stack(MetricNetwork, order, network)
	if err != nil {
		return nil, err
	}
	spurTable, err := align.Stack(MetricSpurLine, order, spur)
	if err != nil {
		return nil, err
	}
	demandTable, err := align.Stack(MetricDemand, order, demand)
	if err != nil {
		return nil, err
	}

	extras, err := attribution.Regions(year, c.zones, c.cfg.Attribution.Regions, loaded)
	if err != nil {
		return nil, err
	}
	byCase := map[string][]model.TradeAttributionRecord{}
	for _, e := range extras {
		byCase[e.Case] = append(byCase[e.Case], e)
		metrics.SetExtraCost(year, e.Region, e.Case, "net_trade", e.NetTradeCosts)
		metrics.SetExtraCost(year, e.Region, e.Case, "rps", e.RPSCosts)
		metrics.SetExtraCost(year, e.Region, e.Case, "ces", e.CESCosts)
	}
	for i := range costInputs {
		costInputs[i].Extras = byCase[costInputs[i].Case.Label]
	}
	p.Attribution = extras

	resolved := c.resolver.Resolve(chain.Period{Year: year, First: first, Cases: costInputs}, prev)
	p.Costs = resolved.Regions
	p.TotalCosts = resolved.Totals
	p.CarryForward = resolved.Next

	regionEC, totalEC := chain.EnergyCosts(resolved.Regions, resolved.Totals, demandRecords)
	p.EnergyCosts = append(regionEC, totalEC...)

	// Region level.
	p.Region.put(MetricCapacity, capTable)
	p.Region.put(MetricEnergy, energyTable)
	p.Region.put(MetricEmissions, emissionsTable)
	p.Region.put(MetricNetwork, networkTable)
	p.Region.put(MetricSpurLine, spurTable)
	p.Region.put(MetricCosts, regionCostTable(order, resolved.Regions, extras))
	p.Region.put(MetricPrices, pricesTable)
	p.Region.put(MetricDemand, demandTable)
	p.Region.put(MetricEnergyCost, energyCostTable([]string{idxCase, idxRegion}, regionEC))

	// Total level, summed before regional rounding.
	totals := []struct {
		metric string
		table  *model.Table
		keep   []string
	}{
		{MetricCapacity, capTable, []string{idxCategory, idxResource}},
		{MetricEnergy, energyTable, []string{idxResource}},
		{MetricNetwork, networkTable, []string{idxCase}},
		{MetricSpurLine, spurTable, []string{idxCase}},
		{MetricDemand, demandTable, []string{idxCase}},
	}
	for _, t := range totals {
		sum, err := align.Totals(t.table, t.metric, t.keep...)
		if err != nil {
			return nil, err
		}
		p.Total.put(t.metric, sum)
	}
	p.Total.put(MetricEmissions, emissionsTotal(order, emissionsTable))
	p.Total.put(MetricCosts, totalCostTable(order, resolved.Totals))
	p.Total.put(MetricEnergyCost, energyCostTable([]string{idxCase}, totalEC))
	p.Total.Metrics = reorder(p.Total.Metrics, p.Region.Metrics)

	capTable.Round(1)
	energyTable.Round(0)
	emissionsTable.Round(0)
	networkTable.Round(1)
	pricesTable.Round(2)
	regionCosts := p.Region.Tables[MetricCosts]
	regionCosts.Round(2)
	regionCosts.SetSum(colTotalCost, regionCostComponents...)
	return p, nil
}

// reorder sorts metrics to follow ref; unknown names go last.
func reorder(metrics, ref []string) []string {
	out := make([]string, 0, len(metrics))
	have := map[string]bool{}
	for _, m := range metrics {
		have[m] = true
	}
	for _, m := range ref {
		if have[m] {
			out = append(out, m)
			delete(have, m)
		}
	}
	for _, m := range metrics {
		if have[m] {
			out = append(out, m)
		}
	}
	return out
}
