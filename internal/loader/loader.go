package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"genx-compile/internal/model"
)

// Loader reads one case's solver outputs and the inputs they were solved
// from. It is safe for concurrent use: it holds only immutable lookups.
type Loader struct {
	zones      model.ZoneMap
	classifier *model.Classifier
	logger     *slog.Logger
}

func New(zones model.ZoneMap, classifier *model.Classifier, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{zones: zones, classifier: classifier, logger: logger}
}

func (l *Loader) Zones() model.ZoneMap { return l.zones }

// CaseResults is everything read for one case.
type CaseResults struct {
	Case      model.Case
	Capacity  []model.CapacityRecord
	Power     []model.PowerColumn
	Emissions []model.EmissionsColumn
	Costs     []model.ZoneCosts
	Prices    []model.PolicyPrice
	Expansion []model.LineExpansion
	Flow      *model.TimeSeries
	ZonePrice *model.TimeSeries
	Inputs    model.CaseInputs
}

// LoadCase reads every file of a case. Any missing required file, column or
// row fails the whole case.
func (l *Loader) LoadCase(ctx context.Context, c model.Case) (*CaseResults, error) {
	res := &CaseResults{Case: c}
	results, inputs := c.ResultsDir(), c.InputsDir()

	steps := []struct {
		name string
		run  func() error
	}{
		{"capacity", func() (err error) { res.Capacity, err = l.ReadCapacity(results); return }},
		{"power", func() (err error) { res.Power, err = l.ReadPower(results); return }},
		{"emissions", func() (err error) { res.Emissions, err = l.ReadEmissions(results); return }},
		{"costs", func() (err error) { res.Costs, err = l.ReadCosts(results); return }},
		{"prices", func() (err error) { res.Prices, err = l.ReadPolicyPrices(results); return }},
		{"network expansion", func() (err error) { res.Expansion, err = l.ReadNetworkExpansion(results); return }},
		{"flow", func() (err error) { res.Flow, err = ReadTimeSeries(results, "flow.csv"); return }},
		{"zone prices", func() (err error) { res.ZonePrice, err = ReadTimeSeries(results, "prices.csv"); return }},
		{"network", func() (err error) { res.Inputs.Network, err = l.ReadNetwork(inputs); return }},
		{"generators", func() (err error) { res.Inputs.Generators, err = l.ReadGenerators(inputs); return }},
		{"demand", func() (err error) { res.Inputs.Demand, err = l.ReadDemand(inputs, results); return }},
		{"settings", func() (err error) { res.Inputs.Settings, err = l.ReadSettings(c.Dir); return }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("case %s: %s: %w", c.Label, s.name, err)
		}
	}
	if err := checkAlignment(res); err != nil {
		return nil, fmt.Errorf("case %s: %w", c.Label, err)
	}
	l.logger.Debug("case loaded",
		"case", c.Label,
		"resources", len(res.Capacity),
		"lines", len(res.Inputs.Network.Lines),
	)
	return res, nil
}

// checkAlignment verifies the positional correspondence between
// Generators_data.csv rows and the power.csv / capacity.csv resources.
func checkAlignment(res *CaseResults) error {
	gens := res.Inputs.Generators
	if len(res.Power) != len(gens) {
		return &model.SchemaError{
			File:   "power.csv",
			Detail: fmt.Sprintf("%d resource columns for %d generators", len(res.Power), len(gens)),
		}
	}
	for i, p := range res.Power {
		g := gens[i]
		if g.Resource != "" && !strings.EqualFold(g.Resource, p.Resource) {
			return &model.SchemaError{
				File:   "power.csv",
				Field:  p.Resource,
				Detail: fmt.Sprintf("column %d does not match generator %q", i+1, g.Resource),
			}
		}
		if g.Zone != p.Zone {
			return &model.SchemaError{
				File:   "power.csv",
				Field:  p.Resource,
				Detail: fmt.Sprintf("zone %d does not match generator zone %d", p.Zone, g.Zone),
			}
		}
	}
	for _, c := range res.Capacity {
		if c.RID < 1 || c.RID > len(gens) {
			continue
		}
		g := gens[c.RID-1]
		if g.Resource != "" && !strings.EqualFold(g.Resource, c.Resource) {
			return &model.SchemaError{
				File:   "capacity.csv",
				Field:  c.Resource,
				Detail: fmt.Sprintf("row %d does not match generator %q", c.RID, g.Resource),
			}
		}
	}
	return nil
}
