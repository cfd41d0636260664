package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"genx-compile/internal/compile"
	"genx-compile/internal/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var categoryColors = map[model.ResourceCategory]color.Color{
	model.CategoryCoal:            rgb(0x8c, 0x56, 0x4b),
	model.CategoryNGCC:            rgb(0xbc, 0xbd, 0x22),
	model.CategoryNGCT:            rgb(0xdb, 0xdb, 0x8d),
	model.CategoryOtherRenewables: rgb(0x94, 0x67, 0xbd),
	model.CategoryNuclear:         rgb(0x7f, 0x7f, 0x7f),
	model.CategoryCCS:             rgb(0xc7, 0xc7, 0xc7),
	model.CategoryHydro:           rgb(0x1f, 0x77, 0xb4),
	model.CategoryPumpedHydro:     rgb(0xae, 0xc7, 0xe8),
	model.CategoryBattery:         rgb(0xc5, 0xb0, 0xd5),
	model.CategorySolar:           rgb(0xd6, 0x27, 0x28),
	model.CategoryOnshoreWind:     rgb(0x17, 0xbe, 0xcf),
	model.CategoryOffshoreWind:    rgb(0x9e, 0xda, 0xe5),
}

var periodColors = []color.Color{
	rgb(0x4c, 0x78, 0xa8),
	rgb(0xf5, 0x85, 0x18),
	rgb(0x54, 0xa2, 0x4b),
	rgb(0xe4, 0x57, 0x56),
}

func rgb(r, g, b uint8) color.Color { return color.RGBA{R: r, G: g, B: b, A: 255} }

// present keeps the ordering entries that are columns of the period.
func present(ordering []string, p *compile.PeriodResult) []string {
	labels := map[string]bool{}
	for _, c := range p.Cases {
		labels[c.Label] = true
	}
	var out []string
	for _, c := range ordering {
		if labels[c] {
			out = append(out, c)
		}
	}
	return out
}

func newPlot(title, ylabel string, cases []string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = ylabel
	p.NominalX(cases...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

// CapacityChangeChart stacks new capacity above zero and retirements below
// it, one bar per case, categories in stacking order.
func CapacityChangeChart(p *compile.PeriodResult, cases []string) (*plot.Plot, error) {
	capacity, ok := p.Total.Table(compile.MetricCapacity)
	if !ok {
		return nil, fmt.Errorf("period %d: no capacity table", p.Year)
	}
	pl := newPlot(fmt.Sprintf("%d", p.Year), "Capacity Change (MW)", cases)
	var lastNew, lastRet *plotter.BarChart
	for _, cat := range model.ResourceOrder {
		newVals := make(plotter.Values, len(cases))
		retVals := make(plotter.Values, len(cases))
		nonzero := false
		for i, c := range cases {
			newVals[i] = zeroNaN(capacity.Value(c, model.NewCapacity, string(cat)))
			retVals[i] = zeroNaN(capacity.Value(c, model.RetiredCapacity, string(cat)))
			if newVals[i] != 0 || retVals[i] != 0 {
				nonzero = true
			}
		}
		if !nonzero {
			continue
		}
		nb, err := plotter.NewBarChart(newVals, vg.Points(18))
		if err != nil {
			return nil, err
		}
		rb, err := plotter.NewBarChart(retVals, vg.Points(18))
		if err != nil {
			return nil, err
		}
		for _, b := range []*plotter.BarChart{nb, rb} {
			b.Color = categoryColors[cat]
			b.LineStyle.Width = vg.Length(0)
		}
		if lastNew != nil {
			nb.StackOn(lastNew)
			rb.StackOn(lastRet)
		}
		lastNew, lastRet = nb, rb
		pl.Add(nb, rb)
		pl.Legend.Add(string(cat), nb)
	}
	return pl, nil
}

// TransmissionChart shows new interregional transmission per case, one bar
// per period side by side.
func TransmissionChart(periods []compile.PeriodResult, cases []string) (*plot.Plot, error) {
	return periodBars(periods, cases, compile.MetricNetwork, "New_Trans_Capacity", 1, "Transmission Expansion (MW)")
}

// SpurLineChart shows spur-line build per case in GW-miles.
func SpurLineChart(periods []compile.PeriodResult, cases []string) (*plot.Plot, error) {
	return periodBars(periods, cases, compile.MetricSpurLine, "Spur Line MW-Miles", 1000, "Spur Line (GW-miles)")
}

// EnergyCostChart shows total cost per MWh per case, one bar per period.
func EnergyCostChart(periods []compile.PeriodResult, cases []string) (*plot.Plot, error) {
	return periodBars(periods, cases, compile.MetricEnergyCost, "Total Cost ($/MWh)", 1, "Total Cost ($/MWh)")
}

func periodBars(periods []compile.PeriodResult, cases []string, metric, col string, scale float64, ylabel string) (*plot.Plot, error) {
	pl := newPlot("", ylabel, cases)
	width := vg.Points(12)
	n := len(periods)
	for i := range periods {
		p := &periods[i]
		t, ok := p.Total.Table(metric)
		if !ok {
			return nil, fmt.Errorf("period %d: no %s table", p.Year, metric)
		}
		vals := make(plotter.Values, len(cases))
		for j, c := range cases {
			vals[j] = zeroNaN(t.Value(col, c)) / scale
		}
		b, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return nil, err
		}
		b.Color = periodColors[i%len(periodColors)]
		b.LineStyle.Width = vg.Length(0)
		b.Offset = width * vg.Length(2*i-n+1) / 2
		pl.Add(b)
		pl.Legend.Add(fmt.Sprintf("%d", p.Year), b)
	}
	return pl, nil
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// WriteCharts saves PNG charts for each named case ordering and returns the
// written paths. Orderings with no case in the run are skipped.
func WriteCharts(res *compile.Result, dir string, orderings map[string][]string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	save := func(pl *plot.Plot, width int, name string) error {
		path := filepath.Join(dir, name)
		w := vg.Length(4+width) * vg.Inch
		if err := pl.Save(w, 6*vg.Inch, path); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}
	for _, name := range sortedKeys(orderings) {
		ordering := orderings[name]
		if len(res.Periods) == 0 {
			break
		}
		// Cases compared across periods must exist in every period.
		common := ordering
		for i := range res.Periods {
			common = present(common, &res.Periods[i])
		}
		for i := range res.Periods {
			p := &res.Periods[i]
			cases := present(ordering, p)
			if len(cases) == 0 {
				continue
			}
			pl, err := CapacityChangeChart(p, cases)
			if err != nil {
				return written, err
			}
			if err := save(pl, len(cases)/2, fmt.Sprintf("%s_capacity_changes_%d.png", name, p.Year)); err != nil {
				return written, err
			}
		}
		if len(common) == 0 {
			continue
		}
		charts := []struct {
			file  string
			build func([]compile.PeriodResult, []string) (*plot.Plot, error)
		}{
			{name + "_transmission.png", TransmissionChart},
			{name + "_spur_line.png", SpurLineChart},
			{name + "_energy_cost.png", EnergyCostChart},
		}
		for _, c := range charts {
			pl, err := c.build(res.Periods, common)
			if err != nil {
				return written, err
			}
			if err := save(pl, len(common)/2, c.file); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
