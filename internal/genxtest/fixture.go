// Package genxtest writes synthetic solver case folders for tests.
package genxtest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
)

// Resource is one generator of a synthetic case.
type Resource struct {
	Name      string
	Zone      int
	StartCap  float64
	RetCap    float64
	NewCap    float64
	EndCap    float64
	EndEnergy float64
	Gen       float64
	RPS       float64
	CES       float64
	STOR      float64
	DR        float64
	HEAT      float64
	SpurMiles float64
	SpurCapex float64
}

// Line is one transmission line. Flow holds one value per timestep.
type Line struct {
	PathName   string
	Directions map[int]float64
	MaxFlow    float64
	NewCap     float64
	Cost       float64
	Flow       []float64
}

// Zone carries a zone's policy shares, prices, load and reported costs.
type Zone struct {
	ID        int
	RPS       float64
	CES       float64
	RPSPrice  float64
	CESPrice  float64
	Price     []float64
	Load      []float64
	Emissions float64
	Fix       float64
	Var       float64
	NSE       float64
	Start     float64
}

// Case describes a full case folder.
type Case struct {
	Folder        string
	Resources     []Resource
	Lines         []Line
	Zones         []Zone
	Weights       []float64
	RPSAdjustment float64
	CESAdjustment float64
	// NoPolicyPrices omits RPS_CES.csv.
	NoPolicyPrices bool
	// SubWeights writes Sub_Weights into Load_data.csv instead of
	// Results/time_weights.csv.
	SubWeights bool
}

// Steps is the number of timesteps in the case.
func (c Case) Steps() int {
	n := len(c.Weights)
	for _, z := range c.Zones {
		if len(z.Load) > n {
			n = len(z.Load)
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// Write creates <parent>/<Folder> with Inputs/ and Results/ and returns its path.
func Write(tb testing.TB, parent string, c Case) string {
	tb.Helper()
	dir := filepath.Join(parent, c.Folder)
	results := filepath.Join(dir, "Results")
	inputs := filepath.Join(dir, "Inputs")
	for _, d := range []string{results, inputs} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", d, err)
		}
	}
	steps := c.Steps()
	files := map[string]string{
		filepath.Join(results, "capacity.csv"):          c.capacity(),
		filepath.Join(results, "power.csv"):             c.power(steps),
		filepath.Join(results, "emissions.csv"):         c.emissions(),
		filepath.Join(results, "costs.csv"):             c.costs(),
		filepath.Join(results, "network_expansion.csv"): c.expansion(),
		filepath.Join(results, "flow.csv"):              c.flow(steps),
		filepath.Join(results, "prices.csv"):            c.prices(steps),
		filepath.Join(inputs, "Network.csv"):            c.network(),
		filepath.Join(inputs, "Generators_data.csv"):    c.generators(),
		filepath.Join(inputs, "Load_data.csv"):          c.load(steps),
		filepath.Join(dir, "GenX_settings.yml"): fmt.Sprintf(
			"RPS_Adjustment: %s\nCES_Adjustment: %s\n", num(c.RPSAdjustment), num(c.CESAdjustment)),
	}
	if !c.NoPolicyPrices {
		files[filepath.Join(results, "RPS_CES.csv")] = c.policyPrices()
	}
	if !c.SubWeights {
		files[filepath.Join(results, "time_weights.csv")] = c.timeWeights(steps)
	}
	for path, body := range files {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			tb.Fatalf("write %s: %v", path, err)
		}
	}
	return dir
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (c Case) weight(t int) float64 {
	if t < len(c.Weights) {
		return c.Weights[t]
	}
	return 1
}

func at(vals []float64, t int) float64 {
	if t < len(vals) {
		return vals[t]
	}
	return 0
}

func (c Case) zoneIDs() []int {
	ids := make([]int, 0, len(c.Zones))
	for _, z := range c.Zones {
		ids = append(ids, z.ID)
	}
	sort.Ints(ids)
	return ids
}

func (c Case) capacity() string {
	var b strings.Builder
	b.WriteString("Resource,Zone,StartCap,RetCap,NewCap,EndCap,EndEnergyCap\n")
	var tot [5]float64
	for _, r := range c.Resources {
		fmt.Fprintf(&b, "%s,%d,%s,%s,%s,%s,%s\n", r.Name, r.Zone,
			num(r.StartCap), num(r.RetCap), num(r.NewCap), num(r.EndCap), num(r.EndEnergy))
		tot[0] += r.StartCap
		tot[1] += r.RetCap
		tot[2] += r.NewCap
		tot[3] += r.EndCap
		tot[4] += r.EndEnergy
	}
	fmt.Fprintf(&b, "Total,n/a,%s,%s,%s,%s,%s\n", num(tot[0]), num(tot[1]), num(tot[2]), num(tot[3]), num(tot[4]))
	return b.String()
}

func (c Case) power(steps int) string {
	names := []string{"Resource"}
	zones := []string{"Zone"}
	sums := []string{"Sum"}
	total := 0.0
	for _, r := range c.Resources {
		names = append(names, r.Name)
		zones = append(zones, strconv.Itoa(r.Zone))
		sums = append(sums, num(r.Gen))
		total += r.Gen
	}
	names = append(names, "Total")
	zones = append(zones, "")
	sums = append(sums, num(total))
	lines := []string{strings.Join(names, ","), strings.Join(zones, ","), strings.Join(sums, ",")}
	for t := 0; t < steps; t++ {
		row := []string{"t" + strconv.Itoa(t+1)}
		for _, r := range c.Resources {
			row = append(row, num(r.Gen/float64(steps)))
		}
		row = append(row, num(total/float64(steps)))
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (c Case) emissions() string {
	header := []string{"Zone"}
	sums := []string{"Sum"}
	total := 0.0
	for _, id := range c.zoneIDs() {
		z := c.zone(id)
		header = append(header, strconv.Itoa(id))
		sums = append(sums, num(z.Emissions))
		total += z.Emissions
	}
	header = append(header, "Total")
	sums = append(sums, num(total))
	return strings.Join(header, ",") + "\n" + strings.Join(sums, ",") + "\n"
}

func (c Case) zone(id int) Zone {
	for _, z := range c.Zones {
		if z.ID == id {
			return z
		}
	}
	return Zone{ID: id}
}

func (c Case) costs() string {
	ids := c.zoneIDs()
	header := []string{"Costs", "Total"}
	for _, id := range ids {
		header = append(header, "Zone"+strconv.Itoa(id))
	}
	rows := []string{strings.Join(header, ",")}
	components := []struct {
		name string
		get  func(Zone) float64
	}{
		{"cTotal", func(z Zone) float64 { return z.Fix + z.Var + z.NSE + z.Start }},
		{"cFix", func(z Zone) float64 { return z.Fix }},
		{"cVar", func(z Zone) float64 { return z.Var }},
		{"cNSE", func(z Zone) float64 { return z.NSE }},
		{"cStart", func(z Zone) float64 { return z.Start }},
		{"cUnmetRsv", nil},
	}
	for _, comp := range components {
		row := []string{comp.name}
		total := 0.0
		cells := make([]string, 0, len(ids))
		for _, id := range ids {
			if comp.get == nil {
				cells = append(cells, "-")
				continue
			}
			v := comp.get(c.zone(id))
			total += v
			cells = append(cells, num(v))
		}
		if comp.get == nil {
			row = append(row, "-")
		} else {
			row = append(row, num(total))
		}
		rows = append(rows, strings.Join(append(row, cells...), ","))
	}
	return strings.Join(rows, "\n") + "\n"
}

func (c Case) policyPrices() string {
	var b strings.Builder
	b.WriteString("Zone,RPS_Price,CES_Price\n")
	for _, id := range c.zoneIDs() {
		z := c.zone(id)
		fmt.Fprintf(&b, "%d,%s,%s\n", id, num(z.RPSPrice), num(z.CESPrice))
	}
	return b.String()
}

func (c Case) expansion() string {
	var b strings.Builder
	b.WriteString("Line,New_Trans_Capacity,Cost_Trans_Capacity\n")
	for i, l := range c.Lines {
		fmt.Fprintf(&b, "%d,%s,%s\n", i+1, num(l.NewCap), num(l.Cost))
	}
	return b.String()
}

func (c Case) flow(steps int) string {
	header := []string{"Line"}
	for i := range c.Lines {
		header = append(header, strconv.Itoa(i+1))
	}
	rows := []string{strings.Join(header, ",")}
	for t := 0; t < steps; t++ {
		row := []string{"t" + strconv.Itoa(t+1)}
		for _, l := range c.Lines {
			row = append(row, num(at(l.Flow, t)))
		}
		rows = append(rows, strings.Join(row, ","))
	}
	return strings.Join(rows, "\n") + "\n"
}

func (c Case) prices(steps int) string {
	ids := c.zoneIDs()
	header := []string{"Zone"}
	for _, id := range ids {
		header = append(header, strconv.Itoa(id))
	}
	rows := []string{strings.Join(header, ",")}
	for t := 0; t < steps; t++ {
		row := []string{"t" + strconv.Itoa(t+1)}
		for _, id := range ids {
			row = append(row, num(at(c.zone(id).Price, t)))
		}
		rows = append(rows, strings.Join(row, ","))
	}
	return strings.Join(rows, "\n") + "\n"
}

func (c Case) network() string {
	ids := c.zoneIDs()
	header := []string{"Network_zones", "Network_lines", "Region description"}
	for _, id := range ids {
		header = append(header, "z"+strconv.Itoa(id))
	}
	header = append(header, "Line_Max_Flow_MW", "Transmission Path Name", "RPS", "CES")
	rows := []string{strings.Join(header, ",")}
	n := len(ids)
	if len(c.Lines) > n {
		n = len(c.Lines)
	}
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(header))
		var z *Zone
		if i < len(ids) {
			zz := c.zone(ids[i])
			z = &zz
			row = append(row, "z"+strconv.Itoa(zz.ID))
		} else {
			row = append(row, "")
		}
		var l *Line
		if i < len(c.Lines) {
			l = &c.Lines[i]
			row = append(row, strconv.Itoa(i+1), "")
		} else {
			row = append(row, "", "")
		}
		for _, id := range ids {
			if l == nil {
				row = append(row, "")
				continue
			}
			row = append(row, num(l.Directions[id]))
		}
		if l != nil {
			row = append(row, num(l.MaxFlow), l.PathName)
		} else {
			row = append(row, "", "")
		}
		if z != nil {
			row = append(row, num(z.RPS), num(z.CES))
		} else {
			row = append(row, "", "")
		}
		rows = append(rows, strings.Join(row, ","))
	}
	return strings.Join(rows, "\n") + "\n"
}

func (c Case) generators() string {
	var b strings.Builder
	b.WriteString("Resource,R_ID,zone,Existing_Cap_MW,Existing_Cap_MWh,RPS,CES,STOR,DR,HEAT,spur_line_miles,spur_line_capex\n")
	for i, r := range c.Resources {
		fmt.Fprintf(&b, "%s,%d,%d,%s,0,%s,%s,%s,%s,%s,%s,%s\n", r.Name, i+1, r.Zone, num(r.StartCap),
			num(r.RPS), num(r.CES), num(r.STOR), num(r.DR), num(r.HEAT), num(r.SpurMiles), num(r.SpurCapex))
	}
	return b.String()
}

func (c Case) load(steps int) string {
	ids := c.zoneIDs()
	header := []string{"Time_Index"}
	if c.SubWeights {
		header = append(header, "Sub_Weights", "Timesteps_per_Rep_Period")
	}
	for _, id := range ids {
		header = append(header, "Load_MW_z"+strconv.Itoa(id))
	}
	rows := []string{strings.Join(header, ",")}
	for t := 0; t < steps; t++ {
		row := []string{strconv.Itoa(t + 1)}
		if c.SubWeights {
			sub := ""
			per := ""
			if t == 0 {
				total := 0.0
				for s := 0; s < steps; s++ {
					total += c.weight(s)
				}
				sub = num(total)
				per = strconv.Itoa(steps)
			}
			row = append(row, sub, per)
		}
		for _, id := range ids {
			row = append(row, num(at(c.zone(id).Load, t)))
		}
		rows = append(rows, strings.Join(row, ","))
	}
	return strings.Join(rows, "\n") + "\n"
}

func (c Case) timeWeights(steps int) string {
	var b strings.Builder
	b.WriteString("Time_Index,Weight\n")
	for t := 0; t < steps; t++ {
		fmt.Fprintf(&b, "%d,%s\n", t+1, num(c.weight(t)))
	}
	return b.String()
}
