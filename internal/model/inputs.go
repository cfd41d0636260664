package model

// CaseInputs represents the solver inputs of one case that the compiler reads
// back: the network, the generator table, the load profile and the scenario
// settings.
type CaseInputs struct {
	Network    Network
	Generators []Generator
	Demand     DemandInputs
	Settings   Settings
}

// Generator is one row of Generators_data.csv.
type Generator struct {
	RID       int
	Resource  string
	Zone      int
	RPS       float64
	CES       float64
	STOR      float64
	DR        float64
	HEAT      float64
	SpurMiles float64
	SpurCapex float64
}

// CountsTowardRequirement reports whether the resource's generation belongs to
// the RPS/CES requirement base. Storage, demand response and heating
// electrification are excluded even when they earn credits.
func (g Generator) CountsTowardRequirement() bool {
	return g.STOR == 0 && g.DR == 0 && g.HEAT == 0
}

// NetworkLine is one transmission line of Network.csv. Directions holds the
// per-zone sign convention: +1/-1 for incident zones, absent otherwise.
type NetworkLine struct {
	Line       int
	PathName   string
	MaxFlowMW  float64
	Directions map[int]float64
}

// ZonePolicy is the RPS/CES share of qualifying load a zone must meet.
type ZonePolicy struct {
	Zone int
	Name string
	RPS  float64
	CES  float64
}

type Network struct {
	Lines []NetworkLine
	Zones map[int]ZonePolicy
}

// IncidentLines returns the lines touching zone, in file order.
func (n Network) IncidentLines(zone int) []NetworkLine {
	var out []NetworkLine
	for _, l := range n.Lines {
		if d, ok := l.Directions[zone]; ok && d != 0 {
			out = append(out, l)
		}
	}
	return out
}

// PathNames maps line index to display path name ("A_to_B" -> "A to B").
func (n Network) PathNames() map[int]string {
	out := make(map[int]string, len(n.Lines))
	for _, l := range n.Lines {
		out[l.Line] = l.PathName
	}
	return out
}

// DemandInputs is the zonal load profile with per-timestep weights.
type DemandInputs struct {
	Weights []float64
	Load    map[int][]float64
}

// Settings are the scenario constants read from GenX_settings.yml.
type Settings struct {
	RPSAdjustment float64 `yaml:"RPS_Adjustment"`
	CESAdjustment float64 `yaml:"CES_Adjustment"`
}
