package model

// CapacityMeasure maps a capacity.csv column to its compiled category name.
type CapacityMeasure struct {
	Column   string
	Name     string
	Retired  bool
	Required bool
}

const (
	StartCapacity   = "Start Capacity"
	NewCapacity     = "New Capacity"
	RetiredCapacity = "Retired Capacity"
	FinalCapacity   = "Final Capacity"
)

var CapacityMeasures = []CapacityMeasure{
	{Column: "StartCap", Name: StartCapacity, Required: true},
	{Column: "RetCap", Name: RetiredCapacity, Retired: true, Required: true},
	{Column: "NewCap", Name: NewCapacity, Required: true},
	{Column: "EndCap", Name: FinalCapacity, Required: true},
	{Column: "StartEnergyCap", Name: "Start Energy Capacity"},
	{Column: "RetEnergyCap", Name: "Retired Energy Capacity", Retired: true},
	{Column: "NewEnergyCap", Name: "New Energy Capacity"},
	{Column: "EndEnergyCap", Name: "Final Energy Capacity"},
	{Column: "StartChargeCap", Name: "Start Charge Capacity"},
	{Column: "RetChargeCap", Name: "Retired Charge Capacity", Retired: true},
	{Column: "NewChargeCap", Name: "New Charge Capacity"},
	{Column: "EndChargeCap", Name: "Final Charge Capacity"},
}

// IsRetiredMeasure reports whether a compiled category holds retirements.
func IsRetiredMeasure(name string) bool {
	for _, m := range CapacityMeasures {
		if m.Name == name {
			return m.Retired
		}
	}
	return false
}

// CapacityRecord is one capacity.csv row. Values are keyed by measure name
// and hold the raw, non-negative solver output.
type CapacityRecord struct {
	RID      int
	Resource string
	Zone     int
	Region   string
	Category ResourceCategory
	Values   map[string]float64
}

// PowerColumn is one resource column of power.csv; Sum is the weighted
// generation over the period.
type PowerColumn struct {
	Position int
	Resource string
	Zone     int
	Region   string
	Category ResourceCategory
	Sum      float64
}

// EmissionsColumn is one non-total column of emissions.csv.
type EmissionsColumn struct {
	Column string
	Zone   int
	Region string
	Sum    float64
}

// ZoneCosts is one zone column of costs.csv. Components hold NaN where the
// solver wrote "-".
type ZoneCosts struct {
	Zone       int
	Region     string
	Components map[string]float64
}

const (
	CostFix   = "cFix"
	CostVar   = "cVar"
	CostNSE   = "cNSE"
	CostStart = "cStart"
)

// CostComponents are the costs.csv rows every zone must report.
var CostComponents = []string{CostFix, CostVar, CostNSE, CostStart}

// PolicyPrice is one row of RPS_CES.csv.
type PolicyPrice struct {
	Zone     int
	Region   string
	RPSPrice float64
	CESPrice float64
}

// LineExpansion is one row of network_expansion.csv.
type LineExpansion struct {
	Line        int
	NewCapacity float64
	Cost        float64
}

// CostRecord is a region's cost for one case. Total is always derived.
type CostRecord struct {
	Case             string
	Region           string
	Fix              float64
	Var              float64
	NSE              float64
	Start            float64
	PrevSpurLine     float64
	PrevTransmission float64
	ExtraCosts       float64
}

func (r CostRecord) Total() float64 {
	return nansum(r.Fix, r.Var, r.NSE, r.Start, r.PrevSpurLine, r.PrevTransmission, r.ExtraCosts)
}

// TotalCostRecord is the system-wide cost for one case.
type TotalCostRecord struct {
	Case                string
	Fix                 float64
	Var                 float64
	NSE                 float64
	Start               float64
	PrevSpurLine        float64
	PrevTransmission    float64
	CurrentTransmission float64
}

func (r TotalCostRecord) Total() float64 {
	return nansum(r.Fix, r.Var, r.NSE, r.Start, r.PrevSpurLine, r.PrevTransmission, r.CurrentTransmission)
}

// TransmissionBuildRecord is new capacity on a named path for one case.
type TransmissionBuildRecord struct {
	Case        string
	PathName    string
	NewCapacity float64
	Cost        float64
}

// SpurLineRecord is the spur line attributable to one resource's new capacity.
type SpurLineRecord struct {
	Case           string
	Region         string
	Category       ResourceCategory
	Resource       string
	RID            int
	NewCapacity    float64
	MWMiles        float64
	Capex          float64
	InvestmentCost float64
}

// DemandRecord is the time-weighted energy demand of a region.
type DemandRecord struct {
	Case        string
	Region      string
	TotalDemand float64
}

// TradeAttributionRecord holds the region-specific costs the solver does not
// report. Currency values are whole dollars.
type TradeAttributionRecord struct {
	Year           int
	Case           string
	Region         string
	ImportCosts    int64
	ExportRevenues int64
	NetTradeCosts  int64
	RPSCosts       int64
	CESCosts       int64
}

func (r TradeAttributionRecord) TotalExtraCosts() int64 {
	return r.NetTradeCosts + r.RPSCosts + r.CESCosts
}

// EnergyCostRecord is total cost per unit of demand. Region is empty at the
// total level.
type EnergyCostRecord struct {
	Case        string
	Region      string
	TotalCost   float64
	TotalDemand float64
	CostPerMWh  float64
}
