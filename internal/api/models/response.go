package models

import "time"

// RunInfo identifies the compilation being served.
type RunInfo struct {
	RunID      string    `json:"run_id"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// PeriodsResponse lists the compiled periods.
type PeriodsResponse struct {
	Run     RunInfo      `json:"run"`
	Periods []PeriodInfo `json:"periods"`
}

// PeriodInfo describes one planning year and the tables available for it.
type PeriodInfo struct {
	Year          int        `json:"year"`
	Cases         []CaseInfo `json:"cases"`
	RegionMetrics []string   `json:"region_metrics"`
	TotalMetrics  []string   `json:"total_metrics"`
}

// CaseInfo is one case column.
type CaseInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// TableResponse is one metric table. Missing values are null.
type TableResponse struct {
	Year    int        `json:"year"`
	Level   string     `json:"level"`
	Metric  string     `json:"metric"`
	Index   []string   `json:"index"`
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// TableRow is a key tuple and its values in column order.
type TableRow struct {
	Key    []string   `json:"key"`
	Values []*float64 `json:"values"`
}

// AttributionResponse lists region-attributed costs.
type AttributionResponse struct {
	Records []AttributionRow `json:"records"`
}

// AttributionRow is one year, case and region, in whole dollars.
type AttributionRow struct {
	Year            int    `json:"year"`
	Case            string `json:"case"`
	Region          string `json:"region"`
	ImportCosts     int64  `json:"import_costs"`
	ExportRevenues  int64  `json:"export_revenues"`
	NetTradeCosts   int64  `json:"net_trade_costs"`
	RPSCosts        int64  `json:"rps_costs"`
	CESCosts        int64  `json:"ces_costs"`
	TotalExtraCosts int64  `json:"total_extra_costs"`
}

// CompileResponse reports a finished compilation.
type CompileResponse struct {
	Run   RunInfo `json:"run"`
	Years []int   `json:"years"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
