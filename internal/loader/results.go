package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"genx-compile/internal/model"
)

// region resolves a zone cell to its region.
func (l *Loader) region(file, raw string) (int, string, error) {
	zone, err := model.ParseZoneID(raw)
	if err != nil {
		return 0, "", &model.SchemaError{File: file, Field: "Zone", Detail: err.Error()}
	}
	name, err := l.zones.Region(zone)
	if err != nil {
		return 0, "", &model.UnmappedZoneError{Zone: zone, File: file}
	}
	return zone, name, nil
}

// ReadCapacity reads capacity.csv. The solver's Total row is skipped; R_ID
// is the 1-based row position, matching Generators_data.csv.
func (l *Loader) ReadCapacity(resultsDir string) ([]model.CapacityRecord, error) {
	path, err := ResolveFile(resultsDir, "capacity.csv")
	if err != nil {
		return nil, err
	}
	t, err := readHeaderTable(path)
	if err != nil {
		return nil, err
	}
	cols, err := t.require("Resource", "Zone")
	if err != nil {
		return nil, err
	}
	measures := map[string]int{}
	for _, m := range model.CapacityMeasures {
		pos, ok := t.col(m.Column)
		if !ok {
			if m.Required {
				return nil, &model.SchemaError{File: path, Field: m.Column, Detail: "missing column"}
			}
			continue
		}
		measures[m.Name] = pos
	}

	out := make([]model.CapacityRecord, 0, len(t.rows))
	for i, rec := range t.rows {
		resource := cell(rec, cols["Resource"])
		if isTotal(resource) || resource == "" {
			continue
		}
		zone, region, err := l.region(path, cell(rec, cols["Zone"]))
		if err != nil {
			return nil, err
		}
		category, err := l.classifier.Classify(resource)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		r := model.CapacityRecord{
			RID:      i + 1,
			Resource: resource,
			Zone:     zone,
			Region:   region,
			Category: category,
			Values:   make(map[string]float64, len(measures)),
		}
		for name, pos := range measures {
			v, err := t.numberAt(rec, pos, name, i+2)
			if err != nil {
				return nil, err
			}
			r.Values[name] = v
		}
		out = append(out, r)
	}
	return out, nil
}

// ReadPower reads the transposed power.csv. Each resource column carries its
// zone and the time-aggregated "Sum".
func (l *Loader) ReadPower(resultsDir string) ([]model.PowerColumn, error) {
	path, err := ResolveFile(resultsDir, "power.csv")
	if err != nil {
		return nil, err
	}
	t, err := readTransposed(path)
	if err != nil {
		return nil, err
	}
	zones, err := t.row("Zone")
	if err != nil {
		return nil, err
	}
	sums, err := t.row("Sum", "AnnualSum")
	if err != nil {
		return nil, err
	}
	names := t.columns
	if r, err := t.row("Resource"); err == nil {
		names = r
	}

	out := make([]model.PowerColumn, 0, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if isTotal(name) || (i < len(zones) && isTotal(zones[i])) {
			continue
		}
		zone, region, err := l.region(path, cell(zones, i))
		if err != nil {
			return nil, err
		}
		category, err := l.classifier.Classify(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		sum, ok := parseValue(cell(sums, i))
		if !ok {
			return nil, &model.SchemaError{File: path, Field: "Sum", Detail: fmt.Sprintf("column %q: not a number", name)}
		}
		out = append(out, model.PowerColumn{
			Position: i,
			Resource: name,
			Zone:     zone,
			Region:   region,
			Category: category,
			Sum:      sum,
		})
	}
	return out, nil
}

// ReadEmissions reads the transposed emissions.csv, dropping the solver's
// total column so regional totals are recomputed from the parts.
func (l *Loader) ReadEmissions(resultsDir string) ([]model.EmissionsColumn, error) {
	path, err := ResolveFile(resultsDir, "emissions.csv")
	if err != nil {
		return nil, err
	}
	t, err := readTransposed(path)
	if err != nil {
		return nil, err
	}
	zones, err := t.row("Zone")
	if err != nil {
		return nil, err
	}
	sums, err := t.row("Sum", "AnnualSum")
	if err != nil {
		return nil, err
	}
	out := make([]model.EmissionsColumn, 0, len(zones))
	for i, z := range zones {
		header := cell(t.columns, i)
		if isTotal(z) || isTotal(header) || strings.TrimSpace(z) == "" {
			continue
		}
		zone, region, err := l.region(path, z)
		if err != nil {
			return nil, err
		}
		sum, ok := parseValue(cell(sums, i))
		if !ok {
			return nil, &model.SchemaError{File: path, Field: "Sum", Detail: fmt.Sprintf("column %d: not a number", i+1)}
		}
		out = append(out, model.EmissionsColumn{Column: header, Zone: zone, Region: region, Sum: sum})
	}
	return out, nil
}

// ReadCosts reads the transposed costs.csv: a "Costs" header row naming the
// zone columns ("Zone1".."ZoneN", plus "Total") and one row per component.
func (l *Loader) ReadCosts(resultsDir string) ([]model.ZoneCosts, error) {
	path, err := ResolveFile(resultsDir, "costs.csv")
	if err != nil {
		return nil, err
	}
	t, err := readTransposed(path)
	if err != nil {
		return nil, err
	}
	header, err := t.row("Costs")
	if err != nil {
		return nil, err
	}
	for _, c := range model.CostComponents {
		if _, err := t.row(c); err != nil {
			return nil, err
		}
	}
	var components []string
	for label := range t.rows {
		if label != "Costs" && label != "" {
			components = append(components, label)
		}
	}

	var out []model.ZoneCosts
	for i, h := range header {
		if isTotal(h) || strings.TrimSpace(h) == "" {
			continue
		}
		zone, region, err := l.region(path, h)
		if err != nil {
			return nil, err
		}
		zc := model.ZoneCosts{Zone: zone, Region: region, Components: make(map[string]float64, len(components))}
		for _, c := range components {
			v, ok := parseValue(cell(t.rows[c], i))
			if !ok {
				return nil, &model.SchemaError{File: path, Field: c, Detail: fmt.Sprintf("%s: not a number", h)}
			}
			zc.Components[c] = v
		}
		out = append(out, zc)
	}
	if len(out) == 0 {
		return nil, &model.SchemaError{File: path, Field: "Costs", Detail: "no zone columns"}
	}
	return out, nil
}

// ReadPolicyPrices reads RPS_CES.csv. The solver omits the file when no
// RPS/CES constraint is modeled; that reads as no prices.
func (l *Loader) ReadPolicyPrices(resultsDir string) ([]model.PolicyPrice, error) {
	if !fileExists(resultsDir, "RPS_CES.csv") {
		l.logger.Warn("no RPS/CES prices", "dir", resultsDir)
		return nil, nil
	}
	path, _ := ResolveFile(resultsDir, "RPS_CES.csv")
	t, err := readHeaderTable(path)
	if err != nil {
		return nil, err
	}
	cols, err := t.require("Zone", "RPS_Price", "CES_Price")
	if err != nil {
		return nil, err
	}
	out := make([]model.PolicyPrice, 0, len(t.rows))
	for i, rec := range t.rows {
		zone, region, err := l.region(path, cell(rec, cols["Zone"]))
		if err != nil {
			return nil, err
		}
		rps, err := t.numberAt(rec, cols["RPS_Price"], "RPS_Price", i+2)
		if err != nil {
			return nil, err
		}
		ces, err := t.numberAt(rec, cols["CES_Price"], "CES_Price", i+2)
		if err != nil {
			return nil, err
		}
		out = append(out, model.PolicyPrice{Zone: zone, Region: region, RPSPrice: rps, CESPrice: ces})
	}
	return out, nil
}

// ReadNetworkExpansion reads network_expansion.csv.
func (l *Loader) ReadNetworkExpansion(resultsDir string) ([]model.LineExpansion, error) {
	path, err := ResolveFile(resultsDir, "network_expansion.csv")
	if err != nil {
		return nil, err
	}
	t, err := readHeaderTable(path)
	if err != nil {
		return nil, err
	}
	cols, err := t.require("Line", "New_Trans_Capacity", "Cost_Trans_Capacity")
	if err != nil {
		return nil, err
	}
	out := make([]model.LineExpansion, 0, len(t.rows))
	for i, rec := range t.rows {
		raw := cell(rec, cols["Line"])
		if raw == "" || isTotal(raw) {
			continue
		}
		line, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &model.SchemaError{File: path, Field: "Line", Detail: fmt.Sprintf("line %d: %q", i+2, raw)}
		}
		newCap, err := t.numberAt(rec, cols["New_Trans_Capacity"], "New_Trans_Capacity", i+2)
		if err != nil {
			return nil, err
		}
		cost, err := t.numberAt(rec, cols["Cost_Trans_Capacity"], "Cost_Trans_Capacity", i+2)
		if err != nil {
			return nil, err
		}
		out = append(out, model.LineExpansion{Line: line, NewCapacity: newCap, Cost: cost})
	}
	return out, nil
}

// ReadTimeSeries reads a per-timestep file such as flow.csv or prices.csv:
// the first column labels the timestep, every other column is a line or zone.
// Non-numeric cells read as NaN.
func ReadTimeSeries(dir, name string) (*model.TimeSeries, error) {
	path, err := ResolveFile(dir, name)
	if err != nil {
		return nil, err
	}
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	header := records[0]
	if len(header) < 2 {
		return nil, &model.SchemaError{File: path, Detail: "no value columns"}
	}
	columns := make([]string, len(header)-1)
	for i, h := range header[1:] {
		columns[i] = strings.TrimSpace(h)
	}
	steps := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		steps = append(steps, cell(rec, 0))
	}
	ts := model.NewTimeSeries(steps, columns)
	for s, rec := range records[1:] {
		for c, col := range columns {
			v, _ := parseValue(cell(rec, c+1))
			ts.Set(col, s, v)
		}
	}
	return ts, nil
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
