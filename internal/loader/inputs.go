package loader

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"genx-compile/internal/model"

	"gopkg.in/yaml.v3"
)

// ReadNetwork reads Inputs/Network.csv: zone rows (Network_zones with their
// RPS/CES shares) and line rows (Network_lines with per-zone directions).
func (l *Loader) ReadNetwork(inputsDir string) (model.Network, error) {
	path, err := ResolveFile(inputsDir, "Network.csv")
	if err != nil {
		return model.Network{}, err
	}
	t, err := readHeaderTable(path)
	if err != nil {
		return model.Network{}, err
	}
	cols, err := t.require("Network_zones", "Network_lines", "Line_Max_Flow_MW", "Transmission Path Name", "RPS", "CES")
	if err != nil {
		return model.Network{}, err
	}
	descPos, hasDesc := t.col("Region description")

	net := model.Network{Zones: map[int]model.ZonePolicy{}}
	for i, rec := range t.rows {
		raw := cell(rec, cols["Network_zones"])
		if raw == "" {
			continue
		}
		zone, err := model.ParseZoneID(raw)
		if err != nil {
			return model.Network{}, &model.SchemaError{File: path, Field: "Network_zones", Detail: err.Error()}
		}
		if _, err := l.zones.Region(zone); err != nil {
			return model.Network{}, &model.UnmappedZoneError{Zone: zone, File: path}
		}
		name := raw
		if hasDesc && cell(rec, descPos) != "" {
			name = cell(rec, descPos)
		}
		rps, err := t.numberAt(rec, cols["RPS"], "RPS", i+2)
		if err != nil {
			return model.Network{}, err
		}
		ces, err := t.numberAt(rec, cols["CES"], "CES", i+2)
		if err != nil {
			return model.Network{}, err
		}
		net.Zones[zone] = model.ZonePolicy{Zone: zone, Name: name, RPS: nanToZero(rps), CES: nanToZero(ces)}
	}
	if len(net.Zones) == 0 {
		return model.Network{}, &model.SchemaError{File: path, Field: "Network_zones", Detail: "no zones"}
	}

	dirCols := make(map[int]int, len(net.Zones))
	for zone := range net.Zones {
		pos, ok := t.col(model.ZoneColumn(zone))
		if !ok {
			return model.Network{}, &model.SchemaError{File: path, Field: model.ZoneColumn(zone), Detail: "missing zone direction column"}
		}
		dirCols[zone] = pos
	}

	for i, rec := range t.rows {
		raw := cell(rec, cols["Network_lines"])
		if raw == "" {
			continue
		}
		lineF, ok := parseValue(raw)
		if !ok || math.IsNaN(lineF) {
			return model.Network{}, &model.SchemaError{File: path, Field: "Network_lines", Detail: fmt.Sprintf("line %d: %q", i+2, raw)}
		}
		maxFlow, err := t.numberAt(rec, cols["Line_Max_Flow_MW"], "Line_Max_Flow_MW", i+2)
		if err != nil {
			return model.Network{}, err
		}
		line := model.NetworkLine{
			Line:       int(lineF),
			PathName:   strings.ReplaceAll(cell(rec, cols["Transmission Path Name"]), "_to_", " to "),
			MaxFlowMW:  nanToZero(maxFlow),
			Directions: map[int]float64{},
		}
		for zone, pos := range dirCols {
			d, err := t.numberAt(rec, pos, model.ZoneColumn(zone), i+2)
			if err != nil {
				return model.Network{}, err
			}
			if !math.IsNaN(d) && d != 0 {
				line.Directions[zone] = d
			}
		}
		net.Lines = append(net.Lines, line)
	}
	return net, nil
}

// ReadGenerators reads Inputs/Generators_data.csv.
func (l *Loader) ReadGenerators(inputsDir string) ([]model.Generator, error) {
	path, err := ResolveFile(inputsDir, "Generators_data.csv")
	if err != nil {
		return nil, err
	}
	t, err := readHeaderTable(path)
	if err != nil {
		return nil, err
	}
	zonePos, ok := t.col("zone")
	if !ok {
		return nil, &model.SchemaError{File: path, Field: "zone", Detail: "missing column"}
	}
	cols, err := t.require("RPS", "CES", "STOR", "DR")
	if err != nil {
		return nil, err
	}
	ridPos, hasRID := t.col("R_ID")
	resPos, hasRes := t.col("Resource")

	out := make([]model.Generator, 0, len(t.rows))
	for i, rec := range t.rows {
		zone, err := model.ParseZoneID(cell(rec, zonePos))
		if err != nil {
			return nil, &model.SchemaError{File: path, Field: "zone", Detail: fmt.Sprintf("line %d: %v", i+2, err)}
		}
		if _, err := l.zones.Region(zone); err != nil {
			return nil, &model.UnmappedZoneError{Zone: zone, File: path}
		}
		g := model.Generator{RID: i + 1, Zone: zone}
		if hasRID {
			if rid, err := strconv.Atoi(cell(rec, ridPos)); err == nil {
				g.RID = rid
			}
		}
		if hasRes {
			g.Resource = cell(rec, resPos)
		}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"RPS", &g.RPS},
			{"CES", &g.CES},
			{"STOR", &g.STOR},
			{"DR", &g.DR},
		}
		for _, f := range fields {
			v, err := t.numberAt(rec, cols[f.name], f.name, i+2)
			if err != nil {
				return nil, err
			}
			*f.dst = nanToZero(v)
		}
		g.HEAT = t.optionalNumber(rec, "HEAT")
		g.SpurMiles = t.optionalNumber(rec, "spur_line_miles")
		g.SpurCapex = t.optionalNumber(rec, "spur_line_capex")
		out = append(out, g)
	}
	return out, nil
}

// ReadDemand reads the zonal load profile from Inputs/Load_data.csv and the
// per-timestep weights. Weights come from Results/time_weights.csv when the
// solver wrote one, otherwise from the representative-period weights
// (Sub_Weights spread evenly over Timesteps_per_Rep_Period).
func (l *Loader) ReadDemand(inputsDir, resultsDir string) (model.DemandInputs, error) {
	path, err := ResolveFile(inputsDir, "Load_data.csv")
	if err != nil {
		return model.DemandInputs{}, err
	}
	t, err := readHeaderTable(path)
	if err != nil {
		return model.DemandInputs{}, err
	}

	loadCols := map[int]int{}
	for i, h := range t.header {
		h = strings.TrimSpace(h)
		if !strings.HasPrefix(h, "Load_MW_z") {
			continue
		}
		zone, err := model.ParseZoneID(h)
		if err != nil {
			return model.DemandInputs{}, &model.SchemaError{File: path, Field: h, Detail: err.Error()}
		}
		if _, err := l.zones.Region(zone); err != nil {
			return model.DemandInputs{}, &model.UnmappedZoneError{Zone: zone, File: path}
		}
		loadCols[zone] = i
	}
	if len(loadCols) == 0 {
		return model.DemandInputs{}, &model.SchemaError{File: path, Field: "Load_MW_z1", Detail: "no load columns"}
	}

	d := model.DemandInputs{Load: make(map[int][]float64, len(loadCols))}
	for zone, pos := range loadCols {
		series := make([]float64, len(t.rows))
		for i, rec := range t.rows {
			v, err := t.numberAt(rec, pos, t.header[pos], i+2)
			if err != nil {
				return model.DemandInputs{}, err
			}
			series[i] = nanToZero(v)
		}
		d.Load[zone] = series
	}

	weights, err := l.readWeights(t, resultsDir)
	if err != nil {
		return model.DemandInputs{}, err
	}
	if len(weights) != len(t.rows) {
		return model.DemandInputs{}, &model.SchemaError{
			File:   path,
			Field:  "Weight",
			Detail: fmt.Sprintf("%d weights for %d timesteps", len(weights), len(t.rows)),
		}
	}
	d.Weights = weights
	return d, nil
}

func (l *Loader) readWeights(load *headerTable, resultsDir string) ([]float64, error) {
	if fileExists(resultsDir, "time_weights.csv") {
		path, _ := ResolveFile(resultsDir, "time_weights.csv")
		t, err := readHeaderTable(path)
		if err != nil {
			return nil, err
		}
		cols, err := t.require("Weight")
		if err != nil {
			return nil, err
		}
		out := make([]float64, 0, len(t.rows))
		for i, rec := range t.rows {
			v, err := t.numberAt(rec, cols["Weight"], "Weight", i+2)
			if err != nil {
				return nil, err
			}
			out = append(out, nanToZero(v))
		}
		return out, nil
	}

	cols, err := load.require("Sub_Weights", "Timesteps_per_Rep_Period")
	if err != nil {
		return nil, err
	}
	if len(load.rows) == 0 {
		return nil, &model.SchemaError{File: load.path, Field: "Timesteps_per_Rep_Period", Detail: "no timesteps"}
	}
	perPeriod, ok := parseValue(cell(load.rows[0], cols["Timesteps_per_Rep_Period"]))
	if !ok || math.IsNaN(perPeriod) || perPeriod <= 0 {
		return nil, &model.SchemaError{File: load.path, Field: "Timesteps_per_Rep_Period", Detail: "must be a positive number"}
	}
	steps := int(perPeriod)
	var subWeights []float64
	for _, rec := range load.rows {
		v, ok := parseValue(cell(rec, cols["Sub_Weights"]))
		if !ok || math.IsNaN(v) {
			break
		}
		subWeights = append(subWeights, v)
	}
	out := make([]float64, 0, len(load.rows))
	for t := range load.rows {
		p := t / steps
		if p >= len(subWeights) {
			return nil, &model.SchemaError{File: load.path, Field: "Sub_Weights", Detail: fmt.Sprintf("no weight for representative period %d", p+1)}
		}
		out = append(out, subWeights[p]/float64(steps))
	}
	return out, nil
}

type settingsFile struct {
	RPSAdjustment *float64 `yaml:"RPS_Adjustment"`
	CESAdjustment *float64 `yaml:"CES_Adjustment"`
}

// ReadSettings reads the RPS/CES manual adjustments from the case's
// GenX_settings.yml. Absent keys read as 0.
func (l *Loader) ReadSettings(caseDir string) (model.Settings, error) {
	path, err := ResolveFile(caseDir, "GenX_settings.yml")
	if err != nil {
		return model.Settings{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Settings{}, err
	}
	var f settingsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return model.Settings{}, &model.SchemaError{File: path, Detail: err.Error()}
	}
	var s model.Settings
	if f.RPSAdjustment != nil {
		s.RPSAdjustment = *f.RPSAdjustment
	} else {
		l.logger.Warn("settings missing key, using 0", "file", filepath.Base(path), "key", "RPS_Adjustment")
	}
	if f.CESAdjustment != nil {
		s.CESAdjustment = *f.CESAdjustment
	} else {
		l.logger.Warn("settings missing key, using 0", "file", filepath.Base(path), "key", "CES_Adjustment")
	}
	return s, nil
}
