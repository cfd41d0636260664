// Package transfer seeds the solver inputs of a planning period with the
// build-out of the period before it.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"genx-compile/internal/chain"
	"genx-compile/internal/compile"
	"genx-compile/internal/model"
	"genx-compile/internal/observability/metrics"
)

// MarkerFile records that a case's inputs were already updated.
const MarkerFile = "inputs_updated.txt"

// Status of one transferred case.
const (
	StatusUpdated = metrics.TransferUpdated
	StatusSkipped = metrics.TransferSkipped
	StatusCurrent = metrics.TransferCurrent
)

// Outcome reports what happened to one case of the target period.
type Outcome struct {
	Case        model.Case
	Predecessor string
	Status      string
	Reason      string
}

// Transferer copies final capacities and transmission build into the next
// period's Generators_data.csv and Network.csv.
type Transferer struct {
	resolver *chain.Resolver
	exclude  []string
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Transferer. Resources whose name contains an exclusion key
// keep their existing capacity.
func New(resolver *chain.Resolver, exclude []string, logger *slog.Logger) *Transferer {
	if logger == nil {
		logger = slog.Default()
	}
	lower := make([]string, 0, len(exclude))
	for _, e := range exclude {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			lower = append(lower, e)
		}
	}
	return &Transferer{resolver: resolver, exclude: lower, logger: logger, now: time.Now}
}

// Run updates every case of period to from its predecessor in period from.
// A case without a predecessor folder is skipped with a warning; a case
// already carrying the marker is left alone.
func (t *Transferer) Run(ctx context.Context, root string, from, to int) ([]Outcome, error) {
	prev, err := compile.Cases(root, from)
	if err != nil {
		return nil, err
	}
	next, err := compile.InputCases(root, to)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Case, len(prev))
	for _, c := range prev {
		byID[c.ID] = c
	}

	outcomes := make([]Outcome, 0, len(next))
	for _, c := range next {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		o := Outcome{Case: c, Predecessor: t.resolver.Predecessor(to, c)}
		src, ok := byID[o.Predecessor]
		switch {
		case !ok:
			o.Status = StatusSkipped
			o.Reason = fmt.Sprintf("%v: no %d results for case %s", model.ErrMissingCaseFolder, from, o.Predecessor)
			t.logger.Warn("transfer skipped", "case", c.ID, "predecessor", o.Predecessor, "year", from, "error", model.ErrMissingCaseFolder)
		case marked(c):
			o.Status = StatusCurrent
			t.logger.Info("inputs already updated", "case", c.ID, "year", to)
		default:
			if err := t.Apply(src, c); err != nil {
				return outcomes, fmt.Errorf("transfer %s -> %s: %w", src.ID, c.ID, err)
			}
			o.Status = StatusUpdated
			t.logger.Info("inputs updated", "case", c.ID, "predecessor", src.ID, "year", to)
		}
		metrics.IncTransfer(o.Status)
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func marked(c model.Case) bool {
	_, err := os.Stat(filepath.Join(c.Dir, MarkerFile))
	return err == nil
}

// Apply writes src's results into dst's inputs and drops the marker. Both
// input files are rewritten only once both have been updated in memory.
func (t *Transferer) Apply(src, dst model.Case) error {
	gens, err := t.generators(src, dst)
	if err != nil {
		return err
	}
	network, err := t.network(src, dst)
	if err != nil {
		return err
	}
	for _, f := range []*csvFile{gens, network} {
		if err := f.save(); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	note := fmt.Sprintf("Inputs modified with previous period results (case %s) on %s\n",
		src.ID, t.now().Format("2006-01-02 15.04.05"))
	return os.WriteFile(filepath.Join(dst.Dir, MarkerFile), []byte(note), 0o644)
}

func (t *Transferer) excluded(name string) bool {
	name = strings.ToLower(name)
	for _, e := range t.exclude {
		if strings.Contains(name, e) {
			return true
		}
	}
	return false
}

// generators sets Existing_Cap_MW from EndCap for non-excluded resources and
// Existing_Cap_MWh from EndEnergyCap for all of them, row by row.
func (t *Transferer) generators(src, dst model.Case) (*csvFile, error) {
	capacity, err := openCSV(src.ResultsDir(), "capacity.csv")
	if err != nil {
		return nil, err
	}
	gens, err := openCSV(dst.InputsDir(), "Generators_data.csv")
	if err != nil {
		return nil, err
	}
	capName, err := capacity.mustCol("Resource")
	if err != nil {
		return nil, err
	}
	endCap, err := capacity.mustCol("EndCap")
	if err != nil {
		return nil, err
	}
	endEnergy, hasEnergy := capacity.col("EndEnergyCap")
	genName, err := gens.mustCol("Resource")
	if err != nil {
		return nil, err
	}
	existing, err := gens.mustCol("Existing_Cap_MW")
	if err != nil {
		return nil, err
	}
	existingMWh, hasMWh := gens.col("Existing_Cap_MWh")

	var all, kept []int
	for i := range capacity.rows {
		name := capacity.cell(i, capName)
		if strings.EqualFold(name, "Total") || name == "" {
			continue
		}
		all = append(all, i)
		if !t.excluded(name) {
			kept = append(kept, i)
		}
	}
	var genKept []int
	for i := range gens.rows {
		if !t.excluded(gens.cell(i, genName)) {
			genKept = append(genKept, i)
		}
	}
	if len(kept) != len(genKept) {
		return nil, &model.SchemaError{File: gens.path, Field: "Existing_Cap_MW",
			Detail: fmt.Sprintf("%d resources, previous period has %d", len(genKept), len(kept))}
	}
	for j, g := range genKept {
		v, err := capacity.number(kept[j], endCap, "EndCap")
		if err != nil {
			return nil, err
		}
		gens.set(g, existing, v)
	}
	if hasEnergy && hasMWh {
		if len(all) != len(gens.rows) {
			return nil, &model.SchemaError{File: gens.path, Field: "Existing_Cap_MWh",
				Detail: fmt.Sprintf("%d resources, previous period has %d", len(gens.rows), len(all))}
		}
		for j, i := range all {
			v, err := capacity.number(i, endEnergy, "EndEnergyCap")
			if err != nil {
				return nil, err
			}
			gens.set(j, existingMWh, v)
		}
	} else {
		t.logger.Debug("energy capacity not transferred", "case", dst.ID)
	}
	return gens, nil
}

// network adds each line's new transmission capacity to its maximum flow.
func (t *Transferer) network(src, dst model.Case) (*csvFile, error) {
	expansion, err := openCSV(src.ResultsDir(), "network_expansion.csv")
	if err != nil {
		return nil, err
	}
	network, err := openCSV(dst.InputsDir(), "Network.csv")
	if err != nil {
		return nil, err
	}
	lineCol, err := expansion.mustCol("Line")
	if err != nil {
		return nil, err
	}
	newCap, err := expansion.mustCol("New_Trans_Capacity")
	if err != nil {
		return nil, err
	}
	netLine, err := network.mustCol("Network_lines")
	if err != nil {
		return nil, err
	}
	maxFlow, err := network.mustCol("Line_Max_Flow_MW")
	if err != nil {
		return nil, err
	}

	added := map[string]float64{}
	for i := range expansion.rows {
		line := expansion.cell(i, lineCol)
		if line == "" || strings.EqualFold(line, "Total") {
			continue
		}
		v, err := expansion.number(i, newCap, "New_Trans_Capacity")
		if err != nil {
			return nil, err
		}
		added[normLine(line)] = v
	}
	for i := range network.rows {
		line := network.cell(i, netLine)
		if line == "" {
			continue
		}
		v, ok := added[normLine(line)]
		if !ok {
			return nil, &model.SchemaError{File: expansion.path, Field: "Line", Detail: fmt.Sprintf("no expansion for line %s", line)}
		}
		delete(added, normLine(line))
		current, err := network.number(i, maxFlow, "Line_Max_Flow_MW")
		if err != nil {
			return nil, err
		}
		network.set(i, maxFlow, current+v)
	}
	if len(added) > 0 {
		return nil, &model.SchemaError{File: network.path, Field: "Network_lines",
			Detail: fmt.Sprintf("%d expanded lines missing", len(added))}
	}
	return network, nil
}

// normLine lets "3" and "3.0" name the same line.
func normLine(s string) string {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

// ErrPeriodNotFound is returned when a requested year has no directory.
var ErrPeriodNotFound = errors.New("transfer: period not found")

// CheckPeriods verifies both years exist under root.
func CheckPeriods(root string, from, to int) error {
	years, err := compile.Years(root)
	if err != nil {
		return err
	}
	have := map[int]bool{}
	for _, y := range years {
		have[y] = true
	}
	for _, y := range []int{from, to} {
		if !have[y] {
			return fmt.Errorf("%w: %d", ErrPeriodNotFound, y)
		}
	}
	if from >= to {
		return fmt.Errorf("transfer: %d does not precede %d", from, to)
	}
	return nil
}
