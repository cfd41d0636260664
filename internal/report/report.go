// Package report renders a compilation for people: XLSX workbooks with one
// sheet per metric and period, PNG charts, and the attribution CSV.
package report

import (
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"genx-compile/internal/compile"
	"genx-compile/internal/observability/metrics"
)

// Options selects the outputs of Emit.
type Options struct {
	Dir            string
	TotalWorkbook  string
	RegionWorkbook string
	AttributionCSV string
	Charts         bool
	Orderings      map[string][]string
}

// Emit writes every configured output and returns the written paths.
func Emit(res *compile.Result, opts Options, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var written []string
	timed := func(format string, fn func() ([]string, error)) error {
		start := time.Now()
		paths, err := fn()
		metrics.ObserveEmit(format, metrics.Result(err), time.Since(start))
		if err != nil {
			return err
		}
		for _, p := range paths {
			logger.Info("report written", "format", format, "path", p)
		}
		written = append(written, paths...)
		return nil
	}

	workbooks := []struct {
		name  string
		level string
	}{
		{opts.TotalWorkbook, compile.LevelTotal},
		{opts.RegionWorkbook, compile.LevelRegion},
	}
	for _, wb := range workbooks {
		if wb.name == "" {
			continue
		}
		path := filepath.Join(opts.Dir, wb.name)
		level := wb.level
		if err := timed("xlsx", func() ([]string, error) {
			return []string{path}, WriteWorkbook(path, res.Periods, level)
		}); err != nil {
			return written, err
		}
	}
	if opts.AttributionCSV != "" {
		path := filepath.Join(opts.Dir, opts.AttributionCSV)
		if err := timed("csv", func() ([]string, error) {
			return []string{path}, WriteAttributionCSV(path, res.Attribution)
		}); err != nil {
			return written, err
		}
	}
	if opts.Charts {
		if err := timed("png", func() ([]string, error) {
			return WriteCharts(res, opts.Dir, opts.Orderings)
		}); err != nil {
			return written, err
		}
	}
	return written, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
