package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"genx-compile/internal/model"
)

var attributionHeader = []string{
	"Year",
	"Case",
	"Zone",
	"Import Costs",
	"Export Revenues",
	"Net Trade Costs",
	"RPS Costs",
	"CES Costs",
	"Total Extra Costs",
}

// WriteAttributionCSV writes the region-attributed costs, one row per year,
// case and region.
func WriteAttributionCSV(path string, records []model.TradeAttributionRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteAttribution(f, records)
}

func WriteAttribution(out io.Writer, records []model.TradeAttributionRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(attributionHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Year),
			r.Case,
			r.Region,
			fmtInt(r.ImportCosts),
			fmtInt(r.ExportRevenues),
			fmtInt(r.NetTradeCosts),
			fmtInt(r.RPSCosts),
			fmtInt(r.CESCosts),
			fmtInt(r.TotalExtraCosts()),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
