package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"genx-compile/internal/compile"
	"genx-compile/internal/model"

	"github.com/xuri/excelize/v2"
)

// SheetName is the sheet for one metric of one period.
func SheetName(metric string, year int) string {
	return fmt.Sprintf("%s_%d", metric, year)
}

// BuildWorkbook renders one level ("region" or "total") of every period:
// one sheet per metric and year, index columns first.
func BuildWorkbook(periods []compile.PeriodResult, level string) (*excelize.File, error) {
	f := excelize.NewFile()
	first := true
	for i := range periods {
		p := &periods[i]
		b, ok := p.Level(level)
		if !ok {
			return nil, fmt.Errorf("unknown level %q", level)
		}
		for _, metric := range b.Metrics {
			sheet := SheetName(metric, p.Year)
			if first {
				if err := f.SetSheetName("Sheet1", sheet); err != nil {
					return nil, err
				}
				first = false
			} else if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
			if err := writeSheet(f, sheet, b.Tables[metric]); err != nil {
				return nil, fmt.Errorf("sheet %s: %w", sheet, err)
			}
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, t *model.Table) error {
	header := append(append([]string(nil), t.Index...), t.Columns...)
	for c, h := range header {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range t.Rows() {
		for c, k := range row.Key {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, k)
		}
		for c, v := range row.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(len(row.Key)+c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}

// WorkbookBytes renders a level to XLSX bytes.
func WorkbookBytes(periods []compile.PeriodResult, level string) ([]byte, error) {
	f, err := BuildWorkbook(periods, level)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWorkbook saves a level's workbook to path.
func WriteWorkbook(path string, periods []compile.PeriodResult, level string) error {
	raw, err := WorkbookBytes(periods, level)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
