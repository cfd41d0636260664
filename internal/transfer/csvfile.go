package transfer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"genx-compile/internal/loader"
	"genx-compile/internal/model"

	"github.com/shopspring/decimal"
)

// csvFile is a header CSV kept as text so untouched cells round-trip
// unchanged.
type csvFile struct {
	path   string
	header []string
	rows   [][]string
}

func openCSV(dir, name string) (*csvFile, error) {
	path, err := loader.ResolveFile(dir, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open CSV: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, &model.SchemaError{File: path, Detail: "empty file"}
	}
	return &csvFile{path: path, header: records[0], rows: records[1:]}, nil
}

func (f *csvFile) col(name string) (int, bool) {
	for i, h := range f.header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, true
		}
	}
	return 0, false
}

func (f *csvFile) mustCol(name string) (int, error) {
	i, ok := f.col(name)
	if !ok {
		return 0, &model.SchemaError{File: f.path, Field: name, Detail: "missing column"}
	}
	return i, nil
}

func (f *csvFile) cell(row, col int) string {
	if col >= len(f.rows[row]) {
		return ""
	}
	return strings.TrimSpace(f.rows[row][col])
}

func (f *csvFile) set(row, col int, v float64) {
	for len(f.rows[row]) <= col {
		f.rows[row] = append(f.rows[row], "")
	}
	f.rows[row][col] = formatRounded(v)
}

func (f *csvFile) number(row, col int, field string) (float64, error) {
	raw := f.cell(row, col)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &model.SchemaError{File: f.path, Field: field, Detail: fmt.Sprintf("line %d: not a number: %q", row+2, raw)}
	}
	return v, nil
}

// save replaces the file through a temporary sibling.
func (f *csvFile) save() error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".transfer-*.csv")
	if err != nil {
		return err
	}
	w := csv.NewWriter(tmp)
	if err := w.Write(f.header); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := w.WriteAll(f.rows); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// formatRounded writes v rounded half away from zero to two places.
func formatRounded(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}
