package loader

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"genx-compile/internal/model"
)

// ResolveFile finds name inside dir ignoring case; the solver has written
// both "power.csv" and "Power.csv" across versions.
func ResolveFile(dir, name string) (string, error) {
	exact := filepath.Join(dir, name)
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &model.SchemaError{File: exact, Detail: err.Error()}
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", &model.SchemaError{File: exact, Detail: "file not found"}
}

func fileExists(dir, name string) bool {
	_, err := ResolveFile(dir, name)
	return err == nil
}

// readCSV reads a whole file. Rows may have differing lengths.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, &model.SchemaError{File: path, Detail: "empty file"}
	}
	return records, nil
}

// headerTable is a row-oriented CSV with a header line.
type headerTable struct {
	path   string
	header []string
	index  map[string]int
	rows   [][]string
}

func readHeaderTable(path string) (*headerTable, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	t := &headerTable{path: path, header: records[0], rows: records[1:]}
	t.index = mapHeaders(records[0])
	return t, nil
}

func mapHeaders(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	return index
}

// col returns the position of the first present column among names.
func (t *headerTable) col(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := t.index[strings.ToLower(n)]; ok {
			return i, true
		}
	}
	return 0, false
}

// require returns positions for every name or a SchemaError naming the first
// missing column.
func (t *headerTable) require(names ...string) (map[string]int, error) {
	out := make(map[string]int, len(names))
	for _, n := range names {
		i, ok := t.col(n)
		if !ok {
			return nil, &model.SchemaError{File: t.path, Field: n, Detail: "missing column"}
		}
		out[n] = i
	}
	return out, nil
}

func cell(record []string, pos int) string {
	if pos < 0 || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

// parseValue reads a numeric cell. Blank cells and the solver's "-" sentinel
// are missing (NaN).
func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), false
	}
	return v, true
}

// numberAt parses a required numeric cell.
func (t *headerTable) numberAt(record []string, pos int, field string, line int) (float64, error) {
	v, ok := parseValue(cell(record, pos))
	if !ok {
		return 0, &model.SchemaError{File: t.path, Field: field, Detail: fmt.Sprintf("line %d: not a number: %q", line, cell(record, pos))}
	}
	return v, nil
}

// optionalNumber reads a numeric cell from an optional column; absent
// columns and missing cells read as 0.
func (t *headerTable) optionalNumber(record []string, field string) float64 {
	pos, ok := t.col(field)
	if !ok {
		return 0
	}
	v, _ := parseValue(cell(record, pos))
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// transposed is a solver file stored with metrics as rows: the first cell of
// every row is its label and the first row names the columns.
type transposed struct {
	path    string
	columns []string
	rows    map[string][]string
}

func readTransposed(path string) (*transposed, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	t := &transposed{path: path, rows: make(map[string][]string, len(records))}
	header := records[0]
	if len(header) > 1 {
		t.columns = header[1:]
	}
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		label := strings.TrimSpace(rec[0])
		if _, dup := t.rows[label]; dup {
			continue
		}
		t.rows[label] = rec[1:]
	}
	return t, nil
}

// row returns the first present row among labels.
func (t *transposed) row(labels ...string) ([]string, error) {
	for _, l := range labels {
		if r, ok := t.rows[l]; ok {
			return r, nil
		}
	}
	return nil, &model.SchemaError{File: t.path, Field: labels[0], Detail: "missing row"}
}

func isTotal(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "total")
}
