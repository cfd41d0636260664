package model

// TimeSeries is a per-timestep table such as flow.csv or prices.csv: one row
// per timestep label, one column per line or zone.
type TimeSeries struct {
	Steps   []string
	Columns []string
	values  map[string][]float64
	index   map[string]int
}

func NewTimeSeries(steps, columns []string) *TimeSeries {
	ts := &TimeSeries{
		Steps:   steps,
		Columns: columns,
		values:  make(map[string][]float64, len(columns)),
		index:   make(map[string]int, len(steps)),
	}
	for i, s := range steps {
		ts.index[s] = i
	}
	for _, c := range columns {
		ts.values[c] = make([]float64, len(steps))
	}
	return ts
}

func (ts *TimeSeries) Set(column string, step int, v float64) {
	if col, ok := ts.values[column]; ok && step >= 0 && step < len(col) {
		col[step] = v
	}
}

// Column returns the series for column in step order.
func (ts *TimeSeries) Column(column string) ([]float64, bool) {
	col, ok := ts.values[column]
	return col, ok
}

// At returns the value at a step label.
func (ts *TimeSeries) At(column, step string) (float64, bool) {
	col, ok := ts.values[column]
	if !ok {
		return 0, false
	}
	i, ok := ts.index[step]
	if !ok {
		return 0, false
	}
	return col[i], true
}
