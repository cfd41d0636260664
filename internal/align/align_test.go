package align

import (
	"errors"
	"math"
	"testing"

	"genx-compile/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionFrame(t *testing.T, c string, values map[string]float64) Frame {
	t.Helper()
	tbl := model.NewTable(c, []string{"Region"}, []string{"Sum"})
	for region, v := range values {
		require.NoError(t, tbl.Set("Sum", v, region))
	}
	return Frame{Case: c, Table: tbl}
}

func capacityFrame(t *testing.T, c string, rows map[[2]string][]float64) Frame {
	t.Helper()
	tbl := model.NewTable(c, []string{"Region", "Resource Name"},
		[]string{model.StartCapacity, model.RetiredCapacity, model.NewCapacity, model.FinalCapacity})
	for key, vals := range rows {
		for i, col := range tbl.Columns {
			require.NoError(t, tbl.Set(col, vals[i], key[0], key[1]))
		}
	}
	return Frame{Case: c, Table: tbl}
}

func TestCheckOrder(t *testing.T) {
	frames := []Frame{{Case: "A"}, {Case: "B"}}

	assert.NoError(t, CheckOrder([]string{"B", "A"}, frames))

	tests := []struct {
		name  string
		order []string
	}{
		{"dropped", []string{"A"}},
		{"duplicated", []string{"A", "B", "A"}},
		{"unknown", []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOrder(tt.order, frames)
			assert.True(t, errors.Is(err, model.ErrCaseOrder))
		})
	}
}

func TestColumnThreeCasesTwoRegions(t *testing.T) {
	order := []string{"No Policy", "RPS only", "Coal Phaseout"}
	frames := []Frame{
		regionFrame(t, "Coal Phaseout", map[string]float64{"North": 3, "South": 30}),
		regionFrame(t, "No Policy", map[string]float64{"North": 1, "South": 10}),
		regionFrame(t, "RPS only", map[string]float64{"North": 2, "South": 20}),
	}

	tbl, err := Column("emissions", order, frames, "Sum")
	require.NoError(t, err)

	assert.Equal(t, order, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
	rows := tbl.Rows()
	assert.Equal(t, []string{"North"}, rows[0].Key)
	assert.Equal(t, []float64{1, 2, 3}, rows[0].Values)
	assert.Equal(t, []float64{10, 20, 30}, rows[1].Values)
}

func TestColumnMissingRowIsNaN(t *testing.T) {
	order := []string{"A", "B"}
	frames := []Frame{
		regionFrame(t, "A", map[string]float64{"North": 1, "South": 2}),
		regionFrame(t, "B", map[string]float64{"North": 5}),
	}
	tbl, err := Column("energy", order, frames, "Sum")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(tbl.Value("B", "South")))
	assert.Equal(t, 2.0, tbl.Value("A", "South"))
}

func TestPivotNegatesRetired(t *testing.T) {
	order := []string{"No Policy", "RPS only", "Coal Phaseout"}
	raw := map[string]map[[2]string][]float64{
		"No Policy": {
			{"North", "Coal"}:  {500, 100, 0, 400},
			{"South", "Solar"}: {0, 0, 200, 200},
		},
		"RPS only": {
			{"North", "Coal"}:  {500, 250, 0, 250},
			{"South", "Solar"}: {0, 0, 400, 400},
		},
		"Coal Phaseout": {
			{"North", "Coal"}:  {300, 300, 0, 0},
			{"South", "Solar"}: {0, 0, 600, 600},
		},
	}
	var frames []Frame
	for c, rows := range raw {
		frames = append(frames, capacityFrame(t, c, rows))
	}

	tbl, err := Pivot("capacity", order, frames, "Category")
	require.NoError(t, err)

	assert.Equal(t, []string{"Region", "Category", "Resource Name"}, tbl.Index)
	assert.Equal(t, order, tbl.Columns)

	perCategory := map[string]int{}
	for _, r := range tbl.Rows() {
		perCategory[r.Key[1]]++
		if r.Key[1] == model.RetiredCapacity {
			for _, v := range r.Values {
				assert.LessOrEqual(t, v, 0.0)
			}
		}
	}
	for _, cat := range []string{model.StartCapacity, model.RetiredCapacity, model.NewCapacity, model.FinalCapacity} {
		assert.Equal(t, 2, perCategory[cat], cat)
	}

	for c, rows := range raw {
		assert.Equal(t, rows[[2]string{"North", "Coal"}][1],
			math.Abs(tbl.Value(c, "North", model.RetiredCapacity, "Coal")), c)
	}
}

func TestPivotRejectsBadOrder(t *testing.T) {
	frames := []Frame{capacityFrame(t, "A", map[[2]string][]float64{{"North", "Coal"}: {1, 1, 1, 1}})}
	_, err := Pivot("capacity", []string{"A", "A"}, frames, "Category")
	assert.ErrorIs(t, err, model.ErrCaseOrder)
}

func TestStack(t *testing.T) {
	a := model.NewTable("a", []string{"Region"}, []string{"cFix", "cVar"})
	require.NoError(t, a.Set("cFix", 1, "North"))
	require.NoError(t, a.Set("cVar", 2, "North"))
	b := model.NewTable("b", []string{"Region"}, []string{"cFix", "cVar"})
	require.NoError(t, b.Set("cFix", 3, "North"))
	require.NoError(t, b.Set("cVar", math.NaN(), "North"))

	tbl, err := Stack("costs", []string{"B", "A"}, []Frame{{Case: "A", Table: a}, {Case: "B", Table: b}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Case", "Region"}, tbl.Index)
	rows := tbl.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"B", "North"}, rows[0].Key)
	assert.Equal(t, 3.0, rows[0].Values[0])
	assert.True(t, math.IsNaN(rows[0].Values[1]))

	totals, err := Totals(tbl, "costs", "Case")
	require.NoError(t, err)
	assert.Equal(t, 0.0, totals.Value("cVar", "B"))
	assert.Equal(t, 2.0, totals.Value("cVar", "A"))
}
